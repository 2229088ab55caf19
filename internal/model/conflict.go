package model

import (
	"fmt"
	"sort"
	"time"
)

// ConflictType distinguishes schedule overlaps from priority mismatches.
type ConflictType string

const (
	ConflictSchedule ConflictType = "schedule"
	ConflictPriority ConflictType = "priority"
)

// Severity is the ordinal conflict rank: critical > high > medium > low.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

var severityRank = map[Severity]int{
	SeverityCritical: 4,
	SeverityHigh:     3,
	SeverityMedium:   2,
	SeverityLow:      1,
}

// SeverityRank returns the ordinal rank (higher = more severe), or 0 for an
// unknown severity.
func SeverityRank(s Severity) int {
	return severityRank[s]
}

// ValidateSeverity rejects severities outside the known ordinal scale.
func ValidateSeverity(s Severity) error {
	if severityRank[s] == 0 {
		return fmt.Errorf("unknown severity: %q", s)
	}
	return nil
}

// SortConflictsBySeverity orders conflicts most-severe-first. The sort is
// stable so conflicts of equal severity keep detection order.
func SortConflictsBySeverity(conflicts []Conflict) {
	sort.SliceStable(conflicts, func(i, j int) bool {
		return severityRank[conflicts[i].Severity] > severityRank[conflicts[j].Severity]
	})
}

// ConflictItem is one participant in a conflict.
type ConflictItem struct {
	ID       string    `yaml:"id" json:"id"`
	Title    string    `yaml:"title" json:"title"`
	Type     string    `yaml:"type,omitempty" json:"type,omitempty"`
	Priority int       `yaml:"priority" json:"priority"`
	Start    time.Time `yaml:"start,omitempty" json:"start,omitempty"`
	End      time.Time `yaml:"end,omitempty" json:"end,omitempty"`
}

// ConflictAnalysis carries the scoring trail behind a conflict.
type ConflictAnalysis struct {
	ModelsConsulted   int      `yaml:"models_consulted" json:"models_consulted"`
	Consensus         int      `yaml:"consensus" json:"consensus"`
	Reasoning         []string `yaml:"reasoning" json:"reasoning"`
	HumanCentricScore int      `yaml:"human_centric_score" json:"human_centric_score"`
}

// RecommendationAction names the proposed resolution for a conflict.
type RecommendationAction string

const (
	RecommendReschedule   RecommendationAction = "reschedule"
	RecommendAllocateTime RecommendationAction = "allocate-time"
)

// Recommendation is the resolution a conflict proposes. SuggestedTime is nil
// when no conflict-free slot was found within the search horizon.
type Recommendation struct {
	Action        RecommendationAction `yaml:"action" json:"action"`
	KeepID        string               `yaml:"keep_id,omitempty" json:"keep_id,omitempty"`
	MoveID        string               `yaml:"move_id,omitempty" json:"move_id,omitempty"`
	SuggestedTime *time.Time           `yaml:"suggested_time,omitempty" json:"suggested_time,omitempty"`
	Confidence    int                  `yaml:"confidence" json:"confidence"`
}

// Conflict is a detected incompatibility between two or more items.
// Items always has at least two entries for schedule conflicts.
type Conflict struct {
	ID             string           `yaml:"id" json:"id"`
	Type           ConflictType     `yaml:"type" json:"type"`
	Severity       Severity         `yaml:"severity" json:"severity"`
	Items          []ConflictItem   `yaml:"items" json:"items"`
	Analysis       ConflictAnalysis `yaml:"analysis" json:"analysis"`
	Recommendation Recommendation   `yaml:"recommendation" json:"recommendation"`
}

// Validate checks the structural invariants of a conflict record.
func (c Conflict) Validate() error {
	if !ValidateID(c.ID) {
		return fmt.Errorf("invalid conflict id: %q", c.ID)
	}
	if err := ValidateSeverity(c.Severity); err != nil {
		return err
	}
	if c.Type == ConflictSchedule && len(c.Items) < 2 {
		return fmt.Errorf("schedule conflict %s has %d items, need at least 2", c.ID, len(c.Items))
	}
	return nil
}
