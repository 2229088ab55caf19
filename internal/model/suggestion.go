package model

import (
	"fmt"
	"time"
)

// SuggestionPriority is the ordinal urgency of a suggestion.
type SuggestionPriority string

const (
	PriorityCritical  SuggestionPriority = "critical"
	PriorityImportant SuggestionPriority = "important"
	PriorityHelpful   SuggestionPriority = "helpful"
	PriorityOptional  SuggestionPriority = "optional"
)

var suggestionPriorityRank = map[SuggestionPriority]int{
	PriorityCritical:  4,
	PriorityImportant: 3,
	PriorityHelpful:   2,
	PriorityOptional:  1,
}

// SuggestionPriorityRank returns the ordinal rank (higher = more urgent),
// or 0 for an unknown priority.
func SuggestionPriorityRank(p SuggestionPriority) int {
	return suggestionPriorityRank[p]
}

// SuggestionType identifies the detector that produced a suggestion.
type SuggestionType string

const (
	SuggestionBreakdown SuggestionType = "list_task_breakdown"
	SuggestionSchedule  SuggestionType = "task_calendar_schedule"
	SuggestionPrep      SuggestionType = "calendar_list_prep"
)

// SuggestionSource records which widget surfaced the pattern and which
// widgets a suggestion spans.
type SuggestionSource struct {
	Widget         string   `yaml:"widget" json:"widget"`
	Trigger        string   `yaml:"trigger" json:"trigger"`
	RelatedWidgets []string `yaml:"related_widgets,omitempty" json:"related_widgets,omitempty"`
}

// ModelConsensus summarises agreement across the heuristic scorers that
// contributed to a suggestion.
type ModelConsensus struct {
	Agreed  int      `yaml:"agreed" json:"agreed"`
	Total   int      `yaml:"total" json:"total"`
	Dissent []string `yaml:"dissent,omitempty" json:"dissent,omitempty"`
}

// ActionFunc is the callable behaviour behind a suggestion action. It never
// crosses the execution-context boundary; see ActionPayload.
type ActionFunc func() error

// Action is a user-invocable follow-up attached to a suggestion. Execute is
// rehydrated from a dispatch table after crossing the boundary and is never
// serialized.
type Action struct {
	ID    string `yaml:"id" json:"id"`
	Type  string `yaml:"type" json:"type"`
	Label string `yaml:"label" json:"label"`
	// Params carries the data the action needs on the other side of the
	// boundary (target ids, proposed slot, item texts). Values must be
	// plain JSON/YAML types.
	Params  map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
	Execute ActionFunc     `yaml:"-" json:"-"`
}

// Payload strips the action to its serializable fields.
func (a Action) Payload() ActionPayload {
	return ActionPayload{ID: a.ID, Type: a.Type, Label: a.Label, Params: a.Params}
}

// ActionPayload is the wire form of an Action.
type ActionPayload struct {
	ID     string         `yaml:"id" json:"id"`
	Type   string         `yaml:"type" json:"type"`
	Label  string         `yaml:"label" json:"label"`
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

// Suggestion is the zero-or-one output of a pattern detector. Its ID is
// deterministic for identical inputs so that re-running detection on an
// unchanged snapshot never inserts a duplicate.
type Suggestion struct {
	ID               string             `yaml:"id" json:"id"`
	Type             SuggestionType     `yaml:"type" json:"type"`
	Priority         SuggestionPriority `yaml:"priority" json:"priority"`
	Source           SuggestionSource   `yaml:"source" json:"source"`
	Title            string             `yaml:"title" json:"title"`
	Description      string             `yaml:"description" json:"description"`
	Reasoning        []string           `yaml:"reasoning" json:"reasoning"`
	Confidence       int                `yaml:"confidence" json:"confidence"`
	ModelConsensus   ModelConsensus     `yaml:"model_consensus" json:"model_consensus"`
	PatternFrequency int                `yaml:"pattern_frequency" json:"pattern_frequency"`
	FirstObserved    time.Time          `yaml:"first_observed" json:"first_observed"`
	LastObserved     time.Time          `yaml:"last_observed" json:"last_observed"`
	Actions          []Action           `yaml:"actions,omitempty" json:"actions,omitempty"`
}

// Validate checks the structural invariants a detector must uphold.
func (s Suggestion) Validate() error {
	if !ValidateID(s.ID) {
		return fmt.Errorf("invalid suggestion id: %q", s.ID)
	}
	if suggestionPriorityRank[s.Priority] == 0 {
		return fmt.Errorf("unknown suggestion priority: %q", s.Priority)
	}
	if s.Confidence < 0 || s.Confidence > 100 {
		return fmt.Errorf("confidence %d out of range [0,100]", s.Confidence)
	}
	return nil
}

// SuggestionPayload is the wire form of a Suggestion: identical except that
// actions are reduced to their serializable fields.
type SuggestionPayload struct {
	ID               string             `json:"id"`
	Type             SuggestionType     `json:"type"`
	Priority         SuggestionPriority `json:"priority"`
	Source           SuggestionSource   `json:"source"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	Reasoning        []string           `json:"reasoning"`
	Confidence       int                `json:"confidence"`
	ModelConsensus   ModelConsensus     `json:"model_consensus"`
	PatternFrequency int                `json:"pattern_frequency"`
	FirstObserved    time.Time          `json:"first_observed"`
	LastObserved     time.Time          `json:"last_observed"`
	Actions          []ActionPayload    `json:"actions,omitempty"`
}

// Payload converts a Suggestion to its wire form, stripping callables.
func (s Suggestion) Payload() SuggestionPayload {
	p := SuggestionPayload{
		ID:               s.ID,
		Type:             s.Type,
		Priority:         s.Priority,
		Source:           s.Source,
		Title:            s.Title,
		Description:      s.Description,
		Reasoning:        s.Reasoning,
		Confidence:       s.Confidence,
		ModelConsensus:   s.ModelConsensus,
		PatternFrequency: s.PatternFrequency,
		FirstObserved:    s.FirstObserved,
		LastObserved:     s.LastObserved,
	}
	for _, a := range s.Actions {
		p.Actions = append(p.Actions, a.Payload())
	}
	return p
}
