package model

import "fmt"

// CorrectionType names the kind of automatic fix.
type CorrectionType string

const (
	CorrectionReschedule   CorrectionType = "reschedule"
	CorrectionAllocateTime CorrectionType = "allocate-time"
)

// TargetType names the workspace entity a correction mutates.
type TargetType string

const (
	TargetTask  TargetType = "task"
	TargetEvent TargetType = "event"
	TargetList  TargetType = "list"
)

// CorrectionActionType distinguishes updating an existing entity from
// creating a new one.
type CorrectionActionType string

const (
	CorrectionUpdate CorrectionActionType = "update"
	CorrectionCreate CorrectionActionType = "create"
)

// CorrectionAction is the concrete mutation a correction proposes. For
// updates, Field names the mutated attribute and OldValue enables reversal.
// For creates, NewValue holds the entity to insert.
type CorrectionAction struct {
	Type     CorrectionActionType `yaml:"type" json:"type"`
	Field    string               `yaml:"field,omitempty" json:"field,omitempty"`
	OldValue any                  `yaml:"old_value,omitempty" json:"old_value,omitempty"`
	NewValue any                  `yaml:"new_value" json:"new_value"`
}

// AutoCorrection is a concrete, reversible mutation proposal derived from a
// conflict. It is always traceable back to that conflict via ConflictID.
type AutoCorrection struct {
	ID                   string           `yaml:"id" json:"id"`
	ConflictID           string           `yaml:"conflict_id" json:"conflict_id"`
	Type                 CorrectionType   `yaml:"type" json:"type"`
	TargetID             string           `yaml:"target_id" json:"target_id"`
	TargetType           TargetType       `yaml:"target_type" json:"target_type"`
	Action               CorrectionAction `yaml:"action" json:"action"`
	Reason               string           `yaml:"reason" json:"reason"`
	Confidence           int              `yaml:"confidence" json:"confidence"`
	RequiresConfirmation bool             `yaml:"requires_confirmation" json:"requires_confirmation"`
}

// Validate checks the structural invariants of a correction record.
func (c AutoCorrection) Validate() error {
	if !ValidateID(c.ID) {
		return fmt.Errorf("invalid correction id: %q", c.ID)
	}
	if !ValidateID(c.ConflictID) {
		return fmt.Errorf("correction %s references invalid conflict id: %q", c.ID, c.ConflictID)
	}
	switch c.Type {
	case CorrectionReschedule, CorrectionAllocateTime:
	default:
		return fmt.Errorf("unknown correction type: %q", c.Type)
	}
	return nil
}
