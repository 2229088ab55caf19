// Package correct turns conflicts into concrete, reversible auto-correction
// proposals and applies accepted ones through caller-supplied mutation
// callbacks. The engine itself never mutates the workspace.
package correct

import (
	"fmt"
	"math"
	"time"

	"github.com/kmiyata/prism/internal/model"
)

const (
	// allocateBlockDuration is the calendar block created for an
	// unscheduled high-priority task.
	allocateBlockDuration = time.Hour
	// pushBackDelay is how far a low-priority event is pushed to make
	// room for the allocated block.
	pushBackDelay = 2 * time.Hour
	// pushBackDiscount discounts confidence for the speculative push-back
	// correction.
	pushBackDiscount = 0.8
	// pushBackPriorityCeiling gates the push-back on the event being
	// genuinely low-stakes.
	pushBackPriorityCeiling = 50
)

// Generate derives auto-corrections from the given conflicts. Conflicts
// whose recommendation found no slot produce nothing.
func Generate(conflicts []model.Conflict) []model.AutoCorrection {
	var corrections []model.AutoCorrection
	for _, c := range conflicts {
		switch c.Type {
		case model.ConflictSchedule:
			corrections = append(corrections, generateReschedule(c)...)
		case model.ConflictPriority:
			corrections = append(corrections, generateAllocation(c)...)
		}
	}
	return corrections
}

// generateReschedule emits a start-time correction for the displaced event
// plus a paired end-time correction preserving the original duration. Only
// the start correction can require confirmation; the end move is a
// mechanical consequence.
func generateReschedule(c model.Conflict) []model.AutoCorrection {
	if c.Recommendation.SuggestedTime == nil || c.Recommendation.MoveID == "" {
		return nil
	}
	displaced := findItem(c.Items, c.Recommendation.MoveID)
	if displaced == nil {
		return nil
	}

	newStart := *c.Recommendation.SuggestedTime
	newEnd := newStart.Add(displaced.End.Sub(displaced.Start))

	return []model.AutoCorrection{
		{
			ID:         model.MustID(model.IDTypeCorrection, c.ID, displaced.ID, "start"),
			ConflictID: c.ID,
			Type:       model.CorrectionReschedule,
			TargetID:   displaced.ID,
			TargetType: model.TargetEvent,
			Action: model.CorrectionAction{
				Type:     model.CorrectionUpdate,
				Field:    "start",
				OldValue: displaced.Start,
				NewValue: newStart,
			},
			Reason:               fmt.Sprintf("move %q out of the overlap to %s", displaced.Title, newStart.Format("Mon Jan 2 15:04")),
			Confidence:           c.Recommendation.Confidence,
			RequiresConfirmation: c.Severity == model.SeverityCritical,
		},
		{
			ID:         model.MustID(model.IDTypeCorrection, c.ID, displaced.ID, "end"),
			ConflictID: c.ID,
			Type:       model.CorrectionReschedule,
			TargetID:   displaced.ID,
			TargetType: model.TargetEvent,
			Action: model.CorrectionAction{
				Type:     model.CorrectionUpdate,
				Field:    "end",
				OldValue: displaced.End,
				NewValue: newEnd,
			},
			Reason:               fmt.Sprintf("preserve the %s duration of %q", displaced.End.Sub(displaced.Start), displaced.Title),
			Confidence:           c.Recommendation.Confidence,
			RequiresConfirmation: false,
		},
	}
}

// generateAllocation emits an allocate-time correction creating a one-hour
// calendar block for the conflict's task and, when the conflicting event is
// low-priority, a discounted correction pushing that event back.
func generateAllocation(c model.Conflict) []model.AutoCorrection {
	if c.Recommendation.SuggestedTime == nil || len(c.Items) < 2 {
		return nil
	}
	task := c.Items[0]
	event := c.Items[1]
	start := *c.Recommendation.SuggestedTime

	block := model.CalendarEvent{
		ID:       model.MustID(model.IDTypeCorrection, c.ID, task.ID, "block"),
		Title:    task.Title,
		Start:    start,
		End:      start.Add(allocateBlockDuration),
		Type:     task.Type,
		Priority: &task.Priority,
	}

	corrections := []model.AutoCorrection{{
		ID:         model.MustID(model.IDTypeCorrection, c.ID, task.ID, "allocate"),
		ConflictID: c.ID,
		Type:       model.CorrectionAllocateTime,
		TargetID:   task.ID,
		TargetType: model.TargetEvent,
		Action: model.CorrectionAction{
			Type:     model.CorrectionCreate,
			NewValue: block,
		},
		Reason:               fmt.Sprintf("allocate a one-hour block for %q", task.Title),
		Confidence:           c.Recommendation.Confidence,
		RequiresConfirmation: false,
	}}

	if event.Priority < pushBackPriorityCeiling {
		corrections = append(corrections, model.AutoCorrection{
			ID:         model.MustID(model.IDTypeCorrection, c.ID, event.ID, "push"),
			ConflictID: c.ID,
			Type:       model.CorrectionReschedule,
			TargetID:   event.ID,
			TargetType: model.TargetEvent,
			Action: model.CorrectionAction{
				Type:     model.CorrectionUpdate,
				Field:    "start",
				OldValue: event.Start,
				NewValue: event.Start.Add(pushBackDelay),
			},
			Reason:               fmt.Sprintf("push %q back to make room for %q", event.Title, task.Title),
			Confidence:           int(math.Round(float64(c.Recommendation.Confidence) * pushBackDiscount)),
			RequiresConfirmation: false,
		})
	}

	return corrections
}

func findItem(items []model.ConflictItem, id string) *model.ConflictItem {
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
	}
	return nil
}
