package correct

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmiyata/prism/internal/model"
)

func scheduleConflict(severity model.Severity) model.Conflict {
	start := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	suggested := time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)
	return model.Conflict{
		ID:       model.MustID(model.IDTypeConflict, "schedule", "keep", "move"),
		Type:     model.ConflictSchedule,
		Severity: severity,
		Items: []model.ConflictItem{
			{ID: "keep", Title: "Keep me", Start: start.Add(-30 * time.Minute), End: start.Add(30 * time.Minute)},
			{ID: "move", Title: "Move me", Start: start, End: start.Add(time.Hour)},
		},
		Recommendation: model.Recommendation{
			Action:        model.RecommendReschedule,
			KeepID:        "keep",
			MoveID:        "move",
			SuggestedTime: &suggested,
			Confidence:    80,
		},
	}
}

func priorityConflict() model.Conflict {
	eventStart := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	return model.Conflict{
		ID:       model.MustID(model.IDTypeConflict, "priority", "t1", "e1"),
		Type:     model.ConflictPriority,
		Severity: model.SeverityHigh,
		Items: []model.ConflictItem{
			{ID: "t1", Title: "Finish filing", Type: "writing", Priority: 85},
			{ID: "e1", Title: "Optional webinar", Priority: 20, Start: eventStart, End: eventStart.Add(time.Hour)},
		},
		Recommendation: model.Recommendation{
			Action:        model.RecommendAllocateTime,
			KeepID:        "t1",
			MoveID:        "e1",
			SuggestedTime: &eventStart,
			Confidence:    85,
		},
	}
}

func TestGenerate_ReschedulePair(t *testing.T) {
	corrections := Generate([]model.Conflict{scheduleConflict(model.SeverityLow)})
	require.Len(t, corrections, 2)

	start, end := corrections[0], corrections[1]
	assert.Equal(t, "start", start.Action.Field)
	assert.Equal(t, "end", end.Action.Field)
	assert.Equal(t, model.CorrectionReschedule, start.Type)
	assert.False(t, start.RequiresConfirmation)
	assert.False(t, end.RequiresConfirmation)

	// End preserves the displaced event's one-hour duration.
	newStart := start.Action.NewValue.(time.Time)
	newEnd := end.Action.NewValue.(time.Time)
	assert.Equal(t, time.Hour, newEnd.Sub(newStart))

	for _, c := range corrections {
		assert.Equal(t, corrections[0].ConflictID, c.ConflictID)
		require.NoError(t, c.Validate())
	}
}

func TestGenerate_CriticalRequiresConfirmation(t *testing.T) {
	corrections := Generate([]model.Conflict{scheduleConflict(model.SeverityCritical)})
	require.Len(t, corrections, 2)
	assert.True(t, corrections[0].RequiresConfirmation, "start move of a critical conflict needs confirmation")
	assert.False(t, corrections[1].RequiresConfirmation, "end move is a mechanical consequence")
}

func TestGenerate_NoSlotNoCorrections(t *testing.T) {
	c := scheduleConflict(model.SeverityLow)
	c.Recommendation.SuggestedTime = nil
	assert.Empty(t, Generate([]model.Conflict{c}))
}

func TestGenerate_AllocationWithPushBack(t *testing.T) {
	corrections := Generate([]model.Conflict{priorityConflict()})
	require.Len(t, corrections, 2)

	allocate := corrections[0]
	assert.Equal(t, model.CorrectionAllocateTime, allocate.Type)
	assert.Equal(t, model.CorrectionCreate, allocate.Action.Type)
	block := allocate.Action.NewValue.(model.CalendarEvent)
	assert.Equal(t, time.Hour, block.Duration())
	assert.Equal(t, "Finish filing", block.Title)
	assert.Equal(t, "writing", block.Type)
	require.NotNil(t, block.Priority)
	assert.Equal(t, 85, *block.Priority)

	push := corrections[1]
	assert.Equal(t, model.CorrectionReschedule, push.Type)
	assert.Equal(t, "e1", push.TargetID)
	newStart := push.Action.NewValue.(time.Time)
	oldStart := push.Action.OldValue.(time.Time)
	assert.Equal(t, 2*time.Hour, newStart.Sub(oldStart))
	// 85 × 0.8 = 68.
	assert.Equal(t, 68, push.Confidence)
}

func TestGenerate_NoPushBackForHigherPriorityEvent(t *testing.T) {
	c := priorityConflict()
	c.Items[1].Priority = 60
	corrections := Generate([]model.Conflict{c})
	require.Len(t, corrections, 1)
	assert.Equal(t, model.CorrectionAllocateTime, corrections[0].Type)
}

func TestApply_DispatchTable(t *testing.T) {
	var calls []string
	cb := Callbacks{
		UpdateTask: func(id, field string, value any) error {
			calls = append(calls, "task:"+id+":"+field)
			return nil
		},
		UpdateCalendarEvent: func(id, field string, value any) error {
			calls = append(calls, "event:"+id+":"+field)
			return nil
		},
		AddCalendarEvent: func(event model.CalendarEvent) error {
			calls = append(calls, "create:"+event.Title)
			return nil
		},
		UpdateList: func(id, field string, value any) error {
			calls = append(calls, "list:"+id+":"+field)
			return nil
		},
	}

	base := model.AutoCorrection{
		ID:         model.MustID(model.IDTypeCorrection, "x"),
		ConflictID: model.MustID(model.IDTypeConflict, "x"),
	}

	updateEvent := base
	updateEvent.TargetType = model.TargetEvent
	updateEvent.TargetID = "e1"
	updateEvent.Action = model.CorrectionAction{Type: model.CorrectionUpdate, Field: "start"}
	require.NoError(t, Apply(updateEvent, cb))

	updateTask := base
	updateTask.TargetType = model.TargetTask
	updateTask.TargetID = "t1"
	updateTask.Action = model.CorrectionAction{Type: model.CorrectionUpdate, Field: "priority"}
	require.NoError(t, Apply(updateTask, cb))

	createEvent := base
	createEvent.TargetType = model.TargetEvent
	createEvent.Action = model.CorrectionAction{Type: model.CorrectionCreate, NewValue: model.CalendarEvent{Title: "Block"}}
	require.NoError(t, Apply(createEvent, cb))

	updateList := base
	updateList.TargetType = model.TargetList
	updateList.TargetID = "l1"
	updateList.Action = model.CorrectionAction{Type: model.CorrectionUpdate, Field: "items"}
	require.NoError(t, Apply(updateList, cb))

	assert.Equal(t, []string{"event:e1:start", "task:t1:priority", "create:Block", "list:l1:items"}, calls)
}

func TestApply_UnknownCombinationFails(t *testing.T) {
	c := model.AutoCorrection{
		ID:         model.MustID(model.IDTypeCorrection, "x"),
		TargetType: model.TargetList,
		Action:     model.CorrectionAction{Type: model.CorrectionCreate},
	}
	assert.Error(t, Apply(c, Callbacks{}))
}

func TestApply_PanickingCallbackContained(t *testing.T) {
	c := model.AutoCorrection{
		ID:         model.MustID(model.IDTypeCorrection, "x"),
		TargetID:   "e1",
		TargetType: model.TargetEvent,
		Action:     model.CorrectionAction{Type: model.CorrectionUpdate, Field: "start"},
	}
	cb := Callbacks{
		UpdateCalendarEvent: func(id, field string, value any) error {
			panic("store gone")
		},
	}
	assert.Error(t, Apply(c, cb))
}

func TestApplyAll_BestEffort(t *testing.T) {
	good := model.AutoCorrection{
		ID:         model.MustID(model.IDTypeCorrection, "good"),
		TargetID:   "e1",
		TargetType: model.TargetEvent,
		Action:     model.CorrectionAction{Type: model.CorrectionUpdate, Field: "start"},
	}
	bad := model.AutoCorrection{
		ID:         model.MustID(model.IDTypeCorrection, "bad"),
		TargetID:   "gone",
		TargetType: model.TargetEvent,
		Action:     model.CorrectionAction{Type: model.CorrectionUpdate, Field: "start"},
	}

	cb := Callbacks{
		UpdateCalendarEvent: func(id, field string, value any) error {
			if id == "gone" {
				return errors.New("event no longer exists")
			}
			return nil
		},
	}

	// A failure in the middle never aborts the remaining corrections.
	result := ApplyAll([]model.AutoCorrection{good, bad, good}, cb)
	assert.Equal(t, 2, result.Applied)
	assert.Equal(t, 1, result.Failed)
}
