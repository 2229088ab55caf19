package conflict

import (
	"fmt"
	"time"

	"github.com/kmiyata/prism/internal/model"
)

const (
	// priorityTaskFloor qualifies a task as urgent enough to deserve a
	// calendar slot.
	priorityTaskFloor = 70
	// priorityEventCeiling qualifies an event as low-stakes enough to be
	// challenged for its slot.
	priorityEventCeiling = 50
	// priorityBlockDuration is the calendar block proposed for the task.
	priorityBlockDuration = time.Hour
	// priorityHumanCentricScore is fixed for priority conflicts.
	priorityHumanCentricScore = 85
)

// DetectPriorityConflicts pairs the first undone high-priority task lacking
// a due date with the first low-priority future event. The pairing takes
// the first element of each filtered set in snapshot order; it makes no
// claim of optimality.
func DetectPriorityConflicts(tasks []model.Task, events []model.CalendarEvent, now time.Time) []model.Conflict {
	var task *model.Task
	for i := range tasks {
		t := &tasks[i]
		if !t.Done && t.Priority >= priorityTaskFloor && t.DueDate == nil {
			task = t
			break
		}
	}
	if task == nil {
		return nil
	}

	var event *model.CalendarEvent
	for i := range events {
		e := &events[i]
		if e.Start.After(now) && e.Priority != nil && *e.Priority < priorityEventCeiling {
			event = e
			break
		}
	}
	if event == nil {
		return nil
	}

	suggested := event.Start
	return []model.Conflict{{
		ID:       model.MustID(model.IDTypeConflict, "priority", task.ID, event.ID),
		Type:     model.ConflictPriority,
		Severity: model.SeverityHigh,
		Items: []model.ConflictItem{
			{ID: task.ID, Title: task.Title, Type: task.Type, Priority: task.Priority},
			{ID: event.ID, Title: event.Title, Type: event.Type, Priority: event.PriorityOrZero(), Start: event.Start, End: event.End},
		},
		Analysis: model.ConflictAnalysis{
			ModelsConsulted: 3,
			Consensus:       3,
			Reasoning: []string{
				fmt.Sprintf("task %q has priority %d but no scheduled time", task.Title, task.Priority),
				fmt.Sprintf("event %q occupies a slot at priority %d", event.Title, event.PriorityOrZero()),
			},
			HumanCentricScore: priorityHumanCentricScore,
		},
		Recommendation: model.Recommendation{
			Action:        model.RecommendAllocateTime,
			KeepID:        task.ID,
			MoveID:        event.ID,
			SuggestedTime: &suggested,
			Confidence:    priorityHumanCentricScore,
		},
	}}
}
