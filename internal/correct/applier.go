package correct

import (
	"fmt"

	"github.com/kmiyata/prism/internal/model"
)

// Callbacks are the caller-supplied mutation functions a correction is
// applied through. The engine never mutates workspace state any other way.
type Callbacks struct {
	UpdateTask          func(id, field string, value any) error
	UpdateCalendarEvent func(id, field string, value any) error
	AddCalendarEvent    func(event model.CalendarEvent) error
	UpdateList          func(id, field string, value any) error
}

// BatchResult reports the outcome of a best-effort batch application.
type BatchResult struct {
	Applied int
	Failed  int
}

// Apply dispatches one correction to the matching callback. Unknown
// {action type, target type} combinations and missing callbacks are no-ops
// that report failure. A panicking callback is contained and reported as an
// error.
func Apply(c model.AutoCorrection, cb Callbacks) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("apply correction %s: callback panicked: %v", c.ID, r)
		}
	}()

	switch {
	case c.Action.Type == model.CorrectionUpdate && c.TargetType == model.TargetTask:
		if cb.UpdateTask == nil {
			return fmt.Errorf("apply correction %s: no update-task callback", c.ID)
		}
		return cb.UpdateTask(c.TargetID, c.Action.Field, c.Action.NewValue)

	case c.Action.Type == model.CorrectionUpdate && c.TargetType == model.TargetEvent:
		if cb.UpdateCalendarEvent == nil {
			return fmt.Errorf("apply correction %s: no update-event callback", c.ID)
		}
		return cb.UpdateCalendarEvent(c.TargetID, c.Action.Field, c.Action.NewValue)

	case c.Action.Type == model.CorrectionCreate && c.TargetType == model.TargetEvent:
		if cb.AddCalendarEvent == nil {
			return fmt.Errorf("apply correction %s: no add-event callback", c.ID)
		}
		event, ok := c.Action.NewValue.(model.CalendarEvent)
		if !ok {
			return fmt.Errorf("apply correction %s: create-event value is %T, not a calendar event", c.ID, c.Action.NewValue)
		}
		return cb.AddCalendarEvent(event)

	case c.Action.Type == model.CorrectionUpdate && c.TargetType == model.TargetList:
		if cb.UpdateList == nil {
			return fmt.Errorf("apply correction %s: no update-list callback", c.ID)
		}
		return cb.UpdateList(c.TargetID, c.Action.Field, c.Action.NewValue)

	default:
		return fmt.Errorf("apply correction %s: unsupported combination %s/%s", c.ID, c.Action.Type, c.TargetType)
	}
}

// ApplyAll applies corrections sequentially, best-effort: one failure never
// aborts the remaining corrections.
func ApplyAll(corrections []model.AutoCorrection, cb Callbacks) BatchResult {
	var result BatchResult
	for _, c := range corrections {
		if err := Apply(c, cb); err != nil {
			result.Failed++
			continue
		}
		result.Applied++
	}
	return result
}
