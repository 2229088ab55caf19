package detect

import (
	"fmt"
	"math"
	"time"

	"github.com/kmiyata/prism/internal/match"
	"github.com/kmiyata/prism/internal/model"
)

const (
	// scheduleHistoryFloor is the minimum number of historical records of
	// the task's type before a scheduling habit counts as established.
	scheduleHistoryFloor = 3
	// slotSearchDays bounds the free-slot search horizon.
	slotSearchDays = 7
)

// timeBucket is a coarse time-of-day preference derived from history.
type timeBucket struct {
	name string
	hour int // representative start hour for proposed slots
}

// Declaration order is the tie-break when two buckets hold equally many
// historical records.
var timeBuckets = []timeBucket{
	{"morning", 9},
	{"afternoon", 14},
	{"evening", 17},
}

func bucketIndex(hour int) int {
	switch {
	case hour < 12:
		return 0
	case hour < 17:
		return 1
	default:
		return 2
	}
}

// Schedule inspects an unscheduled task against the user's scheduling
// history and proposes a concrete calendar slot matching the habitual time
// of day for that task type. The first overlap-free day within the horizon
// wins; this is earliest-date, not best-fit.
func Schedule(task model.Task, events []model.CalendarEvent, history []model.SchedulingHistory, now time.Time) *model.Suggestion {
	taskType := match.ClassifyTaskType(task)

	var records []model.SchedulingHistory
	for _, h := range history {
		if h.TaskType == taskType {
			records = append(records, h)
		}
	}
	if len(records) < scheduleHistoryFloor {
		return nil
	}

	var counts [3]int
	var totalDuration time.Duration
	for _, r := range records {
		counts[bucketIndex(r.ScheduledTime.Hour())]++
		totalDuration += r.Duration
	}
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	preferred := timeBuckets[best]

	meanMinutes := math.Round(totalDuration.Minutes() / float64(len(records)))
	estimated := time.Duration(meanMinutes) * time.Minute

	slot := findFreeSlot(events, now, preferred.hour, estimated)
	if slot == nil {
		return nil
	}

	// hourVariance = 1 − mode/n, so the confidence bonus grows with how
	// concentrated the history is in the winning bucket.
	n := len(records)
	sampleScore := math.Min(float64(n)*10, 50)
	concentration := float64(counts[best]) / float64(n)
	confidence := int(math.Round(sampleScore + concentration*50))

	id := model.MustID(model.IDTypeSuggestion, "schedule", task.ID, preferred.name)
	return &model.Suggestion{
		ID:       id,
		Type:     model.SuggestionSchedule,
		Priority: model.PriorityHelpful,
		Source: model.SuggestionSource{
			Widget:         "tasks",
			Trigger:        task.ID,
			RelatedWidgets: []string{"calendar"},
		},
		Title:       fmt.Sprintf("Schedule %q", task.Title),
		Description: fmt.Sprintf("You usually work on %s tasks in the %s. %s is free.", taskType, preferred.name, slot.Format("Mon Jan 2 15:04")),
		Reasoning: []string{
			fmt.Sprintf("%d past %s tasks were scheduled, %d of them in the %s", n, taskType, counts[best], preferred.name),
			fmt.Sprintf("average session length was %d minutes", int(meanMinutes)),
		},
		Confidence: confidence,
		ModelConsensus: model.ModelConsensus{
			Agreed: counts[best],
			Total:  n,
		},
		PatternFrequency: counts[best],
		FirstObserved:    now,
		LastObserved:     now,
		Actions: []model.Action{
			{
				ID:    id + "_act",
				Type:  "create-event",
				Label: fmt.Sprintf("Block %s at %s", task.Title, slot.Format("Mon 15:04")),
				Params: map[string]any{
					"task_id":          task.ID,
					"title":            task.Title,
					"start":            slot.Format(time.RFC3339),
					"duration_minutes": int(meanMinutes),
				},
			},
		},
	}
}

// findFreeSlot returns the start of the first slot at the given hour over
// the next slotSearchDays days that does not overlap any existing event,
// or nil if every candidate day is taken.
func findFreeSlot(events []model.CalendarEvent, now time.Time, hour int, duration time.Duration) *time.Time {
	for day := 1; day <= slotSearchDays; day++ {
		date := now.AddDate(0, 0, day)
		start := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, date.Location())
		end := start.Add(duration)
		if !overlapsAny(events, start, end) {
			return &start
		}
	}
	return nil
}

func overlapsAny(events []model.CalendarEvent, start, end time.Time) bool {
	for _, e := range events {
		if start.Before(e.End) && e.Start.Before(end) {
			return true
		}
	}
	return false
}
