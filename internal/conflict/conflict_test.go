package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmiyata/prism/internal/model"
)

var conflictNow = time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

func eventAt(id string, day, hour, min, durMin int) model.CalendarEvent {
	start := time.Date(2026, 3, day, hour, min, 0, 0, time.UTC)
	return model.CalendarEvent{
		ID:    id,
		Title: id,
		Start: start,
		End:   start.Add(time.Duration(durMin) * time.Minute),
	}
}

func intPtr(v int) *int { return &v }

func TestDetectOverlaps_SweepReportsSinglePair(t *testing.T) {
	events := []model.CalendarEvent{
		eventAt("e1", 9, 9, 0, 60),  // 09:00–10:00
		eventAt("e2", 9, 9, 30, 60), // 09:30–10:30
		eventAt("e3", 9, 11, 0, 60), // 11:00–12:00
	}

	conflicts := DetectOverlaps(events, conflictNow)
	require.Len(t, conflicts, 1)
	require.Len(t, conflicts[0].Items, 2)
	assert.Equal(t, "e1", conflicts[0].Items[0].ID)
	assert.Equal(t, "e2", conflicts[0].Items[1].ID)
	require.NoError(t, conflicts[0].Validate())
}

func TestDetectOverlaps_NoOverlaps(t *testing.T) {
	events := []model.CalendarEvent{
		eventAt("e1", 9, 9, 0, 60),
		eventAt("e2", 9, 10, 0, 60),
		eventAt("e3", 9, 11, 0, 60),
	}
	assert.Empty(t, DetectOverlaps(events, conflictNow))
}

func TestDetectOverlaps_UnsortedInput(t *testing.T) {
	events := []model.CalendarEvent{
		eventAt("late", 9, 11, 0, 60),
		eventAt("early", 9, 9, 0, 60),
		eventAt("mid", 9, 9, 30, 60),
	}

	conflicts := DetectOverlaps(events, conflictNow)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "early", conflicts[0].Items[0].ID)
	assert.Equal(t, "mid", conflicts[0].Items[1].ID)
}

func TestOverlapSeverity_FamilyWorkCritical(t *testing.T) {
	a := eventAt("family-dinner", 9, 18, 0, 60)
	a.Type = "family"
	a.Priority = intPtr(90)
	b := eventAt("launch-review", 9, 18, 30, 60)
	b.Type = "work"
	b.Priority = intPtr(85)

	conflicts := DetectOverlaps([]model.CalendarEvent{a, b}, conflictNow)
	require.Len(t, conflicts, 1)
	assert.Equal(t, model.SeverityCritical, conflicts[0].Severity)
}

func TestOverlapSeverity_HighPriorityMeeting(t *testing.T) {
	a := eventAt("standup", 9, 9, 0, 30)
	a.Type = "meeting"
	a.Priority = intPtr(85)
	b := eventAt("focus", 9, 9, 15, 60)

	conflicts := DetectOverlaps([]model.CalendarEvent{a, b}, conflictNow)
	require.Len(t, conflicts, 1)
	assert.Equal(t, model.SeverityHigh, conflicts[0].Severity)
}

func TestOverlapSeverity_ManyItemsMedium(t *testing.T) {
	a := eventAt("a", 9, 9, 0, 120)
	b := eventAt("b", 9, 9, 30, 60)
	c := eventAt("c", 9, 10, 0, 60)

	conflicts := DetectOverlaps([]model.CalendarEvent{a, b, c}, conflictNow)
	require.NotEmpty(t, conflicts)
	assert.Equal(t, model.SeverityMedium, conflicts[0].Severity)
	assert.Len(t, conflicts[0].Items, 3)
}

func TestOverlapSeverity_LowTypeLowPriority(t *testing.T) {
	a := eventAt("errand-a", 9, 9, 0, 60)
	a.Type = "errand"
	a.Priority = intPtr(10)
	b := eventAt("errand-b", 9, 9, 30, 60)
	b.Type = "errand"
	b.Priority = intPtr(10)

	conflicts := DetectOverlaps([]model.CalendarEvent{a, b}, conflictNow)
	require.Len(t, conflicts, 1)
	assert.Equal(t, model.SeverityLow, conflicts[0].Severity)
}

func TestHumanCentricScore(t *testing.T) {
	items := []model.ConflictItem{
		{Type: "family", Priority: 90},
		{Type: "work", Priority: 85},
	}
	// 70 + 15 + 10 + 87.5×0.05 = 99.375 → 99.
	assert.Equal(t, 99, humanCentricScore(items))

	capped := []model.ConflictItem{
		{Type: "family", Priority: 100},
		{Type: "work", Priority: 100},
	}
	assert.Equal(t, 100, humanCentricScore(capped))
}

func TestRecommendation_KeepsHigherRankedType(t *testing.T) {
	family := eventAt("dinner", 9, 18, 0, 60)
	family.Type = "family"
	family.Priority = intPtr(50)
	work := eventAt("retro", 9, 18, 30, 60)
	work.Type = "work"
	work.Priority = intPtr(90)

	conflicts := DetectOverlaps([]model.CalendarEvent{family, work}, conflictNow)
	require.Len(t, conflicts, 1)
	rec := conflicts[0].Recommendation
	assert.Equal(t, "dinner", rec.KeepID)
	assert.Equal(t, "retro", rec.MoveID)
	require.NotNil(t, rec.SuggestedTime)
	// Duration preserved, slot conflict-free against the kept event.
	assert.False(t, rec.SuggestedTime.Before(conflictNow))
}

func TestRecommendation_TypeTieBrokenByPriority(t *testing.T) {
	a := eventAt("big-meeting", 9, 9, 0, 60)
	a.Type = "meeting"
	a.Priority = intPtr(90)
	b := eventAt("small-meeting", 9, 9, 30, 60)
	b.Type = "meeting"
	b.Priority = intPtr(30)

	conflicts := DetectOverlaps([]model.CalendarEvent{a, b}, conflictNow)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "big-meeting", conflicts[0].Recommendation.KeepID)
	assert.Equal(t, "small-meeting", conflicts[0].Recommendation.MoveID)
}

func TestRescheduleRoundTrip(t *testing.T) {
	a := eventAt("keep", 9, 9, 0, 60)
	a.Type = "work"
	b := eventAt("move", 9, 9, 30, 60)

	conflicts := DetectOverlaps([]model.CalendarEvent{a, b}, conflictNow)
	require.Len(t, conflicts, 1)
	rec := conflicts[0].Recommendation
	require.NotNil(t, rec.SuggestedTime)

	// Apply the recommendation and re-run detection: the pair must no
	// longer conflict.
	moved := b
	moved.Start = *rec.SuggestedTime
	moved.End = rec.SuggestedTime.Add(b.Duration())
	assert.Empty(t, DetectOverlaps([]model.CalendarEvent{a, moved}, conflictNow))
}

func TestDetectPriorityConflicts(t *testing.T) {
	tasks := []model.Task{
		{ID: "t1", Title: "Finish tax filing", Priority: 85},
	}
	events := []model.CalendarEvent{
		func() model.CalendarEvent {
			e := eventAt("e1", 10, 14, 0, 60)
			e.Priority = intPtr(20)
			return e
		}(),
	}

	conflicts := DetectPriorityConflicts(tasks, events, conflictNow)
	require.Len(t, conflicts, 1)
	c := conflicts[0]
	assert.Equal(t, model.ConflictPriority, c.Type)
	assert.Equal(t, model.SeverityHigh, c.Severity)
	assert.Equal(t, 85, c.Analysis.HumanCentricScore)
	assert.Equal(t, model.RecommendAllocateTime, c.Recommendation.Action)
	require.NotNil(t, c.Recommendation.SuggestedTime)
	assert.Equal(t, events[0].Start, *c.Recommendation.SuggestedTime)
}

func TestDetectPriorityConflicts_RequiresBothSides(t *testing.T) {
	qualifyingTask := model.Task{ID: "t1", Title: "Urgent", Priority: 85}
	lowEvent := func() model.CalendarEvent {
		e := eventAt("e1", 10, 14, 0, 60)
		e.Priority = intPtr(20)
		return e
	}()

	// No qualifying event → no conflict.
	assert.Empty(t, DetectPriorityConflicts([]model.Task{qualifyingTask}, nil, conflictNow))

	// No qualifying task → no conflict.
	assert.Empty(t, DetectPriorityConflicts(nil, []model.CalendarEvent{lowEvent}, conflictNow))

	// Done, low-priority, and due-dated tasks all disqualify.
	due := conflictNow.AddDate(0, 0, 1)
	disqualified := []model.Task{
		{ID: "t1", Priority: 85, Done: true},
		{ID: "t2", Priority: 40},
		{ID: "t3", Priority: 85, DueDate: &due},
	}
	assert.Empty(t, DetectPriorityConflicts(disqualified, []model.CalendarEvent{lowEvent}, conflictNow))

	// Past events and events without an explicit priority disqualify.
	past := func() model.CalendarEvent {
		e := eventAt("e2", 1, 14, 0, 60)
		e.Priority = intPtr(20)
		return e
	}()
	unscored := eventAt("e3", 10, 14, 0, 60)
	assert.Empty(t, DetectPriorityConflicts([]model.Task{qualifyingTask}, []model.CalendarEvent{past, unscored}, conflictNow))
}

func TestDetectPriorityConflicts_FirstOfEachFilteredSet(t *testing.T) {
	tasks := []model.Task{
		{ID: "t-low", Priority: 40},
		{ID: "t-first", Priority: 75},
		{ID: "t-higher", Priority: 95},
	}
	e1 := eventAt("e-first", 10, 9, 0, 60)
	e1.Priority = intPtr(30)
	e2 := eventAt("e-lower", 10, 11, 0, 60)
	e2.Priority = intPtr(10)

	conflicts := DetectPriorityConflicts(tasks, []model.CalendarEvent{e1, e2}, conflictNow)
	require.Len(t, conflicts, 1)
	// First elements of the filtered sets win, not the global extremes.
	assert.Equal(t, "t-first", conflicts[0].Items[0].ID)
	assert.Equal(t, "e-first", conflicts[0].Items[1].ID)
}
