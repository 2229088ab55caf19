package analyze

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmiyata/prism/internal/model"
)

var analyzeNow = time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

// richSnapshot triggers every detector at least once.
func richSnapshot() model.WorkspaceSnapshot {
	overlapStart := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	upcoming := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	lowPrioStart := time.Date(2026, 3, 11, 14, 0, 0, 0, time.UTC)

	return model.WorkspaceSnapshot{
		Lists: []model.List{
			{ID: "l1", Name: "Planning", Items: []model.ListItem{
				{ID: "i1", Text: "plan team offsite"},
				{ID: "i2", Text: "print agenda", Done: true},
			}},
		},
		Tasks: []model.Task{
			{ID: "t1", Title: "Implement importer", Priority: 85},
			{ID: "t2", SourceListItem: "plan team offsite", BreakdownPattern: "venue-first", Done: true},
			{ID: "t3", SourceListItem: "plan team offsite 2024", BreakdownPattern: "venue-first", Done: true},
		},
		CalendarEvents: []model.CalendarEvent{
			{ID: "e1", Title: "Family dinner", Type: "family", Priority: intPtr(90), Start: overlapStart, End: overlapStart.Add(time.Hour)},
			{ID: "e2", Title: "Launch review", Type: "work", Priority: intPtr(85), Start: overlapStart.Add(30 * time.Minute), End: overlapStart.Add(90 * time.Minute)},
			{ID: "e3", Title: "Quarterly board meeting", Start: upcoming, End: upcoming.Add(2 * time.Hour)},
			{ID: "e4", Title: "Optional webinar", Priority: intPtr(20), Start: lowPrioStart, End: lowPrioStart.Add(time.Hour)},
		},
		History: model.WorkspaceHistory{
			Scheduling: []model.SchedulingHistory{
				{TaskType: "coding", ScheduledTime: time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC), Duration: time.Hour},
				{TaskType: "coding", ScheduledTime: time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC), Duration: time.Hour},
				{TaskType: "coding", ScheduledTime: time.Date(2026, 2, 4, 9, 30, 0, 0, time.UTC), Duration: time.Hour},
			},
			Preparation: []model.PrepHistory{
				{EventTitle: "Quarterly board meeting Q1", PrepTasks: []string{"print agenda", "book room"}, LeadTimeHours: 24},
				{EventTitle: "Quarterly board meeting Q2", PrepTasks: []string{"print agenda"}, LeadTimeHours: 48},
			},
		},
	}
}

func TestDetectAllPatterns_AllDetectorsContribute(t *testing.T) {
	suggestions := DetectAllPatterns(richSnapshot(), analyzeNow)

	types := make(map[model.SuggestionType]int)
	for _, s := range suggestions {
		types[s.Type]++
		require.NoError(t, s.Validate())
	}
	assert.Equal(t, 1, types[model.SuggestionBreakdown])
	assert.Equal(t, 1, types[model.SuggestionSchedule])
	assert.Equal(t, 1, types[model.SuggestionPrep])
}

func TestDetectAllPatterns_SkipsDoneAndScheduled(t *testing.T) {
	snap := richSnapshot()
	// Completing the list item and dating the task removes their signals.
	snap.Lists[0].Items[0].Done = true
	due := analyzeNow.AddDate(0, 0, 2)
	snap.Tasks[0].DueDate = &due

	suggestions := DetectAllPatterns(snap, analyzeNow)
	for _, s := range suggestions {
		assert.NotEqual(t, model.SuggestionBreakdown, s.Type)
		assert.NotEqual(t, model.SuggestionSchedule, s.Type)
	}
}

func TestDetectAllPatterns_IdempotentIDs(t *testing.T) {
	snap := richSnapshot()

	first := DetectAllPatterns(snap, analyzeNow)
	second := DetectAllPatterns(snap, analyzeNow)
	require.NotEmpty(t, first)

	inserted := make(map[string]bool)
	for _, s := range first {
		inserted[s.ID] = true
	}
	duplicates := 0
	for _, s := range second {
		if inserted[s.ID] {
			duplicates++
		}
	}
	// Every id from the second run already exists: id-based dedup drops
	// the whole batch instead of duplicating.
	assert.Equal(t, len(second), duplicates)
	assert.Equal(t, len(first), len(second))
}

func TestDetectConflicts_SortedBySeverity(t *testing.T) {
	conflicts := DetectConflicts(richSnapshot(), analyzeNow)
	require.NotEmpty(t, conflicts)

	lastRank := model.SeverityRank(model.SeverityCritical)
	for _, c := range conflicts {
		rank := model.SeverityRank(c.Severity)
		assert.LessOrEqual(t, rank, lastRank, "conflicts must be ordered most-severe-first")
		lastRank = rank
	}
}

func TestDetectConflicts_FindsBothKinds(t *testing.T) {
	conflicts := DetectConflicts(richSnapshot(), analyzeNow)

	kinds := make(map[model.ConflictType]int)
	for _, c := range conflicts {
		kinds[c.Type]++
	}
	assert.GreaterOrEqual(t, kinds[model.ConflictSchedule], 1)
	assert.Equal(t, 1, kinds[model.ConflictPriority])
}

func TestAnalyze_AssemblesResult(t *testing.T) {
	result := Analyze(richSnapshot(), analyzeNow)

	assert.Equal(t, len(result.Conflicts), result.Summary.TotalIssues)
	assert.Equal(t, len(result.Optimizations), result.Summary.SuggestionsCount)
	assert.Equal(t, analyzeNow, result.Summary.Timestamp)
	assert.NotEmpty(t, result.AutoCorrections)
	for _, c := range result.AutoCorrections {
		require.NoError(t, c.Validate())
	}

	critical := 0
	for _, c := range result.Conflicts {
		if c.Severity == model.SeverityCritical {
			critical++
		}
	}
	assert.Equal(t, critical, result.Summary.CriticalCount)
}

func TestAnalyze_DoesNotMutateSnapshot(t *testing.T) {
	snap := richSnapshot()
	before := len(snap.Tasks)
	eventsBefore := make([]model.CalendarEvent, len(snap.CalendarEvents))
	copy(eventsBefore, snap.CalendarEvents)

	_ = Analyze(snap, analyzeNow)

	assert.Equal(t, before, len(snap.Tasks))
	assert.Equal(t, eventsBefore, snap.CalendarEvents)
}
