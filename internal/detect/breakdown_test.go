package detect

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmiyata/prism/internal/model"
)

var breakdownNow = time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)

func breakdownFixture() (model.ListItem, model.List) {
	item := model.ListItem{ID: "item-1", Text: "plan team offsite"}
	list := model.List{ID: "list-1", Name: "Work", Items: []model.ListItem{item}}
	return item, list
}

func TestBreakdown_SingleMatchIsInsufficient(t *testing.T) {
	item, list := breakdownFixture()
	tasks := []model.Task{
		{ID: "t1", SourceListItem: "plan team offsite", BreakdownPattern: "venue-first"},
	}
	assert.Nil(t, Breakdown(item, list, tasks, breakdownNow))
}

func TestBreakdown_TwoMatchesSamePattern(t *testing.T) {
	item, list := breakdownFixture()
	tasks := []model.Task{
		{ID: "t1", SourceListItem: "plan team offsite", BreakdownPattern: "venue-first"},
		{ID: "t2", SourceListItem: "plan team offsite 2024", BreakdownPattern: "venue-first"},
	}

	s := Breakdown(item, list, tasks, breakdownNow)
	require.NotNil(t, s)
	assert.Equal(t, 100, s.Confidence)
	assert.Equal(t, model.PriorityImportant, s.Priority)
	assert.Equal(t, model.SuggestionBreakdown, s.Type)
	assert.Equal(t, 2, s.PatternFrequency)
	require.NoError(t, s.Validate())
}

func TestBreakdown_DefaultBucketForMissingPattern(t *testing.T) {
	item, list := breakdownFixture()
	tasks := []model.Task{
		{ID: "t1", SourceListItem: "plan team offsite"},
		{ID: "t2", SourceListItem: "plan team offsite again"},
	}

	s := Breakdown(item, list, tasks, breakdownNow)
	require.NotNil(t, s)
	assert.Equal(t, 100, s.Confidence)
}

func TestBreakdown_SplitBucketsBelowFloor(t *testing.T) {
	item, list := breakdownFixture()
	// Two matches overall but each pattern bucket holds only one.
	tasks := []model.Task{
		{ID: "t1", SourceListItem: "plan team offsite", BreakdownPattern: "venue-first"},
		{ID: "t2", SourceListItem: "plan team offsite", BreakdownPattern: "people-first"},
	}
	assert.Nil(t, Breakdown(item, list, tasks, breakdownNow))
}

func TestBreakdown_MajorityBucketWins(t *testing.T) {
	item, list := breakdownFixture()
	tasks := []model.Task{
		{ID: "t1", SourceListItem: "plan team offsite", BreakdownPattern: "venue-first"},
		{ID: "t2", SourceListItem: "plan team offsite", BreakdownPattern: "venue-first"},
		{ID: "t3", SourceListItem: "plan team offsite", BreakdownPattern: "people-first"},
	}

	s := Breakdown(item, list, tasks, breakdownNow)
	require.NotNil(t, s)
	// 2 of 3 matches agree on the winning pattern, 66.7% rounded.
	assert.Equal(t, 67, s.Confidence)
	assert.Equal(t, model.PriorityHelpful, s.Priority)
	assert.Equal(t, []string{"people-first"}, s.ModelConsensus.Dissent)
}

func TestBreakdown_ConfidenceRoundsAtPriorityBoundary(t *testing.T) {
	item, list := breakdownFixture()
	// 12 of 17 matches is a 70.59% share. Rounding yields 71 and promotes
	// the suggestion; integer truncation would pin it at 70 and demote it.
	var tasks []model.Task
	for i := 0; i < 17; i++ {
		pattern := "venue-first"
		if i >= 12 {
			pattern = "people-first"
		}
		tasks = append(tasks, model.Task{
			ID:               fmt.Sprintf("t%d", i),
			SourceListItem:   "plan team offsite",
			BreakdownPattern: pattern,
		})
	}

	s := Breakdown(item, list, tasks, breakdownNow)
	require.NotNil(t, s)
	assert.Equal(t, 71, s.Confidence)
	assert.Equal(t, model.PriorityImportant, s.Priority)
}

func TestBreakdown_DissimilarTasksIgnored(t *testing.T) {
	item, list := breakdownFixture()
	tasks := []model.Task{
		{ID: "t1", SourceListItem: "water the plants", BreakdownPattern: "p"},
		{ID: "t2", SourceListItem: "file taxes", BreakdownPattern: "p"},
	}
	assert.Nil(t, Breakdown(item, list, tasks, breakdownNow))
}

func TestBreakdown_DeterministicID(t *testing.T) {
	item, list := breakdownFixture()
	tasks := []model.Task{
		{ID: "t1", SourceListItem: "plan team offsite", BreakdownPattern: "venue-first"},
		{ID: "t2", SourceListItem: "plan team offsite", BreakdownPattern: "venue-first"},
	}

	a := Breakdown(item, list, tasks, breakdownNow)
	b := Breakdown(item, list, tasks, breakdownNow.Add(time.Hour))
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, a.ID, b.ID, "id must be stable for identical snapshot content")
}
