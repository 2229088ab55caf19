package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kmiyata/prism/internal/model"
)

func TestSimilarity_Identity(t *testing.T) {
	for _, s := range []string{"a", "review notes", "買い物リスト"} {
		assert.Equal(t, 1.0, Similarity(s, s), "identical strings must score 1.0: %q", s)
	}
}

func TestSimilarity_BothEmpty(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("", ""))
}

func TestSimilarity_Symmetry(t *testing.T) {
	pairs := [][2]string{
		{"plan sprint", "plan the sprint"},
		{"kitten", "sitting"},
		{"", "abc"},
	}
	for _, p := range pairs {
		assert.Equal(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]))
	}
}

func TestSimilarity_CaseInsensitive(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Weekly Sync", "weekly sync"))
}

func TestSimilarity_KnownDistances(t *testing.T) {
	// kitten→sitting: distance 3 over max length 7.
	assert.InDelta(t, 1.0-3.0/7.0, Similarity("kitten", "sitting"), 1e-9)
	// Completely disjoint strings of equal length score 0.
	assert.Equal(t, 0.0, Similarity("abc", "xyz"))
	// Empty vs non-empty scores 0.
	assert.Equal(t, 0.0, Similarity("", "abcd"))
}

func TestClassifyTaskType(t *testing.T) {
	testCases := []struct {
		name     string
		task     model.Task
		expected string
	}{
		{"meeting keyword", model.Task{Title: "Weekly sync with design"}, "meeting"},
		{"call keyword", model.Task{Title: "Call the landlord"}, "meeting"},
		{"review keyword", model.Task{Title: "Review pull request"}, "review"},
		{"writing keyword", model.Task{Title: "Draft quarterly report"}, "writing"},
		{"coding keyword", model.Task{Title: "Implement login flow"}, "coding"},
		{"research keyword", model.Task{Title: "Investigate outage"}, "research"},
		{"case insensitive", model.Task{Title: "REVIEW the budget"}, "review"},
		{"fallback to declared type", model.Task{Title: "Groceries", Type: "errand"}, "errand"},
		{"fallback to general", model.Task{Title: "Groceries"}, "general"},
		// "meeting" is declared before "review": first category wins.
		{"declared order is tie-break", model.Task{Title: "Review meeting notes"}, "meeting"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ClassifyTaskType(tc.task))
		})
	}
}
