// Package detect implements the three workspace pattern detectors. Each
// detector is a pure function over a snapshot slice plus historical signal
// and returns zero or one suggestion; low-signal input yields nil rather
// than an error.
package detect

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kmiyata/prism/internal/match"
	"github.com/kmiyata/prism/internal/model"
)

const (
	// breakdownSimilarityFloor is the minimum title similarity for a task
	// to count as historically derived from a list item.
	breakdownSimilarityFloor = 0.7
	// breakdownMatchFloor is the statistical floor: below this many
	// matches (overall and within the winning pattern bucket) the signal
	// is too thin to suggest anything.
	breakdownMatchFloor = 2
	// defaultPattern buckets tasks that carry no breakdown pattern.
	defaultPattern = "default"
)

// Breakdown inspects one undone list item against the user's historical
// tasks and suggests breaking the item down the way similar items were
// broken down before.
func Breakdown(item model.ListItem, parent model.List, tasks []model.Task, now time.Time) *model.Suggestion {
	var matches []model.Task
	for _, task := range tasks {
		if task.SourceListItem == "" {
			continue
		}
		if match.Similarity(task.SourceListItem, item.Text) > breakdownSimilarityFloor {
			matches = append(matches, task)
		}
	}
	if len(matches) < breakdownMatchFloor {
		return nil
	}

	buckets := make(map[string][]model.Task)
	for _, task := range matches {
		pattern := task.BreakdownPattern
		if pattern == "" {
			pattern = defaultPattern
		}
		buckets[pattern] = append(buckets[pattern], task)
	}

	// Pick the most populated bucket; ties resolve to the
	// lexicographically smallest pattern so the result is deterministic.
	patterns := make([]string, 0, len(buckets))
	for p := range buckets {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)
	best := patterns[0]
	for _, p := range patterns[1:] {
		if len(buckets[p]) > len(buckets[best]) {
			best = p
		}
	}
	if len(buckets[best]) < breakdownMatchFloor {
		return nil
	}

	confidence := int(math.Round(float64(len(buckets[best])) / float64(len(matches)) * 100))
	priority := model.PriorityHelpful
	if confidence > 70 {
		priority = model.PriorityImportant
	}

	var dissent []string
	for _, p := range patterns {
		if p != best {
			dissent = append(dissent, p)
		}
	}

	id := model.MustID(model.IDTypeSuggestion, "breakdown", parent.ID, item.ID, best)
	return &model.Suggestion{
		ID:       id,
		Type:     model.SuggestionBreakdown,
		Priority: priority,
		Source: model.SuggestionSource{
			Widget:         "lists",
			Trigger:        item.ID,
			RelatedWidgets: []string{"tasks"},
		},
		Title:       fmt.Sprintf("Break down %q", item.Text),
		Description: fmt.Sprintf("Items like %q were usually split into tasks using the %q pattern.", item.Text, best),
		Reasoning: []string{
			fmt.Sprintf("%d historical tasks trace back to similar list items", len(matches)),
			fmt.Sprintf("%d of them follow the %q breakdown pattern", len(buckets[best]), best),
		},
		Confidence: confidence,
		ModelConsensus: model.ModelConsensus{
			Agreed:  len(buckets[best]),
			Total:   len(matches),
			Dissent: dissent,
		},
		PatternFrequency: len(buckets[best]),
		FirstObserved:    now,
		LastObserved:     now,
		Actions: []model.Action{
			{
				ID:    id + "_act",
				Type:  "create-tasks",
				Label: fmt.Sprintf("Create tasks from %q", item.Text),
				Params: map[string]any{
					"list_id":   parent.ID,
					"item_id":   item.ID,
					"item_text": item.Text,
					"pattern":   best,
				},
			},
		},
	}
}
