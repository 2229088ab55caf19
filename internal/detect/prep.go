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
	// prepSimilarityFloor is the minimum title similarity for a past event
	// to count as an earlier occurrence of the upcoming one.
	prepSimilarityFloor = 0.6
	// prepHistoryFloor is the statistical floor on matched history entries.
	prepHistoryFloor = 2
	// prepFrequencyShare keeps only prep tasks present in at least this
	// share of the matched history entries.
	prepFrequencyShare = 0.5
)

// Prep inspects an upcoming event against historical prep-task sets and
// suggests adding the habitually recurring prep tasks to the best-matching
// list. Note the target list is always the best of the available lists,
// without a minimum score.
func Prep(event model.CalendarEvent, lists []model.List, history []model.PrepHistory, now time.Time) *model.Suggestion {
	var matches []model.PrepHistory
	for _, h := range history {
		if match.Similarity(h.EventTitle, event.Title) > prepSimilarityFloor {
			matches = append(matches, h)
		}
	}
	if len(matches) < prepHistoryFloor {
		return nil
	}

	counts := make(map[string]int)
	for _, h := range matches {
		seen := make(map[string]bool, len(h.PrepTasks))
		for _, task := range h.PrepTasks {
			if !seen[task] {
				seen[task] = true
				counts[task]++
			}
		}
	}

	minCount := int(math.Ceil(prepFrequencyShare * float64(len(matches))))
	var common []string
	for task, n := range counts {
		if n >= minCount {
			common = append(common, task)
		}
	}
	if len(common) == 0 {
		return nil
	}
	// Descending frequency, alphabetical within equal frequency so the
	// suggestion is deterministic.
	sort.Slice(common, func(i, j int) bool {
		if counts[common[i]] != counts[common[j]] {
			return counts[common[i]] > counts[common[j]]
		}
		return common[i] < common[j]
	})

	target := pickTargetList(lists, common)
	if target == nil {
		return nil
	}

	var totalLead int
	for _, h := range matches {
		totalLead += h.LeadTimeHours
	}
	leadHours := int(math.Round(float64(totalLead) / float64(len(matches))))

	confidence := 60
	if len(common) > 2 {
		confidence = 80
	}

	id := model.MustID(model.IDTypeSuggestion, "prep", event.ID, target.ID)
	return &model.Suggestion{
		ID:       id,
		Type:     model.SuggestionPrep,
		Priority: model.PriorityHelpful,
		Source: model.SuggestionSource{
			Widget:         "calendar",
			Trigger:        event.ID,
			RelatedWidgets: []string{"lists"},
		},
		Title:       fmt.Sprintf("Prepare for %q", event.Title),
		Description: fmt.Sprintf("Before similar events you usually add %d prep tasks, about %d hours ahead.", len(common), leadHours),
		Reasoning: []string{
			fmt.Sprintf("%d past events resemble %q", len(matches), event.Title),
			fmt.Sprintf("%d prep tasks recur across at least half of them", len(common)),
			fmt.Sprintf("list %q matches those tasks best", target.Name),
		},
		Confidence: confidence,
		ModelConsensus: model.ModelConsensus{
			Agreed: len(matches),
			Total:  len(history),
		},
		PatternFrequency: len(matches),
		FirstObserved:    now,
		LastObserved:     now,
		Actions: []model.Action{
			{
				ID:    id + "_act",
				Type:  "add-list-items",
				Label: fmt.Sprintf("Add %d prep tasks to %q", len(common), target.Name),
				Params: map[string]any{
					"list_id":  target.ID,
					"event_id": event.ID,
					"items":    common,
				},
			},
		},
	}
}

// pickTargetList scores each list by summing, per extracted prep task, the
// best similarity against the list's items, and returns the highest-scoring
// list. Ties keep snapshot order. Returns nil only when there are no lists.
func pickTargetList(lists []model.List, prepTasks []string) *model.List {
	if len(lists) == 0 {
		return nil
	}
	best := 0
	bestScore := listScore(lists[0], prepTasks)
	for i := 1; i < len(lists); i++ {
		if score := listScore(lists[i], prepTasks); score > bestScore {
			best = i
			bestScore = score
		}
	}
	return &lists[best]
}

func listScore(list model.List, prepTasks []string) float64 {
	var total float64
	for _, task := range prepTasks {
		var bestSim float64
		for _, item := range list.Items {
			if sim := match.Similarity(item.Text, task); sim > bestSim {
				bestSim = sim
			}
		}
		total += bestSim
	}
	return total
}
