// Package analyze runs every detector over a workspace snapshot and
// assembles the analysis result. Both entry points are pure with respect to
// the snapshot: they read history but never write it.
package analyze

import (
	"time"

	"github.com/kmiyata/prism/internal/conflict"
	"github.com/kmiyata/prism/internal/correct"
	"github.com/kmiyata/prism/internal/detect"
	"github.com/kmiyata/prism/internal/model"
)

// prepHorizonDays bounds which upcoming events are worth preparing for.
const prepHorizonDays = 7

// DetectAllPatterns runs the breakdown detector over every undone list
// item, the schedule detector over every undone task lacking a due date,
// and the prep detector over every event starting within the next seven
// days, concatenating the non-nil results. Results are deduplicated by id.
func DetectAllPatterns(snap model.WorkspaceSnapshot, now time.Time) []model.Suggestion {
	var suggestions []model.Suggestion
	seen := make(map[string]bool)
	add := func(s *model.Suggestion) {
		if s == nil || seen[s.ID] {
			return
		}
		seen[s.ID] = true
		suggestions = append(suggestions, *s)
	}

	for _, list := range snap.Lists {
		for _, item := range list.Items {
			if item.Done {
				continue
			}
			add(detect.Breakdown(item, list, snap.Tasks, now))
		}
	}

	for _, task := range snap.Tasks {
		if task.Done || task.DueDate != nil {
			continue
		}
		add(detect.Schedule(task, snap.CalendarEvents, snap.History.Scheduling, now))
	}

	horizon := now.AddDate(0, 0, prepHorizonDays)
	for _, event := range snap.CalendarEvents {
		if event.Start.Before(now) || event.Start.After(horizon) {
			continue
		}
		add(detect.Prep(event, snap.Lists, snap.History.Preparation, now))
	}

	return suggestions
}

// DetectConflicts concatenates schedule overlaps and priority conflicts,
// sorted most-severe-first.
func DetectConflicts(snap model.WorkspaceSnapshot, now time.Time) []model.Conflict {
	conflicts := conflict.DetectOverlaps(snap.CalendarEvents, now)
	conflicts = append(conflicts, conflict.DetectPriorityConflicts(snap.Tasks, snap.CalendarEvents, now)...)
	model.SortConflictsBySeverity(conflicts)
	return conflicts
}

// Analyze is one full orchestrator run: patterns, conflicts, derived
// corrections, and the summarised result.
func Analyze(snap model.WorkspaceSnapshot, now time.Time) model.AnalysisResult {
	conflicts := DetectConflicts(snap, now)
	suggestions := DetectAllPatterns(snap, now)
	corrections := correct.Generate(conflicts)
	return model.NewAnalysisResult(conflicts, suggestions, corrections, now)
}
