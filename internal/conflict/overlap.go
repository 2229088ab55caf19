// Package conflict implements schedule-overlap and priority-conflict
// analysis over the workspace snapshot.
package conflict

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kmiyata/prism/internal/model"
)

// slotSearchDays bounds the hourly free-slot search for reschedule
// recommendations.
const slotSearchDays = 7

// typeRank orders event types for the keep/move decision: family beats
// work and meetings, which beat everything else.
func typeRank(eventType string) int {
	switch eventType {
	case "family":
		return 3
	case "work", "meeting":
		return 2
	default:
		return 1
	}
}

// DetectOverlaps sweeps the events in start order and reports one conflict
// per leading event with everything it overlaps. The inner scan stops at
// the first event starting at or after the leading event's end; later
// events cannot overlap either since the slice is sorted.
func DetectOverlaps(events []model.CalendarEvent, now time.Time) []model.Conflict {
	sorted := make([]model.CalendarEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	var conflicts []model.Conflict
	for i := 0; i < len(sorted); i++ {
		group := []model.CalendarEvent{sorted[i]}
		for j := i + 1; j < len(sorted); j++ {
			if !sorted[j].Start.Before(sorted[i].End) {
				break
			}
			group = append(group, sorted[j])
		}
		if len(group) < 2 {
			continue
		}
		conflicts = append(conflicts, buildOverlapConflict(group, sorted, now))
	}
	return conflicts
}

func buildOverlapConflict(group, all []model.CalendarEvent, now time.Time) model.Conflict {
	items := make([]model.ConflictItem, len(group))
	ids := make([]string, len(group))
	for i, e := range group {
		items[i] = model.ConflictItem{
			ID:       e.ID,
			Title:    e.Title,
			Type:     e.Type,
			Priority: e.PriorityOrZero(),
			Start:    e.Start,
			End:      e.End,
		}
		ids[i] = e.ID
	}

	severity := overlapSeverity(items)
	score := humanCentricScore(items)
	keep, move := keepAndMove(group)
	slot := firstFreeHourlySlot(all, move, now)

	consensus := 2
	if model.SeverityRank(severity) >= model.SeverityRank(model.SeverityHigh) {
		consensus = 3
	}

	reasoning := []string{
		fmt.Sprintf("%d events overlap between %s and %s", len(items),
			group[0].Start.Format("15:04"), group[len(group)-1].End.Format("15:04")),
		fmt.Sprintf("keeping %q (type %s outranks the rest)", keep.Title, keep.Type),
	}
	if slot != nil {
		reasoning = append(reasoning, fmt.Sprintf("%q fits at %s", move.Title, slot.Format("Mon Jan 2 15:04")))
	} else {
		reasoning = append(reasoning, fmt.Sprintf("no free slot found for %q within %d days", move.Title, slotSearchDays))
	}

	return model.Conflict{
		ID:       model.MustID(model.IDTypeConflict, append([]string{"schedule"}, ids...)...),
		Type:     model.ConflictSchedule,
		Severity: severity,
		Items:    items,
		Analysis: model.ConflictAnalysis{
			ModelsConsulted:   3,
			Consensus:         consensus,
			Reasoning:         reasoning,
			HumanCentricScore: score,
		},
		Recommendation: model.Recommendation{
			Action:        model.RecommendReschedule,
			KeepID:        keep.ID,
			MoveID:        move.ID,
			SuggestedTime: slot,
			Confidence:    score,
		},
	}
}

// overlapSeverity applies the severity rules in order; the first matching
// rule wins.
func overlapSeverity(items []model.ConflictItem) model.Severity {
	hasFamily, hasWork, anyHighPriority := false, false, false
	for _, item := range items {
		switch item.Type {
		case "family":
			hasFamily = true
		case "work":
			hasWork = true
		}
		if item.Priority > 80 {
			anyHighPriority = true
		}
	}
	if hasFamily && hasWork && anyHighPriority {
		return model.SeverityCritical
	}
	for _, item := range items {
		if item.Type == "meeting" && item.Priority > 80 {
			return model.SeverityHigh
		}
	}
	if len(items) > 2 {
		return model.SeverityMedium
	}
	return model.SeverityLow
}

// humanCentricScore starts at 70, rewards family and work involvement, and
// adds a small mean-priority component, capped at 100.
func humanCentricScore(items []model.ConflictItem) int {
	score := 70.0
	hasFamily, hasWork := false, false
	var prioritySum int
	for _, item := range items {
		if item.Type == "family" {
			hasFamily = true
		}
		if item.Type == "work" {
			hasWork = true
		}
		prioritySum += item.Priority
	}
	if hasFamily {
		score += 15
	}
	if hasWork {
		score += 10
	}
	score += float64(prioritySum) / float64(len(items)) * 0.05
	if score > 100 {
		score = 100
	}
	return int(math.Round(score))
}

// keepAndMove ranks the overlapping events by type rank, ties broken by
// priority, and returns the top-ranked event to keep and the bottom-ranked
// one to displace. On a full tie the earliest event is kept and the latest
// displaced, so the two are always distinct.
func keepAndMove(group []model.CalendarEvent) (keep, move model.CalendarEvent) {
	keep, move = group[0], group[len(group)-1]
	for _, e := range group[1:] {
		if outranks(e, keep) {
			keep = e
		}
	}
	for i := len(group) - 2; i >= 0; i-- {
		if outranks(move, group[i]) {
			move = group[i]
		}
	}
	return keep, move
}

func outranks(a, b model.CalendarEvent) bool {
	ra, rb := typeRank(a.Type), typeRank(b.Type)
	if ra != rb {
		return ra > rb
	}
	return a.PriorityOrZero() > b.PriorityOrZero()
}

// firstFreeHourlySlot scans hour-aligned slots over the following
// slotSearchDays for the first one where the displaced event fits without
// overlapping any other event. Duration is preserved. Returns nil if the
// horizon is exhausted.
func firstFreeHourlySlot(events []model.CalendarEvent, displaced model.CalendarEvent, now time.Time) *time.Time {
	duration := displaced.Duration()
	base := now.Truncate(time.Hour)
	for h := 1; h <= slotSearchDays*24; h++ {
		start := base.Add(time.Duration(h) * time.Hour)
		end := start.Add(duration)
		if !overlapsOthers(events, displaced.ID, start, end) {
			return &start
		}
	}
	return nil
}

func overlapsOthers(events []model.CalendarEvent, excludeID string, start, end time.Time) bool {
	for _, e := range events {
		if e.ID == excludeID {
			continue
		}
		if start.Before(e.End) && e.Start.Before(end) {
			return true
		}
	}
	return false
}
