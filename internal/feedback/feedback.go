// Package feedback records what users do with suggestions. Submission is
// fire-and-forget: the caller never waits on or learns about delivery, so
// a slow or absent consumer cannot stall the accept/dismiss path.
package feedback

import (
	"fmt"
	"log"
	"time"

	"github.com/kmiyata/prism/internal/events"
)

// Outcomes a user can reach for on a suggestion.
const (
	OutcomeAccepted   = "accepted"
	OutcomeDismissed  = "dismissed"
	OutcomeCustomized = "customized"
)

var validOutcomes = map[string]bool{
	OutcomeAccepted:   true,
	OutcomeDismissed:  true,
	OutcomeCustomized: true,
}

// ValidOutcome reports whether s names a known feedback outcome.
func ValidOutcome(s string) bool {
	return validOutcomes[s]
}

// Recorder publishes suggestion feedback onto the event bus.
type Recorder struct {
	bus    *events.Bus
	logger *log.Logger
	now    func() time.Time
}

func NewRecorder(bus *events.Bus, logger *log.Logger) *Recorder {
	return &Recorder{bus: bus, logger: logger, now: time.Now}
}

// Submit records one outcome for a suggestion. Unknown outcomes are logged
// and dropped rather than surfaced; feedback must never fail the caller.
func (r *Recorder) Submit(suggestionID, outcome, details string) {
	if suggestionID == "" {
		r.logf("dropping feedback with empty suggestion id")
		return
	}
	if !ValidOutcome(outcome) {
		r.logf("dropping feedback with unknown outcome %q for %s", outcome, suggestionID)
		return
	}
	if r.bus != nil {
		r.bus.Publish(events.EventSuggestionFeedback, map[string]any{
			"suggestion_id": suggestionID,
			"outcome":       outcome,
			"details":       details,
			"submitted_at":  r.now().Format(time.RFC3339),
		})
	}
	r.logf("feedback suggestion=%s outcome=%s", suggestionID, outcome)
}

func (r *Recorder) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf("%s INFO feedback: %s", time.Now().Format(time.RFC3339), fmt.Sprintf(format, args...))
	}
}
