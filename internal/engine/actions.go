package engine

import (
	"log"

	"github.com/kmiyata/prism/internal/model"
)

// ActionHandlers resolves a wire-form action back to a concrete callable,
// keyed by action type. Rehydration happens only after a payload has
// crossed back into the main execution context; closures are never
// serialized.
type ActionHandlers map[string]func(p model.ActionPayload) model.ActionFunc

// Mutator is the slice of workspace mutations the rehydrated actions
// need. The external store supplies the implementation.
type Mutator interface {
	CreateTasks(p model.ActionPayload) error
	CreateEvent(p model.ActionPayload) error
	AddListItems(p model.ActionPayload) error
}

// DefaultActionHandlers wires the three known action types to the given
// mutator. Unknown types fall through to a logging no-op in Rehydrate.
func DefaultActionHandlers(m Mutator) ActionHandlers {
	return ActionHandlers{
		"create-tasks": func(p model.ActionPayload) model.ActionFunc {
			return func() error { return m.CreateTasks(p) }
		},
		"create-event": func(p model.ActionPayload) model.ActionFunc {
			return func() error { return m.CreateEvent(p) }
		},
		"add-list-items": func(p model.ActionPayload) model.ActionFunc {
			return func() error { return m.AddListItems(p) }
		},
	}
}

// Rehydrate restores a wire-form suggestion to its full form, attaching a
// concrete callable to each action via the dispatch table. Actions with no
// registered handler get a no-op that logs the unknown type.
func Rehydrate(p model.SuggestionPayload, handlers ActionHandlers, logger *log.Logger) model.Suggestion {
	s := model.Suggestion{
		ID:               p.ID,
		Type:             p.Type,
		Priority:         p.Priority,
		Source:           p.Source,
		Title:            p.Title,
		Description:      p.Description,
		Reasoning:        p.Reasoning,
		Confidence:       p.Confidence,
		ModelConsensus:   p.ModelConsensus,
		PatternFrequency: p.PatternFrequency,
		FirstObserved:    p.FirstObserved,
		LastObserved:     p.LastObserved,
	}
	for _, ap := range p.Actions {
		action := model.Action{ID: ap.ID, Type: ap.Type, Label: ap.Label, Params: ap.Params}
		if factory, ok := handlers[ap.Type]; ok {
			action.Execute = factory(ap)
		} else {
			actionType := ap.Type
			action.Execute = func() error {
				if logger != nil {
					logger.Printf("no handler for action type %q, ignoring", actionType)
				}
				return nil
			}
		}
		s.Actions = append(s.Actions, action)
	}
	return s
}
