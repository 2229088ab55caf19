package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/kmiyata/prism/internal/correct"
	"github.com/kmiyata/prism/internal/lock"
	"github.com/kmiyata/prism/internal/model"
)

// WorkspaceStore reads and mutates one workspace YAML file. All writes go
// through the keyed mutex and the atomic writer, so concurrent engine
// ticks, IPC commands, and correction callbacks never interleave a write.
type WorkspaceStore struct {
	path    string
	dataDir string
	locks   *lock.KeyedMutex
	logger  *log.Logger
	now     func() time.Time
}

// Open returns a store for the workspace file at path. dataDir is where
// quarantined copies go; it is created lazily.
func Open(path, dataDir string, logger *log.Logger) *WorkspaceStore {
	return &WorkspaceStore{
		path:    path,
		dataDir: dataDir,
		locks:   lock.NewKeyedMutex(),
		logger:  logger,
		now:     time.Now,
	}
}

// Path returns the workspace file path this store serves.
func (w *WorkspaceStore) Path() string {
	return w.path
}

// Snapshot loads the current workspace state. A missing file is an empty
// workspace, not an error.
func (w *WorkspaceStore) Snapshot() (model.WorkspaceSnapshot, error) {
	var snap model.WorkspaceSnapshot
	err := w.locks.With(w.path, func() error {
		var err error
		snap, err = w.load()
		return err
	})
	return snap, err
}

// Save replaces the workspace state wholesale.
func (w *WorkspaceStore) Save(snap model.WorkspaceSnapshot) error {
	return w.locks.With(w.path, func() error {
		return AtomicWrite(w.path, snap)
	})
}

// errUnchanged is returned by mutate callbacks that decided not to touch
// the snapshot; it suppresses the write so file watchers see no event.
var errUnchanged = errors.New("workspace unchanged")

// mutate runs fn against the freshly loaded snapshot and persists the
// result, all under the file's mutex.
func (w *WorkspaceStore) mutate(fn func(*model.WorkspaceSnapshot) error) error {
	return w.locks.With(w.path, func() error {
		snap, err := w.load()
		if err != nil {
			return err
		}
		if err := fn(&snap); err != nil {
			if errors.Is(err, errUnchanged) {
				return nil
			}
			return err
		}
		return AtomicWrite(w.path, snap)
	})
}

// load reads and parses the workspace file, recovering through quarantine
// and backup when the file is corrupted.
func (w *WorkspaceStore) load() (model.WorkspaceSnapshot, error) {
	content, err := os.ReadFile(w.path)
	if os.IsNotExist(err) {
		return model.WorkspaceSnapshot{}, nil
	}
	if err != nil {
		return model.WorkspaceSnapshot{}, fmt.Errorf("read workspace: %w", err)
	}

	var snap model.WorkspaceSnapshot
	if err := yamlv3.Unmarshal(content, &snap); err == nil {
		return snap, nil
	}

	if err := w.recover(); err != nil {
		return model.WorkspaceSnapshot{}, err
	}
	content, err = os.ReadFile(w.path)
	if err != nil {
		return model.WorkspaceSnapshot{}, fmt.Errorf("read recovered workspace: %w", err)
	}
	if err := yamlv3.Unmarshal(content, &snap); err != nil {
		return model.WorkspaceSnapshot{}, fmt.Errorf("parse recovered workspace: %w", err)
	}
	return snap, nil
}

func (w *WorkspaceStore) recover() error {
	dest, err := quarantine(w.dataDir, w.path, w.now())
	if err != nil {
		return fmt.Errorf("quarantine failed: %w", err)
	}
	w.logf("quarantined corrupted workspace: %s", dest)

	restoreErr := restoreFromBackup(w.path)
	if restoreErr == nil {
		w.logf("restored workspace from backup")
		return nil
	}
	w.logf("backup restore failed: %v, writing empty workspace", restoreErr)
	return writeSkeleton(w.path)
}

// InsertSuggestion appends a suggestion unless one with the same id is
// already present. Reports whether it was inserted.
func (w *WorkspaceStore) InsertSuggestion(s model.Suggestion) (bool, error) {
	inserted := false
	err := w.mutate(func(snap *model.WorkspaceSnapshot) error {
		for _, existing := range snap.Suggestions {
			if existing.ID == s.ID {
				return errUnchanged
			}
		}
		snap.Suggestions = append(snap.Suggestions, s)
		inserted = true
		return nil
	})
	return inserted, err
}

// RemoveSuggestion deletes a suggestion by id, reporting whether it existed.
func (w *WorkspaceStore) RemoveSuggestion(id string) (bool, error) {
	removed := false
	err := w.mutate(func(snap *model.WorkspaceSnapshot) error {
		kept := snap.Suggestions[:0]
		for _, s := range snap.Suggestions {
			if s.ID == id {
				removed = true
				continue
			}
			kept = append(kept, s)
		}
		if !removed {
			return errUnchanged
		}
		snap.Suggestions = kept
		return nil
	})
	return removed, err
}

// AppendAnalysis records one orchestrator run in workspace history.
func (w *WorkspaceStore) AppendAnalysis(result model.AnalysisResult) error {
	return w.mutate(func(snap *model.WorkspaceSnapshot) error {
		snap.Analyses = append(snap.Analyses, result)
		return nil
	})
}

// CreateTasks materializes a breakdown action: it seeds a task linked back
// to the originating list item so future detection sees the pattern applied.
func (w *WorkspaceStore) CreateTasks(p model.ActionPayload) error {
	itemText := paramString(p.Params, "item_text")
	if itemText == "" {
		return fmt.Errorf("action %s: missing item_text param", p.ID)
	}
	pattern := paramString(p.Params, "pattern")
	return w.mutate(func(snap *model.WorkspaceSnapshot) error {
		snap.Tasks = append(snap.Tasks, model.Task{
			ID:               uuid.NewString(),
			Title:            itemText,
			Priority:         50,
			SourceListItem:   itemText,
			BreakdownPattern: pattern,
		})
		return nil
	})
}

// CreateEvent materializes a schedule action: a calendar block at the
// proposed slot, titled after the task.
func (w *WorkspaceStore) CreateEvent(p model.ActionPayload) error {
	start, err := time.Parse(time.RFC3339, paramString(p.Params, "start"))
	if err != nil {
		return fmt.Errorf("action %s: bad start param: %w", p.ID, err)
	}
	minutes := paramInt(p.Params, "duration_minutes")
	if minutes <= 0 {
		minutes = 60
	}
	title := paramString(p.Params, "title")
	if title == "" {
		title = "Focused work"
	}
	return w.mutate(func(snap *model.WorkspaceSnapshot) error {
		snap.CalendarEvents = append(snap.CalendarEvents, model.CalendarEvent{
			ID:    uuid.NewString(),
			Title: title,
			Start: start,
			End:   start.Add(time.Duration(minutes) * time.Minute),
			Type:  "work",
		})
		return nil
	})
}

// AddListItems materializes a prep action: the recurring prep tasks are
// appended to the target list, skipping ones already on it.
func (w *WorkspaceStore) AddListItems(p model.ActionPayload) error {
	listID := paramString(p.Params, "list_id")
	items := paramStrings(p.Params, "items")
	if listID == "" || len(items) == 0 {
		return fmt.Errorf("action %s: missing list_id or items param", p.ID)
	}
	return w.mutate(func(snap *model.WorkspaceSnapshot) error {
		for i := range snap.Lists {
			if snap.Lists[i].ID != listID {
				continue
			}
			existing := make(map[string]bool, len(snap.Lists[i].Items))
			for _, it := range snap.Lists[i].Items {
				existing[it.Text] = true
			}
			added := 0
			for _, text := range items {
				if existing[text] {
					continue
				}
				snap.Lists[i].Items = append(snap.Lists[i].Items, model.ListItem{
					ID:   uuid.NewString(),
					Text: text,
				})
				added++
			}
			if added == 0 {
				return errUnchanged
			}
			return nil
		}
		return fmt.Errorf("action %s: list %s not found", p.ID, listID)
	})
}

// Callbacks returns the correction callbacks backed by this store.
func (w *WorkspaceStore) Callbacks() correct.Callbacks {
	return correct.Callbacks{
		UpdateTask:          w.updateTask,
		UpdateCalendarEvent: w.updateEvent,
		AddCalendarEvent:    w.addEvent,
		UpdateList:          w.updateList,
	}
}

func (w *WorkspaceStore) updateTask(id, field string, value any) error {
	return w.mutate(func(snap *model.WorkspaceSnapshot) error {
		for i := range snap.Tasks {
			if snap.Tasks[i].ID != id {
				continue
			}
			switch field {
			case "title":
				s, ok := value.(string)
				if !ok {
					return fmt.Errorf("task %s: title wants string, got %T", id, value)
				}
				snap.Tasks[i].Title = s
			case "priority":
				n, ok := asInt(value)
				if !ok {
					return fmt.Errorf("task %s: priority wants int, got %T", id, value)
				}
				snap.Tasks[i].Priority = n
			case "due_date":
				ts, ok := asTime(value)
				if !ok {
					return fmt.Errorf("task %s: due_date wants time, got %T", id, value)
				}
				snap.Tasks[i].DueDate = &ts
			case "done":
				b, ok := value.(bool)
				if !ok {
					return fmt.Errorf("task %s: done wants bool, got %T", id, value)
				}
				snap.Tasks[i].Done = b
			default:
				return fmt.Errorf("task %s: unknown field %q", id, field)
			}
			return nil
		}
		return fmt.Errorf("task %s not found", id)
	})
}

func (w *WorkspaceStore) updateEvent(id, field string, value any) error {
	return w.mutate(func(snap *model.WorkspaceSnapshot) error {
		for i := range snap.CalendarEvents {
			if snap.CalendarEvents[i].ID != id {
				continue
			}
			switch field {
			case "title":
				s, ok := value.(string)
				if !ok {
					return fmt.Errorf("event %s: title wants string, got %T", id, value)
				}
				snap.CalendarEvents[i].Title = s
			case "start":
				ts, ok := asTime(value)
				if !ok {
					return fmt.Errorf("event %s: start wants time, got %T", id, value)
				}
				snap.CalendarEvents[i].Start = ts
			case "end":
				ts, ok := asTime(value)
				if !ok {
					return fmt.Errorf("event %s: end wants time, got %T", id, value)
				}
				snap.CalendarEvents[i].End = ts
			case "priority":
				n, ok := asInt(value)
				if !ok {
					return fmt.Errorf("event %s: priority wants int, got %T", id, value)
				}
				snap.CalendarEvents[i].Priority = &n
			default:
				return fmt.Errorf("event %s: unknown field %q", id, field)
			}
			return nil
		}
		return fmt.Errorf("event %s not found", id)
	})
}

func (w *WorkspaceStore) addEvent(event model.CalendarEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	return w.mutate(func(snap *model.WorkspaceSnapshot) error {
		snap.CalendarEvents = append(snap.CalendarEvents, event)
		return nil
	})
}

func (w *WorkspaceStore) updateList(id, field string, value any) error {
	return w.mutate(func(snap *model.WorkspaceSnapshot) error {
		for i := range snap.Lists {
			if snap.Lists[i].ID != id {
				continue
			}
			switch field {
			case "name":
				s, ok := value.(string)
				if !ok {
					return fmt.Errorf("list %s: name wants string, got %T", id, value)
				}
				snap.Lists[i].Name = s
			default:
				return fmt.Errorf("list %s: unknown field %q", id, field)
			}
			return nil
		}
		return fmt.Errorf("list %s not found", id)
	})
}

func (w *WorkspaceStore) logf(format string, args ...any) {
	if w.logger != nil {
		w.logger.Printf("%s INFO store: %s", time.Now().Format(time.RFC3339), fmt.Sprintf(format, args...))
	}
}

// Param values arrive as plain JSON types after the execution-context round
// trip, so numbers may be float64 and string slices []any.

func paramString(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

func paramInt(params map[string]any, key string) int {
	n, _ := asInt(params[key])
	return n
}

func paramStrings(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		ts, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return ts, true
	default:
		return time.Time{}, false
	}
}
