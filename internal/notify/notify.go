// Package notify surfaces critical conflicts as macOS desktop
// notifications via osascript.
package notify

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/kmiyata/prism/internal/events"
	"github.com/kmiyata/prism/internal/model"
)

// Notifier shells out to osascript. The runner is swappable for tests.
type Notifier struct {
	run func(script string) error
}

func New() *Notifier {
	return &Notifier{run: runOsascript}
}

// Send displays one notification with the default sound.
func (n *Notifier) Send(title, message string) error {
	script := fmt.Sprintf(
		`display notification %q with title %q sound name "default"`,
		escapeAppleScript(message), escapeAppleScript(title),
	)
	return n.run(script)
}

// WatchCritical subscribes the notifier to conflict events, surfacing only
// the critical ones. Returns the unsubscribe function.
func (n *Notifier) WatchCritical(bus *events.Bus) func() {
	return bus.Subscribe(events.EventConflictDetected, func(ev events.Event) {
		severity, _ := ev.Data["severity"].(string)
		if severity != string(model.SeverityCritical) {
			return
		}
		conflictID, _ := ev.Data["conflict_id"].(string)
		// Notification failures are not worth failing anything over.
		_ = n.Send("Prism: critical conflict", fmt.Sprintf("Conflict %s needs attention", conflictID))
	})
}

func runOsascript(script string) error {
	cmd := exec.Command("osascript", "-e", script)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("osascript: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
