package match

import (
	"strings"

	"github.com/kmiyata/prism/internal/model"
)

// taskTypeKeywords maps task-type labels to their trigger keywords. The
// declaration order is the tie-break: the first category with a keyword
// present in the title wins.
var taskTypeKeywords = []struct {
	taskType string
	keywords []string
}{
	{"meeting", []string{"meeting", "call", "sync"}},
	{"review", []string{"review", "check"}},
	{"writing", []string{"write", "document", "draft"}},
	{"coding", []string{"code", "implement", "build"}},
	{"research", []string{"research", "investigate"}},
}

// ClassifyTaskType derives a task's type from keywords in its lower-cased
// title, falling back to the task's declared type, then "general".
func ClassifyTaskType(task model.Task) string {
	title := strings.ToLower(task.Title)
	for _, group := range taskTypeKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(title, kw) {
				return group.taskType
			}
		}
	}
	if task.Type != "" {
		return task.Type
	}
	return "general"
}
