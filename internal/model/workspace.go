// Package model defines the data structures for Prism's workspace snapshot,
// suggestions, conflicts, corrections, and configuration.
package model

import "time"

// WorkspaceSnapshot is the read-only aggregate of the user's workspace data,
// assembled fresh for each analysis run. The engine borrows it for the
// duration of one call and must not retain references past that call.
type WorkspaceSnapshot struct {
	Lists          []List             `yaml:"lists" json:"lists"`
	Tasks          []Task             `yaml:"tasks" json:"tasks"`
	CalendarEvents []CalendarEvent    `yaml:"calendar_events" json:"calendar_events"`
	Connectors     []Connector        `yaml:"connectors,omitempty" json:"connectors,omitempty"`
	Pages          []OpaqueDocument   `yaml:"pages,omitempty" json:"pages,omitempty"`
	Notes          []OpaqueDocument   `yaml:"notes,omitempty" json:"notes,omitempty"`
	Boards         []OpaqueDocument   `yaml:"boards,omitempty" json:"boards,omitempty"`
	Flows          []OpaqueDocument   `yaml:"flows,omitempty" json:"flows,omitempty"`
	Suggestions    []Suggestion       `yaml:"suggestions,omitempty" json:"suggestions,omitempty"`
	Analyses       []AnalysisResult   `yaml:"analyses,omitempty" json:"analyses,omitempty"`
	History        WorkspaceHistory   `yaml:"history" json:"history"`
}

// WorkspaceHistory holds the read-only training signal for the detectors.
// The engine never mutates it.
type WorkspaceHistory struct {
	Scheduling  []SchedulingHistory `yaml:"scheduling" json:"scheduling"`
	Preparation []PrepHistory       `yaml:"preparation" json:"preparation"`
}

// List is a user list of checkable items. Item ids are unique within a list.
type List struct {
	ID    string     `yaml:"id" json:"id"`
	Name  string     `yaml:"name" json:"name"`
	Items []ListItem `yaml:"items" json:"items"`
}

type ListItem struct {
	ID   string `yaml:"id" json:"id"`
	Text string `yaml:"text" json:"text"`
	Done bool   `yaml:"done" json:"done"`
}

// Task is a workspace task. Priority is an importance score in [0,100],
// not a queue position.
type Task struct {
	ID               string     `yaml:"id" json:"id"`
	Title            string     `yaml:"title" json:"title"`
	Done             bool       `yaml:"done" json:"done"`
	Priority         int        `yaml:"priority" json:"priority"`
	Type             string     `yaml:"type,omitempty" json:"type,omitempty"`
	DueDate          *time.Time `yaml:"due_date,omitempty" json:"due_date,omitempty"`
	SourceListItem   string     `yaml:"source_list_item,omitempty" json:"source_list_item,omitempty"`
	BreakdownPattern string     `yaml:"breakdown_pattern,omitempty" json:"breakdown_pattern,omitempty"`
}

// CalendarEvent is a scheduled block. Invariant: Start < End. Priority is
// optional; nil means the event carries no importance score.
type CalendarEvent struct {
	ID        string    `yaml:"id" json:"id"`
	Title     string    `yaml:"title" json:"title"`
	Start     time.Time `yaml:"start" json:"start"`
	End       time.Time `yaml:"end" json:"end"`
	Type      string    `yaml:"type,omitempty" json:"type,omitempty"`
	Priority  *int      `yaml:"priority,omitempty" json:"priority,omitempty"`
	Attendees []string  `yaml:"attendees,omitempty" json:"attendees,omitempty"`
}

// PriorityOrZero returns the event priority, treating unset as zero for
// scoring purposes. Filters that need to distinguish "no priority" from
// priority zero must check Priority directly.
func (e CalendarEvent) PriorityOrZero() int {
	if e.Priority == nil {
		return 0
	}
	return *e.Priority
}

// Duration returns End − Start.
func (e CalendarEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// SchedulingHistory records one task the user has historically scheduled.
type SchedulingHistory struct {
	TaskType      string        `yaml:"task_type" json:"task_type"`
	ScheduledTime time.Time     `yaml:"scheduled_time" json:"scheduled_time"`
	Duration      time.Duration `yaml:"duration" json:"duration"`
}

// PrepHistory records a historical prep-task set for a past event.
type PrepHistory struct {
	EventTitle    string   `yaml:"event_title" json:"event_title"`
	PrepTasks     []string `yaml:"prep_tasks" json:"prep_tasks"`
	LeadTimeHours int      `yaml:"lead_time_hours" json:"lead_time_hours"`
}

// Connector is an external integration stub; opaque to the engine.
type Connector struct {
	ID       string `yaml:"id" json:"id"`
	Provider string `yaml:"provider" json:"provider"`
	Status   string `yaml:"status" json:"status"`
}

// OpaqueDocument covers pages, notes, boards, and flows. The engine carries
// them through the snapshot but never inspects their content.
type OpaqueDocument struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
}
