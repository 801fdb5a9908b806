package models

import (
	"fmt"
	"strings"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusDone       TaskStatus = "DONE"
	StatusBlocked    TaskStatus = "BLOCKED"
)

// TaskStatuses lists every status in board order.
var TaskStatuses = []TaskStatus{StatusTodo, StatusInProgress, StatusDone, StatusBlocked}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusBlocked:
		return true
	}
	return false
}

// ParseTaskStatus accepts the canonical names case-insensitively.
func ParseTaskStatus(raw string) (TaskStatus, error) {
	s := TaskStatus(normalize(raw))
	if !s.Valid() {
		return "", fmt.Errorf("unknown task status %q", raw)
	}
	return s, nil
}

// Priority orders tasks by urgency.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ParsePriority accepts the canonical names case-insensitively.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(normalize(raw))
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", raw)
	}
	return p, nil
}

// SprintStatus only ever moves forward: PLANNED, ACTIVE, COMPLETED.
type SprintStatus string

const (
	SprintPlanned   SprintStatus = "PLANNED"
	SprintActive    SprintStatus = "ACTIVE"
	SprintCompleted SprintStatus = "COMPLETED"
)

func (s SprintStatus) Valid() bool {
	switch s {
	case SprintPlanned, SprintActive, SprintCompleted:
		return true
	}
	return false
}

// NotificationType classifies inbox messages.
type NotificationType string

const (
	NotifyTaskAssigned     NotificationType = "TASK_ASSIGNED"
	NotifyStatusChanged    NotificationType = "STATUS_CHANGED"
	NotifyDeadlineReminder NotificationType = "DEADLINE_REMINDER"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotifyTaskAssigned, NotifyStatusChanged, NotifyDeadlineReminder:
		return true
	}
	return false
}

func normalize(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	return strings.ReplaceAll(s, "-", "_")
}
