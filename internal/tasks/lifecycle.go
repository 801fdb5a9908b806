package tasks

import "sprintboard/internal/models"

// transitions lists, per status, the statuses a task may move to.
// Staying in the same status is always allowed and not listed.
var transitions = map[models.TaskStatus][]models.TaskStatus{
	models.StatusTodo:       {models.StatusInProgress, models.StatusBlocked},
	models.StatusInProgress: {models.StatusDone, models.StatusBlocked, models.StatusTodo},
	models.StatusDone:       {models.StatusTodo},
	models.StatusBlocked:    {models.StatusTodo, models.StatusInProgress},
}

// CanTransition reports whether a task in status from may move to status to.
func CanTransition(from, to models.TaskStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from from, excluding from itself.
func AllowedTransitions(from models.TaskStatus) []models.TaskStatus {
	return append([]models.TaskStatus(nil), transitions[from]...)
}
