// Package metrics derives progress figures from task and sprint snapshots.
// Every function is pure: the same input always yields the same output.
package metrics

import "sprintboard/internal/models"

// ProgressMetrics summarizes a set of tasks.
type ProgressMetrics struct {
	TotalTasks           int                       `json:"total_tasks"`
	CompletedTasks       int                       `json:"completed_tasks"`
	CompletionPercentage float64                   `json:"completion_percentage"`
	StatusDistribution   map[models.TaskStatus]int `json:"status_distribution"`
	Velocity             float64                   `json:"velocity"`
}

// Compute counts tasks per status. Velocity is the number of DONE tasks.
func Compute(tasks []models.Task) ProgressMetrics {
	dist := make(map[models.TaskStatus]int, len(models.TaskStatuses))
	for _, s := range models.TaskStatuses {
		dist[s] = 0
	}
	for _, t := range tasks {
		dist[t.Status]++
	}

	done := dist[models.StatusDone]
	return ProgressMetrics{
		TotalTasks:           len(tasks),
		CompletedTasks:       done,
		CompletionPercentage: percentage(done, len(tasks)),
		StatusDistribution:   dist,
		Velocity:             float64(done),
	}
}

// ForSprint computes metrics over the tasks of one sprint.
func ForSprint(tasks []models.Task) ProgressMetrics {
	return Compute(tasks)
}

// ForProject computes metrics over a project's tasks. Velocity is the
// average number of DONE tasks per sprint, counting only tasks that belong
// to one of the given sprints.
func ForProject(tasks []models.Task, sprints []models.Sprint) ProgressMetrics {
	m := Compute(tasks)
	m.Velocity = projectVelocity(tasks, sprints)
	return m
}

func projectVelocity(tasks []models.Task, sprints []models.Sprint) float64 {
	if len(sprints) == 0 {
		return 0
	}
	ids := make(map[int64]struct{}, len(sprints))
	for _, sp := range sprints {
		ids[sp.ID] = struct{}{}
	}

	done := 0
	for _, t := range tasks {
		if t.Status != models.StatusDone || t.SprintID == nil {
			continue
		}
		if _, ok := ids[*t.SprintID]; ok {
			done++
		}
	}
	return float64(done) / float64(len(sprints))
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) * 100 / float64(total)
}
