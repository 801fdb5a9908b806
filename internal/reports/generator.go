// Package reports produces sprint reports and progress snapshots.
package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sprintboard/internal/clock"
	"sprintboard/internal/metrics"
	"sprintboard/internal/models"
	"sprintboard/internal/storage"
)

// SprintReport is the closing summary of a sprint.
type SprintReport struct {
	SprintID           int64                   `json:"sprint_id"`
	SprintName         string                  `json:"sprint_name"`
	StartDate          time.Time               `json:"start_date"`
	EndDate            time.Time               `json:"end_date"`
	Summary            string                  `json:"summary"`
	CompletedTasks     []models.Task           `json:"completed_tasks"`
	TaskCompletionRate float64                 `json:"task_completion_rate"`
	Velocity           float64                 `json:"velocity"`
	Metrics            metrics.ProgressMetrics `json:"metrics"`
	BurndownData       []float64               `json:"burndown_data"`
	GeneratedAt        time.Time               `json:"generated_at"`
}

type Generator struct {
	repo   storage.Repository
	clock  clock.Clock
	logger *slog.Logger
}

func NewGenerator(repo storage.Repository, clk clock.Clock, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{repo: repo, clock: clock.OrSystem(clk), logger: logger}
}

// Generate builds a report for the sprint and appends a stored snapshot.
func (g *Generator) Generate(ctx context.Context, sprintID int64) (SprintReport, error) {
	var report SprintReport
	err := g.repo.InTx(ctx, func(repo storage.Repository) error {
		var err error
		report, err = g.GenerateWithin(ctx, repo, sprintID)
		return err
	})
	return report, err
}

// GenerateWithin is Generate running against the caller's repository, so
// the snapshot commits or rolls back with the caller's unit of work.
func (g *Generator) GenerateWithin(ctx context.Context, repo storage.Repository, sprintID int64) (SprintReport, error) {
	sprint, err := repo.GetSprint(ctx, sprintID)
	if err != nil {
		return SprintReport{}, err
	}
	tasks, err := repo.ListTasks(ctx, storage.TaskFilter{SprintID: &sprintID})
	if err != nil {
		return SprintReport{}, err
	}

	completed := []models.Task{}
	for _, t := range tasks {
		if t.Status == models.StatusDone {
			completed = append(completed, t)
		}
	}

	m := metrics.ForSprint(tasks)
	report := SprintReport{
		SprintID:           sprint.ID,
		SprintName:         sprint.Name,
		StartDate:          sprint.StartDate,
		EndDate:            sprint.EndDate,
		Summary:            summary(sprint.Name, m),
		CompletedTasks:     completed,
		TaskCompletionRate: m.CompletionPercentage,
		Velocity:           m.Velocity,
		Metrics:            m,
		BurndownData:       []float64{m.CompletionPercentage},
		GeneratedAt:        g.clock.Now(),
	}

	stored := models.StoredSprintReport{
		SprintID:           sprint.ID,
		ProjectID:          sprint.ProjectID,
		SprintName:         sprint.Name,
		StartDate:          sprint.StartDate,
		EndDate:            sprint.EndDate,
		Summary:            report.Summary,
		TaskCompletionRate: report.TaskCompletionRate,
		Velocity:           report.Velocity,
		TotalTasks:         m.TotalTasks,
		CompletedTasks:     m.CompletedTasks,
		GeneratedAt:        report.GeneratedAt,
	}
	if err := repo.CreateSprintReport(ctx, &stored); err != nil {
		return SprintReport{}, err
	}

	g.logger.Debug("sprint report stored", slog.Int64("sprint_id", sprintID), slog.Int64("report_id", stored.ID))
	return report, nil
}

// SprintProgress computes metrics for a sprint without storing anything.
func (g *Generator) SprintProgress(ctx context.Context, sprintID int64) (metrics.ProgressMetrics, error) {
	if _, err := g.repo.GetSprint(ctx, sprintID); err != nil {
		return metrics.ProgressMetrics{}, err
	}
	tasks, err := g.repo.ListTasks(ctx, storage.TaskFilter{SprintID: &sprintID})
	if err != nil {
		return metrics.ProgressMetrics{}, err
	}
	return metrics.ForSprint(tasks), nil
}

// ProjectProgress computes metrics over every task and sprint of a project.
func (g *Generator) ProjectProgress(ctx context.Context, projectID int64) (metrics.ProgressMetrics, error) {
	if _, err := g.repo.GetProject(ctx, projectID); err != nil {
		return metrics.ProgressMetrics{}, err
	}
	tasks, err := g.repo.ListTasks(ctx, storage.TaskFilter{ProjectID: &projectID})
	if err != nil {
		return metrics.ProgressMetrics{}, err
	}
	sprints, err := g.repo.ListSprintsByProject(ctx, projectID)
	if err != nil {
		return metrics.ProgressMetrics{}, err
	}
	return metrics.ForProject(tasks, sprints), nil
}

// History lists a project's stored reports, newest first.
func (g *Generator) History(ctx context.Context, projectID int64) ([]models.StoredSprintReport, error) {
	if _, err := g.repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return g.repo.ListSprintReports(ctx, projectID)
}

func summary(name string, m metrics.ProgressMetrics) string {
	return fmt.Sprintf("Sprint '%s' completed with %d out of %d tasks finished (%.2f%% completion rate). Team velocity: %.0f tasks completed.",
		name, m.CompletedTasks, m.TotalTasks, m.CompletionPercentage, m.Velocity)
}
