// Package sprints schedules time-boxed sprints inside a project. Sprints of
// one project never overlap.
//
// The overlap check reads the project's sprints and then writes; two
// concurrent creates for the same project can both pass the check unless the
// store serializes them. The SQLite store runs on a single connection, which
// does.
package sprints

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"sprintboard/internal/apperr"
	"sprintboard/internal/clock"
	"sprintboard/internal/models"
	"sprintboard/internal/reports"
	"sprintboard/internal/storage"
)

// ReportGenerator builds the closing report of a sprint inside the caller's
// unit of work.
type ReportGenerator interface {
	GenerateWithin(ctx context.Context, repo storage.Repository, sprintID int64) (reports.SprintReport, error)
}

type NewSprint struct {
	ProjectID int64
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

// SprintPatch holds optional edits. A blank name is ignored.
type SprintPatch struct {
	Name      *string
	StartDate *time.Time
	EndDate   *time.Time
}

// Window restricts a listing to sprints intersecting [From, To). A zero
// bound is open.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) open() bool { return w.From.IsZero() && w.To.IsZero() }

var (
	farPast   = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

// Overlaps reports whether [s1, e1) collides with [s2, e2). Ranges that only
// touch at a boundary do not collide.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return (!s1.Before(s2) && s1.Before(e2)) ||
		(e1.After(s2) && !e1.After(e2)) ||
		(!s1.After(s2) && !e1.Before(e2))
}

type Scheduler struct {
	repo    storage.Repository
	reports ReportGenerator
	clock   clock.Clock
	logger  *slog.Logger
}

func NewScheduler(repo storage.Repository, gen ReportGenerator, clk clock.Clock, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{repo: repo, reports: gen, clock: clock.OrSystem(clk), logger: logger}
}

// Create schedules a new PLANNED sprint.
func (s *Scheduler) Create(ctx context.Context, in NewSprint) (models.Sprint, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Sprint{}, apperr.Validationf("sprint name is required")
	}
	if in.ProjectID <= 0 {
		return models.Sprint{}, apperr.Validationf("project id is required")
	}
	if err := validateRange(in.StartDate, in.EndDate); err != nil {
		return models.Sprint{}, err
	}

	var sprint models.Sprint
	err := s.repo.InTx(ctx, func(repo storage.Repository) error {
		if _, err := repo.GetProject(ctx, in.ProjectID); err != nil {
			return err
		}
		if err := checkOverlap(ctx, repo, in.ProjectID, 0, in.StartDate, in.EndDate); err != nil {
			return err
		}

		now := s.clock.Now()
		sprint = models.Sprint{
			ProjectID: in.ProjectID,
			Name:      name,
			StartDate: in.StartDate,
			EndDate:   in.EndDate,
			Status:    models.SprintPlanned,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return repo.CreateSprint(ctx, &sprint)
	})
	if err != nil {
		return models.Sprint{}, err
	}

	s.logger.Info("sprint created", slog.Int64("sprint_id", sprint.ID), slog.Int64("project_id", sprint.ProjectID))
	return sprint, nil
}

// Update edits name and dates. The merged range is checked against every
// other sprint of the project.
func (s *Scheduler) Update(ctx context.Context, id int64, patch SprintPatch) (models.Sprint, error) {
	var sprint models.Sprint
	err := s.repo.InTx(ctx, func(repo storage.Repository) error {
		var err error
		sprint, err = repo.GetSprint(ctx, id)
		if err != nil {
			return err
		}

		if patch.Name != nil {
			if name := strings.TrimSpace(*patch.Name); name != "" {
				sprint.Name = name
			}
		}
		if patch.StartDate != nil {
			sprint.StartDate = *patch.StartDate
		}
		if patch.EndDate != nil {
			sprint.EndDate = *patch.EndDate
		}
		if err := validateRange(sprint.StartDate, sprint.EndDate); err != nil {
			return err
		}
		if err := checkOverlap(ctx, repo, sprint.ProjectID, sprint.ID, sprint.StartDate, sprint.EndDate); err != nil {
			return err
		}

		sprint.UpdatedAt = s.clock.Now()
		return repo.UpdateSprint(ctx, sprint)
	})
	if err != nil {
		return models.Sprint{}, err
	}
	return sprint, nil
}

func (s *Scheduler) Get(ctx context.Context, id int64) (models.Sprint, error) {
	return s.repo.GetSprint(ctx, id)
}

// ListByProject returns the project's sprints ordered by start date,
// optionally limited to a window.
func (s *Scheduler) ListByProject(ctx context.Context, projectID int64, w Window) ([]models.Sprint, error) {
	if _, err := s.repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	if w.open() {
		return s.repo.ListSprintsByProject(ctx, projectID)
	}

	from, to := w.From, w.To
	if from.IsZero() {
		from = farPast
	}
	if to.IsZero() {
		to = farFuture
	}
	if !to.After(from) {
		return nil, apperr.Validationf("window end must be after its start")
	}
	return s.repo.ListSprintsInRange(ctx, projectID, from, to)
}

// Start activates a PLANNED sprint.
func (s *Scheduler) Start(ctx context.Context, id int64) (models.Sprint, error) {
	var sprint models.Sprint
	err := s.repo.InTx(ctx, func(repo storage.Repository) error {
		var err error
		sprint, err = repo.GetSprint(ctx, id)
		if err != nil {
			return err
		}
		if sprint.Status != models.SprintPlanned {
			return apperr.Validationf("sprint %d is %s, only PLANNED sprints can be started", id, sprint.Status)
		}
		sprint.Status = models.SprintActive
		sprint.UpdatedAt = s.clock.Now()
		return repo.UpdateSprint(ctx, sprint)
	})
	if err != nil {
		return models.Sprint{}, err
	}

	s.logger.Info("sprint started", slog.Int64("sprint_id", id))
	return sprint, nil
}

// Complete closes a sprint and produces its report in the same unit of
// work. Completing twice is rejected.
func (s *Scheduler) Complete(ctx context.Context, id int64) (reports.SprintReport, error) {
	var report reports.SprintReport
	err := s.repo.InTx(ctx, func(repo storage.Repository) error {
		sprint, err := repo.GetSprint(ctx, id)
		if err != nil {
			return err
		}
		if sprint.Status == models.SprintCompleted {
			return apperr.Validationf("sprint %d is already completed", id)
		}
		sprint.Status = models.SprintCompleted
		sprint.UpdatedAt = s.clock.Now()
		if err := repo.UpdateSprint(ctx, sprint); err != nil {
			return err
		}

		report, err = s.reports.GenerateWithin(ctx, repo, id)
		return err
	})
	if err != nil {
		return reports.SprintReport{}, err
	}

	s.logger.Info("sprint completed",
		slog.Int64("sprint_id", id),
		slog.Float64("completion_rate", report.TaskCompletionRate))
	return report, nil
}

func validateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperr.Validationf("sprint start and end dates are required")
	}
	if !end.After(start) {
		return apperr.Validationf("sprint end date must be after its start date")
	}
	return nil
}

// checkOverlap rejects [start, end) when it collides with a sprint of the
// project other than skipID.
func checkOverlap(ctx context.Context, repo storage.Repository, projectID, skipID int64, start, end time.Time) error {
	existing, err := repo.ListSprintsByProject(ctx, projectID)
	if err != nil {
		return err
	}
	for _, sp := range existing {
		if sp.ID == skipID {
			continue
		}
		if Overlaps(start, end, sp.StartDate, sp.EndDate) {
			return &apperr.ScheduleConflictError{
				SprintID:   sp.ID,
				SprintName: sp.Name,
				Start:      sp.StartDate,
				End:        sp.EndDate,
			}
		}
	}
	return nil
}
