package server

import (
	"log/slog"

	"sprintboard/internal/clock"
	"sprintboard/internal/dashboard"
	"sprintboard/internal/notify"
	"sprintboard/internal/projects"
	"sprintboard/internal/reports"
	"sprintboard/internal/sprints"
	"sprintboard/internal/storage"
	"sprintboard/internal/tasks"
	"sprintboard/internal/users"
)

// NewServices wires every domain service onto one repository. Task events
// are delivered through the notification service.
func NewServices(repo storage.Repository, clk clock.Clock, logger *slog.Logger) Services {
	if logger == nil {
		logger = slog.Default()
	}
	notifier := notify.NewService(repo, clk, logger.With(slog.String("component", "notify")))
	gen := reports.NewGenerator(repo, clk, logger.With(slog.String("component", "reports")))

	svc := Services{
		Users:     users.NewService(repo, clk, logger.With(slog.String("component", "users"))),
		Projects:  projects.NewService(repo, clk, logger.With(slog.String("component", "projects"))),
		Tasks:     tasks.NewService(repo, notifier, clk, logger.With(slog.String("component", "tasks"))),
		Sprints:   sprints.NewScheduler(repo, gen, clk, logger.With(slog.String("component", "sprints"))),
		Reports:   gen,
		Dashboard: dashboard.NewAggregator(repo, clk),
		Notify:    notifier,
	}
	if p, ok := repo.(Pinger); ok {
		svc.Health = p
	}
	return svc
}
