// Package dashboard assembles the per-user overview: assigned work, due
// dates, active projects and sprints, and a short activity feed.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"sprintboard/internal/clock"
	"sprintboard/internal/models"
	"sprintboard/internal/storage"
)

const (
	upcomingWindow = 7 * 24 * time.Hour
	activityLimit  = 10
)

// View is a point-in-time dashboard for one user.
type View struct {
	TasksByStatus     map[models.TaskStatus][]models.Task `json:"tasks_by_status"`
	UpcomingDeadlines []models.Task                       `json:"upcoming_deadlines"`
	OverdueTasks      []models.Task                       `json:"overdue_tasks"`
	ActiveProjects    []models.Project                    `json:"active_projects"`
	ActiveSprints     []models.Sprint                     `json:"active_sprints"`
	RecentActivity    []string                            `json:"recent_activity"`
}

type Aggregator struct {
	repo  storage.Repository
	clock clock.Clock
}

func NewAggregator(repo storage.Repository, clk clock.Clock) *Aggregator {
	return &Aggregator{repo: repo, clock: clock.OrSystem(clk)}
}

// Build reads the user's data and derives the view. Nothing is written.
func (a *Aggregator) Build(ctx context.Context, userID int64) (View, error) {
	if _, err := a.repo.GetUser(ctx, userID); err != nil {
		return View{}, err
	}
	assigned, err := a.repo.ListTasks(ctx, storage.TaskFilter{AssigneeID: &userID})
	if err != nil {
		return View{}, err
	}
	projects, err := a.activeProjects(ctx, userID)
	if err != nil {
		return View{}, err
	}

	sprints := []models.Sprint{}
	for _, p := range projects {
		active, err := a.repo.ListSprintsByProjectAndStatus(ctx, p.ID, models.SprintActive)
		if err != nil {
			return View{}, err
		}
		sprints = append(sprints, active...)
	}

	now := a.clock.Now()
	return View{
		TasksByStatus:     groupByStatus(assigned),
		UpcomingDeadlines: upcoming(assigned, now),
		OverdueTasks:      overdue(assigned, now),
		ActiveProjects:    projects,
		ActiveSprints:     sprints,
		RecentActivity:    recentActivity(assigned, len(projects), now),
	}, nil
}

// activeProjects merges owned and joined projects, ordered by id.
func (a *Aggregator) activeProjects(ctx context.Context, userID int64) ([]models.Project, error) {
	owned, err := a.repo.ListProjectsByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	joined, err := a.repo.ListProjectsByMember(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(owned)+len(joined))
	out := []models.Project{}
	for _, p := range append(owned, joined...) {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func groupByStatus(tasks []models.Task) map[models.TaskStatus][]models.Task {
	out := make(map[models.TaskStatus][]models.Task, len(models.TaskStatuses))
	for _, s := range models.TaskStatuses {
		out[s] = []models.Task{}
	}
	for _, t := range tasks {
		out[t.Status] = append(out[t.Status], t)
	}
	return out
}

// upcoming keeps open tasks due strictly inside (now, now+7d).
func upcoming(tasks []models.Task, now time.Time) []models.Task {
	limit := now.Add(upcomingWindow)
	return byDueDate(tasks, func(due time.Time) bool {
		return due.After(now) && due.Before(limit)
	})
}

func overdue(tasks []models.Task, now time.Time) []models.Task {
	return byDueDate(tasks, func(due time.Time) bool { return due.Before(now) })
}

func byDueDate(tasks []models.Task, keep func(time.Time) bool) []models.Task {
	out := []models.Task{}
	for _, t := range tasks {
		if t.DueDate == nil || t.Status == models.StatusDone {
			continue
		}
		if keep(*t.DueDate) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(*out[j].DueDate) })
	return out
}

func recentActivity(tasks []models.Task, projectCount int, now time.Time) []string {
	recent := append([]models.Task(nil), tasks...)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].UpdatedAt.After(recent[j].UpdatedAt) })
	if len(recent) > activityLimit {
		recent = recent[:activityLimit]
	}

	out := []string{}
	for _, t := range recent {
		ago := timeAgo(t.UpdatedAt, now)
		if d := t.UpdatedAt.Sub(t.CreatedAt); d > -time.Second && d < time.Second {
			out = append(out, fmt.Sprintf("Task '%s' was created %s", t.Title, ago))
			continue
		}
		out = append(out, fmt.Sprintf("Task '%s' was updated to %s %s", t.Title, t.Status, ago))
	}

	if len(out) == 0 && projectCount > 0 {
		out = append(out, fmt.Sprintf("You are a member of %d active project(s)", projectCount))
	}
	return out
}

// timeAgo renders the elapsed time in its largest whole unit.
func timeAgo(then, now time.Time) string {
	d := now.Sub(then)
	switch {
	case d >= 24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day")
	case d >= time.Hour:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute:
		return plural(int(d/time.Minute), "minute")
	default:
		return "just now"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
