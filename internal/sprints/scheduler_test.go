package sprints

import (
	"context"
	"errors"
	"testing"
	"time"

	"sprintboard/internal/apperr"
	"sprintboard/internal/clock"
	"sprintboard/internal/metrics"
	"sprintboard/internal/models"
	"sprintboard/internal/reports"
	"sprintboard/internal/storage"
	"sprintboard/internal/storage/memstore"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC)
}

func newScheduler(t *testing.T) (*Scheduler, *memstore.Store, models.Project) {
	t.Helper()
	store := memstore.New()
	ctx := context.Background()

	owner := models.User{Username: "pm", Email: "pm@example.com"}
	if err := store.CreateUser(ctx, &owner); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	project := models.Project{Name: "Roadmap", OwnerID: owner.ID}
	if err := store.CreateProject(ctx, &project); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	clk := clock.Fixed(day(time.January, 1))
	sched := NewScheduler(store, reports.NewGenerator(store, clk, nil), clk, nil)
	return sched, store, project
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name           string
		s1, e1, s2, e2 time.Time
		want           bool
	}{
		{"identical", day(1, 1), day(1, 15), day(1, 1), day(1, 15), true},
		{"starts inside", day(1, 10), day(1, 20), day(1, 1), day(1, 15), true},
		{"ends inside", day(1, 1), day(1, 10), day(1, 5), day(1, 15), true},
		{"contains", day(1, 1), day(1, 31), day(1, 10), day(1, 15), true},
		{"contained", day(1, 10), day(1, 12), day(1, 1), day(1, 31), true},
		{"touches after", day(1, 15), day(1, 20), day(1, 1), day(1, 15), false},
		{"touches before", day(1, 1), day(1, 15), day(1, 15), day(1, 20), false},
		{"disjoint", day(2, 1), day(2, 10), day(1, 1), day(1, 15), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.s1, tt.e1, tt.s2, tt.e2); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
			if got := Overlaps(tt.s2, tt.e2, tt.s1, tt.e1); got != tt.want {
				t.Errorf("Overlaps (swapped) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCreateRejectsOverlap(t *testing.T) {
	sched, _, project := newScheduler(t)
	ctx := context.Background()

	s1, err := sched.Create(ctx, NewSprint{ProjectID: project.ID, Name: "S1", StartDate: day(1, 1), EndDate: day(1, 15)})
	if err != nil {
		t.Fatalf("Create S1: %v", err)
	}
	if s1.Status != models.SprintPlanned {
		t.Errorf("status = %s, want PLANNED", s1.Status)
	}

	_, err = sched.Create(ctx, NewSprint{ProjectID: project.ID, Name: "S2", StartDate: day(1, 10), EndDate: day(1, 20)})
	if !errors.Is(err, apperr.ErrScheduleConflict) {
		t.Fatalf("Create S2 error = %v, want schedule conflict", err)
	}
	want := "sprint dates overlap with existing sprint 'S1' (2025-01-01 to 2025-01-15)"
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}

	if _, err := sched.Create(ctx, NewSprint{ProjectID: project.ID, Name: "S2", StartDate: day(1, 15), EndDate: day(1, 20)}); err != nil {
		t.Fatalf("Create touching sprint: %v", err)
	}

	all, err := sched.ListByProject(ctx, project.ID, Window{})
	if err != nil || len(all) != 2 {
		t.Fatalf("ListByProject = %d sprints, err %v", len(all), err)
	}
}

func TestCreateValidation(t *testing.T) {
	sched, _, project := newScheduler(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   NewSprint
		want error
	}{
		{"blank name", NewSprint{ProjectID: project.ID, Name: " ", StartDate: day(1, 1), EndDate: day(1, 2)}, apperr.ErrValidation},
		{"no project", NewSprint{Name: "S", StartDate: day(1, 1), EndDate: day(1, 2)}, apperr.ErrValidation},
		{"missing dates", NewSprint{ProjectID: project.ID, Name: "S"}, apperr.ErrValidation},
		{"end before start", NewSprint{ProjectID: project.ID, Name: "S", StartDate: day(1, 5), EndDate: day(1, 1)}, apperr.ErrValidation},
		{"zero length", NewSprint{ProjectID: project.ID, Name: "S", StartDate: day(1, 5), EndDate: day(1, 5)}, apperr.ErrValidation},
		{"unknown project", NewSprint{ProjectID: 404, Name: "S", StartDate: day(1, 1), EndDate: day(1, 2)}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sched.Create(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("Create error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	sched, _, project := newScheduler(t)
	ctx := context.Background()

	s1, _ := sched.Create(ctx, NewSprint{ProjectID: project.ID, Name: "S1", StartDate: day(1, 1), EndDate: day(1, 15)})
	s2, err := sched.Create(ctx, NewSprint{ProjectID: project.ID, Name: "S2", StartDate: day(1, 15), EndDate: day(1, 29)})
	if err != nil {
		t.Fatalf("Create S2: %v", err)
	}

	end := day(1, 14)
	blank := ""
	got, err := sched.Update(ctx, s1.ID, SprintPatch{Name: &blank, EndDate: &end})
	if err != nil {
		t.Fatalf("shrinking S1 overlaps itself only: %v", err)
	}
	if got.Name != "S1" || !got.EndDate.Equal(end) {
		t.Errorf("unexpected sprint after update %+v", got)
	}

	start := day(1, 10)
	if _, err := sched.Update(ctx, s2.ID, SprintPatch{StartDate: &start}); !errors.Is(err, apperr.ErrScheduleConflict) {
		t.Errorf("moving S2 into S1 = %v, want schedule conflict", err)
	}
	late := day(2, 1)
	if _, err := sched.Update(ctx, s2.ID, SprintPatch{StartDate: &late}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("start after end = %v, want validation", err)
	}
}

func TestListByProjectWindow(t *testing.T) {
	sched, _, project := newScheduler(t)
	ctx := context.Background()

	for _, in := range []NewSprint{
		{ProjectID: project.ID, Name: "Jan", StartDate: day(1, 1), EndDate: day(1, 31)},
		{ProjectID: project.ID, Name: "Feb", StartDate: day(2, 1), EndDate: day(2, 28)},
		{ProjectID: project.ID, Name: "Mar", StartDate: day(3, 1), EndDate: day(3, 31)},
	} {
		if _, err := sched.Create(ctx, in); err != nil {
			t.Fatalf("Create %s: %v", in.Name, err)
		}
	}

	got, err := sched.ListByProject(ctx, project.ID, Window{From: day(2, 10), To: day(3, 5)})
	if err != nil {
		t.Fatalf("ListByProject: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Feb" || got[1].Name != "Mar" {
		t.Errorf("window result = %+v", got)
	}

	got, err = sched.ListByProject(ctx, project.ID, Window{To: day(1, 15)})
	if err != nil || len(got) != 1 || got[0].Name != "Jan" {
		t.Errorf("open-start window = %+v, err %v", got, err)
	}
}

func TestStartAndComplete(t *testing.T) {
	sched, store, project := newScheduler(t)
	ctx := context.Background()

	sprint, _ := sched.Create(ctx, NewSprint{ProjectID: project.ID, Name: "S1", StartDate: day(1, 1), EndDate: day(1, 15)})
	for _, st := range []models.TaskStatus{models.StatusDone, models.StatusDone, models.StatusInProgress, models.StatusTodo} {
		task := models.Task{ProjectID: project.ID, SprintID: &sprint.ID, Title: "t", Status: st, Priority: models.PriorityLow}
		if err := store.CreateTask(ctx, &task); err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
	}

	started, err := sched.Start(ctx, sprint.ID)
	if err != nil || started.Status != models.SprintActive {
		t.Fatalf("Start = %+v, err %v", started, err)
	}
	if _, err := sched.Start(ctx, sprint.ID); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("second Start = %v, want validation", err)
	}

	report, err := sched.Complete(ctx, sprint.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if report.TaskCompletionRate != 50.0 || report.Velocity != 2.0 {
		t.Errorf("report rate %v velocity %v, want 50 and 2", report.TaskCompletionRate, report.Velocity)
	}

	stored, _ := sched.Get(ctx, sprint.ID)
	if stored.Status != models.SprintCompleted {
		t.Errorf("status after Complete = %s", stored.Status)
	}

	if _, err := sched.Complete(ctx, sprint.ID); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("second Complete = %v, want validation", err)
	}
	history, err := store.ListSprintReports(ctx, project.ID)
	if err != nil || len(history) != 1 {
		t.Fatalf("stored reports = %d, err %v, want 1", len(history), err)
	}
	sprintTasks, err := store.ListTasks(ctx, storage.TaskFilter{SprintID: &sprint.ID})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	want := metrics.ForSprint(sprintTasks)
	if history[0].TaskCompletionRate != want.CompletionPercentage {
		t.Errorf("stored completion rate = %v, metrics give %v", history[0].TaskCompletionRate, want.CompletionPercentage)
	}
	if history[0].TotalTasks != want.TotalTasks || history[0].CompletedTasks != want.CompletedTasks {
		t.Errorf("stored counts = %d/%d, metrics give %d/%d",
			history[0].CompletedTasks, history[0].TotalTasks, want.CompletedTasks, want.TotalTasks)
	}
}

type failingGenerator struct{}

func (failingGenerator) GenerateWithin(context.Context, storage.Repository, int64) (reports.SprintReport, error) {
	return reports.SprintReport{}, errors.New("report store unavailable")
}

func TestCompleteRollsBackWhenReportFails(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	owner := models.User{Username: "pm", Email: "pm@example.com"}
	_ = store.CreateUser(ctx, &owner)
	project := models.Project{Name: "Roadmap", OwnerID: owner.ID}
	_ = store.CreateProject(ctx, &project)

	sched := NewScheduler(store, failingGenerator{}, nil, nil)
	sprint, err := sched.Create(ctx, NewSprint{ProjectID: project.ID, Name: "S1", StartDate: day(1, 1), EndDate: day(1, 15)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := sched.Complete(ctx, sprint.ID); err == nil {
		t.Fatal("expected Complete to fail")
	}
	got, _ := store.GetSprint(ctx, sprint.ID)
	if got.Status != models.SprintPlanned {
		t.Errorf("status = %s after failed Complete, want PLANNED", got.Status)
	}
}
