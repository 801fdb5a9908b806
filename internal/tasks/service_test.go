package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"sprintboard/internal/apperr"
	"sprintboard/internal/clock"
	"sprintboard/internal/models"
	"sprintboard/internal/storage/memstore"
)

type sent struct {
	userID int64
	text   string
	typ    models.NotificationType
}

type recordingNotifier struct {
	msgs []sent
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, userID int64, text string, typ models.NotificationType) error {
	r.msgs = append(r.msgs, sent{userID, text, typ})
	return r.err
}

type fixture struct {
	store    *memstore.Store
	svc      *Service
	notifier *recordingNotifier
	owner    models.User
	member   models.User
	outsider models.User
	project  models.Project
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		store:    memstore.New(),
		notifier: &recordingNotifier{},
		now:      time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.store, f.notifier, clock.Fixed(f.now), nil)

	users := []*models.User{
		{Username: "owner", Email: "owner@example.com"},
		{Username: "member", Email: "member@example.com"},
		{Username: "outsider", Email: "outsider@example.com"},
	}
	for _, u := range users {
		if err := f.store.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}
	f.owner, f.member, f.outsider = *users[0], *users[1], *users[2]

	f.project = models.Project{Name: "Board", OwnerID: f.owner.ID, MemberIDs: []int64{f.member.ID}}
	if err := f.store.CreateProject(ctx, &f.project); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return f
}

func (f *fixture) createTask(t *testing.T, title string) models.Task {
	t.Helper()
	task, err := f.svc.Create(context.Background(), NewTask{ProjectID: f.project.ID, Title: title})
	if err != nil {
		t.Fatalf("Create(%q): %v", title, err)
	}
	return task
}

func TestCanTransition(t *testing.T) {
	allowed := map[[2]models.TaskStatus]bool{
		{models.StatusTodo, models.StatusInProgress}:    true,
		{models.StatusTodo, models.StatusBlocked}:       true,
		{models.StatusInProgress, models.StatusDone}:    true,
		{models.StatusInProgress, models.StatusBlocked}: true,
		{models.StatusInProgress, models.StatusTodo}:    true,
		{models.StatusDone, models.StatusTodo}:          true,
		{models.StatusBlocked, models.StatusTodo}:       true,
		{models.StatusBlocked, models.StatusInProgress}: true,
	}

	for _, from := range models.TaskStatuses {
		for _, to := range models.TaskStatuses {
			want := from == to || allowed[[2]models.TaskStatus{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}

	if CanTransition(models.StatusTodo, "ARCHIVED") {
		t.Error("expected unknown target status to be rejected")
	}
	if got := AllowedTransitions(models.StatusDone); len(got) != 1 || got[0] != models.StatusTodo {
		t.Errorf("AllowedTransitions(DONE) = %v", got)
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "  Write docs  ")
	if task.Status != models.StatusTodo {
		t.Errorf("status = %s, want TODO", task.Status)
	}
	if task.Title != "Write docs" {
		t.Errorf("title = %q, want trimmed", task.Title)
	}
	if task.Priority != models.PriorityMedium {
		t.Errorf("priority = %s, want MEDIUM default", task.Priority)
	}
	if !task.CreatedAt.Equal(f.now) || !task.UpdatedAt.Equal(f.now) {
		t.Errorf("timestamps = %v/%v, want %v", task.CreatedAt, task.UpdatedAt, f.now)
	}

	other := models.Project{Name: "Other", OwnerID: f.owner.ID}
	if err := f.store.CreateProject(ctx, &other); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	foreign := models.Sprint{ProjectID: other.ID, Name: "S", StartDate: f.now, EndDate: f.now.Add(time.Hour), Status: models.SprintPlanned}
	if err := f.store.CreateSprint(ctx, &foreign); err != nil {
		t.Fatalf("CreateSprint: %v", err)
	}
	missing := int64(999)

	tests := []struct {
		name string
		in   NewTask
		want error
	}{
		{"blank title", NewTask{ProjectID: f.project.ID, Title: "  "}, apperr.ErrValidation},
		{"no project", NewTask{Title: "x"}, apperr.ErrValidation},
		{"bad priority", NewTask{ProjectID: f.project.ID, Title: "x", Priority: "URGENT"}, apperr.ErrValidation},
		{"missing project", NewTask{ProjectID: missing, Title: "x"}, apperr.ErrNotFound},
		{"missing sprint", NewTask{ProjectID: f.project.ID, Title: "x", SprintID: &missing}, apperr.ErrNotFound},
		{"foreign sprint", NewTask{ProjectID: f.project.ID, Title: "x", SprintID: &foreign.ID}, apperr.ErrValidation},
		{"missing assignee", NewTask{ProjectID: f.project.ID, Title: "x", AssigneeID: &missing}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Create(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("Create error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateWithAssigneeNotifies(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), NewTask{ProjectID: f.project.ID, Title: "Ship", AssigneeID: &f.member.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(f.notifier.msgs) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(f.notifier.msgs))
	}
	got := f.notifier.msgs[0]
	if got.userID != f.member.ID || got.text != "You have been assigned to task: Ship" || got.typ != models.NotifyTaskAssigned {
		t.Errorf("unexpected notification %+v", got)
	}
}

func TestChangeStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, "Lifecycle")

	later := f.now.Add(time.Hour)
	f.svc.clock = clock.Fixed(later)

	updated, err := f.svc.ChangeStatus(ctx, task.ID, models.StatusInProgress, 0)
	if err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if updated.Status != models.StatusInProgress || !updated.UpdatedAt.Equal(later) {
		t.Errorf("got status %s updated %v", updated.Status, updated.UpdatedAt)
	}

	if _, err := f.svc.ChangeStatus(ctx, task.ID, models.StatusDone, 0); err != nil {
		t.Fatalf("IN_PROGRESS -> DONE: %v", err)
	}

	f.svc.clock = clock.Fixed(later.Add(time.Hour))
	_, err = f.svc.ChangeStatus(ctx, task.ID, models.StatusBlocked, 0)
	if !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("DONE -> BLOCKED error = %v, want invalid transition", err)
	}
	var terr *apperr.TransitionError
	if !errors.As(err, &terr) || terr.From != "DONE" || terr.To != "BLOCKED" {
		t.Errorf("transition error = %#v", err)
	}

	stored, _ := f.store.GetTask(ctx, task.ID)
	if stored.Status != models.StatusDone || !stored.UpdatedAt.Equal(later) {
		t.Errorf("rejected transition wrote changes: %+v", stored)
	}

	if _, err := f.svc.ChangeStatus(ctx, task.ID, "FINISHED", 0); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("unknown status error = %v, want validation", err)
	}
	if _, err := f.svc.ChangeStatus(ctx, 999, models.StatusTodo, 0); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing task error = %v, want not found", err)
	}
}

func TestChangeStatusNotification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.svc.Create(ctx, NewTask{ProjectID: f.project.ID, Title: "Review", AssigneeID: &f.member.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.notifier.msgs = nil

	if _, err := f.svc.ChangeStatus(ctx, task.ID, models.StatusInProgress, f.member.ID); err != nil {
		t.Fatalf("ChangeStatus by assignee: %v", err)
	}
	if _, err := f.svc.ChangeStatus(ctx, task.ID, models.StatusBlocked, 0); err != nil {
		t.Fatalf("ChangeStatus without actor: %v", err)
	}
	if len(f.notifier.msgs) != 0 {
		t.Fatalf("expected no notifications, got %+v", f.notifier.msgs)
	}

	if _, err := f.svc.ChangeStatus(ctx, task.ID, models.StatusTodo, f.owner.ID); err != nil {
		t.Fatalf("ChangeStatus by owner: %v", err)
	}
	if len(f.notifier.msgs) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(f.notifier.msgs))
	}
	if got := f.notifier.msgs[0]; got.text != "Task 'Review' status changed to TODO" || got.typ != models.NotifyStatusChanged {
		t.Errorf("unexpected notification %+v", got)
	}
}

func TestNotifierFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("sink down")

	task, err := f.svc.Create(context.Background(), NewTask{ProjectID: f.project.ID, Title: "Resilient", AssigneeID: &f.member.ID})
	if err != nil {
		t.Fatalf("Create should succeed despite notifier failure: %v", err)
	}
	if _, err := f.svc.ChangeStatus(context.Background(), task.ID, models.StatusInProgress, f.owner.ID); err != nil {
		t.Fatalf("ChangeStatus should succeed despite notifier failure: %v", err)
	}
}

func TestAssign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, "Assignable")

	if _, err := f.svc.Assign(ctx, task.ID, f.outsider.ID); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("assign outsider error = %v, want validation", err)
	}
	if _, err := f.svc.Assign(ctx, task.ID, 999); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("assign missing user error = %v, want not found", err)
	}

	got, err := f.svc.Assign(ctx, task.ID, f.member.ID)
	if err != nil {
		t.Fatalf("Assign member: %v", err)
	}
	if !got.AssignedTo(f.member.ID) {
		t.Errorf("task not assigned to member: %+v", got)
	}

	f.notifier.msgs = nil
	if _, err := f.svc.Assign(ctx, task.ID, f.owner.ID); err != nil {
		t.Fatalf("Assign owner: %v", err)
	}
	want := []sent{
		{f.owner.ID, "You have been assigned to task: Assignable", models.NotifyTaskAssigned},
		{f.member.ID, "Task 'Assignable' has been reassigned to owner", models.NotifyStatusChanged},
	}
	if len(f.notifier.msgs) != len(want) {
		t.Fatalf("notifications = %+v, want %+v", f.notifier.msgs, want)
	}
	for i := range want {
		if f.notifier.msgs[i] != want[i] {
			t.Errorf("notification %d = %+v, want %+v", i, f.notifier.msgs[i], want[i])
		}
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, "Editable")

	sprint := models.Sprint{ProjectID: f.project.ID, Name: "S1", StartDate: f.now, EndDate: f.now.AddDate(0, 0, 14), Status: models.SprintPlanned}
	if err := f.store.CreateSprint(ctx, &sprint); err != nil {
		t.Fatalf("CreateSprint: %v", err)
	}

	title := "Edited"
	high := models.PriorityHigh
	got, err := f.svc.Update(ctx, task.ID, TaskPatch{Title: &title, Priority: &high, SprintID: &sprint.ID})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Title != "Edited" || got.Priority != models.PriorityHigh || !got.InSprint(sprint.ID) {
		t.Errorf("unexpected task after update: %+v", got)
	}
	if got.Status != models.StatusTodo {
		t.Errorf("update changed status to %s", got.Status)
	}

	zero := int64(0)
	got, err = f.svc.Update(ctx, task.ID, TaskPatch{SprintID: &zero})
	if err != nil {
		t.Fatalf("Update clear sprint: %v", err)
	}
	if got.SprintID != nil {
		t.Errorf("sprint not cleared: %v", *got.SprintID)
	}

	blank := " "
	if _, err := f.svc.Update(ctx, task.ID, TaskPatch{Title: &blank}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("blank title error = %v, want validation", err)
	}
	due := f.now.AddDate(0, 0, 3)
	got, err = f.svc.Update(ctx, task.ID, TaskPatch{DueDate: &due})
	if err != nil || got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Fatalf("Update due date = %+v, err %v", got.DueDate, err)
	}
	if _, err := f.svc.Update(ctx, task.ID, TaskPatch{DueDate: &due, ClearDueDate: true}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("set and clear error = %v, want validation", err)
	}
	got, err = f.svc.Update(ctx, task.ID, TaskPatch{ClearDueDate: true})
	if err != nil {
		t.Fatalf("Update clear due date: %v", err)
	}
	if got.DueDate != nil {
		t.Errorf("due date not cleared: %v", *got.DueDate)
	}
	stored, _ := f.svc.Get(ctx, task.ID)
	if stored.DueDate != nil {
		t.Errorf("stored due date not cleared: %v", *stored.DueDate)
	}
}

func TestListAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.createTask(t, "Fix login bug")
	f.createTask(t, "Write release notes")
	if _, err := f.svc.Assign(ctx, a.ID, f.member.ID); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	all, err := f.svc.ListByProject(ctx, f.project.ID)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListByProject = %d tasks, err %v", len(all), err)
	}
	mine, err := f.svc.ListByAssignee(ctx, f.member.ID)
	if err != nil || len(mine) != 1 || mine[0].ID != a.ID {
		t.Fatalf("ListByAssignee = %+v, err %v", mine, err)
	}
	if _, err := f.svc.ListByProject(ctx, 999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing project error = %v", err)
	}
	if _, err := f.svc.ListBySprint(ctx, 999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing sprint error = %v", err)
	}

	found, err := f.svc.Search(ctx, Query{Keyword: "LOGIN"})
	if err != nil || len(found) != 1 || found[0].ID != a.ID {
		t.Fatalf("Search keyword = %+v, err %v", found, err)
	}
	todo := models.StatusTodo
	found, err = f.svc.Search(ctx, Query{Keyword: "bug", Status: &todo, AssigneeID: &f.member.ID})
	if err != nil || len(found) != 1 {
		t.Fatalf("Search combined = %+v, err %v", found, err)
	}
	found, err = f.svc.Search(ctx, Query{})
	if err != nil || len(found) != 0 {
		t.Fatalf("empty Search = %+v, err %v", found, err)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, "Disposable")

	if err := f.svc.Delete(context.Background(), task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), task.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after delete = %v, want not found", err)
	}
	if err := f.svc.Delete(context.Background(), task.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second Delete = %v, want not found", err)
	}
}
