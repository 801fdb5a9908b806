// Package storagetest holds behaviour checks shared by every
// storage.Repository implementation.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"sprintboard/internal/apperr"
	"sprintboard/internal/models"
	"sprintboard/internal/storage"
)

// Factory returns an empty repository for one subtest.
type Factory func(t *testing.T) storage.Repository

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// Run exercises repo behaviour the services depend on: ordering, missing
// rows, uniqueness, cascades and transaction rollback.
func Run(t *testing.T, newRepo Factory) {
	t.Run("users", func(t *testing.T) { testUsers(t, newRepo(t)) })
	t.Run("projects", func(t *testing.T) { testProjects(t, newRepo(t)) })
	t.Run("sprints", func(t *testing.T) { testSprints(t, newRepo(t)) })
	t.Run("tasks", func(t *testing.T) { testTasks(t, newRepo(t)) })
	t.Run("keyword search", func(t *testing.T) { testKeywordSearch(t, newRepo(t)) })
	t.Run("notifications", func(t *testing.T) { testNotifications(t, newRepo(t)) })
	t.Run("reports", func(t *testing.T) { testReports(t, newRepo(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, newRepo(t)) })
}

func mustUser(t *testing.T, repo storage.Repository, name string) models.User {
	t.Helper()
	u := models.User{Username: name, Email: name + "@example.com", CreatedAt: base}
	if err := repo.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func mustProject(t *testing.T, repo storage.Repository, owner int64, members ...int64) models.Project {
	t.Helper()
	p := models.Project{Name: "Board", Color: "#2563eb", OwnerID: owner, MemberIDs: members, CreatedAt: base, UpdatedAt: base}
	if err := repo.CreateProject(context.Background(), &p); err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func mustSprint(t *testing.T, repo storage.Repository, projectID int64, name string, startDay, endDay int) models.Sprint {
	t.Helper()
	sp := models.Sprint{
		ProjectID: projectID,
		Name:      name,
		StartDate: base.AddDate(0, 0, startDay),
		EndDate:   base.AddDate(0, 0, endDay),
		Status:    models.SprintPlanned,
		CreatedAt: base,
		UpdatedAt: base,
	}
	if err := repo.CreateSprint(context.Background(), &sp); err != nil {
		t.Fatalf("create sprint %s: %v", name, err)
	}
	return sp
}

func mustTask(t *testing.T, repo storage.Repository, task models.Task) models.Task {
	t.Helper()
	if task.Status == "" {
		task.Status = models.StatusTodo
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	task.CreatedAt, task.UpdatedAt = base, base
	if err := repo.CreateTask(context.Background(), &task); err != nil {
		t.Fatalf("create task %q: %v", task.Title, err)
	}
	return task
}

func expectKind(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("error = %v, want %v", err, kind)
	}
}

func testUsers(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	alice := mustUser(t, repo, "alice")
	if alice.ID == 0 {
		t.Fatal("expected generated id")
	}

	got, err := repo.GetUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Username != "alice" || !got.CreatedAt.Equal(base) {
		t.Errorf("user = %+v", got)
	}

	dup := models.User{Username: "alice", Email: "other@example.com", CreatedAt: base}
	expectKind(t, repo.CreateUser(ctx, &dup), apperr.ErrConflict)

	if taken, err := repo.UsernameTaken(ctx, "alice"); err != nil || !taken {
		t.Errorf("UsernameTaken(alice) = %v, %v", taken, err)
	}
	if taken, err := repo.EmailTaken(ctx, "ALICE@example.com"); err != nil || !taken {
		t.Errorf("EmailTaken ignores case: got %v, %v", taken, err)
	}
	if taken, err := repo.UsernameTaken(ctx, "bob"); err != nil || taken {
		t.Errorf("UsernameTaken(bob) = %v, %v", taken, err)
	}

	_, err = repo.GetUser(ctx, 999)
	expectKind(t, err, apperr.ErrNotFound)
}

func testProjects(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	owner := mustUser(t, repo, "owner")
	dev := mustUser(t, repo, "dev")
	qa := mustUser(t, repo, "qa")

	p := mustProject(t, repo, owner.ID, dev.ID)
	got, err := repo.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if len(got.MemberIDs) != 1 || got.MemberIDs[0] != dev.ID {
		t.Errorf("members = %v, want [%d]", got.MemberIDs, dev.ID)
	}

	expectKind(t, repo.AddProjectMember(ctx, p.ID, dev.ID), apperr.ErrValidation)
	if err := repo.AddProjectMember(ctx, p.ID, qa.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}
	byMember, err := repo.ListProjectsByMember(ctx, qa.ID)
	if err != nil || len(byMember) != 1 {
		t.Fatalf("ListProjectsByMember = %v, %v", byMember, err)
	}
	if len(byMember[0].MemberIDs) != 2 {
		t.Errorf("listed project members = %v", byMember[0].MemberIDs)
	}
	if err := repo.RemoveProjectMember(ctx, p.ID, qa.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	expectKind(t, repo.RemoveProjectMember(ctx, p.ID, qa.ID), apperr.ErrNotFound)

	got.Name = "Renamed"
	got.UpdatedAt = base.Add(time.Hour)
	if err := repo.UpdateProject(ctx, got); err != nil {
		t.Fatalf("update project: %v", err)
	}
	byOwner, err := repo.ListProjectsByOwner(ctx, owner.ID)
	if err != nil || len(byOwner) != 1 || byOwner[0].Name != "Renamed" {
		t.Fatalf("ListProjectsByOwner = %v, %v", byOwner, err)
	}

	sp := mustSprint(t, repo, p.ID, "S1", 0, 14)
	task := mustTask(t, repo, models.Task{ProjectID: p.ID, SprintID: &sp.ID, Title: "cascade"})
	if err := repo.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	_, err = repo.GetTask(ctx, task.ID)
	expectKind(t, err, apperr.ErrNotFound)
	_, err = repo.GetSprint(ctx, sp.ID)
	expectKind(t, err, apperr.ErrNotFound)
	expectKind(t, repo.DeleteProject(ctx, p.ID), apperr.ErrNotFound)
}

func testSprints(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	owner := mustUser(t, repo, "owner")
	p := mustProject(t, repo, owner.ID)

	mustSprint(t, repo, p.ID, "late", 30, 44)
	mustSprint(t, repo, p.ID, "early", 0, 14)
	mid := mustSprint(t, repo, p.ID, "mid", 14, 28)

	all, err := repo.ListSprintsByProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("list sprints: %v", err)
	}
	if names := sprintNames(all); names != "early,mid,late" {
		t.Errorf("order = %s, want early,mid,late", names)
	}

	mid.Status = models.SprintActive
	mid.UpdatedAt = base.Add(time.Hour)
	if err := repo.UpdateSprint(ctx, mid); err != nil {
		t.Fatalf("update sprint: %v", err)
	}
	active, err := repo.ListSprintsByProjectAndStatus(ctx, p.ID, models.SprintActive)
	if err != nil || sprintNames(active) != "mid" {
		t.Errorf("active sprints = %s, %v", sprintNames(active), err)
	}

	tests := []struct {
		name     string
		from, to int
		want     string
	}{
		{"touching end is excluded", 14, 20, "mid"},
		{"spans two", 10, 16, "early,mid"},
		{"gap", 28, 30, ""},
		{"everything", -5, 60, "early,mid,late"},
	}
	for _, tt := range tests {
		got, err := repo.ListSprintsInRange(ctx, p.ID, base.AddDate(0, 0, tt.from), base.AddDate(0, 0, tt.to))
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if names := sprintNames(got); names != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, names, tt.want)
		}
	}

	_, err = repo.GetSprint(ctx, 999)
	expectKind(t, err, apperr.ErrNotFound)
}

func sprintNames(list []models.Sprint) string {
	out := ""
	for i, sp := range list {
		if i > 0 {
			out += ","
		}
		out += sp.Name
	}
	return out
}

func testTasks(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	owner := mustUser(t, repo, "owner")
	dev := mustUser(t, repo, "dev")
	p := mustProject(t, repo, owner.ID, dev.ID)
	other := mustProject(t, repo, owner.ID)
	sp := mustSprint(t, repo, p.ID, "S1", 0, 14)

	due := base.AddDate(0, 0, 3)
	login := mustTask(t, repo, models.Task{ProjectID: p.ID, SprintID: &sp.ID, AssigneeID: &dev.ID, Title: "Fix LOGIN", DueDate: &due})
	mustTask(t, repo, models.Task{ProjectID: p.ID, Title: "Docs", Description: "login page copy", Priority: models.PriorityHigh})
	mustTask(t, repo, models.Task{ProjectID: other.ID, Title: "Elsewhere", AssigneeID: &dev.ID})

	got, err := repo.GetTask(ctx, login.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) || !got.InSprint(sp.ID) || !got.AssignedTo(dev.ID) {
		t.Errorf("task = %+v", got)
	}

	high := models.PriorityHigh
	todo := models.StatusTodo
	tests := []struct {
		name   string
		filter storage.TaskFilter
		want   int
	}{
		{"project", storage.TaskFilter{ProjectID: &p.ID}, 2},
		{"sprint", storage.TaskFilter{SprintID: &sp.ID}, 1},
		{"assignee", storage.TaskFilter{AssigneeID: &dev.ID}, 2},
		{"priority", storage.TaskFilter{Priority: &high}, 1},
		{"status and project", storage.TaskFilter{ProjectID: &other.ID, Status: &todo}, 1},
		{"keyword matches title or description", storage.TaskFilter{Keyword: "login"}, 2},
		{"keyword and assignee", storage.TaskFilter{Keyword: "Login", AssigneeID: &dev.ID}, 1},
		{"none", storage.TaskFilter{Keyword: "nothing"}, 0},
	}
	for _, tt := range tests {
		list, err := repo.ListTasks(ctx, tt.filter)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if len(list) != tt.want {
			t.Errorf("%s: got %d tasks, want %d", tt.name, len(list), tt.want)
		}
		for i := 1; i < len(list); i++ {
			if list[i-1].ID > list[i].ID {
				t.Errorf("%s: tasks not ordered by id", tt.name)
			}
		}
	}

	got.Status = models.StatusInProgress
	got.SprintID = nil
	got.UpdatedAt = base.Add(time.Hour)
	if err := repo.UpdateTask(ctx, got); err != nil {
		t.Fatalf("update task: %v", err)
	}
	got, _ = repo.GetTask(ctx, login.ID)
	if got.Status != models.StatusInProgress || got.SprintID != nil {
		t.Errorf("updated task = %+v", got)
	}

	if err := repo.UnassignTasks(ctx, p.ID, dev.ID); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	still, _ := repo.ListTasks(ctx, storage.TaskFilter{AssigneeID: &dev.ID})
	if len(still) != 1 || still[0].ProjectID != other.ID {
		t.Errorf("after unassign: %+v", still)
	}

	if err := repo.DeleteTask(ctx, login.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	expectKind(t, repo.DeleteTask(ctx, login.ID), apperr.ErrNotFound)
}

func testKeywordSearch(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	owner := mustUser(t, repo, "owner")
	p := mustProject(t, repo, owner.ID)
	mustTask(t, repo, models.Task{ProjectID: p.ID, Title: "Réunion ÉTÉ"})
	mustTask(t, repo, models.Task{ProjectID: p.ID, Title: "plain task", Description: `path\to\file`})
	mustTask(t, repo, models.Task{ProjectID: p.ID, Title: "50% done"})

	tests := []struct {
		keyword string
		want    int
	}{
		{"été", 1},
		{"RÉUNION", 1},
		{"%", 1},
		{"_", 0},
		{"5_%", 0},
		{`\`, 1},
		{"task", 1},
	}
	for _, tt := range tests {
		list, err := repo.ListTasks(ctx, storage.TaskFilter{Keyword: tt.keyword})
		if err != nil {
			t.Fatalf("keyword %q: %v", tt.keyword, err)
		}
		if len(list) != tt.want {
			t.Errorf("keyword %q: got %d tasks, want %d", tt.keyword, len(list), tt.want)
		}
	}
}

func testNotifications(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	u := mustUser(t, repo, "dev")
	for i, msg := range []string{"first", "second", "third"} {
		n := models.Notification{UserID: u.ID, Message: msg, Type: models.NotifyTaskAssigned, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.CreateNotification(ctx, &n); err != nil {
			t.Fatalf("create notification: %v", err)
		}
		if msg == "second" {
			if err := repo.MarkNotificationRead(ctx, n.ID); err != nil {
				t.Fatalf("mark read: %v", err)
			}
			got, err := repo.GetNotification(ctx, n.ID)
			if err != nil || !got.Read {
				t.Fatalf("notification not read: %+v, %v", got, err)
			}
		}
	}

	all, err := repo.ListNotifications(ctx, u.ID, false)
	if err != nil || len(all) != 3 || all[0].Message != "third" || all[2].Message != "first" {
		t.Fatalf("all notifications = %+v, %v", all, err)
	}
	unread, err := repo.ListNotifications(ctx, u.ID, true)
	if err != nil || len(unread) != 2 {
		t.Fatalf("unread = %+v, %v", unread, err)
	}
	expectKind(t, repo.MarkNotificationRead(ctx, 999), apperr.ErrNotFound)
}

func testReports(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	owner := mustUser(t, repo, "owner")
	p := mustProject(t, repo, owner.ID)
	other := mustProject(t, repo, owner.ID)
	s1 := mustSprint(t, repo, p.ID, "S1", 0, 14)
	s2 := mustSprint(t, repo, other.ID, "S2", 0, 14)

	for i, sp := range []models.Sprint{s1, s1, s2} {
		r := models.StoredSprintReport{
			SprintID:           sp.ID,
			SprintName:         sp.Name,
			StartDate:          sp.StartDate,
			EndDate:            sp.EndDate,
			Summary:            "summary",
			TaskCompletionRate: 50,
			Velocity:           float64(i),
			TotalTasks:         2,
			CompletedTasks:     1,
			GeneratedAt:        base.Add(time.Duration(i) * time.Hour),
		}
		if err := repo.CreateSprintReport(ctx, &r); err != nil {
			t.Fatalf("create report: %v", err)
		}
	}

	history, err := repo.ListSprintReports(ctx, p.ID)
	if err != nil {
		t.Fatalf("list reports: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("reports = %d, want 2", len(history))
	}
	if history[0].Velocity != 1 || history[0].ProjectID != p.ID {
		t.Errorf("newest report = %+v", history[0])
	}
}

func testTransactions(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	boom := errors.New("boom")

	var created int64
	err := repo.InTx(ctx, func(tx storage.Repository) error {
		u := models.User{Username: "ghost", Email: "ghost@example.com", CreatedAt: base}
		if err := tx.CreateUser(ctx, &u); err != nil {
			return err
		}
		created = u.ID
		return tx.InTx(ctx, func(inner storage.Repository) error {
			if _, err := inner.GetUser(ctx, created); err != nil {
				return err
			}
			return boom
		})
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx error = %v, want boom", err)
	}
	_, err = repo.GetUser(ctx, created)
	expectKind(t, err, apperr.ErrNotFound)

	err = repo.InTx(ctx, func(tx storage.Repository) error {
		u := models.User{Username: "kept", Email: "kept@example.com", CreatedAt: base}
		return tx.CreateUser(ctx, &u)
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if taken, _ := repo.UsernameTaken(ctx, "kept"); !taken {
		t.Error("committed user missing")
	}
}
