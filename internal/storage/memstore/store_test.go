package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"sprintboard/internal/models"
	"sprintboard/internal/storage"
	"sprintboard/internal/storage/storagetest"
)

func TestRepository(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Repository {
		return New()
	})
}

func TestRollbackKeepsWritesMadeOutsideTheUnit(t *testing.T) {
	ctx := context.Background()
	store := New()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	u := models.User{Username: "dev", Email: "dev@example.com", CreatedAt: now}
	if err := store.CreateUser(ctx, &u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	read := models.Notification{UserID: u.ID, Message: "earlier", Type: models.NotifyTaskAssigned, CreatedAt: now}
	if err := store.CreateNotification(ctx, &read); err != nil {
		t.Fatalf("create notification: %v", err)
	}

	boom := errors.New("boom")
	var inside models.Notification
	err := store.InTx(ctx, func(tx storage.Repository) error {
		inside = models.Notification{UserID: u.ID, Message: "rolled back", Type: models.NotifyStatusChanged, CreatedAt: now}
		if err := tx.CreateNotification(ctx, &inside); err != nil {
			return err
		}

		// Writes through the top-level store belong to no unit of work.
		outside := models.Notification{UserID: u.ID, Message: "delivered", Type: models.NotifyTaskAssigned, CreatedAt: now.Add(time.Minute)}
		if err := store.CreateNotification(ctx, &outside); err != nil {
			return err
		}
		if err := store.MarkNotificationRead(ctx, read.ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx error = %v, want boom", err)
	}

	list, err := store.ListNotifications(ctx, u.ID, false)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(list) != 2 || list[0].Message != "delivered" || list[1].Message != "earlier" {
		t.Fatalf("notifications after rollback = %+v, want delivered and earlier", list)
	}
	if !list[1].Read {
		t.Error("read flag set outside the unit was reverted")
	}
	if _, err := store.GetNotification(ctx, inside.ID); err == nil {
		t.Error("notification created inside the failed unit survived")
	}
}

func TestRollbackRestoresUpdatedAndDeletedRows(t *testing.T) {
	ctx := context.Background()
	store := New()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	owner := models.User{Username: "owner", Email: "owner@example.com", CreatedAt: now}
	dev := models.User{Username: "dev", Email: "dev@example.com", CreatedAt: now}
	for _, u := range []*models.User{&owner, &dev} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	p := models.Project{Name: "Board", OwnerID: owner.ID, MemberIDs: []int64{dev.ID}, CreatedAt: now, UpdatedAt: now}
	if err := store.CreateProject(ctx, &p); err != nil {
		t.Fatalf("create project: %v", err)
	}
	task := models.Task{ProjectID: p.ID, AssigneeID: &dev.ID, Title: "keep me", Status: models.StatusTodo, Priority: models.PriorityLow, CreatedAt: now, UpdatedAt: now}
	if err := store.CreateTask(ctx, &task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	err := store.InTx(ctx, func(tx storage.Repository) error {
		if err := tx.RemoveProjectMember(ctx, p.ID, dev.ID); err != nil {
			return err
		}
		if err := tx.UnassignTasks(ctx, p.ID, dev.ID); err != nil {
			return err
		}
		return tx.DeleteProject(ctx, p.ID)
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if _, err := store.GetProject(ctx, p.ID); err == nil {
		t.Fatal("committed delete not visible")
	}

	// Same sequence again on fresh rows, this time failing.
	p2 := models.Project{Name: "Second", OwnerID: owner.ID, MemberIDs: []int64{dev.ID}, CreatedAt: now, UpdatedAt: now}
	if err := store.CreateProject(ctx, &p2); err != nil {
		t.Fatalf("create project: %v", err)
	}
	task2 := models.Task{ProjectID: p2.ID, AssigneeID: &dev.ID, Title: "restore me", Status: models.StatusTodo, Priority: models.PriorityLow, CreatedAt: now, UpdatedAt: now}
	if err := store.CreateTask(ctx, &task2); err != nil {
		t.Fatalf("create task: %v", err)
	}
	boom := errors.New("boom")
	err = store.InTx(ctx, func(tx storage.Repository) error {
		if err := tx.RemoveProjectMember(ctx, p2.ID, dev.ID); err != nil {
			return err
		}
		if err := tx.UnassignTasks(ctx, p2.ID, dev.ID); err != nil {
			return err
		}
		if err := tx.DeleteProject(ctx, p2.ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx error = %v, want boom", err)
	}

	got, err := store.GetProject(ctx, p2.ID)
	if err != nil {
		t.Fatalf("project not restored: %v", err)
	}
	if !got.HasMember(dev.ID) {
		t.Errorf("members = %v, want dev restored", got.MemberIDs)
	}
	restored, err := store.GetTask(ctx, task2.ID)
	if err != nil {
		t.Fatalf("task not restored: %v", err)
	}
	if !restored.AssignedTo(dev.ID) {
		t.Errorf("assignee = %v, want %d", restored.AssigneeID, dev.ID)
	}
}
