// Package memstore keeps every record in process memory. Units of work are
// serialized with each other and roll back through an undo log of their own
// writes, so plain calls made while a unit runs are never lost. Those calls
// can observe a unit's writes before it commits.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"sprintboard/internal/apperr"
	"sprintboard/internal/models"
	"sprintboard/internal/storage"
)

type data struct {
	nextID        int64
	users         map[int64]models.User
	projects      map[int64]models.Project
	sprints       map[int64]models.Sprint
	tasks         map[int64]models.Task
	notifications map[int64]models.Notification
	reports       map[int64]models.StoredSprintReport
}

func newData() *data {
	return &data{
		nextID:        1,
		users:         make(map[int64]models.User),
		projects:      make(map[int64]models.Project),
		sprints:       make(map[int64]models.Sprint),
		tasks:         make(map[int64]models.Task),
		notifications: make(map[int64]models.Notification),
		reports:       make(map[int64]models.StoredSprintReport),
	}
}

func (d *data) id() int64 {
	id := d.nextID
	d.nextID++
	return id
}

// undoLog collects the steps that revert one unit of work, newest last.
type undoLog struct {
	steps []func()
}

// remember records how to restore m[id] to its current state. It is a no-op
// outside a unit of work. Callers hold the write lock.
func remember[V any](u *undoLog, m map[int64]V, id int64, clone func(V) V) {
	if u == nil {
		return
	}
	prev, existed := m[id]
	if existed && clone != nil {
		prev = clone(prev)
	}
	u.steps = append(u.steps, func() {
		if existed {
			m[id] = prev
		} else {
			delete(m, id)
		}
	})
}

// Store is a storage.Repository held in memory.
type Store struct {
	mu   *sync.RWMutex
	txMu *sync.Mutex
	d    *data
	undo *undoLog
}

var _ storage.Repository = (*Store)(nil)

func New() *Store {
	return &Store{mu: &sync.RWMutex{}, txMu: &sync.Mutex{}, d: newData()}
}

// InTx serializes units of work. When fn fails, only the writes made
// through the Repository handed to fn are reverted. Generated ids are not
// reused.
func (s *Store) InTx(_ context.Context, fn func(storage.Repository) error) error {
	if s.undo != nil {
		return fn(s)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	scoped := &Store{mu: s.mu, txMu: s.txMu, d: s.d, undo: &undoLog{}}
	if err := fn(scoped); err != nil {
		s.mu.Lock()
		for i := len(scoped.undo.steps) - 1; i >= 0; i-- {
			scoped.undo.steps[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

func cloneTask(t models.Task) models.Task {
	out := t
	if t.SprintID != nil {
		v := *t.SprintID
		out.SprintID = &v
	}
	if t.AssigneeID != nil {
		v := *t.AssigneeID
		out.AssigneeID = &v
	}
	if t.DueDate != nil {
		v := *t.DueDate
		out.DueDate = &v
	}
	return out
}

func cloneProject(p models.Project) models.Project {
	out := p
	out.MemberIDs = append([]int64{}, p.MemberIDs...)
	return out
}

// Users

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.d

	for _, existing := range d.users {
		if existing.Username == u.Username || strings.EqualFold(existing.Email, u.Email) {
			return apperr.Conflictf("username or email already registered")
		}
	}
	u.ID = d.id()
	remember(s.undo, d.users, u.ID, nil)
	d.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id int64) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.d.users[id]
	if !ok {
		return models.User{}, apperr.NotFound("User", id)
	}
	return u, nil
}

func (s *Store) UsernameTaken(_ context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.d.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) EmailTaken(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.d.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

// Projects

func (s *Store) CreateProject(_ context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.d

	p.ID = d.id()
	if p.MemberIDs == nil {
		p.MemberIDs = []int64{}
	}
	remember(s.undo, d.projects, p.ID, cloneProject)
	d.projects[p.ID] = cloneProject(*p)
	return nil
}

func (s *Store) GetProject(_ context.Context, id int64) (models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.d.projects[id]
	if !ok {
		return models.Project{}, apperr.NotFound("Project", id)
	}
	return cloneProject(p), nil
}

func (s *Store) UpdateProject(_ context.Context, p models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.d

	cur, ok := d.projects[p.ID]
	if !ok {
		return apperr.NotFound("Project", p.ID)
	}
	cur.Name = p.Name
	cur.Description = p.Description
	cur.Color = p.Color
	cur.UpdatedAt = p.UpdatedAt
	remember(s.undo, d.projects, p.ID, cloneProject)
	d.projects[p.ID] = cur
	return nil
}

// DeleteProject cascades to the project's sprints, tasks and reports.
func (s *Store) DeleteProject(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.d

	if _, ok := d.projects[id]; !ok {
		return apperr.NotFound("Project", id)
	}
	remember(s.undo, d.projects, id, cloneProject)
	delete(d.projects, id)

	for sid, sp := range d.sprints {
		if sp.ProjectID != id {
			continue
		}
		remember(s.undo, d.sprints, sid, nil)
		delete(d.sprints, sid)
		for rid, r := range d.reports {
			if r.SprintID == sid {
				remember(s.undo, d.reports, rid, nil)
				delete(d.reports, rid)
			}
		}
	}
	for tid, t := range d.tasks {
		if t.ProjectID == id {
			remember(s.undo, d.tasks, tid, cloneTask)
			delete(d.tasks, tid)
		}
	}
	return nil
}

func (s *Store) ListProjectsByOwner(_ context.Context, userID int64) ([]models.Project, error) {
	return s.filterProjects(func(p models.Project) bool { return p.OwnerID == userID }), nil
}

func (s *Store) ListProjectsByMember(_ context.Context, userID int64) ([]models.Project, error) {
	return s.filterProjects(func(p models.Project) bool {
		for _, id := range p.MemberIDs {
			if id == userID {
				return true
			}
		}
		return false
	}), nil
}

func (s *Store) filterProjects(keep func(models.Project) bool) []models.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Project{}
	for _, p := range s.d.projects {
		if keep(p) {
			out = append(out, cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) AddProjectMember(_ context.Context, projectID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.d

	p, ok := d.projects[projectID]
	if !ok {
		return apperr.NotFound("Project", projectID)
	}
	for _, id := range p.MemberIDs {
		if id == userID {
			return apperr.Validationf("user %d is already a member of project %d", userID, projectID)
		}
	}
	remember(s.undo, d.projects, projectID, cloneProject)
	p.MemberIDs = append(p.MemberIDs, userID)
	sort.Slice(p.MemberIDs, func(i, j int) bool { return p.MemberIDs[i] < p.MemberIDs[j] })
	d.projects[projectID] = p
	return nil
}

func (s *Store) RemoveProjectMember(_ context.Context, projectID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.d

	p, ok := d.projects[projectID]
	if !ok {
		return apperr.NotFound("Project", projectID)
	}
	remember(s.undo, d.projects, projectID, cloneProject)
	kept := []int64{}
	removed := false
	for _, id := range p.MemberIDs {
		if id == userID {
			removed = true
			continue
		}
		kept = append(kept, id)
	}
	if !removed {
		return apperr.NotFound("Member", userID)
	}
	p.MemberIDs = kept
	d.projects[projectID] = p
	return nil
}

// Sprints

func (s *Store) CreateSprint(_ context.Context, sp *models.Sprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.d

	sp.ID = d.id()
	remember(s.undo, d.sprints, sp.ID, nil)
	d.sprints[sp.ID] = *sp
	return nil
}

func (s *Store) GetSprint(_ context.Context, id int64) (models.Sprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sp, ok := s.d.sprints[id]
	if !ok {
		return models.Sprint{}, apperr.NotFound("Sprint", id)
	}
	return sp, nil
}

func (s *Store) UpdateSprint(_ context.Context, sp models.Sprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.d

	cur, ok := d.sprints[sp.ID]
	if !ok {
		return apperr.NotFound("Sprint", sp.ID)
	}
	sp.ProjectID = cur.ProjectID
	sp.CreatedAt = cur.CreatedAt
	remember(s.undo, d.sprints, sp.ID, nil)
	d.sprints[sp.ID] = sp
	return nil
}

func (s *Store) ListSprintsByProject(_ context.Context, projectID int64) ([]models.Sprint, error) {
	return s.filterSprints(func(sp models.Sprint) bool { return sp.ProjectID == projectID }), nil
}

func (s *Store) ListSprintsByProjectAndStatus(_ context.Context, projectID int64, status models.SprintStatus) ([]models.Sprint, error) {
	return s.filterSprints(func(sp models.Sprint) bool {
		return sp.ProjectID == projectID && sp.Status == status
	}), nil
}

func (s *Store) ListSprintsInRange(_ context.Context, projectID int64, from, to time.Time) ([]models.Sprint, error) {
	return s.filterSprints(func(sp models.Sprint) bool {
		return sp.ProjectID == projectID && sp.StartDate.Before(to) && sp.EndDate.After(from)
	}), nil
}

func (s *Store) filterSprints(keep func(models.Sprint) bool) []models.Sprint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Sprint{}
	for _, sp := range s.d.sprints {
		if keep(sp) {
			out = append(out, sp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Tasks

func (s *Store) CreateTask(_ context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.d

	t.ID = d.id()
	remember(s.undo, d.tasks, t.ID, cloneTask)
	d.tasks[t.ID] = cloneTask(*t)
	return nil
}

func (s *Store) GetTask(_ context.Context, id int64) (models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.d.tasks[id]
	if !ok {
		return models.Task{}, apperr.NotFound("Task", id)
	}
	return cloneTask(t), nil
}

func (s *Store) UpdateTask(_ context.Context, t models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.d

	cur, ok := d.tasks[t.ID]
	if !ok {
		return apperr.NotFound("Task", t.ID)
	}
	t.ProjectID = cur.ProjectID
	t.CreatedAt = cur.CreatedAt
	remember(s.undo, d.tasks, t.ID, cloneTask)
	d.tasks[t.ID] = cloneTask(t)
	return nil
}

func (s *Store) DeleteTask(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.d

	if _, ok := d.tasks[id]; !ok {
		return apperr.NotFound("Task", id)
	}
	remember(s.undo, d.tasks, id, cloneTask)
	delete(d.tasks, id)
	return nil
}

func (s *Store) ListTasks(_ context.Context, f storage.TaskFilter) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kw := strings.ToLower(strings.TrimSpace(f.Keyword))
	out := []models.Task{}
	for _, t := range s.d.tasks {
		if f.ProjectID != nil && t.ProjectID != *f.ProjectID {
			continue
		}
		if f.SprintID != nil && !t.InSprint(*f.SprintID) {
			continue
		}
		if f.AssigneeID != nil && !t.AssignedTo(*f.AssigneeID) {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.Priority != nil && t.Priority != *f.Priority {
			continue
		}
		if kw != "" && !strings.Contains(strings.ToLower(t.Title), kw) &&
			!strings.Contains(strings.ToLower(t.Description), kw) {
			continue
		}
		out = append(out, cloneTask(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UnassignTasks(_ context.Context, projectID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.d

	for id, t := range d.tasks {
		if t.ProjectID == projectID && t.AssignedTo(userID) {
			remember(s.undo, d.tasks, id, cloneTask)
			t.AssigneeID = nil
			d.tasks[id] = t
		}
	}
	return nil
}

// Notifications

func (s *Store) CreateNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.d

	n.ID = d.id()
	remember(s.undo, d.notifications, n.ID, nil)
	d.notifications[n.ID] = *n
	return nil
}

func (s *Store) GetNotification(_ context.Context, id int64) (models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.d.notifications[id]
	if !ok {
		return models.Notification{}, apperr.NotFound("Notification", id)
	}
	return n, nil
}

func (s *Store) ListNotifications(_ context.Context, userID int64, unreadOnly bool) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Notification{}
	for _, n := range s.d.notifications {
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.d

	n, ok := d.notifications[id]
	if !ok {
		return apperr.NotFound("Notification", id)
	}
	remember(s.undo, d.notifications, id, nil)
	n.Read = true
	d.notifications[id] = n
	return nil
}

// Reports

func (s *Store) CreateSprintReport(_ context.Context, r *models.StoredSprintReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.d

	r.ID = d.id()
	remember(s.undo, d.reports, r.ID, nil)
	d.reports[r.ID] = *r
	return nil
}

func (s *Store) ListSprintReports(_ context.Context, projectID int64) ([]models.StoredSprintReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := s.d

	out := []models.StoredSprintReport{}
	for _, r := range d.reports {
		sp, ok := d.sprints[r.SprintID]
		if !ok || sp.ProjectID != projectID {
			continue
		}
		r.ProjectID = sp.ProjectID
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].GeneratedAt.Equal(out[j].GeneratedAt) {
			return out[i].GeneratedAt.After(out[j].GeneratedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
