package metrics

import (
	"testing"

	"sprintboard/internal/models"
)

func task(id int64, status models.TaskStatus, sprintID *int64) models.Task {
	return models.Task{ID: id, Status: status, SprintID: sprintID}
}

func ptr(v int64) *int64 { return &v }

func TestComputeEmpty(t *testing.T) {
	m := Compute(nil)

	if m.TotalTasks != 0 || m.CompletedTasks != 0 {
		t.Fatalf("expected zero counts, got %+v", m)
	}
	if m.CompletionPercentage != 0 {
		t.Errorf("expected 0%% completion, got %v", m.CompletionPercentage)
	}
	if len(m.StatusDistribution) != len(models.TaskStatuses) {
		t.Errorf("expected %d distribution keys, got %d", len(models.TaskStatuses), len(m.StatusDistribution))
	}
	for _, s := range models.TaskStatuses {
		if n, ok := m.StatusDistribution[s]; !ok || n != 0 {
			t.Errorf("expected %s=0 present, got %d (present=%v)", s, n, ok)
		}
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []models.TaskStatus
		wantDone  int
		wantPct   float64
		wantTodo  int
		wantBlock int
	}{
		{"all done", []models.TaskStatus{models.StatusDone, models.StatusDone}, 2, 100, 0, 0},
		{"half", []models.TaskStatus{models.StatusDone, models.StatusDone, models.StatusInProgress, models.StatusTodo}, 2, 50, 1, 0},
		{"none done", []models.TaskStatus{models.StatusBlocked, models.StatusTodo, models.StatusTodo}, 0, 0, 2, 1},
		{"one of three", []models.TaskStatus{models.StatusDone, models.StatusTodo, models.StatusTodo}, 1, 100.0 / 3, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tasks []models.Task
			for i, s := range tt.statuses {
				tasks = append(tasks, task(int64(i+1), s, nil))
			}

			m := Compute(tasks)
			if m.TotalTasks != len(tasks) {
				t.Errorf("total = %d, want %d", m.TotalTasks, len(tasks))
			}
			if m.CompletedTasks != tt.wantDone {
				t.Errorf("completed = %d, want %d", m.CompletedTasks, tt.wantDone)
			}
			if m.CompletionPercentage != tt.wantPct {
				t.Errorf("completion = %v, want %v", m.CompletionPercentage, tt.wantPct)
			}
			if m.Velocity != float64(tt.wantDone) {
				t.Errorf("velocity = %v, want %v", m.Velocity, float64(tt.wantDone))
			}
			if m.StatusDistribution[models.StatusTodo] != tt.wantTodo {
				t.Errorf("todo = %d, want %d", m.StatusDistribution[models.StatusTodo], tt.wantTodo)
			}
			if m.StatusDistribution[models.StatusBlocked] != tt.wantBlock {
				t.Errorf("blocked = %d, want %d", m.StatusDistribution[models.StatusBlocked], tt.wantBlock)
			}

			sum := 0
			for _, n := range m.StatusDistribution {
				sum += n
			}
			if sum != m.TotalTasks {
				t.Errorf("distribution sums to %d, want %d", sum, m.TotalTasks)
			}
			if m.CompletionPercentage < 0 || m.CompletionPercentage > 100 {
				t.Errorf("completion %v out of range", m.CompletionPercentage)
			}
		})
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	tasks := []models.Task{
		task(1, models.StatusDone, nil),
		task(2, models.StatusBlocked, nil),
		task(3, models.StatusInProgress, nil),
	}

	a, b := Compute(tasks), Compute(tasks)
	if a.TotalTasks != b.TotalTasks || a.CompletionPercentage != b.CompletionPercentage || a.Velocity != b.Velocity {
		t.Fatalf("results differ: %+v vs %+v", a, b)
	}
	for k, v := range a.StatusDistribution {
		if b.StatusDistribution[k] != v {
			t.Errorf("distribution[%s] differs: %d vs %d", k, v, b.StatusDistribution[k])
		}
	}
}

func TestForProjectVelocity(t *testing.T) {
	sprints := []models.Sprint{{ID: 10}, {ID: 11}}
	tasks := []models.Task{
		task(1, models.StatusDone, ptr(10)),
		task(2, models.StatusDone, ptr(10)),
		task(3, models.StatusDone, ptr(11)),
		task(4, models.StatusDone, nil),
		task(5, models.StatusDone, ptr(99)),
		task(6, models.StatusTodo, ptr(11)),
	}

	m := ForProject(tasks, sprints)
	if m.Velocity != 1.5 {
		t.Errorf("velocity = %v, want 1.5", m.Velocity)
	}
	if m.CompletedTasks != 5 {
		t.Errorf("completed = %d, want 5", m.CompletedTasks)
	}

	if v := ForProject(tasks, nil).Velocity; v != 0 {
		t.Errorf("velocity without sprints = %v, want 0", v)
	}
}
