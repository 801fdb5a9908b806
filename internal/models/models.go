package models

import "time"

// User is a person who can own projects, join them and be assigned tasks.
type User struct {
	ID        int64     `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	FullName  string    `json:"full_name" db:"full_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Project describes a scrum project that groups sprints and tasks.
type Project struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Color       string    `json:"color" db:"color"`
	OwnerID     int64     `json:"owner_id" db:"owner_id"`
	MemberIDs   []int64   `json:"member_ids" db:"-"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// HasMember reports whether the user owns the project or belongs to it.
func (p Project) HasMember(userID int64) bool {
	if p.OwnerID == userID {
		return true
	}
	for _, id := range p.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Sprint is a time-boxed iteration inside a project.
type Sprint struct {
	ID        int64        `json:"id" db:"id"`
	ProjectID int64        `json:"project_id" db:"project_id"`
	Name      string       `json:"name" db:"name"`
	StartDate time.Time    `json:"start_date" db:"start_date"`
	EndDate   time.Time    `json:"end_date" db:"end_date"`
	Status    SprintStatus `json:"status" db:"status"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

// Task represents a single card on the board.
type Task struct {
	ID          int64      `json:"id" db:"id"`
	ProjectID   int64      `json:"project_id" db:"project_id"`
	SprintID    *int64     `json:"sprint_id,omitempty" db:"sprint_id"`
	AssigneeID  *int64     `json:"assignee_id,omitempty" db:"assignee_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Status      TaskStatus `json:"status" db:"status"`
	Priority    Priority   `json:"priority" db:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty" db:"due_date"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// InSprint reports whether the task is scheduled into the given sprint.
func (t Task) InSprint(sprintID int64) bool {
	return t.SprintID != nil && *t.SprintID == sprintID
}

// AssignedTo reports whether the task is assigned to the given user.
func (t Task) AssignedTo(userID int64) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

// Notification is a message delivered to a user's inbox.
type Notification struct {
	ID        int64            `json:"id" db:"id"`
	UserID    int64            `json:"user_id" db:"user_id"`
	Message   string           `json:"message" db:"message"`
	Type      NotificationType `json:"type" db:"type"`
	Read      bool             `json:"read" db:"is_read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// StoredSprintReport is the immutable snapshot written every time a sprint
// report is generated.
type StoredSprintReport struct {
	ID                 int64     `json:"id" db:"id"`
	SprintID           int64     `json:"sprint_id" db:"sprint_id"`
	ProjectID          int64     `json:"project_id" db:"project_id"`
	SprintName         string    `json:"sprint_name" db:"sprint_name"`
	StartDate          time.Time `json:"start_date" db:"start_date"`
	EndDate            time.Time `json:"end_date" db:"end_date"`
	Summary            string    `json:"summary" db:"summary"`
	TaskCompletionRate float64   `json:"task_completion_rate" db:"task_completion_rate"`
	Velocity           float64   `json:"velocity" db:"velocity"`
	TotalTasks         int       `json:"total_tasks" db:"total_tasks"`
	CompletedTasks     int       `json:"completed_tasks" db:"completed_tasks"`
	GeneratedAt        time.Time `json:"generated_at" db:"generated_at"`
}
