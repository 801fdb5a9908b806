package sqlstore

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        username TEXT NOT NULL UNIQUE,
        email TEXT NOT NULL UNIQUE,
        full_name TEXT NOT NULL DEFAULT '',
        created_at DATETIME NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS projects (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        color TEXT NOT NULL DEFAULT '#2563eb',
        owner_id INTEGER NOT NULL,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL,
        FOREIGN KEY(owner_id) REFERENCES users(id)
    );`,
	`CREATE TABLE IF NOT EXISTS project_members (
        project_id INTEGER NOT NULL,
        user_id INTEGER NOT NULL,
        PRIMARY KEY(project_id, user_id),
        FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE,
        FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
    );`,
	`CREATE TABLE IF NOT EXISTS sprints (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        project_id INTEGER NOT NULL,
        name TEXT NOT NULL,
        start_date DATETIME NOT NULL,
        end_date DATETIME NOT NULL,
        status TEXT NOT NULL DEFAULT 'PLANNED',
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL,
        FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
    );`,
	`CREATE TABLE IF NOT EXISTS tasks (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        project_id INTEGER NOT NULL,
        sprint_id INTEGER,
        assignee_id INTEGER,
        title TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        status TEXT NOT NULL DEFAULT 'TODO',
        priority TEXT NOT NULL DEFAULT 'MEDIUM',
        due_date DATETIME,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL,
        FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE,
        FOREIGN KEY(sprint_id) REFERENCES sprints(id) ON DELETE SET NULL,
        FOREIGN KEY(assignee_id) REFERENCES users(id) ON DELETE SET NULL
    );`,
	`CREATE TABLE IF NOT EXISTS notifications (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id INTEGER NOT NULL,
        message TEXT NOT NULL,
        type TEXT NOT NULL,
        is_read INTEGER NOT NULL DEFAULT 0,
        created_at DATETIME NOT NULL,
        FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
    );`,
	`CREATE TABLE IF NOT EXISTS sprint_reports (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        sprint_id INTEGER NOT NULL,
        sprint_name TEXT NOT NULL,
        start_date DATETIME NOT NULL,
        end_date DATETIME NOT NULL,
        summary TEXT NOT NULL,
        task_completion_rate REAL NOT NULL,
        velocity REAL NOT NULL,
        total_tasks INTEGER NOT NULL,
        completed_tasks INTEGER NOT NULL,
        generated_at DATETIME NOT NULL,
        FOREIGN KEY(sprint_id) REFERENCES sprints(id) ON DELETE CASCADE
    );`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_project_status ON tasks(project_id, status);`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_sprint ON tasks(sprint_id);`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee_id);`,
	`CREATE INDEX IF NOT EXISTS idx_sprints_project ON sprints(project_id, start_date);`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_sprint_reports_sprint ON sprint_reports(sprint_id);`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id BIGSERIAL PRIMARY KEY,
        username TEXT NOT NULL UNIQUE,
        email TEXT NOT NULL UNIQUE,
        full_name TEXT NOT NULL DEFAULT '',
        created_at TIMESTAMPTZ NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS projects (
        id BIGSERIAL PRIMARY KEY,
        name TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        color TEXT NOT NULL DEFAULT '#2563eb',
        owner_id BIGINT NOT NULL REFERENCES users(id),
        created_at TIMESTAMPTZ NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS project_members (
        project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
        user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
        PRIMARY KEY(project_id, user_id)
    );`,
	`CREATE TABLE IF NOT EXISTS sprints (
        id BIGSERIAL PRIMARY KEY,
        project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
        name TEXT NOT NULL,
        start_date TIMESTAMPTZ NOT NULL,
        end_date TIMESTAMPTZ NOT NULL,
        status TEXT NOT NULL DEFAULT 'PLANNED',
        created_at TIMESTAMPTZ NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS tasks (
        id BIGSERIAL PRIMARY KEY,
        project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
        sprint_id BIGINT REFERENCES sprints(id) ON DELETE SET NULL,
        assignee_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
        title TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        status TEXT NOT NULL DEFAULT 'TODO',
        priority TEXT NOT NULL DEFAULT 'MEDIUM',
        due_date TIMESTAMPTZ,
        created_at TIMESTAMPTZ NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS notifications (
        id BIGSERIAL PRIMARY KEY,
        user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
        message TEXT NOT NULL,
        type TEXT NOT NULL,
        is_read BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMPTZ NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS sprint_reports (
        id BIGSERIAL PRIMARY KEY,
        sprint_id BIGINT NOT NULL REFERENCES sprints(id) ON DELETE CASCADE,
        sprint_name TEXT NOT NULL,
        start_date TIMESTAMPTZ NOT NULL,
        end_date TIMESTAMPTZ NOT NULL,
        summary TEXT NOT NULL,
        task_completion_rate DOUBLE PRECISION NOT NULL,
        velocity DOUBLE PRECISION NOT NULL,
        total_tasks INTEGER NOT NULL,
        completed_tasks INTEGER NOT NULL,
        generated_at TIMESTAMPTZ NOT NULL
    );`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_project_status ON tasks(project_id, status);`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_sprint ON tasks(sprint_id);`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee_id);`,
	`CREATE INDEX IF NOT EXISTS idx_sprints_project ON sprints(project_id, start_date);`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_sprint_reports_sprint ON sprint_reports(sprint_id);`,
}
