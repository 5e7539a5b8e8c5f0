package data

import (
	"context"
	"database/sql"
	"strconv"
	"time"
)

// Task status values. A task is "terminated" only when startup recovery
// found it still marked active from a previous run.
const (
	TaskStatusActive     = "active"
	TaskStatusDone       = "done"
	TaskStatusTerminated = "terminated"
)

// NoteEntry is a single timestamped observation appended to a task.
// Immutable once written.
type NoteEntry struct {
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // seconds since epoch
}

// Task is the persisted form of an observation task bound to one camera.
type Task struct {
	TaskID     string      `json:"task_id"`
	TaskNumber int         `json:"task_number"`
	TaskDesc   string      `json:"task_desc"`
	Done       bool        `json:"done"`
	IOID       string      `json:"io_id"`
	Status     string      `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	Notes      []NoteEntry `json:"notes"`
}

type TaskModel struct {
	DB DBTX
}

// Save inserts a new task row. Notes are persisted separately via SaveNote.
func (m TaskModel) Save(ctx context.Context, t *Task) error {
	query := `
		INSERT INTO tasks (task_id, task_number, task_desc, done, io_id, status)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := m.DB.ExecContext(ctx, query,
		t.TaskID, t.TaskNumber, t.TaskDesc, t.Done, t.IOID, t.Status)
	return err
}

// UpdateDone sets the done flag and status of a task.
func (m TaskModel) UpdateDone(ctx context.Context, taskID string, done bool, status string) error {
	query := `UPDATE tasks SET done = ?, status = ? WHERE task_id = ?`
	res, err := m.DB.ExecContext(ctx, query, done, status, taskID)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// UpdateDesc rewrites the task description.
func (m TaskModel) UpdateDesc(ctx context.Context, taskID, desc string) error {
	query := `UPDATE tasks SET task_desc = ? WHERE task_id = ?`
	res, err := m.DB.ExecContext(ctx, query, desc, taskID)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Delete removes a task row. Notes cascade via FK.
func (m TaskModel) Delete(ctx context.Context, taskID string) error {
	query := `DELETE FROM tasks WHERE task_id = ?`
	res, err := m.DB.ExecContext(ctx, query, taskID)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// SaveNote appends one note. Notes are append-only; there is no update path.
func (m TaskModel) SaveNote(ctx context.Context, taskID string, n NoteEntry) error {
	query := `INSERT INTO task_notes (task_id, content, timestamp) VALUES (?, ?, ?)`
	_, err := m.DB.ExecContext(ctx, query, taskID, n.Content, n.Timestamp)
	return err
}

// LoadAll returns every task with its notes, ordered by numeric task_id.
// Notes within a task are ordered by insertion.
func (m TaskModel) LoadAll(ctx context.Context) ([]*Task, error) {
	query := `
		SELECT task_id, task_number, task_desc, done, io_id, status, created_at
		FROM tasks
		ORDER BY CAST(task_id AS INTEGER)`

	rows, err := m.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	byID := make(map[string]*Task)
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.TaskID, &t.TaskNumber, &t.TaskDesc, &t.Done, &t.IOID, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, &t)
		byID[t.TaskID] = &t
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	noteQuery := `SELECT task_id, content, timestamp FROM task_notes ORDER BY id`
	noteRows, err := m.DB.QueryContext(ctx, noteQuery)
	if err != nil {
		return nil, err
	}
	defer noteRows.Close()

	for noteRows.Next() {
		var taskID string
		var n NoteEntry
		if err := noteRows.Scan(&taskID, &n.Content, &n.Timestamp); err != nil {
			return nil, err
		}
		if t, ok := byID[taskID]; ok {
			t.Notes = append(t.Notes, n)
		}
	}
	return tasks, noteRows.Err()
}

// MaxTaskID returns the highest numeric task id, or -1 when no tasks exist.
// The next task id is always MaxTaskID()+1 rendered as a decimal string.
func (m TaskModel) MaxTaskID(ctx context.Context) (int, error) {
	query := `SELECT COALESCE(MAX(CAST(task_id AS INTEGER)), -1) FROM tasks`
	var max int
	err := m.DB.QueryRowContext(ctx, query).Scan(&max)
	return max, err
}

// TerminateActive bulk-rewrites every not-done task to status=terminated
// and returns the affected count. Called once at startup so crashed runs
// never leave ghost "running" rows behind.
func (m TaskModel) TerminateActive(ctx context.Context) (int, error) {
	query := `UPDATE tasks SET status = ? WHERE done = 0 AND status != ?`
	res, err := m.DB.ExecContext(ctx, query, TaskStatusTerminated, TaskStatusTerminated)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	return int(rows), err
}

// NextTaskID is a convenience wrapper returning the next id as a string.
func (m TaskModel) NextTaskID(ctx context.Context) (string, error) {
	max, err := m.MaxTaskID(ctx)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(max + 1), nil
}

// GetByID returns one task with notes.
func (m TaskModel) GetByID(ctx context.Context, taskID string) (*Task, error) {
	query := `
		SELECT task_id, task_number, task_desc, done, io_id, status, created_at
		FROM tasks WHERE task_id = ?`

	var t Task
	err := m.DB.QueryRowContext(ctx, query, taskID).Scan(
		&t.TaskID, &t.TaskNumber, &t.TaskDesc, &t.Done, &t.IOID, &t.Status, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	noteQuery := `SELECT content, timestamp FROM task_notes WHERE task_id = ? ORDER BY id`
	rows, err := m.DB.QueryContext(ctx, noteQuery, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var n NoteEntry
		if err := rows.Scan(&n.Content, &n.Timestamp); err != nil {
			return nil, err
		}
		t.Notes = append(t.Notes, n)
	}
	return &t, rows.Err()
}
