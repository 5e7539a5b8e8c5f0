package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestTaskModel_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO tasks").
		WithArgs("0", 0, "count claps", false, "0", TaskStatusActive).
		WillReturnResult(sqlmock.NewResult(1, 1))

	m := TaskModel{DB: db}
	task := &Task{TaskID: "0", TaskDesc: "count claps", IOID: "0", Status: TaskStatusActive}
	if err := m.Save(context.Background(), task); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestTaskModel_UpdateDone_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectExec("UPDATE tasks SET done").
		WithArgs(true, TaskStatusDone, "99").
		WillReturnResult(sqlmock.NewResult(0, 0))

	m := TaskModel{DB: db}
	err := m.UpdateDone(context.Background(), "99", true, TaskStatusDone)
	if !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}

func TestTaskModel_MaxTaskID_Empty(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(-1))

	m := TaskModel{DB: db}
	max, err := m.MaxTaskID(context.Background())
	if err != nil {
		t.Fatalf("MaxTaskID: %v", err)
	}
	if max != -1 {
		t.Errorf("Expected -1 for empty table, got %d", max)
	}
}

func TestTaskModel_NextTaskID(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(3))

	m := TaskModel{DB: db}
	next, err := m.NextTaskID(context.Background())
	if err != nil {
		t.Fatalf("NextTaskID: %v", err)
	}
	if next != "4" {
		t.Errorf("Expected \"4\", got %q", next)
	}
}

func TestTaskModel_TerminateActive(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectExec("UPDATE tasks SET status").
		WithArgs(TaskStatusTerminated, TaskStatusTerminated).
		WillReturnResult(sqlmock.NewResult(0, 2))

	m := TaskModel{DB: db}
	n, err := m.TerminateActive(context.Background())
	if err != nil {
		t.Fatalf("TerminateActive: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 terminated, got %d", n)
	}
}

func TestTaskModel_LoadAll_JoinsNotes(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT task_id, task_number, task_desc").
		WillReturnRows(sqlmock.NewRows(
			[]string{"task_id", "task_number", "task_desc", "done", "io_id", "status", "created_at"}).
			AddRow("0", 0, "watch the door", false, "0", TaskStatusActive, now).
			AddRow("1", 1, "count people", true, "net0", TaskStatusDone, now))

	mock.ExpectQuery("SELECT task_id, content, timestamp FROM task_notes").
		WillReturnRows(sqlmock.NewRows([]string{"task_id", "content", "timestamp"}).
			AddRow("0", "door closed", int64(100)).
			AddRow("0", "door open", int64(200)))

	m := TaskModel{DB: db}
	tasks, err := m.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(tasks))
	}
	if len(tasks[0].Notes) != 2 {
		t.Errorf("Expected 2 notes on task 0, got %d", len(tasks[0].Notes))
	}
	if tasks[0].Notes[0].Timestamp > tasks[0].Notes[1].Timestamp {
		t.Error("Notes out of insertion order")
	}
	if len(tasks[1].Notes) != 0 {
		t.Errorf("Task 1 should have no notes")
	}
}

func TestNetworkCameraModel_NextIOID_LowestUnused(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectQuery("SELECT io_id FROM network_cameras").
		WillReturnRows(sqlmock.NewRows([]string{"io_id"}).AddRow("net0").AddRow("net2"))

	m := NetworkCameraModel{DB: db}
	id, err := m.NextIOID(context.Background())
	if err != nil {
		t.Fatalf("NextIOID: %v", err)
	}
	if id != "net1" {
		t.Errorf("Expected net1 (lowest unused), got %s", id)
	}
}

func TestSettingModel_Get_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectQuery("SELECT value FROM settings").
		WithArgs("MISSING").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	m := SettingModel{DB: db}
	_, err := m.Get(context.Background(), "MISSING")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}
