package data

import (
	"context"
	"time"
)

// Session rows are opaque to the engine; they exist so the external chat
// collaborator can persist its conversation index in the same store.
type Session struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionModel struct {
	DB DBTX
}

func (m SessionModel) Save(ctx context.Context, s *Session) error {
	query := `
		INSERT INTO sessions (session_id, title) VALUES (?, ?)
		ON CONFLICT(session_id) DO UPDATE SET title = excluded.title`
	_, err := m.DB.ExecContext(ctx, query, s.SessionID, s.Title)
	return err
}

func (m SessionModel) List(ctx context.Context) ([]*Session, error) {
	rows, err := m.DB.QueryContext(ctx, `SELECT session_id, title, created_at FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.SessionID, &s.Title, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

func (m SessionModel) Delete(ctx context.Context, sessionID string) error {
	res, err := m.DB.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}
