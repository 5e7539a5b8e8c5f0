package data

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NetworkCamera is a user-registered stream source. Local cameras are
// re-enumerated on every refresh and never persisted.
type NetworkCamera struct {
	IOID      string    `json:"io_id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	PullURL   string    `json:"pull_url"`
	CreatedAt time.Time `json:"created_at"`
}

type NetworkCameraModel struct {
	DB DBTX
}

func (m NetworkCameraModel) Save(ctx context.Context, c *NetworkCamera) error {
	query := `INSERT INTO network_cameras (io_id, name, url, pull_url) VALUES (?, ?, ?, ?)`
	_, err := m.DB.ExecContext(ctx, query, c.IOID, c.Name, c.URL, c.PullURL)
	return err
}

// Delete removes a network camera row; returns ErrRecordNotFound when the
// io_id is unknown.
func (m NetworkCameraModel) Delete(ctx context.Context, ioID string) error {
	res, err := m.DB.ExecContext(ctx, `DELETE FROM network_cameras WHERE io_id = ?`, ioID)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (m NetworkCameraModel) LoadAll(ctx context.Context) ([]*NetworkCamera, error) {
	query := `SELECT io_id, name, url, pull_url, created_at FROM network_cameras ORDER BY io_id`
	rows, err := m.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cams []*NetworkCamera
	for rows.Next() {
		var c NetworkCamera
		if err := rows.Scan(&c.IOID, &c.Name, &c.URL, &c.PullURL, &c.CreatedAt); err != nil {
			return nil, err
		}
		cams = append(cams, &c)
	}
	return cams, rows.Err()
}

// NextIOID allocates the lowest unused netN identifier. Deleting net0 and
// adding a camera afterwards reuses net0.
func (m NetworkCameraModel) NextIOID(ctx context.Context) (string, error) {
	rows, err := m.DB.QueryContext(ctx, `SELECT io_id FROM network_cameras`)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	used := make(map[int]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(id, "net")); err == nil {
			used[n] = true
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	for n := 0; ; n++ {
		if !used[n] {
			return fmt.Sprintf("net%d", n), nil
		}
	}
}
