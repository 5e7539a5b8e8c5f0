package data

import (
	"context"
	"database/sql"
	"log"
	"os"
)

type SettingModel struct {
	DB DBTX
}

func (m SettingModel) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := m.DB.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrRecordNotFound
	}
	return value, err
}

func (m SettingModel) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	_, err := m.DB.ExecContext(ctx, query, key, value)
	return err
}

func (m SettingModel) Delete(ctx context.Context, key string) error {
	res, err := m.DB.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (m SettingModel) All(ctx context.Context) (map[string]string, error) {
	rows, err := m.DB.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// LoadToEnv exports every persisted setting into the process environment.
// Persisted values win over whatever the environment already had; env vars
// remain the fallback for keys never stored.
func (m SettingModel) LoadToEnv(ctx context.Context) error {
	settings, err := m.All(ctx)
	if err != nil {
		return err
	}
	for k, v := range settings {
		if err := os.Setenv(k, v); err != nil {
			log.Printf("[Settings] Failed to export %s to env: %v", k, err)
		}
	}
	return nil
}
