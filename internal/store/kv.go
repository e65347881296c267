package store

import (
	"database/sql"
	"errors"
	"time"
)

// PutValue stores value under key, replacing any previous value.
func (db *DB) PutValue(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	return err
}

// GetValue returns the value stored under key or ErrNotFound.
func (db *DB) GetValue(key string) (string, error) {
	var v string
	err := db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return v, err
}

// RemoveValue deletes key. Removing a missing key is not an error.
func (db *DB) RemoveValue(key string) error {
	_, err := db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return err
}
