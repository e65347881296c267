package store

import (
	"database/sql"
	"errors"
	"time"
)

// SaveFile writes data as the named file, replacing previous contents.
func (db *DB) SaveFile(name string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := db.Exec(`
		INSERT INTO files (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		name, data, time.Now().UnixMilli())
	return err
}

// ReadFile returns the contents of the named file or ErrNotFound.
func (db *DB) ReadFile(name string) ([]byte, error) {
	var data []byte
	err := db.QueryRow(`SELECT data FROM files WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return data, err
}

// DeleteFile removes the named file. Deleting a missing file is not an error.
func (db *DB) DeleteFile(name string) error {
	_, err := db.Exec(`DELETE FROM files WHERE name = ?`, name)
	return err
}
