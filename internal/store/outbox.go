package store

import "time"

// QueueEvent adds an analytics event to the send outbox.
func (db *DB) QueueEvent(e *Event) error {
	now := time.Now().UnixMilli()
	props := e.Properties
	if props == "" {
		props = "{}"
	}
	_, err := db.Exec(`
		INSERT INTO events (client_id, guid, user_id, name, properties, timestamp, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 'queued', ?, ?)`,
		e.ClientID, e.GUID, e.UserID, e.Name, props, e.Timestamp, now, now)
	return err
}

// MarkEventSending updates an outbox entry to 'sending' status and counts the attempt.
func (db *DB) MarkEventSending(clientID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE events SET status = 'sending', attempts = attempts + 1, updated_at = ? WHERE client_id = ?`, now, clientID)
	return err
}

// MarkEventSent updates an outbox entry to 'sent'.
func (db *DB) MarkEventSent(clientID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE events SET status = 'sent', error_message = '', updated_at = ? WHERE client_id = ?`, now, clientID)
	return err
}

// MarkEventFailed records a send error. Entries below maxAttempts return to
// 'queued' so the next flush picks them up again; the rest end as 'failed'.
func (db *DB) MarkEventFailed(clientID, errMsg string, maxAttempts int) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE events SET
			status = CASE WHEN attempts < ? THEN 'queued' ELSE 'failed' END,
			error_message = ?, updated_at = ?
		WHERE client_id = ?`, maxAttempts, errMsg, now, clientID)
	return err
}

// PendingEvents returns up to limit queued events, oldest first.
func (db *DB) PendingEvents(limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, client_id, guid, user_id, name, properties, timestamp, status, attempts, error_message
		FROM events WHERE status = 'queued' ORDER BY created_at ASC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.ClientID, &e.GUID, &e.UserID, &e.Name, &e.Properties, &e.Timestamp, &e.Status, &e.Attempts, &e.ErrorMessage); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// EventCount returns the number of events in the given status.
func (db *DB) EventCount(status string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM events WHERE status = ?`, status).Scan(&n)
	return n, err
}

// RequeueSending puts entries left in 'sending' by an interrupted flush back in the queue.
func (db *DB) RequeueSending() (int64, error) {
	res, err := db.Exec(`UPDATE events SET status = 'queued', updated_at = ? WHERE status = 'sending'`, time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
