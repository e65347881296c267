package store

// InsertNotification records a posted system notification.
func (db *DB) InsertNotification(n *Notification) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO notifications (notification_id, instance_id, title, body, deep_link, test_push, posted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.NotificationID, n.InstanceID, n.Title, n.Body, n.DeepLink, n.TestPush, n.PostedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListNotifications returns the most recently posted notifications first.
func (db *DB) ListNotifications(limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, notification_id, instance_id, title, body, deep_link, test_push, posted_at
		FROM notifications ORDER BY posted_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.NotificationID, &n.InstanceID, &n.Title, &n.Body, &n.DeepLink, &n.TestPush, &n.PostedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
