package store

import "time"

// UpsertJob stores a job, replacing any job with the same name.
func (db *DB) UpsertJob(j *Job) error {
	_, err := db.Exec(`
		INSERT INTO jobs (name, kind, run_at, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET kind = excluded.kind, run_at = excluded.run_at, created_at = excluded.created_at`,
		j.Name, j.Kind, j.RunAt, time.Now().UnixMilli())
	return err
}

// DeleteJob removes a job by name. Deleting a missing job is not an error.
func (db *DB) DeleteJob(name string) (bool, error) {
	res, err := db.Exec(`DELETE FROM jobs WHERE name = ?`, name)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListJobs returns all persisted jobs ordered by due time.
func (db *DB) ListJobs() ([]Job, error) {
	rows, err := db.Query(`SELECT name, kind, run_at FROM jobs ORDER BY run_at ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var jobs []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.Name, &j.Kind, &j.RunAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
