package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate, so a second run must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed() {
		t.Errorf("second Migrate() changed the schema: %+v", result)
	}
	if result.To != 2 {
		t.Errorf("version = %d, want 2 (init + notifications)", result.To)
	}
}

func TestMigrateFreshDatabase(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "fresh.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.From != 0 || result.To != 2 || !result.Changed() {
		t.Errorf("result = %+v, want 0 -> 2", result)
	}
	if filepath.Base(db.Path()) != "fresh.db" {
		t.Errorf("Path() = %q", db.Path())
	}
}

func TestKVRoundTrip(t *testing.T) {
	db := testDB(t)

	if _, err := db.GetValue("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetValue(missing) error = %v, want ErrNotFound", err)
	}
	if err := db.PutValue("user_id", "u1"); err != nil {
		t.Fatal(err)
	}
	if err := db.PutValue("user_id", "u2"); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetValue("user_id")
	if err != nil {
		t.Fatal(err)
	}
	if got != "u2" {
		t.Errorf("GetValue = %q, want u2", got)
	}
	if err := db.RemoveValue("user_id"); err != nil {
		t.Fatal(err)
	}
	if err := db.RemoveValue("user_id"); err != nil {
		t.Errorf("second RemoveValue error = %v", err)
	}
}

func TestFilesRoundTrip(t *testing.T) {
	db := testDB(t)

	if err := db.SaveFile("zcn_ipm_avatar", []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	data, err := db.ReadFile("zcn_ipm_avatar")
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 3 || data[2] != 3 {
		t.Errorf("ReadFile = %v, want [1 2 3]", data)
	}
	if err := db.DeleteFile("zcn_ipm_avatar"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ReadFile("zcn_ipm_avatar"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadFile after delete error = %v, want ErrNotFound", err)
	}
}

func TestEventOutboxLifecycle(t *testing.T) {
	db := testDB(t)

	for _, id := range []string{"c1", "c2"} {
		if err := db.QueueEvent(&Event{ClientID: id, GUID: "g-" + id, Name: "ipm_metric_dismissed", Timestamp: 1000}); err != nil {
			t.Fatal(err)
		}
	}

	pending, err := db.PendingEvents(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending, want 2", len(pending))
	}
	if pending[0].ClientID != "c1" || pending[0].Properties != "{}" {
		t.Errorf("first pending = %+v, want c1 with empty properties", pending[0])
	}

	if err := db.MarkEventSending("c1"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkEventSent("c1"); err != nil {
		t.Fatal(err)
	}

	// c2 fails once with maxAttempts=2 and goes back to the queue.
	if err := db.MarkEventSending("c2"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkEventFailed("c2", "boom", 2); err != nil {
		t.Fatal(err)
	}
	pending, err = db.PendingEvents(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ClientID != "c2" || pending[0].Attempts != 1 {
		t.Fatalf("pending after first failure = %+v, want c2 with 1 attempt", pending)
	}

	// Second failure exhausts the attempts.
	if err := db.MarkEventSending("c2"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkEventFailed("c2", "boom", 2); err != nil {
		t.Fatal(err)
	}
	failed, err := db.EventCount("failed")
	if err != nil {
		t.Fatal(err)
	}
	if failed != 1 {
		t.Errorf("failed count = %d, want 1", failed)
	}
	sent, _ := db.EventCount("sent")
	if sent != 1 {
		t.Errorf("sent count = %d, want 1", sent)
	}
}

func TestRequeueSending(t *testing.T) {
	db := testDB(t)

	if err := db.QueueEvent(&Event{ClientID: "c1", GUID: "g", Name: "e", Timestamp: 1}); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkEventSending("c1"); err != nil {
		t.Fatal(err)
	}
	n, err := db.RequeueSending()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("requeued = %d, want 1", n)
	}
	pending, _ := db.PendingEvents(10)
	if len(pending) != 1 {
		t.Errorf("got %d pending, want 1", len(pending))
	}
}

func TestJobsReplaceByName(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertJob(&Job{Name: "abc123", Kind: "ipm_ttl", RunAt: 2000}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertJob(&Job{Name: "abc123", Kind: "ipm_ttl", RunAt: 5000}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertJob(&Job{Name: "x1", Kind: "ipm_ttl", RunAt: 1000}); err != nil {
		t.Fatal(err)
	}

	jobs, err := db.ListJobs()
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(jobs))
	}
	if jobs[0].Name != "x1" || jobs[1].RunAt != 5000 {
		t.Errorf("jobs = %+v, want x1 first and abc123 at 5000", jobs)
	}

	deleted, err := db.DeleteJob("abc123")
	if err != nil || !deleted {
		t.Errorf("DeleteJob = %v, %v; want true, nil", deleted, err)
	}
	deleted, err = db.DeleteJob("abc123")
	if err != nil || deleted {
		t.Errorf("second DeleteJob = %v, %v; want false, nil", deleted, err)
	}
}

func TestNotificationsNewestFirst(t *testing.T) {
	db := testDB(t)

	now := time.Now().UnixMilli()
	for i, title := range []string{"old", "new"} {
		if _, err := db.InsertNotification(&Notification{NotificationID: int32(i), Title: title, PostedAt: now + int64(i)}); err != nil {
			t.Fatal(err)
		}
	}
	list, err := db.ListNotifications(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Title != "new" {
		t.Errorf("ListNotifications = %+v, want newest first", list)
	}
}
