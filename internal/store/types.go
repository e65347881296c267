package store

// Event is a queued analytics event waiting to be flushed to the track API.
type Event struct {
	ID           int64
	ClientID     string
	GUID         string
	UserID       string
	Name         string
	Properties   string // JSON object
	Timestamp    int64  // unix millis
	Status       string // queued, sending, sent, failed
	Attempts     int
	ErrorMessage string
}

// Job is a persisted deferred job keyed by a unique name.
type Job struct {
	Name  string
	Kind  string
	RunAt int64 // unix millis
}

// Notification is a system notification that was posted to the host tray.
type Notification struct {
	ID             int64
	NotificationID int32
	InstanceID     string
	Title          string
	Body           string
	DeepLink       string
	TestPush       bool
	PostedAt       int64
}
