package bus

import "time"

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Event kinds published by the daemon. Subscribers filter by prefix, so
// "ipm." receives every IPM event.
const (
	KindIpmStatusChanged   = "ipm.status_changed"
	KindIpmNavigate        = "ipm.navigate"
	KindIpmPurged          = "ipm.purged"
	KindIpmCleared         = "ipm.cleared"
	KindNotificationPosted = "notification.posted"
	KindLifecycle          = "lifecycle.changed"
	KindEventFlushed       = "outbox.flushed"
	KindEventFlushFailed   = "outbox.flush_failed"
)
