package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/connect/internal/store"
	"go.uber.org/zap"
)

// Client queues analytics events for the Sender to flush.
type Client struct {
	db     *store.DB
	userID string
	logger *zap.Logger
	now    func() time.Time
}

// NewClient creates an event client that tags every event with userID.
func NewClient(db *store.DB, userID string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{db: db, userID: userID, logger: logger.Named("events"), now: time.Now}
}

// TrackEvent queues an event. It returns once the event is durable; delivery
// happens on the next flush.
func (c *Client) TrackEvent(name string, props map[string]any) error {
	if name == "" {
		return fmt.Errorf("event name is required")
	}
	raw := []byte("{}")
	if len(props) > 0 {
		var err error
		if raw, err = json.Marshal(props); err != nil {
			return fmt.Errorf("encode properties: %w", err)
		}
	}
	e := &store.Event{
		ClientID:   uuid.NewString(),
		GUID:       uuid.NewString(),
		UserID:     c.userID,
		Name:       name,
		Properties: string(raw),
		Timestamp:  c.now().UnixMilli(),
	}
	if err := c.db.QueueEvent(e); err != nil {
		return fmt.Errorf("queue event %s: %w", name, err)
	}
	c.logger.Debug("event queued", zap.String("event", name), zap.String("client_id", e.ClientID))
	return nil
}
