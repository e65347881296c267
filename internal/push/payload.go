// Package push classifies incoming push data and displays system notifications.
package push

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/matheus3301/connect/internal/ipm"
)

// System push data keys.
const (
	KeyInstanceID       = ipm.FallbackKeyInstanceID
	KeyNotificationID   = ipm.FallbackKeyNotificationID
	KeyTitle            = ipm.FallbackKeyTitle
	KeyBody             = ipm.FallbackKeyBody
	KeyDeepLink         = ipm.FallbackKeyDeepLink
	KeyCategory         = "category"
	KeyQuiet            = "_oq"
	KeyUninstallTracker = "_ogp"
	KeyTestPush         = "_otm"
	KeySilent           = "_silent"
	KeyDefaultSound     = "_soundDefault"
	KeyType             = "type"
)

// TypeIpm is the value of KeyType marking an in-product message.
const TypeIpm = "ipm"

var systemKeys = []string{
	KeyInstanceID, KeyNotificationID, KeyTitle, KeyBody, KeyDeepLink, KeyCategory,
	KeyQuiet, KeyUninstallTracker, KeyTestPush, KeySilent, KeyDefaultSound,
}

// SystemPayload is a parsed system push.
type SystemPayload struct {
	InstanceID       string
	NotificationID   int32
	Title            string
	Body             string
	DeepLink         string
	Category         string
	Quiet            bool
	UninstallTracker bool
	TestPush         bool
	Silent           bool
	DefaultSound     bool
	// Custom holds every key that is not a system key.
	Custom map[string]string
}

// ParseSystemPayload reads a system push from flat data. Without an explicit
// notification id one is derived from the instance id.
func ParseSystemPayload(data map[string]string) (SystemPayload, error) {
	p := SystemPayload{
		InstanceID:       data[KeyInstanceID],
		Title:            data[KeyTitle],
		Body:             data[KeyBody],
		DeepLink:         data[KeyDeepLink],
		Category:         data[KeyCategory],
		Quiet:            flag(data, KeyQuiet),
		UninstallTracker: flag(data, KeyUninstallTracker),
		TestPush:         flag(data, KeyTestPush),
		Silent:           flag(data, KeySilent),
		DefaultSound:     flag(data, KeyDefaultSound),
	}

	if raw := strings.TrimSpace(data[KeyNotificationID]); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return SystemPayload{}, fmt.Errorf("%w: %s %q is not an int32", ipm.ErrInvalidPayload, KeyNotificationID, raw)
		}
		p.NotificationID = int32(id)
	} else {
		p.NotificationID = ipm.NotificationID(p.InstanceID)
	}

	custom := maps.Clone(data)
	for _, k := range systemKeys {
		delete(custom, k)
	}
	if len(custom) > 0 {
		p.Custom = custom
	}
	return p, nil
}

// flag reads a boolean key. Anything other than a true value is false.
func flag(data map[string]string, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(data[key]))
	return err == nil && v
}

// ParsePairs turns key=value arguments into push data. Values may contain '='.
func ParsePairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, errors.New("push needs at least one key=value pair")
	}
	data := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("malformed pair %q, want key=value", pair)
		}
		data[k] = v
	}
	return data, nil
}
