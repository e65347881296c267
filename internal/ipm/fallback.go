package ipm

import (
	"strconv"
	"unicode/utf16"
)

// System push keys filled in when an IPM falls back to a notification.
const (
	FallbackKeyInstanceID     = "_oid"
	FallbackKeyNotificationID = "_onid"
	FallbackKeyTitle          = "title"
	FallbackKeyBody           = "body"
	FallbackKeyDeepLink       = "_odl"
)

// FallbackData maps p onto a system push payload. The notification id is
// derived from the instance id so repeated fallbacks replace each other.
func FallbackData(p Payload) map[string]string {
	return map[string]string{
		FallbackKeyInstanceID:     p.InstanceID,
		FallbackKeyNotificationID: strconv.FormatInt(int64(NotificationID(p.InstanceID)), 10),
		FallbackKeyTitle:          p.Heading,
		FallbackKeyBody:           p.Message,
		FallbackKeyDeepLink:       p.Action,
	}
}

// NotificationID hashes s over its UTF-16 code units with the 31 multiplier,
// wrapping on int32 overflow. Ids match those produced by the mobile SDKs.
func NotificationID(s string) int32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(u)
	}
	return h
}
