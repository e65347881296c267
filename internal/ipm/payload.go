package ipm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidPayload is wrapped by every payload parse failure.
var ErrInvalidPayload = errors.New("invalid ipm payload")

// Push data keys carrying an IPM.
const (
	KeyInstanceID            = "_oid"
	KeyTimeToLive            = "ttl"
	KeyLogo                  = "logo"
	KeyHeading               = "heading"
	KeyMessage               = "message"
	KeyButtonText            = "buttonText"
	KeyAction                = "action"
	KeyHeadingFontColor      = "headingFontColor"
	KeyMessageFontColor      = "messageFontColor"
	KeyBackgroundColor       = "backgroundColor"
	KeyButtonBackgroundColor = "buttonBackgroundColor"
	KeyButtonTextColor       = "buttonTextColor"
)

// Payload is one in-product message. It is never mutated after construction;
// two payloads are equal when all fields are equal.
type Payload struct {
	InstanceID            string
	TimeToLive            time.Duration
	Logo                  string
	Heading               string
	Message               string
	ButtonText            string
	Action                string
	HeadingFontColor      string
	MessageFontColor      string
	BackgroundColor       string
	ButtonBackgroundColor string
	ButtonTextColor       string
}

// wirePayload is the durable JSON form; ttl is whole seconds.
type wirePayload struct {
	InstanceID            string `json:"_oid"`
	TTL                   int64  `json:"ttl"`
	Logo                  string `json:"logo,omitempty"`
	Heading               string `json:"heading,omitempty"`
	Message               string `json:"message,omitempty"`
	ButtonText            string `json:"buttonText,omitempty"`
	Action                string `json:"action,omitempty"`
	HeadingFontColor      string `json:"headingFontColor,omitempty"`
	MessageFontColor      string `json:"messageFontColor,omitempty"`
	BackgroundColor       string `json:"backgroundColor,omitempty"`
	ButtonBackgroundColor string `json:"buttonBackgroundColor,omitempty"`
	ButtonTextColor       string `json:"buttonTextColor,omitempty"`
}

func (p Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(wirePayload{
		InstanceID:            p.InstanceID,
		TTL:                   int64(p.TimeToLive / time.Second),
		Logo:                  p.Logo,
		Heading:               p.Heading,
		Message:               p.Message,
		ButtonText:            p.ButtonText,
		Action:                p.Action,
		HeadingFontColor:      p.HeadingFontColor,
		MessageFontColor:      p.MessageFontColor,
		BackgroundColor:       p.BackgroundColor,
		ButtonBackgroundColor: p.ButtonBackgroundColor,
		ButtonTextColor:       p.ButtonTextColor,
	})
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	var w wirePayload
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = Payload{
		InstanceID:            w.InstanceID,
		TimeToLive:            time.Duration(w.TTL) * time.Second,
		Logo:                  w.Logo,
		Heading:               w.Heading,
		Message:               w.Message,
		ButtonText:            w.ButtonText,
		Action:                w.Action,
		HeadingFontColor:      w.HeadingFontColor,
		MessageFontColor:      w.MessageFontColor,
		BackgroundColor:       w.BackgroundColor,
		ButtonBackgroundColor: w.ButtonBackgroundColor,
		ButtonTextColor:       w.ButtonTextColor,
	}
	return nil
}

// ParsePayload builds a Payload from flat push data. The instance id must be
// present and ttl must be an integer number of seconds.
func ParsePayload(data map[string]string) (Payload, error) {
	id := strings.TrimSpace(data[KeyInstanceID])
	if id == "" {
		return Payload{}, fmt.Errorf("%w: missing %s", ErrInvalidPayload, KeyInstanceID)
	}
	ttl, err := strconv.ParseInt(strings.TrimSpace(data[KeyTimeToLive]), 10, 64)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %s %q is not an integer", ErrInvalidPayload, KeyTimeToLive, data[KeyTimeToLive])
	}
	return Payload{
		InstanceID:            id,
		TimeToLive:            time.Duration(ttl) * time.Second,
		Logo:                  data[KeyLogo],
		Heading:               data[KeyHeading],
		Message:               data[KeyMessage],
		ButtonText:            data[KeyButtonText],
		Action:                data[KeyAction],
		HeadingFontColor:      data[KeyHeadingFontColor],
		MessageFontColor:      data[KeyMessageFontColor],
		BackgroundColor:       data[KeyBackgroundColor],
		ButtonBackgroundColor: data[KeyButtonBackgroundColor],
		ButtonTextColor:       data[KeyButtonTextColor],
	}, nil
}

// Fields flattens the payload back into push data keys.
func (p Payload) Fields() map[string]string {
	out := map[string]string{
		KeyInstanceID: p.InstanceID,
		KeyTimeToLive: strconv.FormatInt(int64(p.TimeToLive/time.Second), 10),
	}
	opt := map[string]string{
		KeyLogo:                  p.Logo,
		KeyHeading:               p.Heading,
		KeyMessage:               p.Message,
		KeyButtonText:            p.ButtonText,
		KeyAction:                p.Action,
		KeyHeadingFontColor:      p.HeadingFontColor,
		KeyMessageFontColor:      p.MessageFontColor,
		KeyBackgroundColor:       p.BackgroundColor,
		KeyButtonBackgroundColor: p.ButtonBackgroundColor,
		KeyButtonTextColor:       p.ButtonTextColor,
	}
	for k, v := range opt {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// DismissReason records how the user dismissed an IPM.
type DismissReason string

const (
	TapOutside   DismissReason = "TAP_OUTSIDE"
	SlideDown    DismissReason = "SLIDE_DOWN"
	NavigateBack DismissReason = "NAVIGATE_BACK"
)

// ParseDismissReason accepts the reason names case-insensitively.
func ParseDismissReason(s string) (DismissReason, error) {
	switch r := DismissReason(strings.ToUpper(strings.TrimSpace(s))); r {
	case TapOutside, SlideDown, NavigateBack:
		return r, nil
	}
	return "", fmt.Errorf("unknown dismiss reason %q", s)
}
