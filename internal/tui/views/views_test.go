package views

import (
	"image"
	"image/color"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/connect/internal/ipm"
	"github.com/matheus3301/connect/internal/tui/model"
	"github.com/matheus3301/connect/internal/tui/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeForTerminal(t *testing.T) {
	assert.Equal(t, "hi\nthere", sanitizeForTerminal("hi\x07\nthere"))
	assert.Equal(t, "👍", sanitizeForTerminal("👍\U0001F3FB"))
	assert.NotContains(t, sanitizeForTerminal("[red]alert"), "[red]")
}

func TestPayloadColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"#FF0000", "#ff0000", true},
		{"#80112233", "#112233", true},
		{"00ff00", "#00ff00", true},
		{"red", "", false},
		{"#12345", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := payloadColor(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.Equal(t, "#000000", pickColor("nope", "#000000"))
}

func TestRenderImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		img.SetNRGBA(x, 0, color.NRGBA{R: 255, A: 255})
		img.SetNRGBA(x, 1, color.NRGBA{B: 255, A: 255})
	}

	out := renderImage(img, 4, "#000000")
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, 4, strings.Count(lines[0], "▀"))
	assert.Contains(t, lines[0], "[#ff0000:#0000ff]")
	// transparent rows take the background
	assert.Contains(t, lines[1], "[#000000:#000000]")

	assert.Empty(t, renderImage(img, 0, "#000000"))
}

func TestRenderQR(t *testing.T) {
	out := renderQR("connect://offers/42")
	assert.NotContains(t, out, "failed")
	assert.Contains(t, out, "█")
}

func TestIpmViewRendersAndDismisses(t *testing.T) {
	v := NewIpmView(ui.DefaultTheme(), nil)
	dismissed := 0
	var launched *url.URL
	v.SetOnDismissed(func() { dismissed++ })
	v.SetOnDeepLink(func(u *url.URL) { launched = u })

	v.DisplayIpm(ipm.Payload{
		InstanceID:       "abc123",
		Heading:          "Welcome",
		Message:          "Take a look",
		ButtonText:       "Open",
		HeadingFontColor: "#ff0000",
	})
	require.NotNil(t, v.Current())
	assert.Equal(t, "abc123", v.Current().InstanceID)
	text := v.body.GetText(true)
	assert.Contains(t, text, "Welcome")
	assert.Contains(t, text, "Take a look")
	assert.Contains(t, text, "Open")

	u, _ := url.Parse("connect://offers")
	v.LaunchActionDeepLink(u)
	assert.Equal(t, u, launched)

	v.DismissIpm()
	assert.Equal(t, 1, dismissed)
	assert.Nil(t, v.Current())
}

func TestIpmViewDefaultsButtonText(t *testing.T) {
	v := NewIpmView(ui.DefaultTheme(), nil)
	v.DisplayIpm(ipm.Payload{InstanceID: "x", Heading: "Hi"})
	assert.Contains(t, v.body.GetText(true), "OK")
}

func TestIpmViewQueuesUpdates(t *testing.T) {
	var queued []func()
	v := NewIpmView(ui.DefaultTheme(), func(f func()) { queued = append(queued, f) })

	v.DisplayIpm(ipm.Payload{InstanceID: "x"})
	assert.Nil(t, v.Current())
	require.Len(t, queued, 1)
	queued[0]()
	assert.NotNil(t, v.Current())
}

func TestTrayViewFilterAndSelection(t *testing.T) {
	tv := NewTrayView(ui.DefaultTheme())
	tv.Update([]model.Notification{
		{NotificationID: 1, Title: "Sale", Body: "Today only", PostedAt: time.Now()},
		{NotificationID: 2, Title: "Welcome", Body: "Hello there", DeepLink: "connect://home"},
	})
	assert.Equal(t, 3, tv.GetRowCount())

	tv.SetFilter("hello")
	assert.Equal(t, 2, tv.GetRowCount())
	tv.Select(1, 0)
	n, ok := tv.Selected()
	require.True(t, ok)
	assert.Equal(t, int32(2), n.NotificationID)

	tv.SetFilter("")
	tv.Select(0, 0)
	_, ok = tv.Selected()
	assert.False(t, ok)
}

func TestDeepLinkViewShowsLink(t *testing.T) {
	dv := NewDeepLinkView(ui.DefaultTheme())
	u, _ := url.Parse("https://example.com/offer?id=7")
	dv.ShowLink(u)
	assert.Equal(t, "https://example.com/offer?id=7", dv.Link())
	assert.Contains(t, dv.GetText(true), "example.com/offer")
}
