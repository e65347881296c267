package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	header http.Header
	body   []byte
}

func newServer(t *testing.T, status int) (*httptest.Server, func() []recorded) {
	t.Helper()
	var mu sync.Mutex
	var reqs []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recorded{method: r.Method, path: r.URL.Path, header: r.Header.Clone(), body: body})
		mu.Unlock()
		if r.URL.Path == "/avatar.png" {
			_, _ = w.Write([]byte("png-bytes"))
			return
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), reqs...)
	}
}

func TestReceivedAndOpened(t *testing.T) {
	srv, reqs := newServer(t, http.StatusOK)
	c := New(Options{BaseURL: srv.URL + "/", APIKey: "key-1", Platform: "android"}, nil)

	require.NoError(t, c.Received(context.Background(), "abc123"))
	require.NoError(t, c.Opened(context.Background(), "abc123"))

	got := reqs()
	require.Len(t, got, 2)
	assert.Equal(t, "/i/android/received", got[0].path)
	assert.Equal(t, "/i/android/opened", got[1].path)
	assert.JSONEq(t, `{"_oid":"abc123"}`, string(got[0].body))
	assert.Equal(t, "key-1", got[0].header.Get(HeaderAPIKey))
	assert.Equal(t, "Connect-Go/"+Version, got[0].header.Get(HeaderClient))
	assert.NotEmpty(t, got[0].header.Get(HeaderGUID))
	assert.NotEqual(t, got[0].header.Get(HeaderGUID), got[1].header.Get(HeaderGUID))
}

func TestUninstallTracker(t *testing.T) {
	srv, reqs := newServer(t, http.StatusOK)
	c := New(Options{BaseURL: srv.URL, Platform: "ios"}, nil)

	require.NoError(t, c.UninstallTracker(context.Background(), "c137", true))
	got := reqs()
	require.Len(t, got, 1)
	assert.Equal(t, "/i/ios/uninstall_tracker", got[0].path)
	assert.JSONEq(t, `{"i":"c137","revoked":true}`, string(got[0].body))
}

func TestTrackBatchUsesGivenGUID(t *testing.T) {
	srv, reqs := newServer(t, http.StatusOK)
	c := New(Options{BaseURL: srv.URL}, nil)

	err := c.TrackBatch(context.Background(), "batch-guid", []Event{
		{UserID: "u1", Event: "ipm_metric_dismissed", Timestamp: 1000},
	})
	require.NoError(t, err)

	got := reqs()
	require.Len(t, got, 1)
	assert.Equal(t, "/v2/track/batch", got[0].path)
	assert.Equal(t, "batch-guid", got[0].header.Get(HeaderGUID))
	var events []map[string]any
	require.NoError(t, json.Unmarshal(got[0].body, &events))
	assert.Equal(t, "ipm_metric_dismissed", events[0]["event"])
}

func TestTrackBatchEmptyIsNoop(t *testing.T) {
	srv, reqs := newServer(t, http.StatusOK)
	c := New(Options{BaseURL: srv.URL}, nil)

	require.NoError(t, c.TrackBatch(context.Background(), "", nil))
	assert.Empty(t, reqs())
}

func TestNon2xxIsStatusError(t *testing.T) {
	srv, _ := newServer(t, http.StatusServiceUnavailable)
	c := New(Options{BaseURL: srv.URL}, nil)

	err := c.Received(context.Background(), "abc123")
	var se *StatusError
	require.True(t, errors.As(err, &se), "error = %v", err)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
}

func TestFetchAvatar(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK)
	c := New(Options{BaseURL: srv.URL}, nil)

	body, err := c.FetchAvatar(context.Background(), srv.URL+"/avatar.png")
	require.NoError(t, err)
	defer func() { _ = body.Close() }()
	data, _ := io.ReadAll(body)
	assert.Equal(t, "png-bytes", string(data))
}

func TestFetchAvatarRejectsBadURL(t *testing.T) {
	c := New(Options{}, nil)
	_, err := c.FetchAvatar(context.Background(), "ftp://example.com/a.png")
	assert.Error(t, err)
}
