package handler

import (
	"bufio"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipregistry/internal/identity"
	"ipregistry/internal/notifier"
	dErrors "ipregistry/pkg/domain-errors"
)

type staticResolver map[string]identity.Principal

func (r staticResolver) Resolve(_ context.Context, credential string) (identity.Principal, error) {
	p, ok := r[credential]
	if !ok {
		return identity.Principal{}, dErrors.New(dErrors.CodeUnauthenticated, "invalid token")
	}
	return p, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *notifier.MemoryBroker) {
	t.Helper()
	broker := notifier.NewMemoryBroker(slog.Default())
	t.Cleanup(broker.Close)

	resolver := staticResolver{
		"alice-token": {ID: "0xalice"},
		"admin-token": {ID: "0xmallory", Admin: true},
	}
	router := chi.NewRouter()
	New(broker, resolver, slog.Default()).Register(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, broker
}

// openStream connects and returns a line scanner over the SSE body.
func openStream(t *testing.T, url, token string) (*bufio.Scanner, func()) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	return bufio.NewScanner(resp.Body), func() { resp.Body.Close() }
}

// nextData scans until a data: line arrives.
func nextData(t *testing.T, scanner *bufio.Scanner) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			return strings.TrimPrefix(line, "data: ")
		}
		require.True(t, time.Now().Before(deadline), "no data line before deadline")
	}
	t.Fatalf("stream ended before data line: %v", scanner.Err())
	return ""
}

func publishAfterConnect(broker *notifier.MemoryBroker, event notifier.TransitionEvent) {
	// Subscribe happens during the GET; give the handler a moment to
	// register before publishing.
	time.Sleep(50 * time.Millisecond)
	broker.Publish(event)
}

func TestOwnerStreamReceivesOwnEvents(t *testing.T) {
	srv, broker := newTestServer(t)

	scanner, closeStream := openStream(t, srv.URL+"/events", "alice-token")
	defer closeStream()

	go publishAfterConnect(broker, notifier.TransitionEvent{
		ApplicationID: "app-1", Owner: "0xalice", OldStatus: "draft", NewStatus: "pending",
		Actor: "0xalice", At: time.Now(),
	})

	data := nextData(t, scanner)
	assert.Contains(t, data, `"application_id":"app-1"`)
	assert.Contains(t, data, `"new_status":"pending"`)
}

func TestOwnerStreamFiltersOtherOwners(t *testing.T) {
	srv, broker := newTestServer(t)

	scanner, closeStream := openStream(t, srv.URL+"/events", "alice-token")
	defer closeStream()

	go func() {
		publishAfterConnect(broker, notifier.TransitionEvent{
			ApplicationID: "app-2", Owner: "0xbob", NewStatus: "approved", At: time.Now(),
		})
		broker.Publish(notifier.TransitionEvent{
			ApplicationID: "app-1", Owner: "0xalice", NewStatus: "pending", At: time.Now(),
		})
	}()

	// The first data line must already be alice's event; bob's was filtered.
	data := nextData(t, scanner)
	assert.Contains(t, data, `"application_id":"app-1"`)
}

func TestAdminStreamRequiresAdmin(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/admin/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer alice-token")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminStreamSeesAllOwners(t *testing.T) {
	srv, broker := newTestServer(t)

	scanner, closeStream := openStream(t, srv.URL+"/admin/events", "admin-token")
	defer closeStream()

	go publishAfterConnect(broker, notifier.TransitionEvent{
		ApplicationID: "app-2", Owner: "0xbob", NewStatus: "in-review", At: time.Now(),
	})

	data := nextData(t, scanner)
	assert.Contains(t, data, `"application_id":"app-2"`)
}

func TestStreamRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
