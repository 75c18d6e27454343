package client

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sseHandler streams the given frames and then blocks until the client
// disconnects. Each frame is already SSE-framed text.
func sseHandler(t *testing.T, frames <-chan string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case frame, open := <-frames:
				if !open {
					return
				}
				fmt.Fprint(w, frame)
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
}

func TestSubscribeAppliesStreamedSnapshots(t *testing.T) {
	frames := make(chan string, 8)
	c, _ := newTestClient(t, sseHandler(t, frames))

	r := NewReconciler(c)
	defer r.Close()
	require.NoError(t, r.Subscribe(context.Background(), 11))

	frames <- "retry: 3000\n\n"
	frames <- ": ping\n\n"
	frames <- "data: {\"org_id\":\"11\",\"status\":\"provisioning\"}\n\n"

	assert.Eventually(t, func() bool {
		snap, ok := r.Cached(11)
		return ok && snap.Status == "provisioning"
	}, 2*time.Second, 10*time.Millisecond)

	frames <- "data: {\"org_id\":\"11\",\"status\":\"active\"}\n\n"
	assert.Eventually(t, func() bool {
		snap, _ := r.Cached(11)
		return snap != nil && snap.Status == "active"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMalformedStreamEventIsDropped(t *testing.T) {
	frames := make(chan string, 8)
	c, _ := newTestClient(t, sseHandler(t, frames))

	r := NewReconciler(c)
	defer r.Close()
	require.NoError(t, r.Subscribe(context.Background(), 12))

	frames <- "data: {not json at all\n\n"
	frames <- "data: {\"org_id\":\"12\",\"status\":\"running\"}\n\n"

	assert.Eventually(t, func() bool {
		snap, ok := r.Cached(12)
		return ok && snap.Status == "running"
	}, 2*time.Second, 10*time.Millisecond)

	// The malformed event never produced an entry of its own.
	snap, _ := r.Cached(12)
	assert.Equal(t, "12", snap.OrgID)
}

func TestSubscribeRejectionSurfacesError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	demoted := false
	c.SetUnauthorizedObserver(func() { demoted = true })

	r := NewReconciler(c)
	err := r.Subscribe(context.Background(), 13)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.True(t, demoted, "a rejected stream is still a 401 observation")
}

func TestStoppedSubscriptionNeverConnects(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))

	r := NewReconciler(c)
	sub := newSubscription(r, 21)
	sub.stop()

	// A teardown that raced the setup must not open the stream at all.
	require.NoError(t, sub.start(context.Background()))
	assert.Equal(t, int32(0), calls.Load())
}

func TestCloseStopsEventApplication(t *testing.T) {
	frames := make(chan string, 8)
	c, _ := newTestClient(t, sseHandler(t, frames))

	r := NewReconciler(c)
	require.NoError(t, r.Subscribe(context.Background(), 14))

	frames <- "data: {\"org_id\":\"14\",\"status\":\"running\"}\n\n"
	assert.Eventually(t, func() bool {
		_, ok := r.Cached(14)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	r.Close()
	frames <- "data: {\"org_id\":\"14\",\"status\":\"stopped\"}\n\n"

	time.Sleep(100 * time.Millisecond)
	snap, _ := r.Cached(14)
	assert.Equal(t, "running", snap.Status, "events after Close must not land")
}
