package client

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyAuthenticated(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/session", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"authenticated": true,
			"user_id":       "101",
		})
	}))

	g := NewSessionGate(c)
	assert.Equal(t, SessionChecking, g.State())

	state := g.Verify(context.Background())
	assert.Equal(t, SessionAuthenticated, state)
	assert.Equal(t, SessionAuthenticated, g.State())
	assert.Empty(t, g.ErrMessage())
}

func TestVerifyUnauthenticated(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "no active session"})
	}))

	g := NewSessionGate(c)
	assert.Equal(t, SessionUnauthenticated, g.Verify(context.Background()))
	assert.Empty(t, g.ErrMessage(), "a 401 is a clean answer, not an error")
}

func TestVerifyServerErrorIsRetryable(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"authenticated": true})
	}))

	g := NewSessionGate(c)
	assert.Equal(t, SessionError, g.Verify(context.Background()))
	assert.NotEmpty(t, g.ErrMessage())

	failing.Store(false)
	assert.Equal(t, SessionAuthenticated, g.Retry(context.Background()))
	assert.Empty(t, g.ErrMessage())
}

func TestUnrelatedUnauthorizedDemotesGate(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/session":
			json.NewEncoder(w).Encode(map[string]interface{}{"authenticated": true})
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))

	g := NewSessionGate(c)
	require.Equal(t, SessionAuthenticated, g.Verify(context.Background()))

	// The session expired server-side; the next call, whatever it is,
	// observes the 401 and the gate follows.
	_, err := c.Organizations(context.Background())
	require.Error(t, err)
	assert.Equal(t, SessionUnauthenticated, g.State())
}

func TestCloseDetachesObserver(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/session":
			json.NewEncoder(w).Encode(map[string]interface{}{"authenticated": true})
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))

	g := NewSessionGate(c)
	require.Equal(t, SessionAuthenticated, g.Verify(context.Background()))

	g.Close()
	_, err := c.Organizations(context.Background())
	require.Error(t, err)
	assert.Equal(t, SessionAuthenticated, g.State(), "a closed gate no longer reacts")
}
