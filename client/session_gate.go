package client

import (
	"context"
	"net/http"
	"sync"
)

// SessionState is the gate's view of the user's session
type SessionState string

const (
	SessionChecking        SessionState = "checking"
	SessionAuthenticated   SessionState = "authenticated"
	SessionUnauthenticated SessionState = "unauthenticated"
	SessionError           SessionState = "error"
)

// SessionGate tracks whether the user has a valid console session. It starts
// in checking and settles after Verify. Independently of Verify, any 401
// observed on any SDK call demotes the gate to unauthenticated.
type SessionGate struct {
	client *Client

	mu     sync.RWMutex
	state  SessionState
	errMsg string
	closed bool
}

// NewSessionGate creates a gate bound to the client's 401 observer
func NewSessionGate(client *Client) *SessionGate {
	g := &SessionGate{
		client: client,
		state:  SessionChecking,
	}
	client.SetUnauthorizedObserver(g.demote)
	return g
}

// demote flips the gate to unauthenticated, pre-empting whatever error
// handling the originating call does with its own 401.
func (g *SessionGate) demote() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.state = SessionUnauthenticated
	g.errMsg = ""
}

// Verify checks the session against the server
func (g *SessionGate) Verify(ctx context.Context) SessionState {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return g.state
	}
	g.state = SessionChecking
	g.errMsg = ""
	g.mu.Unlock()

	var resp struct {
		Authenticated bool  `json:"authenticated"`
		UserID        int64 `json:"user_id,string"`
	}
	err := g.client.do(ctx, http.MethodGet, "/auth/session", nil, nil, &resp)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return g.state
	}

	switch {
	case err == nil && resp.Authenticated:
		g.state = SessionAuthenticated
	case isUnauthorized(err):
		g.state = SessionUnauthenticated
	case err != nil:
		g.state = SessionError
		g.errMsg = err.Error()
	default:
		g.state = SessionUnauthenticated
	}
	return g.state
}

// Retry re-runs the session check after an error
func (g *SessionGate) Retry(ctx context.Context) SessionState {
	return g.Verify(ctx)
}

// State returns the current gate state
func (g *SessionGate) State() SessionState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// ErrMessage returns the surfaced message for the error state
func (g *SessionGate) ErrMessage() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.errMsg
}

// Close detaches the gate from the client. Responses landing after Close
// no longer change the state.
func (g *SessionGate) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.client.SetUnauthorizedObserver(nil)
}

func isUnauthorized(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusUnauthorized
}
