package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// InstanceSnapshot is one full status observation for an org's instance.
// Snapshots always replace each other outright; fields are never merged.
type InstanceSnapshot struct {
	ID             string    `json:"id"`
	OrgID          string    `json:"org_id"`
	Status         string    `json:"status"`
	Tier           string    `json:"tier"`
	DesiredVersion string    `json:"desired_version"`
	CurrentVersion string    `json:"current_version"`
	PlanID         string    `json:"plan_id"`
	PriceID        string    `json:"price_id"`
	LaunchURL      string    `json:"launch_url"`
	LastError      string    `json:"last_error"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ActionError reports a failed lifecycle action by name
type ActionError struct {
	Action  string
	Message string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s failed: %s", e.Action, e.Message)
}

// Reconciler owns the per-organization instance status cache. It is the sole
// writer: fetches, pushes, and action refetches all land here, and consumers
// only read through Cached.
type Reconciler struct {
	client *Client

	mu       sync.RWMutex
	cache    map[int64]*InstanceSnapshot
	pushSeq  map[int64]uint64
	inFlight map[int64]string
	sub      *subscription
}

// NewReconciler creates a reconciler on the given client
func NewReconciler(client *Client) *Reconciler {
	return &Reconciler{
		client:   client,
		cache:    make(map[int64]*InstanceSnapshot),
		pushSeq:  make(map[int64]uint64),
		inFlight: make(map[int64]string),
	}
}

// Cached returns the last applied snapshot for an org
func (r *Reconciler) Cached(orgID int64) (*InstanceSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.cache[orgID]
	return snap, ok
}

// apply replaces the org's cache entry and bumps its sequence
func (r *Reconciler) apply(orgID int64, snap *InstanceSnapshot) {
	r.mu.Lock()
	r.cache[orgID] = snap
	r.pushSeq[orgID]++
	r.mu.Unlock()
}

func (r *Reconciler) seq(orgID int64) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pushSeq[orgID]
}

// missingSnapshot is the synthetic stand-in for a 404 status fetch
func missingSnapshot(orgID int64) *InstanceSnapshot {
	return &InstanceSnapshot{
		OrgID:  strconv.FormatInt(orgID, 10),
		Status: "missing",
	}
}

// FetchStatus fetches the instance snapshot and updates the cache. A 404 is
// remapped to a synthetic missing snapshot, never an error. Other failures
// propagate and leave the previous cached value in place. A fetch that
// completes after a newer push arrived is discarded.
func (r *Reconciler) FetchStatus(ctx context.Context, orgID int64) (*InstanceSnapshot, error) {
	seqBefore := r.seq(orgID)

	query := url.Values{"org_id": {strconv.FormatInt(orgID, 10)}}
	var snap InstanceSnapshot
	err := r.client.do(ctx, http.MethodGet, "/user/instance", query, nil, &snap)

	if IsNotFound(err) {
		if r.seq(orgID) != seqBefore {
			cached, _ := r.Cached(orgID)
			return cached, nil
		}
		missing := missingSnapshot(orgID)
		r.apply(orgID, missing)
		return missing, nil
	}
	if err != nil {
		return nil, err
	}

	// A push applied while this fetch was in flight is newer; keep it.
	if r.seq(orgID) != seqBefore {
		cached, _ := r.Cached(orgID)
		return cached, nil
	}

	r.apply(orgID, &snap)
	return &snap, nil
}

// TriggerAction posts a lifecycle action and, on success, always refetches
// the status rather than trusting the action response body. On failure the
// cache is untouched and an *ActionError is returned.
func (r *Reconciler) TriggerAction(ctx context.Context, action string, orgID int64, payload interface{}) error {
	r.mu.Lock()
	r.inFlight[orgID] = action
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.inFlight, orgID)
		r.mu.Unlock()
	}()

	query := url.Values{"org_id": {strconv.FormatInt(orgID, 10)}}
	if payload == nil {
		payload = struct{}{}
	}
	err := r.client.do(ctx, http.MethodPost, "/user/instance/"+action, query, payload, nil)
	if err != nil {
		return &ActionError{Action: action, Message: err.Error()}
	}

	if _, err := r.FetchStatus(ctx, orgID); err != nil {
		return &ActionError{Action: action, Message: err.Error()}
	}
	return nil
}

// ActionInFlight reports whether an action is currently running for the org
func (r *Reconciler) ActionInFlight(orgID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.inFlight[orgID]
	return ok
}

// Transitioning reports the busy overlay for the org's cached snapshot
func (r *Reconciler) Transitioning(orgID int64) bool {
	snap, ok := r.Cached(orgID)
	if !ok {
		return r.ActionInFlight(orgID)
	}
	return Transitioning(snap.Status, r.ActionInFlight(orgID))
}

// Subscribe opens the SSE stream for an org. Any previous subscription is
// torn down first; a late event from it can no longer touch the cache.
func (r *Reconciler) Subscribe(ctx context.Context, orgID int64) error {
	r.mu.Lock()
	if r.sub != nil {
		r.sub.stop()
	}
	sub := newSubscription(r, orgID)
	r.sub = sub
	r.mu.Unlock()

	return sub.start(ctx)
}

// Close tears down the active subscription, if any
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != nil {
		r.sub.stop()
		r.sub = nil
	}
}

// applyPush applies a pushed snapshot if the subscription is still current.
// This guards both teardown races and cross-org leakage after a switch.
func (r *Reconciler) applyPush(sub *subscription, snap *InstanceSnapshot) {
	r.mu.Lock()
	if r.sub != sub || sub.stopped() {
		r.mu.Unlock()
		return
	}
	r.cache[sub.orgID] = snap
	r.pushSeq[sub.orgID]++
	r.mu.Unlock()
}
