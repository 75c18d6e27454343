package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveSnapshot(t *testing.T, ch chan []byte) []byte {
	t.Helper()
	select {
	case payload := <-ch:
		return payload
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestHubDeliversToSubscribers(t *testing.T) {
	h := GetStreamHub()
	h.ResetLastPayload(201)

	ch := h.Subscribe(201)
	defer h.Unsubscribe(201, ch)

	h.Publish(201, []byte(`{"status":"provisioning"}`))
	assert.Equal(t, `{"status":"provisioning"}`, string(receiveSnapshot(t, ch)))
}

func TestHubSuppressesDuplicateSnapshots(t *testing.T) {
	h := GetStreamHub()
	h.ResetLastPayload(202)

	ch := h.Subscribe(202)
	defer h.Unsubscribe(202, ch)

	h.Publish(202, []byte(`{"status":"active"}`))
	receiveSnapshot(t, ch)

	h.Publish(202, []byte(`{"status":"active"}`))
	h.Publish(202, []byte(`{"status":"stopped"}`))

	// The duplicate is swallowed; the next delivery is the changed snapshot.
	assert.Equal(t, `{"status":"stopped"}`, string(receiveSnapshot(t, ch)))
}

func TestHubResetLastPayloadForcesRedelivery(t *testing.T) {
	h := GetStreamHub()
	h.ResetLastPayload(203)

	ch := h.Subscribe(203)
	defer h.Unsubscribe(203, ch)

	h.Publish(203, []byte(`{"status":"running"}`))
	receiveSnapshot(t, ch)

	h.ResetLastPayload(203)
	h.Publish(203, []byte(`{"status":"running"}`))
	assert.Equal(t, `{"status":"running"}`, string(receiveSnapshot(t, ch)))
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	h := GetStreamHub()

	ch := h.Subscribe(204)
	h.Unsubscribe(204, ch)

	_, open := <-ch
	require.False(t, open)

	// Unsubscribing twice is harmless.
	h.Unsubscribe(204, ch)
}

func TestHubSubscribersAreIsolatedByOrg(t *testing.T) {
	h := GetStreamHub()
	h.ResetLastPayload(205)
	h.ResetLastPayload(206)

	chA := h.Subscribe(205)
	chB := h.Subscribe(206)
	defer h.Unsubscribe(205, chA)
	defer h.Unsubscribe(206, chB)

	h.Publish(205, []byte(`{"org_id":"205"}`))
	receiveSnapshot(t, chA)

	select {
	case payload := <-chB:
		t.Fatalf("snapshot leaked across orgs: %s", payload)
	case <-time.After(150 * time.Millisecond):
	}
}
