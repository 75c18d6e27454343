package client

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeNamespace(t *testing.T) {
	cases := map[string]string{
		"My Team":        "myteam",
		"ACME_Corp!":     "acmecorp",
		"già-pronto":     "gi-pronto",
		"a b c":          "abc",
		"ok-name-42":     "ok-name-42",
		"ALL CAPS HERE":  "allcapshere",
		"":               "",
		"---":            "---",
		"tabs\tand\nnew": "tabsandnew",
	}

	for input, want := range cases {
		assert.Equal(t, want, SanitizeNamespace(input), "input %q", input)
	}
}

func TestShortNamespaceNeverHitsNetwork(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]bool{"available": true})
	}))

	f := NewOnboardingFlow(c, "railzway.com")
	f.SetDebounce(10 * time.Millisecond)

	f.SetNamespace("ab")
	assert.Equal(t, AvailabilityTooShort, f.Availability())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestNamespaceCheckDebouncesAndAppendsDomain(t *testing.T) {
	var calls atomic.Int32
	var lastQuery atomic.Value
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		lastQuery.Store(r.URL.Query().Get("namespace"))
		json.NewEncoder(w).Encode(map[string]bool{"available": true})
	}))

	f := NewOnboardingFlow(c, "railzway.com")
	f.SetDebounce(40 * time.Millisecond)

	// Rapid typing: only the settled value should reach the server.
	f.SetNamespace("acm")
	f.SetNamespace("acme")
	f.SetNamespace("acme-team")
	assert.Equal(t, AvailabilityChecking, f.Availability())

	assert.Eventually(t, func() bool {
		return f.Availability() == AvailabilityAvailable
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "acme-team.railzway.com", lastQuery.Load())
}

func TestRetypingEquivalentValueStillChecks(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]bool{"available": true})
	}))

	f := NewOnboardingFlow(c, "railzway.com")
	f.SetDebounce(50 * time.Millisecond)

	// Input that sanitizes to the current value while a check is pending
	// must re-arm the timer, not leave the flow stuck in checking.
	f.SetNamespace("acme")
	time.Sleep(10 * time.Millisecond)
	f.SetNamespace("Acme!")
	assert.Equal(t, AvailabilityChecking, f.Availability())

	assert.Eventually(t, func() bool {
		return f.Availability() == AvailabilityAvailable
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNamespaceTakenAndErrorStates(t *testing.T) {
	var failing atomic.Bool
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]bool{"available": false})
	}))

	f := NewOnboardingFlow(c, "railzway.com")
	f.SetDebounce(10 * time.Millisecond)

	f.SetNamespace("taken-name")
	assert.Eventually(t, func() bool {
		return f.Availability() == AvailabilityTaken
	}, 2*time.Second, 10*time.Millisecond)

	failing.Store(true)
	f.SetNamespace("other-name")
	assert.Eventually(t, func() bool {
		return f.Availability() == AvailabilityError
	}, 2*time.Second, 10*time.Millisecond)
}

func catalogHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/prices":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{
					{"id": "price_pro", "name": "Pro", "code": "pro", "active": true},
					{"id": "price_legacy", "name": "Legacy", "code": "legacy", "active": false},
					{"id": "price_starter", "name": "Starter", "code": "starter", "active": true},
				},
			})
		case "/api/price_amounts":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{
					{"price_id": "price_pro", "unit_amount_cents": 4900},
					{"price_id": "price_starter", "unit_amount_cents": 900},
					{"price_id": "price_legacy", "unit_amount_cents": 100},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func TestLoadCatalogJoinsSortsAndDefaults(t *testing.T) {
	c, _ := newTestClient(t, catalogHandler(t))

	f := NewOnboardingFlow(c, "railzway.com")
	options, err := f.LoadCatalog(context.Background())
	require.NoError(t, err)

	require.Len(t, options, 2, "inactive prices are excluded")
	assert.Equal(t, "price_starter", options[0].PriceID)
	assert.Equal(t, int64(900), options[0].AmountCents)
	assert.Equal(t, "price_pro", options[1].PriceID)

	selected, ok := f.SelectedPlan()
	require.True(t, ok)
	assert.Equal(t, "price_starter", selected.PriceID, "cheapest plan is the default")

	require.NoError(t, f.SelectPlan("price_pro"))
	assert.Error(t, f.SelectPlan("price_legacy"), "inactive plans are not selectable")
}

func TestNextRequiresAvailableNamespaceAndName(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"available": true})
	}))

	f := NewOnboardingFlow(c, "railzway.com")
	f.SetDebounce(10 * time.Millisecond)
	assert.Equal(t, StepNamespace, f.Step())

	assert.Error(t, f.Next(), "unknown availability blocks the wizard")

	f.SetNamespace("acme")
	require.Eventually(t, func() bool {
		return f.Availability() == AvailabilityAvailable
	}, 2*time.Second, 10*time.Millisecond)

	assert.Error(t, f.Next(), "a display name is still required")

	f.SetOrgName("Acme Inc")
	require.NoError(t, f.Next())
	assert.Equal(t, StepPlan, f.Step())

	f.Back()
	assert.Equal(t, StepNamespace, f.Step())
	f.Back()
	assert.Equal(t, StepNamespace, f.Step(), "back never underflows")
}

func submitReadyFlow(t *testing.T, c *Client) *OnboardingFlow {
	t.Helper()
	f := NewOnboardingFlow(c, "railzway.com")
	f.SetDebounce(10 * time.Millisecond)
	f.SetOrgName("Acme Inc")
	f.SetNamespace("acme")
	require.Eventually(t, func() bool {
		return f.Availability() == AvailabilityAvailable
	}, 2*time.Second, 10*time.Millisecond)

	_, err := f.LoadCatalog(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.Next())
	return f
}

func TestSubmitAcceptsObjectOrListPayload(t *testing.T) {
	for name, data := range map[string]string{
		"object": `{"id":"1","slug":"acme"}`,
		"list":   `[{"id":"1","slug":"acme"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/user/onboarding/check-org-name" {
					json.NewEncoder(w).Encode(map[string]bool{"available": true})
					return
				}
				if r.URL.Path == "/user/onboarding/initialize" {
					var body map[string]string
					require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
					assert.Equal(t, "Starter", body["plan_id"])
					assert.Equal(t, "price_starter", body["price_id"])
					assert.Equal(t, "Acme Inc", body["org_name"])
					assert.Equal(t, "acme", body["org_namespace"])

					w.WriteHeader(http.StatusCreated)
					w.Write([]byte(`{"status":"organization_initializing","data":` + data + `}`))
					return
				}
				catalogHandler(t).ServeHTTP(w, r)
			}))

			f := submitReadyFlow(t, c)
			path, err := f.Submit(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "/orgs/acme", path)
		})
	}
}

func TestSubmitFailureIsGeneric(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/user/onboarding/check-org-name" {
			json.NewEncoder(w).Encode(map[string]bool{"available": true})
			return
		}
		if r.URL.Path == "/user/onboarding/initialize" {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"pq: duplicate key value violates unique constraint"}`))
			return
		}
		catalogHandler(t).ServeHTTP(w, r)
	}))

	f := submitReadyFlow(t, c)
	_, err := f.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "we could not provision your organization, please try again", err.Error())
	assert.NotContains(t, err.Error(), "duplicate key", "backend details never leak to the user")
}
