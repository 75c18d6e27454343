package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// Onboarding wizard steps
const (
	StepNamespace = 1
	StepPlan      = 2
)

// Availability is the namespace check result
type Availability string

const (
	AvailabilityUnknown   Availability = "unknown"
	AvailabilityTooShort  Availability = "too_short"
	AvailabilityChecking  Availability = "checking"
	AvailabilityAvailable Availability = "available"
	AvailabilityTaken     Availability = "taken"
	AvailabilityError     Availability = "error"
)

const minNamespaceLength = 3

var namespaceSanitizer = regexp.MustCompile("[^a-z0-9-]")

// SanitizeNamespace lowercases the input and strips everything outside
// the allowed namespace alphabet.
func SanitizeNamespace(raw string) string {
	return namespaceSanitizer.ReplaceAllString(strings.ToLower(raw), "")
}

// PlanOption is one selectable plan: a catalog price joined to its amount
type PlanOption struct {
	PriceID     string
	Name        string
	Code        string
	AmountCents int64
}

// OnboardingFlow is the two-step organization creation wizard: namespace
// first, plan second. Steps only advance when the current one is valid;
// going back is always allowed.
type OnboardingFlow struct {
	client     *Client
	rootDomain string

	// debounce is the idle period before an availability check fires
	debounce time.Duration

	mu           sync.Mutex
	step         int
	orgName      string
	namespace    string
	availability Availability
	timer        *time.Timer
	plans        []PlanOption
	selected     string
}

// NewOnboardingFlow creates a flow checking namespaces under rootDomain
func NewOnboardingFlow(client *Client, rootDomain string) *OnboardingFlow {
	return &OnboardingFlow{
		client:       client,
		rootDomain:   strings.Trim(strings.TrimSpace(rootDomain), "."),
		debounce:     400 * time.Millisecond,
		step:         StepNamespace,
		availability: AvailabilityUnknown,
	}
}

// SetDebounce overrides the availability check idle period
func (f *OnboardingFlow) SetDebounce(d time.Duration) {
	f.mu.Lock()
	f.debounce = d
	f.mu.Unlock()
}

// Step returns the current wizard step
func (f *OnboardingFlow) Step() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// SetOrgName stages the organization display name
func (f *OnboardingFlow) SetOrgName(name string) {
	f.mu.Lock()
	f.orgName = strings.TrimSpace(name)
	f.mu.Unlock()
}

// Namespace returns the current sanitized namespace
func (f *OnboardingFlow) Namespace() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.namespace
}

// Availability returns the current namespace check state
func (f *OnboardingFlow) Availability() Availability {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.availability
}

// SetNamespace sanitizes the input and schedules an availability check once
// the value has been stable for the debounce period. Inputs below the
// minimum length never reach the network.
func (f *OnboardingFlow) SetNamespace(raw string) {
	sanitized := SanitizeNamespace(raw)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}

	// A pending check must be re-armed even for an unchanged value, or the
	// flow would sit in checking with no timer left to fire.
	if sanitized == f.namespace &&
		f.availability != AvailabilityUnknown && f.availability != AvailabilityChecking {
		return
	}
	f.namespace = sanitized

	if len(sanitized) < minNamespaceLength {
		f.availability = AvailabilityTooShort
		return
	}

	f.availability = AvailabilityChecking
	pending := sanitized
	f.timer = time.AfterFunc(f.debounce, func() {
		f.checkAvailability(pending)
	})
}

// checkAvailability queries the server for the namespace, with the root
// domain suffix appended. Results for stale values are discarded.
func (f *OnboardingFlow) checkAvailability(namespace string) {
	candidate := namespace
	if f.rootDomain != "" {
		candidate = namespace + "." + f.rootDomain
	}

	query := url.Values{"namespace": {candidate}}
	var resp struct {
		Available bool `json:"available"`
	}
	err := f.client.do(context.Background(), http.MethodGet, "/user/onboarding/check-org-name", query, nil, &resp)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.namespace != namespace {
		return
	}

	switch {
	case err != nil:
		f.availability = AvailabilityError
	case resp.Available:
		f.availability = AvailabilityAvailable
	default:
		f.availability = AvailabilityTaken
	}
}

// LoadCatalog fetches prices and amounts and joins them into plan options,
// sorted by amount ascending. The cheapest active plan becomes the default
// selection.
func (f *OnboardingFlow) LoadCatalog(ctx context.Context) ([]PlanOption, error) {
	var prices envelope[[]struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Code   string `json:"code"`
		Active bool   `json:"active"`
	}]
	if err := f.client.do(ctx, http.MethodGet, "/api/prices", nil, nil, &prices); err != nil {
		return nil, err
	}

	var amounts envelope[[]struct {
		PriceID         string `json:"price_id"`
		UnitAmountCents int64  `json:"unit_amount_cents"`
	}]
	if err := f.client.do(ctx, http.MethodGet, "/api/price_amounts", nil, nil, &amounts); err != nil {
		return nil, err
	}

	amountByPrice := make(map[string]int64, len(amounts.Data))
	for _, amount := range amounts.Data {
		amountByPrice[amount.PriceID] = amount.UnitAmountCents
	}

	options := make([]PlanOption, 0, len(prices.Data))
	for _, price := range prices.Data {
		if !price.Active {
			continue
		}
		options = append(options, PlanOption{
			PriceID:     price.ID,
			Name:        price.Name,
			Code:        price.Code,
			AmountCents: amountByPrice[price.ID],
		})
	}

	sort.Slice(options, func(i, j int) bool {
		return options[i].AmountCents < options[j].AmountCents
	})

	f.mu.Lock()
	f.plans = options
	if f.selected == "" && len(options) > 0 {
		f.selected = options[0].PriceID
	}
	f.mu.Unlock()

	return options, nil
}

// SelectPlan picks a plan from the loaded catalog
func (f *OnboardingFlow) SelectPlan(priceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, plan := range f.plans {
		if plan.PriceID == priceID {
			f.selected = priceID
			return nil
		}
	}
	return fmt.Errorf("unknown plan %q", priceID)
}

// SelectedPlan returns the currently selected plan
func (f *OnboardingFlow) SelectedPlan() (PlanOption, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, plan := range f.plans {
		if plan.PriceID == f.selected {
			return plan, true
		}
	}
	return PlanOption{}, false
}

// Next advances the wizard when the current step is valid
func (f *OnboardingFlow) Next() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.step {
	case StepNamespace:
		if f.availability != AvailabilityAvailable {
			return fmt.Errorf("namespace is not confirmed available")
		}
		if f.orgName == "" {
			return fmt.Errorf("organization name is required")
		}
		f.step = StepPlan
		return nil
	default:
		return fmt.Errorf("no further step")
	}
}

// Back returns to the previous step
func (f *OnboardingFlow) Back() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step > StepNamespace {
		f.step--
	}
}

// Submit creates the organization and returns the console destination path
// for it. The created org is accepted as either a single object or a
// one-element list.
func (f *OnboardingFlow) Submit(ctx context.Context) (string, error) {
	f.mu.Lock()
	plan, ok := f.findSelected()
	orgName := f.orgName
	namespace := f.namespace
	f.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("no plan selected")
	}
	if orgName == "" || len(namespace) < minNamespaceLength {
		return "", fmt.Errorf("onboarding form is incomplete")
	}

	payload := map[string]string{
		"plan_id":       plan.Name,
		"price_id":      plan.PriceID,
		"org_name":      orgName,
		"org_namespace": namespace,
	}

	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	if err := f.client.do(ctx, http.MethodPost, "/user/onboarding/initialize", nil, payload, &resp); err != nil {
		return "", fmt.Errorf("we could not provision your organization, please try again")
	}

	slug, err := extractSlug(resp.Data)
	if err != nil {
		return "", fmt.Errorf("we could not provision your organization, please try again")
	}
	return "/orgs/" + slug, nil
}

// findSelected must be called with the lock held
func (f *OnboardingFlow) findSelected() (PlanOption, bool) {
	for _, plan := range f.plans {
		if plan.PriceID == f.selected {
			return plan, true
		}
	}
	return PlanOption{}, false
}

// extractSlug pulls the slug from a created-org payload shaped as either
// an object or a one-element list
func extractSlug(raw json.RawMessage) (string, error) {
	type orgPayload struct {
		Slug string `json:"slug"`
	}

	var single orgPayload
	if err := json.Unmarshal(raw, &single); err == nil && single.Slug != "" {
		return single.Slug, nil
	}

	var list []orgPayload
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 && list[0].Slug != "" {
		return list[0].Slug, nil
	}

	return "", fmt.Errorf("created organization payload has no slug")
}
