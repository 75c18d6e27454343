package client

import (
	"context"
	"net/http"
	"sync"
)

// Profile is the account settings payload
type Profile struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ProfileForm tracks edits to the user's display name against the last
// server-confirmed values.
type ProfileForm struct {
	client *Client

	mu        sync.Mutex
	baseline  Profile
	firstName string
	lastName  string
	loaded    bool
}

// NewProfileForm creates a profile form on the given client
func NewProfileForm(client *Client) *ProfileForm {
	return &ProfileForm{client: client}
}

// Load fetches the profile and resets the form to it
func (f *ProfileForm) Load(ctx context.Context) (Profile, error) {
	var resp envelope[Profile]
	if err := f.client.do(ctx, http.MethodGet, "/user/profile", nil, nil, &resp); err != nil {
		return Profile{}, err
	}

	f.mu.Lock()
	f.baseline = resp.Data
	f.firstName = resp.Data.FirstName
	f.lastName = resp.Data.LastName
	f.loaded = true
	f.mu.Unlock()

	return resp.Data, nil
}

// SetFirstName stages a first name edit
func (f *ProfileForm) SetFirstName(v string) {
	f.mu.Lock()
	f.firstName = v
	f.mu.Unlock()
}

// SetLastName stages a last name edit
func (f *ProfileForm) SetLastName(v string) {
	f.mu.Lock()
	f.lastName = v
	f.mu.Unlock()
}

// Dirty reports whether the staged values differ from the server's
func (f *ProfileForm) Dirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded && (f.firstName != f.baseline.FirstName || f.lastName != f.baseline.LastName)
}

// Save writes the name fields when they changed; otherwise it is a no-op.
// The server response becomes the new baseline.
func (f *ProfileForm) Save(ctx context.Context) (Profile, error) {
	f.mu.Lock()
	if !f.loaded || (f.firstName == f.baseline.FirstName && f.lastName == f.baseline.LastName) {
		current := f.baseline
		f.mu.Unlock()
		return current, nil
	}
	payload := map[string]string{
		"first_name": f.firstName,
		"last_name":  f.lastName,
	}
	f.mu.Unlock()

	var resp envelope[Profile]
	if err := f.client.do(ctx, http.MethodPut, "/user/profile", nil, payload, &resp); err != nil {
		return Profile{}, err
	}

	f.mu.Lock()
	f.baseline = resp.Data
	f.firstName = resp.Data.FirstName
	f.lastName = resp.Data.LastName
	f.mu.Unlock()

	return resp.Data, nil
}
