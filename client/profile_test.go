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

func profileTestHandler(puts *atomic.Int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			puts.Add(1)
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]string{
					"email":      "dev@example.com",
					"first_name": body["first_name"],
					"last_name":  body["last_name"],
				},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{
				"email":      "dev@example.com",
				"first_name": "Ada",
				"last_name":  "Lovelace",
			},
		})
	})
}

func TestProfileSaveIsNoOpWhenClean(t *testing.T) {
	var puts atomic.Int32
	c, _ := newTestClient(t, profileTestHandler(&puts))

	f := NewProfileForm(c)
	profile, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile.FirstName)
	assert.False(t, f.Dirty())

	saved, err := f.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, profile, saved)
	assert.Equal(t, int32(0), puts.Load(), "a clean form never writes")
}

func TestProfileSaveWritesAndRebaselines(t *testing.T) {
	var puts atomic.Int32
	c, _ := newTestClient(t, profileTestHandler(&puts))

	f := NewProfileForm(c)
	_, err := f.Load(context.Background())
	require.NoError(t, err)

	f.SetFirstName("Grace")
	assert.True(t, f.Dirty())

	saved, err := f.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Grace", saved.FirstName)
	assert.Equal(t, "Lovelace", saved.LastName)
	assert.Equal(t, int32(1), puts.Load())

	// The response became the new baseline, so the form is clean again.
	assert.False(t, f.Dirty())
	_, err = f.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), puts.Load())
}

func TestProfileSaveBeforeLoadIsNoOp(t *testing.T) {
	var puts atomic.Int32
	c, _ := newTestClient(t, profileTestHandler(&puts))

	f := NewProfileForm(c)
	f.SetFirstName("Grace")
	assert.False(t, f.Dirty(), "an unloaded form has nothing to compare against")

	_, err := f.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(0), puts.Load())
}
