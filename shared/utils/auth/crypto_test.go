package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenHashRoundTrip(t *testing.T) {
	hash, err := HashToken("super-secret-admin-token")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.True(t, CheckTokenHash("super-secret-admin-token", hash))
	assert.False(t, CheckTokenHash("wrong-token", hash))
	assert.False(t, CheckTokenHash("super-secret-admin-token", "not-a-bcrypt-hash"))
}
