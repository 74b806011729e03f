package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "u1", "ADMIN", "admin@cinema.com", 15)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), tok.Exp, 5*time.Second)

	claims, err := ParseAccessToken("s3cret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "ADMIN", claims.Role)
	assert.Equal(t, "admin@cinema.com", claims.Email)
}

func TestParseAccessToken_Rejects(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "u1", "ADMIN", "", 15)
	require.NoError(t, err)
	_, err = ParseAccessToken("other", tok.Token)
	assert.Error(t, err)

	expired, err := NewAccessToken("s3cret", "u1", "ADMIN", "", -1)
	require.NoError(t, err)
	_, err = ParseAccessToken("s3cret", expired.Token)
	assert.Error(t, err)

	_, err = ParseAccessToken("s3cret", "not-a-token")
	assert.Error(t, err)
}
