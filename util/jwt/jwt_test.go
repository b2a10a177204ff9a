package jwt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIssueParseRoundTrip(t *testing.T) {
	tok, err := Issue("secret", 42, 1)
	require.NoError(t, err)

	claims, err := ParseAuth(tok, "secret")
	require.NoError(t, err)

	uid, err := UserID(claims)
	require.NoError(t, err)
	require.Equal(t, int64(42), uid)
}

func TestParseAuth_BearerPrefix(t *testing.T) {
	tok, err := Issue("secret", 7, 1)
	require.NoError(t, err)

	claims, err := ParseAuth("Bearer "+tok, "secret")
	require.NoError(t, err)
	uid, err := UserID(claims)
	require.NoError(t, err)
	require.Equal(t, int64(7), uid)
}

func TestParseAuth_WrongSecret(t *testing.T) {
	tok, err := Issue("secret", 7, 1)
	require.NoError(t, err)

	_, err = ParseAuth(tok, "other")
	require.Error(t, err)
}

func TestParseAuth_Expired(t *testing.T) {
	tok, err := Issue("secret", 7, -1)
	require.NoError(t, err)

	_, err = ParseAuth(tok, "secret")
	require.Error(t, err)
}

func TestParseAuth_Empty(t *testing.T) {
	_, err := ParseAuth("", "secret")
	require.Error(t, err)
	_, err = ParseAuth("Bearer ", "secret")
	require.Error(t, err)
}
