package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modestwear/internal/kv"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newManager(t *testing.T) *Manager {
	t.Helper()
	store, err := kv.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	m, err := NewManager(Config{Secret: testSecret, AccessTTL: 15 * time.Minute, RefreshTTL: 7 * 24 * time.Hour}, store)
	require.NoError(t, err)
	return m
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager(Config{}, nil)
	assert.Error(t, err)
}

func TestIssueAndParse(t *testing.T) {
	m := newManager(t)
	pair, err := m.Issue("usr-1", "a@example.com", true)
	require.NoError(t, err)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	c, err := m.Parse(pair.AccessToken, Access)
	require.NoError(t, err)
	assert.Equal(t, "usr-1", c.Subject)
	assert.Equal(t, "a@example.com", c.Email)
	assert.True(t, c.Staff)
	assert.NotEmpty(t, c.ID)

	_, err = m.Parse(pair.RefreshToken, Access)
	assert.ErrorIs(t, err, ErrWrongType)
	_, err = m.Parse(pair.AccessToken, Refresh)
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestParseRejectsTampered(t *testing.T) {
	m := newManager(t)
	pair, err := m.Issue("usr-1", "a@example.com", false)
	require.NoError(t, err)

	_, err = m.Parse(pair.AccessToken+"x", Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = m.Parse("not-a-token", Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	m := newManager(t)
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Type: Access,
		RegisteredClaims: jwt.RegisteredClaims{
			ID: "x", Subject: "usr-1", Issuer: "modestwear",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Parse(s, Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredToken(t *testing.T) {
	m := newManager(t)
	base := time.Now()
	m.now = func() time.Time { return base }
	pair, err := m.Issue("usr-1", "a@example.com", false)
	require.NoError(t, err)

	m.now = func() time.Time { return base.Add(16 * time.Minute) }
	_, err = m.Parse(pair.AccessToken, Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = m.Parse(pair.RefreshToken, Refresh)
	assert.NoError(t, err)
}

func TestRotateRevokesOldRefresh(t *testing.T) {
	m := newManager(t)
	pair, err := m.Issue("usr-1", "a@example.com", false)
	require.NoError(t, err)

	c, err := m.Rotate(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "usr-1", c.Subject)

	_, err = m.Rotate(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrRevoked)
	// The access token from the same pair stays valid until it expires.
	_, err = m.Parse(pair.AccessToken, Access)
	assert.NoError(t, err)
}

func TestRevoke(t *testing.T) {
	m := newManager(t)
	pair, err := m.Issue("usr-1", "a@example.com", false)
	require.NoError(t, err)
	c, err := m.Parse(pair.AccessToken, Access)
	require.NoError(t, err)

	require.NoError(t, m.Revoke(c, "logout"))
	_, err = m.Parse(pair.AccessToken, Access)
	assert.True(t, errors.Is(err, ErrRevoked))
}

func TestRevokeAll(t *testing.T) {
	m := newManager(t)
	first, err := m.Issue("usr-1", "a@example.com", false)
	require.NoError(t, err)
	second, err := m.Issue("usr-1", "a@example.com", false)
	require.NoError(t, err)
	other, err := m.Issue("usr-2", "b@example.com", false)
	require.NoError(t, err)

	n, err := m.RevokeAll("usr-1", "password_change")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	for _, tok := range []string{first.AccessToken, second.AccessToken} {
		_, err := m.Parse(tok, Access)
		assert.ErrorIs(t, err, ErrRevoked)
	}
	_, err = m.Parse(first.RefreshToken, Refresh)
	assert.ErrorIs(t, err, ErrRevoked)

	_, err = m.Parse(other.AccessToken, Access)
	assert.NoError(t, err)

	n, err = m.RevokeAll("usr-1", "password_change")
	require.NoError(t, err)
	assert.Zero(t, n)
}
