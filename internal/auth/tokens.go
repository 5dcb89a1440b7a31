// Package auth issues and revokes JWT access/refresh token pairs. Revocation
// state lives in a key-value store with expiry so it disappears together with
// the tokens it covers.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"modestwear/internal/metrics"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevoked      = errors.New("token revoked")
	ErrWrongType    = errors.New("wrong token type")
)

type TokenType string

const (
	Access  TokenType = "access"
	Refresh TokenType = "refresh"
)

const (
	blacklistPrefix  = "blacklisted_token:"
	userTokensPrefix = "user_tokens:"
)

// Claims are carried by both token types.
type Claims struct {
	Email string    `json:"email"`
	Staff bool      `json:"is_staff"`
	Type  TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// Store is the expiring key-value store holding revocation state.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, ttl time.Duration) error
	Delete(key string) error
	Scan(prefix string) (map[string][]byte, error)
}

type Config struct {
	Secret     string        `koanf:"secret" validate:"required,min=32"`
	Issuer     string        `koanf:"issuer"`
	AccessTTL  time.Duration `koanf:"access_ttl" validate:"gt=0"`
	RefreshTTL time.Duration `koanf:"refresh_ttl" validate:"gt=0"`
}

// Pair is what a successful login or refresh returns.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	IssuedAt     int64  `json:"issued_at"`
}

type Manager struct {
	cfg   Config
	store Store
	now   func() time.Time
}

func NewManager(cfg Config, store Store) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: jwt secret is required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "modestwear"
	}
	return &Manager{cfg: cfg, store: store, now: time.Now}, nil
}

// Issue signs a fresh access/refresh pair and indexes both under the user
// so they can be revoked together.
func (m *Manager) Issue(userID, email string, staff bool) (Pair, error) {
	now := m.now()
	access, err := m.sign(userID, email, staff, Access, now, m.cfg.AccessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := m.sign(userID, email, staff, Refresh, now, m.cfg.RefreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(m.cfg.AccessTTL.Seconds()),
		IssuedAt:     now.Unix(),
	}, nil
}

func (m *Manager) sign(userID, email string, staff bool, typ TokenType, now time.Time, ttl time.Duration) (string, error) {
	jti := uuid.NewString()
	exp := now.Add(ttl)
	claims := &Claims{
		Email: email,
		Staff: staff,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    m.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	if err := m.store.Set(userTokensPrefix+userID+":"+jti, []byte(strconv.FormatInt(exp.Unix(), 10)), ttl); err != nil {
		return "", fmt.Errorf("index token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, expiry, type and revocation state.
func (m *Manager) Parse(token string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(m.cfg.Secret), nil
	}, jwt.WithIssuer(m.cfg.Issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.Type != want {
		return nil, ErrWrongType
	}
	revoked, err := m.store.Get(blacklistPrefix + claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked != nil {
		return nil, ErrRevoked
	}
	return claims, nil
}

// Rotate consumes a refresh token: it is revoked and its claims returned so
// the caller can issue a new pair.
func (m *Manager) Rotate(refresh string) (*Claims, error) {
	claims, err := m.Parse(refresh, Refresh)
	if err != nil {
		return nil, err
	}
	if err := m.Revoke(claims, "rotate"); err != nil {
		return nil, err
	}
	return claims, nil
}

// Revoke blacklists one token until it would have expired anyway.
func (m *Manager) Revoke(c *Claims, reason string) error {
	var exp time.Time
	if c.ExpiresAt != nil {
		exp = c.ExpiresAt.Time
	}
	if err := m.blacklist(c.ID, exp); err != nil {
		return err
	}
	_ = m.store.Delete(userTokensPrefix + c.Subject + ":" + c.ID)
	metrics.TokensRevoked.WithLabelValues(reason).Inc()
	return nil
}

// RevokeAll blacklists every outstanding token of a user and returns how
// many were revoked.
func (m *Manager) RevokeAll(userID, reason string) (int, error) {
	prefix := userTokensPrefix + userID + ":"
	tokens, err := m.store.Scan(prefix)
	if err != nil {
		return 0, fmt.Errorf("list tokens: %w", err)
	}
	n := 0
	for key, raw := range tokens {
		jti := strings.TrimPrefix(key, prefix)
		secs, _ := strconv.ParseInt(string(raw), 10, 64)
		if err := m.blacklist(jti, time.Unix(secs, 0)); err != nil {
			return n, err
		}
		_ = m.store.Delete(key)
		n++
	}
	metrics.TokensRevoked.WithLabelValues(reason).Add(float64(n))
	return n, nil
}

func (m *Manager) blacklist(jti string, exp time.Time) error {
	ttl := exp.Sub(m.now())
	if exp.IsZero() || ttl <= 0 {
		ttl = m.cfg.RefreshTTL
	}
	return m.store.Set(blacklistPrefix+jti, []byte("1"), ttl)
}
