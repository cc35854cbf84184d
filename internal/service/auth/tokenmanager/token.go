package tokenmanager

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/earlypulse/internal/apperrors"
	"github.com/nkiryanov/earlypulse/internal/models"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultSigningMethod   = "HS256"
	defaultRefreshTokenTTL = 24 * time.Hour
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

type tokenClaims struct {
	jwt.RegisteredClaims
	Type  string      `json:"typ"`
	Kind  models.Kind `json:"kind"`
	Email string      `json:"email,omitempty"`
	Name  string      `json:"name,omitempty"`
}

// Token manager with sensible default
type Config struct {
	// Secrets to sign access and refresh tokens
	// Both required and must differ
	AccessSecret  string
	RefreshSecret string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Clock to issue and validate tokens against. time.Now if not set
	Now func() time.Time
}

type TokenManager struct {
	accessKey  []byte
	refreshKey []byte

	alg jwt.SigningMethod

	accessTTL  time.Duration
	refreshTTL time.Duration

	now func() time.Time
}

func New(cfg Config) (*TokenManager, error) {
	switch {
	case cfg.AccessSecret == "" || cfg.RefreshSecret == "":
		return nil, errors.New("access and refresh secrets must not be empty")
	case cfg.AccessSecret == cfg.RefreshSecret:
		return nil, errors.New("access and refresh secrets must differ")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg, ok := jwt.GetSigningMethod(cfg.Alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing method %q, HMAC expected", cfg.Alg)
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field <= 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &TokenManager{
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		alg:        alg,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
	}, nil
}

// Issue a fresh access and refresh pair for the principal
// Every token carries unique jti, so two pairs are never equal
func (m *TokenManager) Issue(p models.Principal) (models.TokenPair, error) {
	var pair models.TokenPair
	now := m.now().Truncate(time.Second)

	access, err := m.sign(m.accessKey, tokenClaims{
		RegisteredClaims: m.registered(p.ID, now, m.accessTTL),
		Type:             typeAccess,
		Kind:             p.Kind,
		Email:            p.Email,
		Name:             p.Name,
	})
	if err != nil {
		return pair, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	refresh, err := m.sign(m.refreshKey, tokenClaims{
		RegisteredClaims: m.registered(p.ID, now, m.refreshTTL),
		Type:             typeRefresh,
		Kind:             p.Kind,
	})
	if err != nil {
		return pair, fmt.Errorf("error while signing refresh token. Err: %w", err)
	}

	return models.TokenPair{
		Access:  models.IssuedToken{Value: access, ExpiresAt: now.Add(m.accessTTL)},
		Refresh: models.IssuedToken{Value: refresh, ExpiresAt: now.Add(m.refreshTTL)},
	}, nil
}

func (m *TokenManager) ParseAccess(token string) (models.Claims, error) {
	return m.parse(token, m.accessKey, typeAccess)
}

func (m *TokenManager) ParseRefresh(token string) (models.Claims, error) {
	return m.parse(token, m.refreshKey, typeRefresh)
}

func (m *TokenManager) registered(id uuid.UUID, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   id.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (m *TokenManager) sign(key []byte, claims tokenClaims) (string, error) {
	return jwt.NewWithClaims(m.alg, claims).SignedString(key)
}

// Any failure is reported as apperrors.ErrTokenInvalid with the cause wrapped.
// Kind is not checked here: callers dispatch on it
func (m *TokenManager) parse(token string, key []byte, typ string) (models.Claims, error) {
	claims := &tokenClaims{}

	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (any, error) {
			return key, nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return models.Claims{}, fmt.Errorf("%w: %w", apperrors.ErrTokenInvalid, err)
	}

	if claims.Type != typ {
		return models.Claims{}, fmt.Errorf("%w: %s token expected", apperrors.ErrTokenInvalid, typ)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.Claims{}, fmt.Errorf("%w: bad subject: %w", apperrors.ErrTokenInvalid, err)
	}

	return models.Claims{
		ID:    id,
		Kind:  claims.Kind,
		Email: claims.Email,
		Name:  claims.Name,
	}, nil
}
