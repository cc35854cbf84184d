package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nkiryanov/earlypulse/internal/apperrors"
	"github.com/nkiryanov/earlypulse/internal/models"
	"github.com/nkiryanov/earlypulse/internal/repository"
)

const (
	defaultAccessCookieName  = "accessToken"
	defaultRefreshCookieName = "refreshToken"
	defaultAccessHeaderName  = "Authorization"
	defaultAccessAuthScheme  = "Bearer"
)

// Auth events reported to Recorder
const (
	EventLoginOK         = "login_ok"
	EventLoginFailed     = "login_failed"
	EventRefreshOK       = "refresh_ok"
	EventRefreshRejected = "refresh_rejected"
	EventLogout          = "logout"
)

// Reported instead of the token kind when the token carries no known one
const KindUnknown models.Kind = "unknown"

type TokenManager interface {
	Issue(p models.Principal) (models.TokenPair, error)
	ParseAccess(token string) (models.Claims, error)
	ParseRefresh(token string) (models.Claims, error)
}

// Credential store lookup by principal kind
// Returns nil for unknown kinds
type PrincipalStores interface {
	Principals(kind models.Kind) repository.PrincipalStore
}

type Recorder interface {
	AuthEvent(kind models.Kind, event string)
}

type nopRecorder struct{}

func (nopRecorder) AuthEvent(models.Kind, string) {}

type Config struct {
	// Hasher to check passwords on login. DefaultHasher if not set
	Hasher PasswordHasher

	// Cookie and header names to carry tokens
	// If not set than default is used
	AccessCookieName  string
	RefreshCookieName string
	AccessHeaderName  string
	AccessAuthScheme  string

	// Mark cookies Secure. Should be on everywhere except plain http development
	SecureCookies bool

	// Auth events sink, metrics for example
	Recorder Recorder
}

// Auth service
// Issues, rotates and verifies tokens for every principal kind
type AuthService struct {
	hasher PasswordHasher
	tokens TokenManager
	stores PrincipalStores
	events Recorder

	// hash checked when email is unknown, so both failures cost the same
	dummyHash string

	accessCookieName  string
	refreshCookieName string
	accessHeaderName  string
	accessAuthScheme  string
	secureCookies     bool
}

func NewService(cfg Config, tokens TokenManager, stores PrincipalStores) (*AuthService, error) {
	if cfg.Hasher == nil {
		cfg.Hasher = DefaultHasher
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}

	setDefault := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	setDefault(&cfg.AccessCookieName, defaultAccessCookieName)
	setDefault(&cfg.RefreshCookieName, defaultRefreshCookieName)
	setDefault(&cfg.AccessHeaderName, defaultAccessHeaderName)
	setDefault(&cfg.AccessAuthScheme, defaultAccessAuthScheme)

	dummy, err := cfg.Hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("hasher is broken. Err: %w", err)
	}

	return &AuthService{
		hasher:            cfg.Hasher,
		tokens:            tokens,
		stores:            stores,
		events:            cfg.Recorder,
		dummyHash:         dummy,
		accessCookieName:  cfg.AccessCookieName,
		refreshCookieName: cfg.RefreshCookieName,
		accessHeaderName:  cfg.AccessHeaderName,
		accessAuthScheme:  cfg.AccessAuthScheme,
		secureCookies:     cfg.SecureCookies,
	}, nil
}

func (s *AuthService) store(kind models.Kind) (repository.PrincipalStore, error) {
	store := s.stores.Principals(kind)
	if store == nil {
		return nil, apperrors.ErrUnknownPrincipalKind
	}
	return store, nil
}

// Login principal of the kind with email and password
// Unknown email and wrong password are indistinguishable: apperrors.ErrInvalidCredentials
// Stored refresh token is overwritten, so the previous session can't be refreshed anymore
func (s *AuthService) Login(ctx context.Context, kind models.Kind, email string, password string) (models.Session, error) {
	store, err := s.store(kind)
	if err != nil {
		return models.Session{}, err
	}

	p, err := store.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, apperrors.ErrPrincipalNotFound):
		s.hasher.Check(s.dummyHash, password)
		s.events.AuthEvent(kind, EventLoginFailed)
		return models.Session{}, apperrors.ErrInvalidCredentials
	case err != nil:
		return models.Session{}, fmt.Errorf("can't get principal. Err: %w", err)
	}

	if !s.hasher.Check(p.PasswordHash, password) {
		s.events.AuthEvent(kind, EventLoginFailed)
		return models.Session{}, apperrors.ErrInvalidCredentials
	}

	pair, err := s.tokens.Issue(p)
	if err != nil {
		return models.Session{}, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	if err := store.SetRefreshToken(ctx, p.ID, pair.Refresh.Value); err != nil {
		return models.Session{}, fmt.Errorf("can't save refresh token. Err: %w", err)
	}

	s.events.AuthEvent(kind, EventLoginOK)
	return models.Session{Principal: p.Redacted(), Tokens: pair}, nil
}

// Forget stored refresh token. Idempotent
func (s *AuthService) Logout(ctx context.Context, kind models.Kind, id uuid.UUID) error {
	store, err := s.store(kind)
	if err != nil {
		return err
	}

	if err := store.SetRefreshToken(ctx, id, ""); err != nil {
		return fmt.Errorf("can't clear refresh token. Err: %w", err)
	}

	s.events.AuthEvent(kind, EventLogout)
	return nil
}

func (s *AuthService) refreshRejected(kind models.Kind) {
	if !kind.Valid() {
		kind = KindUnknown
	}
	s.events.AuthEvent(kind, EventRefreshRejected)
}

// Exchange valid refresh token for a new pair
// Presented token must equal the stored one and is consumed: a second use fails with apperrors.ErrRefreshTokenIsUsed
func (s *AuthService) Refresh(ctx context.Context, refresh string) (models.TokenPair, error) {
	var pair models.TokenPair
	if refresh == "" {
		return pair, apperrors.ErrTokenMissing
	}

	claims, err := s.tokens.ParseRefresh(refresh)
	if err != nil {
		s.refreshRejected(claims.Kind)
		return pair, err
	}

	store, err := s.store(claims.Kind)
	if err != nil {
		s.refreshRejected(claims.Kind)
		return pair, err
	}

	p, err := store.GetByID(ctx, claims.ID)
	switch {
	case errors.Is(err, apperrors.ErrPrincipalNotFound):
		s.refreshRejected(claims.Kind)
		return pair, fmt.Errorf("%w: principal is gone", apperrors.ErrTokenInvalid)
	case err != nil:
		return pair, fmt.Errorf("can't get principal. Err: %w", err)
	}

	if p.RefreshToken != refresh {
		s.refreshRejected(claims.Kind)
		return pair, apperrors.ErrRefreshTokenIsUsed
	}

	pair, err = s.tokens.Issue(p)
	if err != nil {
		return pair, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	// Concurrent refresh with the same token loses here
	err = store.RotateRefreshToken(ctx, p.ID, refresh, pair.Refresh.Value)
	if err != nil {
		if errors.Is(err, apperrors.ErrRefreshTokenIsUsed) {
			s.refreshRejected(claims.Kind)
		}
		return models.TokenPair{}, err
	}

	s.events.AuthEvent(claims.Kind, EventRefreshOK)
	return pair, nil
}

// Resolve access token to redacted principal
func (s *AuthService) Authenticate(ctx context.Context, access string) (models.Principal, error) {
	if access == "" {
		return models.Principal{}, apperrors.ErrTokenMissing
	}

	claims, err := s.tokens.ParseAccess(access)
	if err != nil {
		return models.Principal{}, err
	}

	store, err := s.store(claims.Kind)
	if err != nil {
		return models.Principal{}, err
	}

	p, err := store.GetByID(ctx, claims.ID)
	switch {
	case errors.Is(err, apperrors.ErrPrincipalNotFound):
		return models.Principal{}, fmt.Errorf("%w: principal is gone", apperrors.ErrTokenInvalid)
	case err != nil:
		return models.Principal{}, fmt.Errorf("can't get principal. Err: %w", err)
	}

	return p.Redacted(), nil
}

// Current session stays valid after password change
func (s *AuthService) ChangePassword(ctx context.Context, kind models.Kind, id uuid.UUID, oldPassword string, newPassword string) error {
	store, err := s.store(kind)
	if err != nil {
		return err
	}

	p, err := store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !s.hasher.Check(p.PasswordHash, oldPassword) {
		return apperrors.ErrOldPasswordInvalid
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("can't use this as password. Err: %w", err)
	}

	return store.SetPasswordHash(ctx, id, hash)
}

func (s *AuthService) DeleteAccount(ctx context.Context, kind models.Kind, id uuid.UUID) error {
	store, err := s.store(kind)
	if err != nil {
		return err
	}
	return store.Delete(ctx, id)
}

func (s *AuthService) HashPassword(password string) (string, error) {
	return s.hasher.Hash(password)
}
