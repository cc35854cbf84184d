package tokenmanager

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/earlypulse/internal/apperrors"
	"github.com/nkiryanov/earlypulse/internal/models"
)

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

// Clock that tests may move forward
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func Test_TokenManager(t *testing.T) {
	testPrincipal := models.Principal{
		ID:    uuid.New(),
		Kind:  models.KindDoctor,
		Email: "house@example.com",
		Name:  "Gregory House",
	}

	newManager := func(t *testing.T, clock *fakeClock) *TokenManager {
		m, err := New(Config{
			AccessSecret:  "access-secret",
			RefreshSecret: "refresh-secret",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    24 * time.Hour,
			Now:           clock.Now,
		})
		require.NoError(t, err, "token manager should be created without errors")
		return m
	}

	t.Run("new defaults", func(t *testing.T) {
		m, err := New(Config{AccessSecret: "a", RefreshSecret: "r"})
		require.NoError(t, err, "token manager should be created without errors")

		require.Equal(t, []byte("a"), m.accessKey)
		require.Equal(t, []byte("r"), m.refreshKey)
		require.Equal(t, defaultAccessTokenTTL, m.accessTTL, "default access token TTL should be set")
		require.Equal(t, defaultRefreshTokenTTL, m.refreshTTL, "default refresh token TTL")
		require.Equal(t, defaultSigningMethod, m.alg.Alg(), "default signing method should be set")
	})

	t.Run("new config errors", func(t *testing.T) {
		tests := []struct {
			name string
			cfg  Config
		}{
			{"no access secret", Config{RefreshSecret: "r"}},
			{"no refresh secret", Config{AccessSecret: "a"}},
			{"same secrets", Config{AccessSecret: "same", RefreshSecret: "same"}},
			{"not hmac", Config{AccessSecret: "a", RefreshSecret: "r", Alg: "RS256"}},
			{"none alg", Config{AccessSecret: "a", RefreshSecret: "r", Alg: "none"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := New(tt.cfg)
				require.Error(t, err)
			})
		}
	})

	t.Run("issue and parse", func(t *testing.T) {
		clock := &fakeClock{now: mustParseTime("2025-01-01 10:00:00Z")}
		m := newManager(t, clock)

		pair, err := m.Issue(testPrincipal)
		require.NoError(t, err)

		assert.Equal(t, clock.now.Add(15*time.Minute), pair.Access.ExpiresAt)
		assert.Equal(t, clock.now.Add(24*time.Hour), pair.Refresh.ExpiresAt)

		access, err := m.ParseAccess(pair.Access.Value)
		require.NoError(t, err)
		assert.Equal(t, models.Claims{
			ID:    testPrincipal.ID,
			Kind:  models.KindDoctor,
			Email: "house@example.com",
			Name:  "Gregory House",
		}, access)

		refresh, err := m.ParseRefresh(pair.Refresh.Value)
		require.NoError(t, err)
		assert.Equal(t, models.Claims{ID: testPrincipal.ID, Kind: models.KindDoctor}, refresh, "refresh carries identity only")
	})

	t.Run("pairs are always distinct", func(t *testing.T) {
		clock := &fakeClock{now: mustParseTime("2025-01-01 10:00:00Z")}
		m := newManager(t, clock)

		pair1, err := m.Issue(testPrincipal)
		require.NoError(t, err)
		pair2, err := m.Issue(testPrincipal)
		require.NoError(t, err)

		assert.NotEqual(t, pair1.Access.Value, pair2.Access.Value, "access tokens should be different")
		assert.NotEqual(t, pair1.Refresh.Value, pair2.Refresh.Value, "refresh tokens should be different")
	})

	t.Run("tokens are not interchangeable", func(t *testing.T) {
		clock := &fakeClock{now: time.Now()}
		m := newManager(t, clock)
		pair, err := m.Issue(testPrincipal)
		require.NoError(t, err)

		_, err = m.ParseAccess(pair.Refresh.Value)
		require.ErrorIs(t, err, apperrors.ErrTokenInvalid, "refresh must not be accepted as access")

		_, err = m.ParseRefresh(pair.Access.Value)
		require.ErrorIs(t, err, apperrors.ErrTokenInvalid, "access must not be accepted as refresh")
	})

	t.Run("expiry follows clock", func(t *testing.T) {
		clock := &fakeClock{now: mustParseTime("2025-01-01 10:00:00Z")}
		m := newManager(t, clock)
		pair, err := m.Issue(testPrincipal)
		require.NoError(t, err)

		clock.now = clock.now.Add(14 * time.Minute)
		_, err = m.ParseAccess(pair.Access.Value)
		require.NoError(t, err, "access still valid before ttl")

		clock.now = clock.now.Add(2 * time.Minute)
		_, err = m.ParseAccess(pair.Access.Value)
		require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
		require.ErrorIs(t, err, jwt.ErrTokenExpired, "cause must be wrapped")

		_, err = m.ParseRefresh(pair.Refresh.Value)
		require.NoError(t, err, "refresh outlives access")

		clock.now = clock.now.Add(24 * time.Hour)
		_, err = m.ParseRefresh(pair.Refresh.Value)
		require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
	})

	t.Run("reject foreign and malformed tokens", func(t *testing.T) {
		clock := &fakeClock{now: time.Now()}
		m := newManager(t, clock)

		signed := func(method jwt.SigningMethod, key any, claims tokenClaims) string {
			s, err := jwt.NewWithClaims(method, claims).SignedString(key)
			require.NoError(t, err)
			return s
		}
		valid := tokenClaims{
			RegisteredClaims: m.registered(testPrincipal.ID, clock.now, time.Hour),
			Type:             typeAccess,
			Kind:             models.KindUser,
		}
		noExp := valid
		noExp.ExpiresAt = nil
		badSubject := valid
		badSubject.Subject = "not-uuid"

		tests := []struct {
			name  string
			token string
		}{
			{"empty", ""},
			{"garbage", "not.a.jwt"},
			{"other secret", signed(jwt.SigningMethodHS256, []byte("other"), valid)},
			{"signed with refresh secret", signed(jwt.SigningMethodHS256, []byte("refresh-secret"), valid)},
			{"other hmac alg", signed(jwt.SigningMethodHS512, []byte("access-secret"), valid)},
			{"alg none", signed(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid)},
			{"no expiry", signed(jwt.SigningMethodHS256, []byte("access-secret"), noExp)},
			{"bad subject", signed(jwt.SigningMethodHS256, []byte("access-secret"), badSubject)},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := m.ParseAccess(tt.token)
				require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
			})
		}

		t.Run("hand signed valid token accepted", func(t *testing.T) {
			claims, err := m.ParseAccess(signed(jwt.SigningMethodHS256, []byte("access-secret"), valid))
			require.NoError(t, err)
			assert.Equal(t, models.KindUser, claims.Kind)
		})
	})

	t.Run("unknown kind is passed through", func(t *testing.T) {
		clock := &fakeClock{now: time.Now()}
		m := newManager(t, clock)

		pair, err := m.Issue(models.Principal{ID: uuid.New(), Kind: models.Kind("Nurse")})
		require.NoError(t, err)

		claims, err := m.ParseAccess(pair.Access.Value)
		require.NoError(t, err)
		assert.Equal(t, models.Kind("Nurse"), claims.Kind)
	})
}
