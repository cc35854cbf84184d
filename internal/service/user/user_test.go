package user

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkiryanov/earlypulse/internal/apperrors"
	"github.com/nkiryanov/earlypulse/internal/models"
	"github.com/nkiryanov/earlypulse/internal/repository"
	"github.com/nkiryanov/earlypulse/internal/repository/postgres"
	"github.com/nkiryanov/earlypulse/internal/service/auth"
	"github.com/nkiryanov/earlypulse/internal/testutil"
)

func TestUser(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	hasher := auth.BcryptHasher{Cost: bcrypt.MinCost}

	inTx := func(t *testing.T, fn func(s *UserService, storage repository.Storage)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			fn(NewService(hasher, storage.User()), storage)
		})
	}

	params := RegisterParams{
		Email:    "Patient@Example.com",
		Password: "password123",
		Name:     "Patient Zero",
		Address:  "Baker street 221b",
	}

	t.Run("Register", func(t *testing.T) {
		t.Run("register ok", func(t *testing.T) {
			inTx(t, func(s *UserService, storage repository.Storage) {
				user, err := s.Register(t.Context(), params)

				require.NoError(t, err, "creating new user should be ok")
				require.NotEqual(t, uuid.Nil, user.ID, "user ID should not be empty")
				require.Equal(t, "patient@example.com", user.Email)
				require.Equal(t, models.RoleUser, user.Role, "role defaults to user")
				require.Empty(t, user.PasswordHash, "returned user must be redacted")

				stored, err := storage.Principals(models.KindUser).GetByID(t.Context(), user.ID)
				require.NoError(t, err)
				require.NotEqual(t, "password123", stored.PasswordHash, "password should be hashed")
				require.True(t, hasher.Check(stored.PasswordHash, "password123"))
			})
		})

		t.Run("medical owner allowed", func(t *testing.T) {
			inTx(t, func(s *UserService, _ repository.Storage) {
				p := params
				p.Role = models.RoleMedicalOwner

				user, err := s.Register(t.Context(), p)

				require.NoError(t, err)
				require.Equal(t, models.RoleMedicalOwner, user.Role)
			})
		})

		t.Run("admin not allowed", func(t *testing.T) {
			inTx(t, func(s *UserService, _ repository.Storage) {
				p := params
				p.Role = models.RoleAdmin

				_, err := s.Register(t.Context(), p)

				require.ErrorIs(t, err, apperrors.ErrForbidden)
			})
		})

		t.Run("empty password fail", func(t *testing.T) {
			inTx(t, func(s *UserService, _ repository.Storage) {
				p := params
				p.Password = ""

				_, err := s.Register(t.Context(), p)

				require.ErrorIs(t, err, apperrors.ErrPasswordEmpty)
			})
		})

		t.Run("duplicate email fail", func(t *testing.T) {
			inTx(t, func(s *UserService, _ repository.Storage) {
				_, err := s.Register(t.Context(), params)
				require.NoError(t, err)

				_, err = s.Register(t.Context(), params)

				require.ErrorIs(t, err, apperrors.ErrPrincipalAlreadyExists)
			})
		})
	})

	t.Run("get and update redacted", func(t *testing.T) {
		inTx(t, func(s *UserService, _ repository.Storage) {
			created, err := s.Register(t.Context(), params)
			require.NoError(t, err)

			phone := "+123"
			updated, err := s.Update(t.Context(), created.ID, repository.UserUpdate{PhoneNumber: &phone})
			require.NoError(t, err)
			require.Equal(t, "+123", updated.PhoneNumber)
			require.Empty(t, updated.PasswordHash)

			got, err := s.Get(t.Context(), created.ID)
			require.NoError(t, err)
			require.Equal(t, updated, got)
		})
	})

	t.Run("get missing", func(t *testing.T) {
		inTx(t, func(s *UserService, _ repository.Storage) {
			_, err := s.Get(t.Context(), uuid.New())

			require.ErrorIs(t, err, apperrors.ErrPrincipalNotFound)
		})
	})
}
