package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/earlypulse/internal/apperrors"
	"github.com/nkiryanov/earlypulse/internal/models"
	"github.com/nkiryanov/earlypulse/internal/repository"
	"github.com/nkiryanov/earlypulse/internal/testutil"
)

func newUser(email string) models.User {
	return models.User{
		Principal: models.Principal{
			Email:        email,
			Name:         "John Doe",
			PasswordHash: "hashedpassword123",
		},
		PhoneNumber: "+100200300",
		Address:     "Main street 1",
	}
}

func Test_UserRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("create user ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			user, err := r.CreateUser(t.Context(), newUser("  John@Example.COM "))

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, user.ID)
			assert.Equal(t, models.KindUser, user.Kind)
			assert.Equal(t, "john@example.com", user.Email, "email must be normalized")
			assert.Equal(t, models.RoleUser, user.Role, "role defaults to user")
			assert.Equal(t, "hashedpassword123", user.PasswordHash)
			assert.Empty(t, user.RefreshToken)
			assert.WithinDuration(t, time.Now(), user.CreatedAt, time.Second, "CreatedAt should be recent")
		})
	})

	t.Run("create user with same email fail", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			_, err := r.CreateUser(t.Context(), newUser("dup@example.com"))
			require.NoError(t, err)

			_, err = r.CreateUser(t.Context(), newUser("DUP@example.com"))

			require.ErrorIs(t, err, apperrors.ErrPrincipalAlreadyExists)
		})
	})

	t.Run("get user ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			created, err := r.CreateUser(t.Context(), newUser("get@example.com"))
			require.NoError(t, err)

			got, err := r.GetUser(t.Context(), created.ID)

			require.NoError(t, err)
			assert.Equal(t, created, got)
		})
	})

	t.Run("get user not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			_, err := r.GetUser(t.Context(), uuid.New())

			assert.ErrorIs(t, err, apperrors.ErrPrincipalNotFound, "should return well known error")
		})
	})

	t.Run("update user changes provided fields only", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			created, err := r.CreateUser(t.Context(), newUser("upd@example.com"))
			require.NoError(t, err)

			name := "Jane Doe"
			updated, err := r.UpdateUser(t.Context(), created.ID, repository.UserUpdate{Name: &name})

			require.NoError(t, err)
			assert.Equal(t, "Jane Doe", updated.Name)
			assert.Equal(t, created.PhoneNumber, updated.PhoneNumber)
			assert.Equal(t, created.Address, updated.Address)
			assert.Equal(t, created.Email, updated.Email)
		})
	})
}
