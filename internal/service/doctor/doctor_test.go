package doctor

import (
	"testing"

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

func TestDoctor(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, fn func(s *DoctorService)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			fn(NewService(auth.BcryptHasher{Cost: bcrypt.MinCost}, storage.Doctor()))
		})
	}

	t.Run("register and list", func(t *testing.T) {
		inTx(t, func(s *DoctorService) {
			d, err := s.Register(t.Context(), RegisterParams{
				Email:          "cardio@example.com",
				Password:       "pwd",
				Name:           "Dr Heart",
				Specialization: " Cardiology ",
			})
			require.NoError(t, err)
			require.Equal(t, models.RoleDoctor, d.Role)
			require.Equal(t, "Cardiology", d.Specialization)
			require.Empty(t, d.PasswordHash)

			found, err := s.List(t.Context(), "CARDIO")
			require.NoError(t, err)
			require.Len(t, found, 1)
			require.Empty(t, found[0].PasswordHash, "list must be redacted")

			found, err = s.List(t.Context(), "neuro")
			require.NoError(t, err)
			require.Empty(t, found)
		})
	})

	t.Run("update", func(t *testing.T) {
		inTx(t, func(s *DoctorService) {
			d, err := s.Register(t.Context(), RegisterParams{Email: "d@example.com", Password: "pwd", Name: "Doc"})
			require.NoError(t, err)

			address := "Clinic 5"
			updated, err := s.Update(t.Context(), d.ID, repository.DoctorUpdate{Address: &address})
			require.NoError(t, err)
			require.Equal(t, "Clinic 5", updated.Address)
		})
	})

	t.Run("register with empty password", func(t *testing.T) {
		inTx(t, func(s *DoctorService) {
			_, err := s.Register(t.Context(), RegisterParams{Email: "d@example.com", Name: "Doc"})

			require.ErrorIs(t, err, apperrors.ErrPasswordEmpty)
		})
	})
}
