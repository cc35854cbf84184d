package user

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nkiryanov/earlypulse/internal/apperrors"
	"github.com/nkiryanov/earlypulse/internal/models"
	"github.com/nkiryanov/earlypulse/internal/repository"
	"github.com/nkiryanov/earlypulse/internal/service/auth"
)

// Roles anybody may register with. Admins are created out of band
var registrableRoles = map[string]bool{
	models.RoleUser:         true,
	models.RoleMedicalOwner: true,
}

type RegisterParams struct {
	Email                  string
	Password               string
	Name                   string
	Role                   string
	PhoneNumber            string
	Address                string
	EmergencyContactNumber string
}

type UserService struct {
	hasher   auth.PasswordHasher
	userRepo repository.UserRepo
}

func NewService(hasher auth.PasswordHasher, userRepo repository.UserRepo) *UserService {
	if hasher == nil {
		hasher = auth.DefaultHasher
	}

	return &UserService{
		hasher:   hasher,
		userRepo: userRepo,
	}
}

// Register new patient or medical store owner
// Returns redacted user
func (s *UserService) Register(ctx context.Context, p RegisterParams) (models.User, error) {
	var user models.User

	if p.Role == "" {
		p.Role = models.RoleUser
	}
	if !registrableRoles[p.Role] {
		return user, fmt.Errorf("role %q can't be registered: %w", p.Role, apperrors.ErrForbidden)
	}

	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	user, err = s.userRepo.CreateUser(ctx, models.User{
		Principal: models.Principal{
			Email:        p.Email,
			Name:         p.Name,
			Role:         p.Role,
			PasswordHash: hash,
		},
		PhoneNumber:            p.PhoneNumber,
		Address:                p.Address,
		EmergencyContactNumber: p.EmergencyContactNumber,
	})
	if err != nil {
		return user, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user.Redacted(), nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (models.User, error) {
	user, err := s.userRepo.GetUser(ctx, id)
	if err != nil {
		return user, err
	}
	return user.Redacted(), nil
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, upd repository.UserUpdate) (models.User, error) {
	user, err := s.userRepo.UpdateUser(ctx, id, upd)
	if err != nil {
		return user, err
	}
	return user.Redacted(), nil
}
