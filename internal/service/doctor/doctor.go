package doctor

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nkiryanov/earlypulse/internal/models"
	"github.com/nkiryanov/earlypulse/internal/repository"
	"github.com/nkiryanov/earlypulse/internal/service/auth"
)

type RegisterParams struct {
	Email          string
	Password       string
	Name           string
	PhoneNumber    string
	Address        string
	Specialization string
}

type DoctorService struct {
	hasher     auth.PasswordHasher
	doctorRepo repository.DoctorRepo
}

func NewService(hasher auth.PasswordHasher, doctorRepo repository.DoctorRepo) *DoctorService {
	if hasher == nil {
		hasher = auth.DefaultHasher
	}

	return &DoctorService{hasher: hasher, doctorRepo: doctorRepo}
}

func (s *DoctorService) Register(ctx context.Context, p RegisterParams) (models.Doctor, error) {
	var doctor models.Doctor
	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return doctor, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	doctor, err = s.doctorRepo.CreateDoctor(ctx, models.Doctor{
		Principal:      models.Principal{Email: p.Email, Name: p.Name, PasswordHash: hash},
		PhoneNumber:    p.PhoneNumber,
		Address:        p.Address,
		Specialization: strings.TrimSpace(p.Specialization),
	})
	if err != nil {
		return doctor, fmt.Errorf("can't create doctor. Err: %w", err)
	}

	return doctor.Redacted(), nil
}

func (s *DoctorService) Get(ctx context.Context, id uuid.UUID) (models.Doctor, error) {
	doctor, err := s.doctorRepo.GetDoctor(ctx, id)
	if err != nil {
		return doctor, err
	}
	return doctor.Redacted(), nil
}

func (s *DoctorService) Update(ctx context.Context, id uuid.UUID, upd repository.DoctorUpdate) (models.Doctor, error) {
	doctor, err := s.doctorRepo.UpdateDoctor(ctx, id, upd)
	if err != nil {
		return doctor, err
	}
	return doctor.Redacted(), nil
}

// List doctors, optionally filtered by specialization (case-insensitive substring)
func (s *DoctorService) List(ctx context.Context, specialization string) ([]models.Doctor, error) {
	doctors, err := s.doctorRepo.ListDoctors(ctx, strings.TrimSpace(specialization))
	if err != nil {
		return nil, err
	}
	for i := range doctors {
		doctors[i] = doctors[i].Redacted()
	}
	return doctors, nil
}
