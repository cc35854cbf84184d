package lab

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nkiryanov/earlypulse/internal/apperrors"
	"github.com/nkiryanov/earlypulse/internal/models"
	"github.com/nkiryanov/earlypulse/internal/repository"
	"github.com/nkiryanov/earlypulse/internal/service/auth"
)

type RegisterParams struct {
	Email        string
	Password     string
	Name         string
	PhoneNumber  string
	Address      string
	TestsOffered []string
}

type LabService struct {
	hasher  auth.PasswordHasher
	labRepo repository.LabRepo
}

func NewService(hasher auth.PasswordHasher, labRepo repository.LabRepo) *LabService {
	if hasher == nil {
		hasher = auth.DefaultHasher
	}

	return &LabService{hasher: hasher, labRepo: labRepo}
}

func (s *LabService) Register(ctx context.Context, p RegisterParams) (models.Lab, error) {
	var lab models.Lab
	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return lab, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	lab, err = s.labRepo.CreateLab(ctx, models.Lab{
		Principal:    models.Principal{Email: p.Email, Name: p.Name, PasswordHash: hash},
		PhoneNumber:  p.PhoneNumber,
		Address:      p.Address,
		TestsOffered: uniqueTests(p.TestsOffered),
	})
	if err != nil {
		return lab, fmt.Errorf("can't create lab. Err: %w", err)
	}

	return lab.Redacted(), nil
}

func (s *LabService) Get(ctx context.Context, id uuid.UUID) (models.Lab, error) {
	return redacted(s.labRepo.GetLab(ctx, id))
}

func (s *LabService) Update(ctx context.Context, id uuid.UUID, upd repository.LabUpdate) (models.Lab, error) {
	return redacted(s.labRepo.UpdateLab(ctx, id, upd))
}

func (s *LabService) List(ctx context.Context, f repository.LabFilter) ([]models.Lab, error) {
	if f.BloodType != "" && !f.BloodType.Valid() {
		return nil, apperrors.ErrInvalidBloodType
	}
	f.Test = strings.TrimSpace(f.Test)
	f.Location = strings.TrimSpace(f.Location)

	labs, err := s.labRepo.ListLabs(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range labs {
		labs[i] = labs[i].Redacted()
	}
	return labs, nil
}

func (s *LabService) AddTest(ctx context.Context, id uuid.UUID, test string) (models.Lab, error) {
	test = strings.TrimSpace(test)
	if test == "" {
		return models.Lab{}, apperrors.ErrTestNameEmpty
	}
	return redacted(s.labRepo.AddTest(ctx, id, test))
}

func (s *LabService) RemoveTest(ctx context.Context, id uuid.UUID, test string) (models.Lab, error) {
	test = strings.TrimSpace(test)
	if test == "" {
		return models.Lab{}, apperrors.ErrTestNameEmpty
	}
	return redacted(s.labRepo.RemoveTest(ctx, id, test))
}

// Set units available for blood type. Negative quantity is stored as zero
func (s *LabService) UpdateInventory(ctx context.Context, id uuid.UUID, bt models.BloodType, quantity int) (models.Lab, error) {
	if !bt.Valid() {
		return models.Lab{}, apperrors.ErrInvalidBloodType
	}
	return redacted(s.labRepo.SetBloodStock(ctx, id, bt, max(quantity, 0)))
}

func redacted(l models.Lab, err error) (models.Lab, error) {
	if err != nil {
		return l, err
	}
	return l.Redacted(), nil
}

func uniqueTests(tests []string) []string {
	seen := make(map[string]bool, len(tests))
	out := make([]string, 0, len(tests))
	for _, t := range tests {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
