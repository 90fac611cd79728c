package fleet

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
)

type Service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]Lorry, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *Service) Get(ctx context.Context, id int64) (Lorry, error) {
	return s.repo.Get(ctx, id)
}

// Exists reports whether an active lorry with the given id is registered.
// The loading and unloading engines use this as their only fleet dependency.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	return s.repo.Exists(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateLorryRequest) (Lorry, error) {
	if err := s.validate.Struct(req); err != nil {
		return Lorry{}, fmt.Errorf("fleet: validate lorry: %w", err)
	}
	return s.repo.Create(ctx, Lorry{
		RegistrationNumber: req.RegistrationNumber,
		DriverName:         req.DriverName,
		CapacityCases:      req.CapacityCases,
		IsActive:           true,
	})
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateLorryRequest) (Lorry, error) {
	if err := s.validate.Struct(req); err != nil {
		return Lorry{}, fmt.Errorf("fleet: validate lorry: %w", err)
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Lorry{}, err
	}
	if req.RegistrationNumber != nil {
		existing.RegistrationNumber = *req.RegistrationNumber
	}
	if req.DriverName != nil {
		existing.DriverName = *req.DriverName
	}
	if req.CapacityCases != nil {
		existing.CapacityCases = *req.CapacityCases
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, id, existing); err != nil {
		return Lorry{}, err
	}
	return existing, nil
}
