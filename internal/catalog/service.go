package catalog

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

func (s *Service) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateProductRequest) (Product, error) {
	if err := s.validate.Struct(req); err != nil {
		return Product{}, fmt.Errorf("catalog: validate product: %w", err)
	}
	product := Product{
		Name:           req.Name,
		ContainerSize:  req.ContainerSize,
		BottlesPerCase: req.BottlesPerCase,
		UnitCost:       req.UnitCost,
		SellingPrice:   req.SellingPrice,
		IsActive:       true,
	}
	return s.repo.Create(ctx, product)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateProductRequest) (Product, error) {
	if err := s.validate.Struct(req); err != nil {
		return Product{}, fmt.Errorf("catalog: validate product: %w", err)
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.ContainerSize != nil {
		existing.ContainerSize = *req.ContainerSize
	}
	if req.BottlesPerCase != nil {
		existing.BottlesPerCase = *req.BottlesPerCase
	}
	if req.UnitCost != nil {
		existing.UnitCost = *req.UnitCost
	}
	if req.SellingPrice != nil {
		existing.SellingPrice = *req.SellingPrice
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, id, existing); err != nil {
		return Product{}, err
	}
	return existing, nil
}

// Deactivate hides a product from new transactions without deleting it.
// Ledger rows keep referencing it for history.
func (s *Service) Deactivate(ctx context.Context, id int64) (Product, error) {
	inactive := false
	return s.Update(ctx, id, UpdateProductRequest{IsActive: &inactive})
}
