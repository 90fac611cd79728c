package discounts

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iransamarasekara/cnh-distributors-sub000/internal/shared"
)

// AuditPort records who granted discounts.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	logger   *slog.Logger
	repo     Repository
	policy   CapPolicy
	audit    AuditPort
	validate *validator.Validate
}

func NewService(logger *slog.Logger, repo Repository, policy CapPolicy, audit AuditPort) *Service {
	return &Service{
		logger:   logger,
		repo:     repo,
		policy:   policy,
		audit:    audit,
		validate: validator.New(),
	}
}

func (s *Service) ListShops(ctx context.Context, activeOnly bool) ([]Shop, error) {
	return s.repo.ListShops(ctx, activeOnly)
}

func (s *Service) GetShop(ctx context.Context, id int64) (Shop, error) {
	return s.repo.GetShop(ctx, id)
}

func (s *Service) CreateShop(ctx context.Context, req CreateShopRequest) (Shop, error) {
	if err := s.validate.Struct(req); err != nil {
		return Shop{}, fmt.Errorf("discounts: validate shop: %w", err)
	}
	return s.repo.CreateShop(ctx, Shop{
		Name:               req.Name,
		Owner:              req.Owner,
		Address:            req.Address,
		ContactNumber:      req.ContactNumber,
		DiscountTypeID:     req.DiscountTypeID,
		MaxDiscountedCases: req.MaxDiscountedCases,
		IsActive:           true,
	})
}

func (s *Service) ListSubTypes(ctx context.Context) ([]SubDiscountType, error) {
	return s.repo.ListSubTypes(ctx)
}

func (s *Service) CreateSubType(ctx context.Context, req CreateSubTypeRequest) (SubDiscountType, error) {
	if err := s.validate.Struct(req); err != nil {
		return SubDiscountType{}, fmt.Errorf("discounts: validate sub-type: %w", err)
	}
	return s.repo.CreateSubType(ctx, SubDiscountType{
		DiscountTypeID:  req.DiscountTypeID,
		Name:            req.Name,
		DiscountPerCase: req.DiscountPerCase,
	})
}

// CreateDiscount records a grant after the cap policy approves the cases.
// The total is always computed from the sub-type's per-case rate, never
// taken from the caller.
func (s *Service) CreateDiscount(ctx context.Context, req CreateDiscountRequest) (Discount, error) {
	if err := s.validate.Struct(req); err != nil {
		return Discount{}, fmt.Errorf("discounts: validate discount: %w", err)
	}
	shop, err := s.repo.GetShop(ctx, req.ShopID)
	if err != nil {
		return Discount{}, err
	}
	subType, err := s.repo.GetSubType(ctx, req.SubDiscountTypeID)
	if err != nil {
		return Discount{}, err
	}
	if err := s.policy.Check(ctx, shop, req.DiscountedCases, req.SellingDate); err != nil {
		return Discount{}, err
	}

	sellingDate := req.SellingDate
	if sellingDate.IsZero() {
		sellingDate = time.Now().UTC()
	}

	granted, err := s.repo.InsertDiscount(ctx, Discount{
		ShopID:            req.ShopID,
		SubDiscountTypeID: req.SubDiscountTypeID,
		InvoiceNumber:     req.InvoiceNumber,
		SellingDate:       sellingDate,
		DiscountedCases:   req.DiscountedCases,
		TotalDiscount:     float64(req.DiscountedCases) * subType.DiscountPerCase,
		CreatedBy:         req.ActorID,
	})
	if err != nil {
		return Discount{}, err
	}

	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  req.ActorID,
			Action:   "discounts.create",
			Entity:   "discounts",
			EntityID: strconv.FormatInt(granted.ID, 10),
			Meta: map[string]any{
				"shop_id": req.ShopID, "cases": req.DiscountedCases, "total": granted.TotalDiscount,
			},
		})
		if err != nil {
			s.logger.Warn("audit record failed", slog.Any("error", err))
		}
	}
	return granted, nil
}

func (s *Service) History(ctx context.Context, shopID int64, limit, offset int) ([]Discount, error) {
	if limit <= 0 {
		limit = 50
	}
	if _, err := s.repo.GetShop(ctx, shopID); err != nil {
		return nil, err
	}
	return s.repo.ListDiscounts(ctx, shopID, limit, offset)
}
