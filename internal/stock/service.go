package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iransamarasekara/cnh-distributors-sub000/internal/catalog"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/shared"
)

// CatalogPort supplies the product reference data the ledger needs for unit
// conversion and valuation.
type CatalogPort interface {
	Get(ctx context.Context, id int64) (catalog.Product, error)
}

// AuditPort records who changed stock and by how much.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts committed ledger movements.
type MetricsPort interface {
	ObserveMovement(movementType string)
}

// AddStockRequest is a manual intake of product into the warehouse.
type AddStockRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Cases     int    `json:"cases" validate:"gte=0"`
	Bottles   int    `json:"bottles" validate:"gte=0"`
	Note      string `json:"note" validate:"max=500"`
	ActorID   int64  `json:"-"`
}

// HistoryRequest filters the movement log listing.
type HistoryRequest struct {
	ProductID int64     `json:"product_id"`
	Type      string    `json:"type" validate:"omitempty,oneof=ADD REMOVE REVERSAL"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Limit     int       `json:"limit" validate:"gte=0,lte=500"`
	Offset    int       `json:"offset" validate:"gte=0"`
}

// RowView pairs a ledger row with its product for read endpoints.
type RowView struct {
	Row
	ProductName    string `json:"product_name"`
	ContainerSize  string `json:"container_size"`
	BottlesPerCase int    `json:"bottles_per_case"`
}

type Service struct {
	logger   *slog.Logger
	repo     Repository
	products CatalogPort
	audit    AuditPort
	metrics  MetricsPort
	valuer   Valuer
	cfg      Config
	validate *validator.Validate
}

func NewService(logger *slog.Logger, repo Repository, products CatalogPort, audit AuditPort, metrics MetricsPort, valuer Valuer, cfg Config) *Service {
	if valuer == nil {
		valuer = RunningAverageValue{}
	}
	return &Service{
		logger:   logger,
		repo:     repo,
		products: products,
		audit:    audit,
		metrics:  metrics,
		valuer:   valuer,
		cfg:      cfg,
		validate: validator.New(),
	}
}

// Add credits stock into the product's ledger row, creating the row on first
// intake. The row, its derived totals, and the ADD movement commit together.
func (s *Service) Add(ctx context.Context, req AddStockRequest) (Row, error) {
	if err := s.validate.Struct(req); err != nil {
		return Row{}, fmt.Errorf("stock: validate add: %w", err)
	}
	qty := Quantity{Cases: req.Cases, Bottles: req.Bottles}
	if qty.IsZero() {
		return Row{}, ErrInvalidQuantity
	}

	product, err := s.products.Get(ctx, req.ProductID)
	if err != nil {
		return Row{}, err
	}

	note := req.Note
	if note == "" {
		note = "Manual stock intake"
	}

	var updated Row
	err = s.repo.WithTx(ctx, func(ctx context.Context, ledger TxLedger) error {
		row, err := ledger.GetRowForUpdate(ctx, req.ProductID)
		if err != nil {
			if !errors.Is(err, ErrRowNotFound) {
				return err
			}
			row = Row{ProductID: req.ProductID}
		}

		row, delta, err := Credit(row, qty, product.BottlesPerCase, product.SellingPrice, s.valuer, s.cfg)
		if err != nil {
			return err
		}
		row, err = ledger.UpsertRow(ctx, row)
		if err != nil {
			return err
		}
		if err := ledger.InsertMovement(ctx, delta.Movement(req.ProductID, MovementAdd, note, "")); err != nil {
			return err
		}
		updated = row
		return nil
	})
	if err != nil {
		return Row{}, err
	}

	if s.metrics != nil {
		s.metrics.ObserveMovement(MovementAdd)
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  req.ActorID,
			Action:   "stock.add",
			Entity:   "stock_inventory",
			EntityID: strconv.FormatInt(req.ProductID, 10),
			Meta:     map[string]any{"cases": req.Cases, "bottles": req.Bottles},
		}); err != nil {
			s.logger.Warn("audit record failed", slog.Any("error", err))
		}
	}
	return updated, nil
}

// Get returns a product's ledger row joined with its catalog data.
func (s *Service) Get(ctx context.Context, productID int64) (RowView, error) {
	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return RowView{}, err
	}
	row, err := s.repo.GetRow(ctx, productID)
	if err != nil {
		return RowView{}, err
	}
	return RowView{
		Row:            row,
		ProductName:    product.Name,
		ContainerSize:  product.ContainerSize,
		BottlesPerCase: product.BottlesPerCase,
	}, nil
}

// List returns every ledger row.
func (s *Service) List(ctx context.Context) ([]Row, error) {
	return s.repo.ListRows(ctx)
}

// History lists movement log entries, newest first.
func (s *Service) History(ctx context.Context, req HistoryRequest) ([]Movement, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("stock: validate history: %w", err)
	}
	if req.Limit <= 0 {
		req.Limit = 100
	}
	return s.repo.ListMovements(ctx, MovementFilter{
		ProductID: req.ProductID,
		Type:      req.Type,
		From:      req.From,
		To:        req.To,
		Limit:     req.Limit,
		Offset:    req.Offset,
	})
}
