package unloading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/iransamarasekara/cnh-distributors-sub000/internal/catalog"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/shared"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/stock"
)

// movement log notes
const (
	noteUnloading = "Unloading transaction"
	noteCancelled = "Unloading transaction cancelled"
)

// CatalogPort supplies product case sizes and prices.
type CatalogPort interface {
	Get(ctx context.Context, id int64) (catalog.Product, error)
}

// FleetPort checks lorry availability.
type FleetPort interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// AuditPort records who created or cancelled documents.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts committed movements and document status events.
type MetricsPort interface {
	ObserveMovement(movementType string)
	ObserveDocument(kind, status string)
}

type Service struct {
	logger   *slog.Logger
	repo     Repository
	products CatalogPort
	fleet    FleetPort
	audit    AuditPort
	metrics  MetricsPort
	valuer   stock.Valuer
	cfg      stock.Config
	validate *validator.Validate
}

func NewService(logger *slog.Logger, repo Repository, products CatalogPort, fleet FleetPort, audit AuditPort, metrics MetricsPort, valuer stock.Valuer, cfg stock.Config) *Service {
	if valuer == nil {
		valuer = stock.RunningAverageValue{}
	}
	return &Service{
		logger:   logger,
		repo:     repo,
		products: products,
		fleet:    fleet,
		audit:    audit,
		metrics:  metrics,
		valuer:   valuer,
		cfg:      cfg,
		validate: validator.New(),
	}
}

// Create opens an unloading document and credits the stock ledger for every
// item. Products without a ledger row get one created on the spot, seeded
// at the product's selling price.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Transaction, error) {
	if err := s.validate.Struct(req); err != nil {
		return Transaction{}, fmt.Errorf("unloading: validate create: %w", err)
	}
	if len(req.Items) == 0 {
		return Transaction{}, ErrEmptyItems
	}

	ok, err := s.fleet.Exists(ctx, req.LorryID)
	if err != nil {
		return Transaction{}, err
	}
	if !ok {
		return Transaction{}, ErrLorryNotAvailable
	}

	products := make(map[int64]catalog.Product, len(req.Items))
	for _, item := range req.Items {
		qty := stock.Quantity{Cases: item.Cases, Bottles: item.Bottles}
		if !qty.Valid() || qty.IsZero() {
			return Transaction{}, fmt.Errorf("%w: product %d", stock.ErrInvalidQuantity, item.ProductID)
		}
		if _, seen := products[item.ProductID]; seen {
			continue
		}
		product, err := s.products.Get(ctx, item.ProductID)
		if err != nil {
			return Transaction{}, err
		}
		products[item.ProductID] = product
	}

	// Lock ledger rows in product order so concurrent documents cannot
	// deadlock against each other.
	items := make([]ItemRequest, len(req.Items))
	copy(items, req.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	txDate := req.TransactionDate
	if txDate.IsZero() {
		txDate = time.Now().UTC()
	}
	status := req.Status
	if status == "" {
		status = StatusPending
	}
	if !status.Valid() || status == StatusCancelled {
		return Transaction{}, fmt.Errorf("%w: cannot create as %q", ErrInvalidTransition, req.Status)
	}

	var created Transaction
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		header, err := repo.InsertTransaction(ctx, Transaction{
			Code:            uuid.NewString(),
			LorryID:         req.LorryID,
			TransactionDate: txDate,
			Status:          status,
			Notes:           req.Notes,
			CreatedBy:       req.ActorID,
		})
		if err != nil {
			return err
		}

		for _, item := range items {
			product := products[item.ProductID]
			qty := stock.Quantity{Cases: item.Cases, Bottles: item.Bottles}

			row, err := repo.GetRowForUpdate(ctx, item.ProductID)
			if err != nil {
				if !errors.Is(err, stock.ErrRowNotFound) {
					return fmt.Errorf("product %d: %w", item.ProductID, err)
				}
				row = stock.Row{ProductID: item.ProductID}
			}
			row, delta, err := stock.Credit(row, qty, product.BottlesPerCase, product.SellingPrice, s.valuer, s.cfg)
			if err != nil {
				return fmt.Errorf("product %d: %w", item.ProductID, err)
			}
			if _, err := repo.UpsertRow(ctx, row); err != nil {
				return err
			}
			if err := repo.InsertMovement(ctx, delta.Movement(item.ProductID, stock.MovementAdd, noteUnloading, header.Code)); err != nil {
				return err
			}
			detail, err := repo.InsertDetail(ctx, Detail{
				TransactionID: header.ID,
				ProductID:     item.ProductID,
				CasesQty:      item.Cases,
				BottlesQty:    item.Bottles,
				TotalBottles:  delta.TotalBottles,
				ValueAmount:   delta.Value,
			})
			if err != nil {
				return err
			}
			header.Details = append(header.Details, detail)
		}
		created = header
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}

	if s.metrics != nil {
		s.metrics.ObserveDocument("unloading", string(created.Status))
		for range created.Details {
			s.metrics.ObserveMovement(stock.MovementAdd)
		}
	}
	s.record(ctx, req.ActorID, "unloading.create", created.ID, map[string]any{
		"code": created.Code, "lorry_id": created.LorryID, "items": len(created.Details),
	})
	return created, nil
}

// UpdateStatus moves a document through its lifecycle. Transitioning to
// Cancelled debits every detail back out of the ledger and logs REVERSAL
// movements. The cancellation fails if the credited stock has since been
// consumed, since removing it would drive a row negative.
func (s *Service) UpdateStatus(ctx context.Context, id int64, req UpdateStatusRequest) (Transaction, error) {
	if err := s.validate.Struct(req); err != nil {
		return Transaction{}, fmt.Errorf("unloading: validate status: %w", err)
	}
	if !req.Status.Valid() {
		return Transaction{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, req.Status)
	}

	var updated Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		header, err := repo.GetTransactionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !header.Status.CanTransitionTo(req.Status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, header.Status, req.Status)
		}

		if req.Status == StatusCancelled {
			details, err := repo.ListDetails(ctx, id)
			if err != nil {
				return err
			}
			for _, d := range details {
				row, err := repo.GetRowForUpdate(ctx, d.ProductID)
				if err != nil {
					return fmt.Errorf("product %d: %w", d.ProductID, err)
				}
				row, err = d.Delta().DebitRow(row)
				if err != nil {
					return fmt.Errorf("%w: product %d", ErrReversalNegative, d.ProductID)
				}
				if _, err := repo.UpsertRow(ctx, row); err != nil {
					return err
				}
				if err := repo.InsertMovement(ctx, d.Delta().Movement(d.ProductID, stock.MovementReversal, noteCancelled, header.Code)); err != nil {
					return err
				}
			}
			header.Details = details
		}

		if err := repo.UpdateStatus(ctx, id, req.Status); err != nil {
			return err
		}
		header.Status = req.Status
		updated = header
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}

	if s.metrics != nil {
		s.metrics.ObserveDocument("unloading", string(updated.Status))
		if updated.Status == StatusCancelled {
			for range updated.Details {
				s.metrics.ObserveMovement(stock.MovementReversal)
			}
		}
	}
	s.record(ctx, req.ActorID, "unloading.status", id, map[string]any{"status": string(req.Status)})
	return updated, nil
}

// Get returns a document with its details.
func (s *Service) Get(ctx context.Context, id int64) (Transaction, error) {
	return s.repo.Get(ctx, id)
}

// List returns documents matching the filter, newest first.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Transaction, int, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, fmt.Errorf("unloading: validate list: %w", err)
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, req.Status)
	}
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "unloading_transactions",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.Any("error", err))
	}
}
