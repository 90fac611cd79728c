// Package unloading returns stock from a lorry back into the warehouse. An
// unloading transaction credits the ledger for every item, creating ledger
// rows on the fly for products never stocked before.
package unloading

import (
	"errors"
	"time"

	"github.com/iransamarasekara/cnh-distributors-sub000/internal/stock"
)

// Status is the lifecycle state of an unloading transaction.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// CanTransitionTo reports whether the status change is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusCompleted || next == StatusCancelled
	case StatusCompleted:
		return next == StatusCancelled
	default:
		return false
	}
}

// Valid reports whether the status is one of the recognised values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

var (
	// ErrTransactionNotFound indicates the unloading transaction does not exist.
	ErrTransactionNotFound = errors.New("unloading: transaction not found")
	// ErrEmptyItems indicates the document carries no line items.
	ErrEmptyItems = errors.New("unloading: at least one item required")
	// ErrLorryNotAvailable indicates no active lorry matches the id.
	ErrLorryNotAvailable = errors.New("unloading: lorry not available")
	// ErrInvalidTransition indicates the status change is not allowed.
	ErrInvalidTransition = errors.New("unloading: invalid status transition")
	// ErrReversalNegative indicates cancelling would drive a ledger row
	// negative because the credited stock has since been consumed.
	ErrReversalNegative = errors.New("unloading: reversal would drive stock negative")
)

// Transaction is the header of an unloading document. TransactionDate is
// the business date the lorry was unloaded, distinct from the record
// timestamps.
type Transaction struct {
	ID              int64     `json:"id"`
	Code            string    `json:"code"`
	LorryID         int64     `json:"lorry_id"`
	TransactionDate time.Time `json:"transaction_date"`
	Status          Status    `json:"status"`
	Notes           string    `json:"notes"`
	CreatedBy       int64     `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Details         []Detail  `json:"details,omitempty"`
}

// Detail is one line of an unloading document. TotalBottles and ValueAmount
// record exactly what was credited so a cancellation can remove it again.
type Detail struct {
	ID            int64   `json:"id"`
	TransactionID int64   `json:"transaction_id"`
	ProductID     int64   `json:"product_id"`
	CasesQty      int     `json:"cases_qty"`
	BottlesQty    int     `json:"bottles_qty"`
	TotalBottles  int     `json:"total_bottles"`
	ValueAmount   float64 `json:"value_amount"`
}

// Delta reconstructs the stock delta this detail applied.
func (d Detail) Delta() stock.Delta {
	return stock.Delta{
		Cases:        d.CasesQty,
		Bottles:      d.BottlesQty,
		TotalBottles: d.TotalBottles,
		Value:        d.ValueAmount,
	}
}

// ItemRequest is one requested line on a new unloading document.
type ItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Cases     int   `json:"cases" validate:"gte=0"`
	Bottles   int   `json:"bottles" validate:"gte=0"`
}

// CreateRequest opens a new unloading document and credits stock for each
// item. TransactionDate defaults to the current time when omitted. Status is
// the document's initial state, Pending when omitted; a document cannot be
// born Cancelled.
type CreateRequest struct {
	LorryID         int64         `json:"lorry_id" validate:"required,gt=0"`
	TransactionDate time.Time     `json:"transaction_date"`
	Status          Status        `json:"status"`
	Notes           string        `json:"notes" validate:"max=500"`
	Items           []ItemRequest `json:"items" validate:"required,min=1,dive"`
	ActorID         int64         `json:"-"`
}

// UpdateStatusRequest moves a document through its lifecycle.
type UpdateStatusRequest struct {
	Status  Status `json:"status" validate:"required"`
	ActorID int64  `json:"-"`
}

// ListRequest filters unloading documents. From and To bound the
// transaction date, [From, To).
type ListRequest struct {
	LorryID int64     `json:"lorry_id"`
	Status  Status    `json:"status"`
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	Limit   int       `json:"limit" validate:"gte=0,lte=200"`
	Offset  int       `json:"offset" validate:"gte=0"`
}
