// Package stock maintains the per-product inventory ledger. Each product
// owns exactly one row tracking cases and loose bottles alongside the total
// monetary value of the stock on hand, plus an append-only movement log.
package stock

import (
	"errors"
	"time"
)

// DefaultBottlesPerCase is the fallback case size used whenever a product
// does not define its own bottles-per-case figure.
const DefaultBottlesPerCase = 12

// Movement types recorded in the transaction log.
const (
	MovementAdd      = "ADD"
	MovementRemove   = "REMOVE"
	MovementReversal = "REVERSAL"
)

var (
	// ErrRowNotFound indicates no ledger row exists for the product.
	ErrRowNotFound = errors.New("stock: ledger row not found")
	// ErrInsufficientStock indicates a debit would drive the row negative.
	ErrInsufficientStock = errors.New("stock: insufficient stock")
	// ErrInvalidQuantity indicates a negative or empty quantity was supplied.
	ErrInvalidQuantity = errors.New("stock: invalid quantity")
)

// Row is the single ledger row for one product.
type Row struct {
	ID           int64     `json:"id"`
	ProductID    int64     `json:"product_id"`
	CasesQty     int       `json:"cases_qty"`
	BottlesQty   int       `json:"bottles_qty"`
	TotalBottles int       `json:"total_bottles"`
	TotalValue   float64   `json:"total_value"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Quantity is a case-and-bottle pair. Both components are non-negative;
// callers express direction through the operation, not the sign.
type Quantity struct {
	Cases   int `json:"cases"`
	Bottles int `json:"bottles"`
}

// TotalBottles flattens the quantity into loose bottles at the given case size.
func (q Quantity) TotalBottles(perCase int) int {
	if perCase <= 0 {
		perCase = DefaultBottlesPerCase
	}
	return q.Cases*perCase + q.Bottles
}

// IsZero reports whether the quantity carries no stock at all.
func (q Quantity) IsZero() bool {
	return q.Cases == 0 && q.Bottles == 0
}

// Valid reports whether both components are non-negative.
func (q Quantity) Valid() bool {
	return q.Cases >= 0 && q.Bottles >= 0
}

// Movement is one append-only entry in the stock transaction log. All delta
// fields are positive magnitudes; Type carries the direction.
type Movement struct {
	ID                int64     `json:"id"`
	ProductID         int64     `json:"product_id"`
	Type              string    `json:"type"`
	CasesDelta        int       `json:"cases_delta"`
	BottlesDelta      int       `json:"bottles_delta"`
	TotalBottlesDelta int       `json:"total_bottles_delta"`
	ValueDelta        float64   `json:"value_delta"`
	Note              string    `json:"note"`
	RefCode           string    `json:"ref_code,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Delta summarizes the effect of one credit or debit on a ledger row.
// It is the bridge between the pure ledger arithmetic and the movement log.
type Delta struct {
	Cases        int
	Bottles      int
	TotalBottles int
	Value        float64
}

// CreditRow applies the delta back onto a row, restoring exactly what an
// earlier debit removed. Used by cancellation paths so totals are conserved
// regardless of valuation drift since the original document.
func (d Delta) CreditRow(row Row) Row {
	row.CasesQty += d.Cases
	row.BottlesQty += d.Bottles
	row.TotalBottles += d.TotalBottles
	row.TotalValue += d.Value
	return row
}

// DebitRow removes the delta from a row, reversing an earlier credit. It
// fails with ErrInsufficientStock when the reversal would drive any
// component negative.
func (d Delta) DebitRow(row Row) (Row, error) {
	if row.CasesQty < d.Cases || row.BottlesQty < d.Bottles || row.TotalBottles < d.TotalBottles {
		return Row{}, ErrInsufficientStock
	}
	row.CasesQty -= d.Cases
	row.BottlesQty -= d.Bottles
	row.TotalBottles -= d.TotalBottles
	row.TotalValue -= d.Value
	if row.TotalValue < 0 {
		row.TotalValue = 0
	}
	return row, nil
}

// Movement converts the delta into a log entry of the given type.
func (d Delta) Movement(productID int64, movementType, note, refCode string) Movement {
	return Movement{
		ProductID:         productID,
		Type:              movementType,
		CasesDelta:        d.Cases,
		BottlesDelta:      d.Bottles,
		TotalBottlesDelta: d.TotalBottles,
		ValueDelta:        d.Value,
		Note:              note,
		RefCode:           refCode,
	}
}
