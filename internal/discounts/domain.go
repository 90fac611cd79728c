// Package discounts tracks retail shops, their discount classifications,
// and the discounted cases granted against each shop's allowance cap.
package discounts

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrShopNotFound indicates the requested shop does not exist.
	ErrShopNotFound = errors.New("discounts: shop not found")
	// ErrSubTypeNotFound indicates the sub-discount type does not exist.
	ErrSubTypeNotFound = errors.New("discounts: sub-discount type not found")
	// ErrExceedsCap indicates the requested cases break the shop's allowance.
	ErrExceedsCap = errors.New("discounts: cases exceed shop cap")
	// ErrUnknownPolicy indicates the configured policy name is not recognised.
	ErrUnknownPolicy = errors.New("discounts: unknown cap policy")
)

// Shop is a retail customer. MaxDiscountedCases is the allowance every
// discount grant is checked against; nil means no cap was configured and
// the global default applies, while an explicit zero blocks all grants.
type Shop struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Owner              string    `json:"owner"`
	Address            string    `json:"address"`
	ContactNumber      string    `json:"contact_number"`
	DiscountTypeID     int64     `json:"discount_type_id"`
	MaxDiscountedCases *int      `json:"max_discounted_cases"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// SubDiscountType carries the per-case monetary rate for one discount
// classification.
type SubDiscountType struct {
	ID              int64     `json:"id"`
	DiscountTypeID  int64     `json:"discount_type_id"`
	Name            string    `json:"name"`
	DiscountPerCase float64   `json:"discount_per_case"`
	CreatedAt       time.Time `json:"created_at"`
}

// Discount is one recorded grant consuming cases against a shop's cap.
// TotalDiscount is always DiscountedCases times the sub-type's rate.
type Discount struct {
	ID                int64     `json:"id"`
	ShopID            int64     `json:"shop_id"`
	SubDiscountTypeID int64     `json:"sub_discount_type_id"`
	InvoiceNumber     string    `json:"invoice_number"`
	SellingDate       time.Time `json:"selling_date"`
	DiscountedCases   int       `json:"discounted_cases"`
	TotalDiscount     float64   `json:"total_discount"`
	CreatedBy         int64     `json:"created_by"`
	CreatedAt         time.Time `json:"created_at"`
}

// CreateShopRequest registers a new shop.
type CreateShopRequest struct {
	Name               string `json:"name" validate:"required,max=200"`
	Owner              string `json:"owner" validate:"max=200"`
	Address            string `json:"address" validate:"max=500"`
	ContactNumber      string `json:"contact_number" validate:"max=30"`
	DiscountTypeID     int64  `json:"discount_type_id" validate:"gte=0"`
	MaxDiscountedCases *int   `json:"max_discounted_cases" validate:"omitempty,gte=0"`
}

// CreateSubTypeRequest registers a new sub-discount type.
type CreateSubTypeRequest struct {
	DiscountTypeID  int64   `json:"discount_type_id" validate:"gte=0"`
	Name            string  `json:"name" validate:"required,max=200"`
	DiscountPerCase float64 `json:"discount_per_case" validate:"required,gt=0"`
}

// CreateDiscountRequest asks to record a discount for a shop.
type CreateDiscountRequest struct {
	ShopID            int64     `json:"shop_id" validate:"required,gt=0"`
	SubDiscountTypeID int64     `json:"sub_discount_type_id" validate:"required,gt=0"`
	InvoiceNumber     string    `json:"invoice_number" validate:"required,max=50"`
	SellingDate       time.Time `json:"selling_date"`
	DiscountedCases   int       `json:"discounted_cases" validate:"required,gt=0"`
	ActorID           int64     `json:"-"`
}

// CapPolicy decides whether a grant of discounted cases is within the
// shop's allowance.
type CapPolicy interface {
	Check(ctx context.Context, shop Shop, cases int, sellingDate time.Time) error
}

// PerRequestCap compares each request's cases against the shop cap in
// isolation. This is the default policy. DefaultMax applies to shops
// without a cap of their own.
type PerRequestCap struct {
	DefaultMax int
}

func (p PerRequestCap) Check(_ context.Context, shop Shop, cases int, _ time.Time) error {
	max := shopCap(shop, p.DefaultMax)
	if cases > max {
		return fmt.Errorf("%w: %d > %d", ErrExceedsCap, cases, max)
	}
	return nil
}

// shopCap resolves the shop's allowance. An explicit zero is an honest
// zero cap; only an unset allowance falls back to the default.
func shopCap(shop Shop, defaultMax int) int {
	if shop.MaxDiscountedCases != nil {
		return *shop.MaxDiscountedCases
	}
	return defaultMax
}

// CasesSummer reports how many discounted cases a shop has already
// consumed since a point in time.
type CasesSummer interface {
	CasesForShopSince(ctx context.Context, shopID int64, since time.Time) (int, error)
}

// CumulativePeriodCap caps the running total of cases a shop consumes
// inside a rolling window rather than each request on its own.
type CumulativePeriodCap struct {
	DefaultMax int
	Period     time.Duration
	Summer     CasesSummer
}

func (p CumulativePeriodCap) Check(ctx context.Context, shop Shop, cases int, sellingDate time.Time) error {
	max := shopCap(shop, p.DefaultMax)
	ref := sellingDate
	if ref.IsZero() {
		ref = time.Now().UTC()
	}
	consumed, err := p.Summer.CasesForShopSince(ctx, shop.ID, ref.Add(-p.Period))
	if err != nil {
		return err
	}
	if consumed+cases > max {
		return fmt.Errorf("%w: %d consumed, %d requested, cap %d", ErrExceedsCap, consumed, cases, max)
	}
	return nil
}

// Policy names accepted in configuration.
const (
	PolicyPerRequest = "per_request"
	PolicyCumulative = "cumulative"
)

// NewCapPolicy builds the policy named in configuration.
func NewCapPolicy(name string, defaultMax int, period time.Duration, summer CasesSummer) (CapPolicy, error) {
	switch name {
	case "", PolicyPerRequest:
		return PerRequestCap{DefaultMax: defaultMax}, nil
	case PolicyCumulative:
		return CumulativePeriodCap{DefaultMax: defaultMax, Period: period, Summer: summer}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}
