package catalog

import "time"

// Product is the reference record for a beverage SKU. Case size and prices
// feed the stock ledger's unit conversion and valuation; rows referenced by
// ledger entries are deactivated, never deleted.
type Product struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	ContainerSize  string    `json:"container_size"`
	BottlesPerCase int       `json:"bottles_per_case"`
	UnitCost       float64   `json:"unit_cost"`
	SellingPrice   float64   `json:"selling_price"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
