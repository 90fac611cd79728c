// Package reports serves read-only aggregates over the ledger and the
// loading history. Responses are cached in Redis since the queries scan
// whole tables.
package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StockSummary is the warehouse-wide position.
type StockSummary struct {
	ProductsStocked int     `json:"products_stocked"`
	TotalCases      int     `json:"total_cases"`
	TotalBottles    int     `json:"total_bottles"`
	TotalValue      float64 `json:"total_value"`
	// DisplayBottles and DisplayValue are pre-formatted for dashboards.
	DisplayBottles string    `json:"display_bottles"`
	DisplayValue   string    `json:"display_value"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// MovementTotals aggregates the transaction log for a window.
type MovementTotals struct {
	Type         string  `json:"type"`
	Count        int     `json:"count"`
	TotalBottles int     `json:"total_bottles"`
	TotalValue   float64 `json:"total_value"`
}

// LorryActivity counts loading and unloading documents per lorry.
type LorryActivity struct {
	LorryID            int64  `json:"lorry_id"`
	RegistrationNumber string `json:"registration_number"`
	LoadingCount       int    `json:"loading_count"`
	UnloadingCount     int    `json:"unloading_count"`
	CancelledCount     int    `json:"cancelled_count"`
}

// ProductLoadTotals ranks a product by how much of it left the warehouse.
type ProductLoadTotals struct {
	ProductID     int64   `json:"product_id"`
	ProductName   string  `json:"product_name"`
	ContainerSize string  `json:"container_size"`
	Documents     int     `json:"documents"`
	TotalBottles  int     `json:"total_bottles"`
	TotalValue    float64 `json:"total_value"`
}

type Repository interface {
	StockSummary(ctx context.Context) (StockSummary, error)
	MovementTotals(ctx context.Context, from, to time.Time) ([]MovementTotals, error)
	LorryActivity(ctx context.Context, from, to time.Time) ([]LorryActivity, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductLoadTotals, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) StockSummary(ctx context.Context) (StockSummary, error) {
	var s StockSummary
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE total_bottles > 0),
		       COALESCE(SUM(cases_qty), 0),
		       COALESCE(SUM(total_bottles), 0),
		       COALESCE(SUM(total_value), 0)
		FROM stock_inventory`).
		Scan(&s.ProductsStocked, &s.TotalCases, &s.TotalBottles, &s.TotalValue)
	if err != nil {
		return StockSummary{}, err
	}
	s.GeneratedAt = time.Now().UTC()
	return s, nil
}

func (r *repository) MovementTotals(ctx context.Context, from, to time.Time) ([]MovementTotals, error) {
	rows, err := r.db.Query(ctx, `
		SELECT movement_type, COUNT(*), COALESCE(SUM(total_bottles_delta), 0), COALESCE(SUM(value_delta), 0)
		FROM inventory_transactions
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY movement_type
		ORDER BY movement_type`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MovementTotals
	for rows.Next() {
		var t MovementTotals
		if err := rows.Scan(&t.Type, &t.Count, &t.TotalBottles, &t.TotalValue); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) LorryActivity(ctx context.Context, from, to time.Time) ([]LorryActivity, error) {
	rows, err := r.db.Query(ctx, `
		SELECT l.id, l.registration_number,
		       COALESCE(ld.cnt, 0), COALESCE(ul.cnt, 0), COALESCE(ld.cancelled, 0) + COALESCE(ul.cancelled, 0)
		FROM lorries l
		LEFT JOIN (
			SELECT lorry_id, COUNT(*) AS cnt, COUNT(*) FILTER (WHERE status = 'Cancelled') AS cancelled
			FROM loading_transactions WHERE created_at >= $1 AND created_at < $2 GROUP BY lorry_id
		) ld ON ld.lorry_id = l.id
		LEFT JOIN (
			SELECT lorry_id, COUNT(*) AS cnt, COUNT(*) FILTER (WHERE status = 'Cancelled') AS cancelled
			FROM unloading_transactions WHERE created_at >= $1 AND created_at < $2 GROUP BY lorry_id
		) ul ON ul.lorry_id = l.id
		ORDER BY l.registration_number`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LorryActivity
	for rows.Next() {
		var a LorryActivity
		if err := rows.Scan(&a.LorryID, &a.RegistrationNumber, &a.LoadingCount, &a.UnloadingCount, &a.CancelledCount); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductLoadTotals, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.name, p.container_size,
		       COUNT(DISTINCT t.id),
		       COALESCE(SUM(d.total_bottles), 0),
		       COALESCE(SUM(d.value_amount), 0)
		FROM loading_details d
		JOIN loading_transactions t ON t.id = d.transaction_id
		JOIN products p ON p.id = d.product_id
		WHERE t.status <> 'Cancelled' AND t.transaction_date >= $1 AND t.transaction_date < $2
		GROUP BY p.id, p.name, p.container_size
		ORDER BY SUM(d.total_bottles) DESC
		LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProductLoadTotals
	for rows.Next() {
		var p ProductLoadTotals
		if err := rows.Scan(&p.ProductID, &p.ProductName, &p.ContainerSize, &p.Documents, &p.TotalBottles, &p.TotalValue); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
