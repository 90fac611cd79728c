package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iransamarasekara/cnh-distributors-sub000/internal/stock"
)

// NewStockIntegrityHandler returns the handler for TaskStockIntegrity. It
// cross-checks every ledger row's derived total against its components and
// the product's case size. Mismatches are logged, never auto-repaired,
// since they point at a bug in a write path.
func NewStockIntegrityHandler(logger *slog.Logger, pool *pgxpool.Pool) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		rows, err := pool.Query(ctx, `
			SELECT s.product_id, s.cases_qty, s.bottles_qty, s.total_bottles, s.total_value, p.bottles_per_case
			FROM stock_inventory s
			JOIN products p ON p.id = s.product_id`)
		if err != nil {
			return fmt.Errorf("jobs: integrity scan: %w", err)
		}
		defer rows.Close()

		checked, mismatched := 0, 0
		for rows.Next() {
			var (
				productID      int64
				cases, bottles int
				totalBottles   int
				totalValue     float64
				perCase        int
			)
			if err := rows.Scan(&productID, &cases, &bottles, &totalBottles, &totalValue, &perCase); err != nil {
				return err
			}
			checked++
			if perCase <= 0 {
				perCase = stock.DefaultBottlesPerCase
			}
			want := cases*perCase + bottles
			if totalBottles != want || totalBottles < 0 || totalValue < 0 {
				mismatched++
				logger.Error("ledger row fails integrity check",
					slog.Int64("product_id", productID),
					slog.Int("total_bottles", totalBottles),
					slog.Int("expected_bottles", want),
					slog.Float64("total_value", totalValue),
				)
			}
		}
		if err := rows.Err(); err != nil {
			return err
		}

		logger.Info("stock integrity scan finished",
			slog.Int("checked", checked),
			slog.Int("mismatched", mismatched),
		)
		if mismatched > 0 {
			return fmt.Errorf("jobs: %d ledger rows failed integrity check", mismatched)
		}
		return nil
	}
}
