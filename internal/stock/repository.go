package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iransamarasekara/cnh-distributors-sub000/internal/platform/db"
)

// TxLedger exposes the ledger operations that must run inside a transaction.
// The loading and unloading engines embed it into their own transactional
// repositories so stock mutations commit atomically with their documents.
type TxLedger interface {
	// GetRowForUpdate locks the product's ledger row for the duration of
	// the transaction. Returns ErrRowNotFound when no row exists yet.
	GetRowForUpdate(ctx context.Context, productID int64) (Row, error)
	// UpsertRow writes the row back, creating it when absent.
	UpsertRow(ctx context.Context, row Row) (Row, error)
	// InsertMovement appends one entry to the transaction log.
	InsertMovement(ctx context.Context, m Movement) error
}

// Repository is the pool-level port for the stock ledger.
type Repository interface {
	GetRow(ctx context.Context, productID int64) (Row, error)
	ListRows(ctx context.Context) ([]Row, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
	WithTx(ctx context.Context, fn func(ctx context.Context, ledger TxLedger) error) error
}

// MovementFilter narrows the transaction log listing.
type MovementFilter struct {
	ProductID int64
	Type      string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const rowColumns = `id, product_id, cases_qty, bottles_qty, total_bottles, total_value, updated_at`

func (r *repository) GetRow(ctx context.Context, productID int64) (Row, error) {
	row, err := scanRow(r.pool.QueryRow(ctx,
		`SELECT `+rowColumns+` FROM stock_inventory WHERE product_id = $1`, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Row{}, ErrRowNotFound
		}
		return Row{}, err
	}
	return row, nil
}

func (r *repository) ListRows(ctx context.Context) ([]Row, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+rowColumns+` FROM stock_inventory ORDER BY product_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		item, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	query := `SELECT id, product_id, movement_type, cases_delta, bottles_delta, total_bottles_delta, value_delta, note, COALESCE(ref_code, ''), created_at
		FROM inventory_transactions WHERE 1=1`
	args := []any{}
	idx := 1
	if filter.ProductID > 0 {
		query += fmt.Sprintf(" AND product_id = $%d", idx)
		args = append(args, filter.ProductID)
		idx++
	}
	if filter.Type != "" {
		query += fmt.Sprintf(" AND movement_type = $%d", idx)
		args = append(args, filter.Type)
		idx++
	}
	if !filter.From.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", idx)
		args = append(args, filter.From)
		idx++
	}
	if !filter.To.IsZero() {
		query += fmt.Sprintf(" AND created_at < $%d", idx)
		args = append(args, filter.To)
		idx++
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Type, &m.CasesDelta, &m.BottlesDelta, &m.TotalBottlesDelta, &m.ValueDelta, &m.Note, &m.RefCode, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(ctx context.Context, ledger TxLedger) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxLedger(tx))
	})
}

type txLedger struct {
	tx pgx.Tx
}

// NewTxLedger wraps an open transaction with the ledger operations.
func NewTxLedger(tx pgx.Tx) TxLedger {
	return &txLedger{tx: tx}
}

func (l *txLedger) GetRowForUpdate(ctx context.Context, productID int64) (Row, error) {
	row, err := scanRow(l.tx.QueryRow(ctx,
		`SELECT `+rowColumns+` FROM stock_inventory WHERE product_id = $1 FOR UPDATE`, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Row{}, ErrRowNotFound
		}
		return Row{}, err
	}
	return row, nil
}

func (l *txLedger) UpsertRow(ctx context.Context, row Row) (Row, error) {
	err := l.tx.QueryRow(ctx, `
		INSERT INTO stock_inventory (product_id, cases_qty, bottles_qty, total_bottles, total_value, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (product_id) DO UPDATE SET
			cases_qty = EXCLUDED.cases_qty,
			bottles_qty = EXCLUDED.bottles_qty,
			total_bottles = EXCLUDED.total_bottles,
			total_value = EXCLUDED.total_value,
			updated_at = NOW()
		RETURNING id, updated_at`,
		row.ProductID, row.CasesQty, row.BottlesQty, row.TotalBottles, row.TotalValue).
		Scan(&row.ID, &row.UpdatedAt)
	if err != nil {
		return Row{}, fmt.Errorf("stock: upsert row: %w", err)
	}
	return row, nil
}

func (l *txLedger) InsertMovement(ctx context.Context, m Movement) error {
	var refCode any
	if m.RefCode != "" {
		refCode = m.RefCode
	}
	_, err := l.tx.Exec(ctx, `
		INSERT INTO inventory_transactions (product_id, movement_type, cases_delta, bottles_delta, total_bottles_delta, value_delta, note, ref_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
		m.ProductID, m.Type, m.CasesDelta, m.BottlesDelta, m.TotalBottlesDelta, m.ValueDelta, m.Note, refCode)
	if err != nil {
		return fmt.Errorf("stock: insert movement: %w", err)
	}
	return nil
}

func scanRow(row pgx.Row) (Row, error) {
	var r Row
	err := row.Scan(&r.ID, &r.ProductID, &r.CasesQty, &r.BottlesQty, &r.TotalBottles, &r.TotalValue, &r.UpdatedAt)
	return r, err
}
