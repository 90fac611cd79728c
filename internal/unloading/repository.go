package unloading

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iransamarasekara/cnh-distributors-sub000/internal/platform/db"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/stock"
)

// TxRepository bundles the document tables with the stock ledger so the
// header, details, ledger rows, and movement log commit in one transaction.
type TxRepository interface {
	stock.TxLedger

	InsertTransaction(ctx context.Context, t Transaction) (Transaction, error)
	InsertDetail(ctx context.Context, d Detail) (Detail, error)
	GetTransactionForUpdate(ctx context.Context, id int64) (Transaction, error)
	ListDetails(ctx context.Context, transactionID int64) ([]Detail, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
}

// Repository is the pool-level port for unloading documents.
type Repository interface {
	Get(ctx context.Context, id int64) (Transaction, error)
	List(ctx context.Context, req ListRequest) ([]Transaction, int, error)
	WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const headerColumns = `id, code, lorry_id, transaction_date, status, notes, created_by, created_at, updated_at`

func scanHeader(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.Code, &t.LorryID, &t.TransactionDate, &t.Status, &t.Notes, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *repository) Get(ctx context.Context, id int64) (Transaction, error) {
	t, err := scanHeader(r.pool.QueryRow(ctx,
		`SELECT `+headerColumns+` FROM unloading_transactions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, transaction_id, product_id, cases_qty, bottles_qty, total_bottles, value_amount
		 FROM unloading_details WHERE transaction_id = $1 ORDER BY id ASC`, id)
	if err != nil {
		return Transaction{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.ID, &d.TransactionID, &d.ProductID, &d.CasesQty, &d.BottlesQty, &d.TotalBottles, &d.ValueAmount); err != nil {
			return Transaction{}, err
		}
		t.Details = append(t.Details, d)
	}
	return t, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListRequest) ([]Transaction, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	idx := 1
	if req.LorryID > 0 {
		where += fmt.Sprintf(" AND lorry_id = $%d", idx)
		args = append(args, req.LorryID)
		idx++
	}
	if req.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, req.Status)
		idx++
	}
	if !req.From.IsZero() {
		where += fmt.Sprintf(" AND transaction_date >= $%d", idx)
		args = append(args, req.From)
		idx++
	}
	if !req.To.IsZero() {
		where += fmt.Sprintf(" AND transaction_date < $%d", idx)
		args = append(args, req.To)
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM unloading_transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + headerColumns + ` FROM unloading_transactions` + where +
		fmt.Sprintf(" ORDER BY transaction_date DESC, id DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanHeader(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, TxLedger: stock.NewTxLedger(tx)})
	})
}

type txRepository struct {
	stock.TxLedger
	tx pgx.Tx
}

func (r *txRepository) InsertTransaction(ctx context.Context, t Transaction) (Transaction, error) {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO unloading_transactions (code, lorry_id, transaction_date, status, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		t.Code, t.LorryID, t.TransactionDate, t.Status, t.Notes, t.CreatedBy).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Transaction{}, fmt.Errorf("unloading: insert transaction: %w", err)
	}
	return t, nil
}

func (r *txRepository) InsertDetail(ctx context.Context, d Detail) (Detail, error) {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO unloading_details (transaction_id, product_id, cases_qty, bottles_qty, total_bottles, value_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		d.TransactionID, d.ProductID, d.CasesQty, d.BottlesQty, d.TotalBottles, d.ValueAmount).
		Scan(&d.ID)
	if err != nil {
		return Detail{}, fmt.Errorf("unloading: insert detail: %w", err)
	}
	return d, nil
}

func (r *txRepository) GetTransactionForUpdate(ctx context.Context, id int64) (Transaction, error) {
	t, err := scanHeader(r.tx.QueryRow(ctx,
		`SELECT `+headerColumns+` FROM unloading_transactions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, err
	}
	return t, nil
}

func (r *txRepository) ListDetails(ctx context.Context, transactionID int64) ([]Detail, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT id, transaction_id, product_id, cases_qty, bottles_qty, total_bottles, value_amount
		 FROM unloading_details WHERE transaction_id = $1 ORDER BY id ASC`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Detail
	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.ID, &d.TransactionID, &d.ProductID, &d.CasesQty, &d.BottlesQty, &d.TotalBottles, &d.ValueAmount); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *txRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE unloading_transactions SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("unloading: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}
