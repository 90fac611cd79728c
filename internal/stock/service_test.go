package stock

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iransamarasekara/cnh-distributors-sub000/internal/catalog"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/shared"
)

// memoryLedger is an in-memory Repository. WithTx operates on copies and
// commits them only when the callback succeeds, mirroring the transactional
// contract of the real repository.
type memoryLedger struct {
	nextRowID int64
	rows      map[int64]Row
	movements []Movement
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{nextRowID: 1, rows: make(map[int64]Row)}
}

func (m *memoryLedger) GetRow(_ context.Context, productID int64) (Row, error) {
	row, ok := m.rows[productID]
	if !ok {
		return Row{}, ErrRowNotFound
	}
	return row, nil
}

func (m *memoryLedger) ListRows(context.Context) ([]Row, error) {
	out := make([]Row, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, row)
	}
	return out, nil
}

func (m *memoryLedger) ListMovements(_ context.Context, filter MovementFilter) ([]Movement, error) {
	var out []Movement
	for i := len(m.movements) - 1; i >= 0; i-- {
		mv := m.movements[i]
		if filter.ProductID > 0 && mv.ProductID != filter.ProductID {
			continue
		}
		if filter.Type != "" && mv.Type != filter.Type {
			continue
		}
		out = append(out, mv)
	}
	return out, nil
}

func (m *memoryLedger) WithTx(ctx context.Context, fn func(ctx context.Context, ledger TxLedger) error) error {
	tx := &memoryTx{
		nextRowID: m.nextRowID,
		rows:      make(map[int64]Row, len(m.rows)),
	}
	for k, v := range m.rows {
		tx.rows[k] = v
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.nextRowID = tx.nextRowID
	m.rows = tx.rows
	m.movements = append(m.movements, tx.movements...)
	return nil
}

type memoryTx struct {
	nextRowID int64
	rows      map[int64]Row
	movements []Movement
}

func (t *memoryTx) GetRowForUpdate(_ context.Context, productID int64) (Row, error) {
	row, ok := t.rows[productID]
	if !ok {
		return Row{}, ErrRowNotFound
	}
	return row, nil
}

func (t *memoryTx) UpsertRow(_ context.Context, row Row) (Row, error) {
	if existing, ok := t.rows[row.ProductID]; ok {
		row.ID = existing.ID
	} else {
		row.ID = t.nextRowID
		t.nextRowID++
	}
	row.UpdatedAt = time.Now().UTC()
	t.rows[row.ProductID] = row
	return row, nil
}

func (t *memoryTx) InsertMovement(_ context.Context, m Movement) error {
	m.ID = int64(len(t.movements) + 1)
	m.CreatedAt = time.Now().UTC()
	t.movements = append(t.movements, m)
	return nil
}

type stubCatalog struct {
	products map[int64]catalog.Product
}

func (s *stubCatalog) Get(_ context.Context, id int64) (catalog.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (r *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func newTestService(repo Repository, products *stubCatalog, audit AuditPort) *Service {
	logger := slog.New(slog.DiscardHandler)
	return NewService(logger, repo, products, audit, nil, RunningAverageValue{}, Config{})
}

func testProducts() *stubCatalog {
	return &stubCatalog{products: map[int64]catalog.Product{
		1: {ID: 1, Name: "Cola 300ml", BottlesPerCase: 12, SellingPrice: 10.0, IsActive: true},
		2: {ID: 2, Name: "Soda 500ml", BottlesPerCase: 24, SellingPrice: 5.0, IsActive: true},
	}}
}

func TestAddCreatesRowOnFirstIntake(t *testing.T) {
	repo := newMemoryLedger()
	audit := &recordingAudit{}
	svc := newTestService(repo, testProducts(), audit)

	row, err := svc.Add(context.Background(), AddStockRequest{ProductID: 1, Cases: 2, Bottles: 5, ActorID: 7})
	require.NoError(t, err)
	require.Equal(t, 29, row.TotalBottles)
	require.InDelta(t, 290.0, row.TotalValue, 1e-9)

	require.Len(t, repo.movements, 1)
	require.Equal(t, MovementAdd, repo.movements[0].Type)
	require.Equal(t, 29, repo.movements[0].TotalBottlesDelta)
	require.InDelta(t, 290.0, repo.movements[0].ValueDelta, 1e-9)

	require.Len(t, audit.logs, 1)
	require.Equal(t, "stock.add", audit.logs[0].Action)
	require.Equal(t, int64(7), audit.logs[0].ActorID)
}

func TestAddIncrementsExistingRow(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo, testProducts(), nil)

	_, err := svc.Add(context.Background(), AddStockRequest{ProductID: 1, Cases: 2})
	require.NoError(t, err)
	row, err := svc.Add(context.Background(), AddStockRequest{ProductID: 1, Cases: 1, Bottles: 3})
	require.NoError(t, err)

	require.Equal(t, 3, row.CasesQty)
	require.Equal(t, 3, row.BottlesQty)
	require.Equal(t, 39, row.TotalBottles)
	require.InDelta(t, 390.0, row.TotalValue, 1e-9)
	require.Len(t, repo.movements, 2)
}

func TestAddRespectsPerProductCaseSize(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo, testProducts(), nil)

	row, err := svc.Add(context.Background(), AddStockRequest{ProductID: 2, Cases: 1, Bottles: 1})
	require.NoError(t, err)
	require.Equal(t, 25, row.TotalBottles)
	require.InDelta(t, 125.0, row.TotalValue, 1e-9)
}

func TestAddRejectsUnknownProduct(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo, testProducts(), nil)

	_, err := svc.Add(context.Background(), AddStockRequest{ProductID: 99, Cases: 1})
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
	require.Empty(t, repo.rows)
	require.Empty(t, repo.movements)
}

func TestAddRejectsEmptyQuantity(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo, testProducts(), nil)

	_, err := svc.Add(context.Background(), AddStockRequest{ProductID: 1})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	require.Empty(t, repo.movements)
}

func TestGetJoinsProductData(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo, testProducts(), nil)

	_, err := svc.Add(context.Background(), AddStockRequest{ProductID: 1, Cases: 1})
	require.NoError(t, err)

	view, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "Cola 300ml", view.ProductName)
	require.Equal(t, 12, view.BottlesPerCase)
	require.Equal(t, 12, view.TotalBottles)
}

func TestGetMissingRow(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo, testProducts(), nil)

	_, err := svc.Get(context.Background(), 1)
	require.ErrorIs(t, err, ErrRowNotFound)
}

func TestHistoryFiltersByProductAndType(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo, testProducts(), nil)

	_, err := svc.Add(context.Background(), AddStockRequest{ProductID: 1, Cases: 1})
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), AddStockRequest{ProductID: 2, Cases: 1})
	require.NoError(t, err)

	movements, err := svc.History(context.Background(), HistoryRequest{ProductID: 1})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	require.Equal(t, int64(1), movements[0].ProductID)

	movements, err = svc.History(context.Background(), HistoryRequest{Type: MovementRemove})
	require.NoError(t, err)
	require.Empty(t, movements)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	repo := newMemoryLedger()
	boom := errors.New("boom")

	err := repo.WithTx(context.Background(), func(ctx context.Context, ledger TxLedger) error {
		_, err := ledger.UpsertRow(ctx, Row{ProductID: 1, CasesQty: 5, TotalBottles: 60, TotalValue: 600})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Empty(t, repo.rows)
}
