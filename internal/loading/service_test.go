package loading

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iransamarasekara/cnh-distributors-sub000/internal/catalog"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/shared"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/stock"
)

// memoryStore backs the fake repository. WithTx works on a copy and commits
// only on success so atomicity failures surface in tests.
type memoryStore struct {
	nextTxID     int64
	nextDetailID int64
	headers      map[int64]Transaction
	details      map[int64][]Detail
	rows         map[int64]stock.Row
	movements    []stock.Movement
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		nextTxID:     1,
		nextDetailID: 1,
		headers:      make(map[int64]Transaction),
		details:      make(map[int64][]Detail),
		rows:         make(map[int64]stock.Row),
	}
}

func (m *memoryStore) seedRow(row stock.Row) {
	m.rows[row.ProductID] = row
}

func (m *memoryStore) Get(_ context.Context, id int64) (Transaction, error) {
	header, ok := m.headers[id]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	header.Details = append([]Detail(nil), m.details[id]...)
	return header, nil
}

func (m *memoryStore) List(_ context.Context, req ListRequest) ([]Transaction, int, error) {
	var out []Transaction
	for _, header := range m.headers {
		if req.LorryID > 0 && header.LorryID != req.LorryID {
			continue
		}
		if req.Status != "" && header.Status != req.Status {
			continue
		}
		out = append(out, header)
	}
	return out, len(out), nil
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error {
	tx := &memoryTx{store: m.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	*m = *tx.store
	return nil
}

func (m *memoryStore) clone() *memoryStore {
	c := newMemoryStore()
	c.nextTxID = m.nextTxID
	c.nextDetailID = m.nextDetailID
	for k, v := range m.headers {
		c.headers[k] = v
	}
	for k, v := range m.details {
		c.details[k] = append([]Detail(nil), v...)
	}
	for k, v := range m.rows {
		c.rows[k] = v
	}
	c.movements = append([]stock.Movement(nil), m.movements...)
	return c
}

type memoryTx struct {
	store *memoryStore
}

func (t *memoryTx) GetRowForUpdate(_ context.Context, productID int64) (stock.Row, error) {
	row, ok := t.store.rows[productID]
	if !ok {
		return stock.Row{}, stock.ErrRowNotFound
	}
	return row, nil
}

func (t *memoryTx) UpsertRow(_ context.Context, row stock.Row) (stock.Row, error) {
	if existing, ok := t.store.rows[row.ProductID]; ok {
		row.ID = existing.ID
	} else {
		row.ID = int64(len(t.store.rows) + 1)
	}
	row.UpdatedAt = time.Now().UTC()
	t.store.rows[row.ProductID] = row
	return row, nil
}

func (t *memoryTx) InsertMovement(_ context.Context, m stock.Movement) error {
	m.ID = int64(len(t.store.movements) + 1)
	m.CreatedAt = time.Now().UTC()
	t.store.movements = append(t.store.movements, m)
	return nil
}

func (t *memoryTx) InsertTransaction(_ context.Context, header Transaction) (Transaction, error) {
	header.ID = t.store.nextTxID
	t.store.nextTxID++
	header.CreatedAt = time.Now().UTC()
	header.UpdatedAt = header.CreatedAt
	stored := header
	stored.Details = nil
	t.store.headers[header.ID] = stored
	return header, nil
}

func (t *memoryTx) InsertDetail(_ context.Context, d Detail) (Detail, error) {
	d.ID = t.store.nextDetailID
	t.store.nextDetailID++
	t.store.details[d.TransactionID] = append(t.store.details[d.TransactionID], d)
	return d, nil
}

func (t *memoryTx) GetTransactionForUpdate(_ context.Context, id int64) (Transaction, error) {
	header, ok := t.store.headers[id]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return header, nil
}

func (t *memoryTx) ListDetails(_ context.Context, id int64) ([]Detail, error) {
	return append([]Detail(nil), t.store.details[id]...), nil
}

func (t *memoryTx) UpdateStatus(_ context.Context, id int64, status Status) error {
	header, ok := t.store.headers[id]
	if !ok {
		return ErrTransactionNotFound
	}
	header.Status = status
	header.UpdatedAt = time.Now().UTC()
	t.store.headers[id] = header
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

type stubFleet struct {
	lorries map[int64]bool
}

func (s *stubFleet) Exists(_ context.Context, id int64) (bool, error) {
	return s.lorries[id], nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (r *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

type recordingMetrics struct {
	movements []string
	documents []string
}

func (r *recordingMetrics) ObserveMovement(movementType string) {
	r.movements = append(r.movements, movementType)
}

func (r *recordingMetrics) ObserveDocument(kind, status string) {
	r.documents = append(r.documents, kind+"/"+status)
}

func newTestService(store *memoryStore) *Service {
	return newTestServiceWithMetrics(store, nil)
}

func newTestServiceWithMetrics(store *memoryStore, metrics MetricsPort) *Service {
	products := &stubCatalog{products: map[int64]catalog.Product{
		1: {ID: 1, Name: "Cola 300ml", BottlesPerCase: 12, SellingPrice: 10.0, IsActive: true},
		2: {ID: 2, Name: "Soda 500ml", BottlesPerCase: 24, SellingPrice: 5.0, IsActive: true},
	}}
	fleet := &stubFleet{lorries: map[int64]bool{1: true}}
	logger := slog.New(slog.DiscardHandler)
	return NewService(logger, store, products, fleet, &recordingAudit{}, metrics, stock.RunningAverageValue{}, stock.Config{})
}

func TestCreateDebitsStockAtomically(t *testing.T) {
	store := newMemoryStore()
	store.seedRow(stock.Row{ID: 1, ProductID: 1, CasesQty: 10, TotalBottles: 120, TotalValue: 1200.0})
	svc := newTestService(store)

	created, err := svc.Create(context.Background(), CreateRequest{
		LorryID: 1,
		Items:   []ItemRequest{{ProductID: 1, Cases: 3}},
		ActorID: 7,
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, created.Status)
	require.NotEmpty(t, created.Code)
	require.Len(t, created.Details, 1)
	require.Equal(t, 36, created.Details[0].TotalBottles)
	require.InDelta(t, 360.0, created.Details[0].ValueAmount, 1e-9)

	row := store.rows[1]
	require.Equal(t, 7, row.CasesQty)
	require.Equal(t, 84, row.TotalBottles)
	require.InDelta(t, 840.0, row.TotalValue, 1e-9)

	require.Len(t, store.movements, 1)
	require.Equal(t, stock.MovementRemove, store.movements[0].Type)
	require.Equal(t, "Loading transaction", store.movements[0].Note)
	require.Equal(t, created.Code, store.movements[0].RefCode)
}

func TestCreateHonoursInitialStatus(t *testing.T) {
	store := newMemoryStore()
	store.seedRow(stock.Row{ID: 1, ProductID: 1, CasesQty: 10, TotalBottles: 120, TotalValue: 1200.0})
	svc := newTestService(store)

	created, err := svc.Create(context.Background(), CreateRequest{
		LorryID: 1,
		Status:  StatusCompleted,
		Items:   []ItemRequest{{ProductID: 1, Cases: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, created.Status)
	require.Equal(t, 8, store.rows[1].CasesQty)

	// A document created Completed can still be unwound.
	_, err = svc.UpdateStatus(context.Background(), created.ID, UpdateStatusRequest{Status: StatusCancelled})
	require.NoError(t, err)
	require.Equal(t, 10, store.rows[1].CasesQty)
}

func TestCreateRejectsBadInitialStatus(t *testing.T) {
	store := newMemoryStore()
	store.seedRow(stock.Row{ID: 1, ProductID: 1, CasesQty: 10, TotalBottles: 120, TotalValue: 1200.0})
	svc := newTestService(store)

	for _, status := range []Status{StatusCancelled, Status("Shipped")} {
		_, err := svc.Create(context.Background(), CreateRequest{
			LorryID: 1,
			Status:  status,
			Items:   []ItemRequest{{ProductID: 1, Cases: 1}},
		})
		require.ErrorIs(t, err, ErrInvalidTransition)
	}
	require.Empty(t, store.headers)
	require.Equal(t, 10, store.rows[1].CasesQty)
}

func TestCreateDefaultsTransactionDate(t *testing.T) {
	store := newMemoryStore()
	store.seedRow(stock.Row{ID: 1, ProductID: 1, CasesQty: 10, TotalBottles: 120, TotalValue: 1200.0})
	svc := newTestService(store)

	created, err := svc.Create(context.Background(), CreateRequest{
		LorryID: 1,
		Items:   []ItemRequest{{ProductID: 1, Cases: 1}},
	})
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().UTC(), created.TransactionDate, time.Minute)

	backdated := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	created, err = svc.Create(context.Background(), CreateRequest{
		LorryID:         1,
		TransactionDate: backdated,
		Items:           []ItemRequest{{ProductID: 1, Cases: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, backdated, created.TransactionDate)
}

func TestCreateAndCancelBumpCounters(t *testing.T) {
	store := newMemoryStore()
	store.seedRow(stock.Row{ID: 1, ProductID: 1, CasesQty: 10, TotalBottles: 120, TotalValue: 1200.0})
	metrics := &recordingMetrics{}
	svc := newTestServiceWithMetrics(store, metrics)

	created, err := svc.Create(context.Background(), CreateRequest{
		LorryID: 1,
		Items:   []ItemRequest{{ProductID: 1, Cases: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{stock.MovementRemove}, metrics.movements)
	require.Equal(t, []string{"loading/Pending"}, metrics.documents)

	_, err = svc.UpdateStatus(context.Background(), created.ID, UpdateStatusRequest{Status: StatusCancelled})
	require.NoError(t, err)
	require.Equal(t, []string{stock.MovementRemove, stock.MovementReversal}, metrics.movements)
	require.Equal(t, []string{"loading/Pending", "loading/Cancelled"}, metrics.documents)
}

func TestCreateRejectsInsufficientStock(t *testing.T) {
	store := newMemoryStore()
	store.seedRow(stock.Row{ID: 1, ProductID: 1, CasesQty: 10, TotalBottles: 120, TotalValue: 1200.0})
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), CreateRequest{
		LorryID: 1,
		Items:   []ItemRequest{{ProductID: 1, Cases: 15}},
	})
	require.ErrorIs(t, err, stock.ErrInsufficientStock)

	require.Empty(t, store.headers)
	require.Empty(t, store.movements)
	require.Equal(t, 10, store.rows[1].CasesQty)
}

func TestCreateAbortsWholeDocumentOnSecondItemShortfall(t *testing.T) {
	store := newMemoryStore()
	store.seedRow(stock.Row{ID: 1, ProductID: 1, CasesQty: 10, TotalBottles: 120, TotalValue: 1200.0})
	store.seedRow(stock.Row{ID: 2, ProductID: 2, CasesQty: 1, TotalBottles: 24, TotalValue: 120.0})
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), CreateRequest{
		LorryID: 1,
		Items: []ItemRequest{
			{ProductID: 1, Cases: 2},
			{ProductID: 2, Cases: 5},
		},
	})
	require.ErrorIs(t, err, stock.ErrInsufficientStock)

	// The successful first item must not persist either.
	require.Equal(t, 10, store.rows[1].CasesQty)
	require.Empty(t, store.headers)
	require.Empty(t, store.movements)
}

func TestCreateRejectsMissingLedgerRow(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), CreateRequest{
		LorryID: 1,
		Items:   []ItemRequest{{ProductID: 1, Cases: 1}},
	})
	require.ErrorIs(t, err, stock.ErrRowNotFound)
	require.Empty(t, store.headers)
}

func TestCreateRejectsUnknownLorry(t *testing.T) {
	store := newMemoryStore()
	store.seedRow(stock.Row{ID: 1, ProductID: 1, CasesQty: 10, TotalBottles: 120, TotalValue: 1200.0})
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), CreateRequest{
		LorryID: 42,
		Items:   []ItemRequest{{ProductID: 1, Cases: 1}},
	})
	require.ErrorIs(t, err, ErrLorryNotAvailable)
}

func TestCreateRejectsZeroQuantityItem(t *testing.T) {
	store := newMemoryStore()
	store.seedRow(stock.Row{ID: 1, ProductID: 1, CasesQty: 10, TotalBottles: 120, TotalValue: 1200.0})
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), CreateRequest{
		LorryID: 1,
		Items:   []ItemRequest{{ProductID: 1}},
	})
	require.ErrorIs(t, err, stock.ErrInvalidQuantity)
}

func TestStatusTransitions(t *testing.T) {
	store := newMemoryStore()
	store.seedRow(stock.Row{ID: 1, ProductID: 1, CasesQty: 10, TotalBottles: 120, TotalValue: 1200.0})
	svc := newTestService(store)

	created, err := svc.Create(context.Background(), CreateRequest{
		LorryID: 1,
		Items:   []ItemRequest{{ProductID: 1, Cases: 2}},
	})
	require.NoError(t, err)

	completed, err := svc.UpdateStatus(context.Background(), created.ID, UpdateStatusRequest{Status: StatusCompleted})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)

	// Completed never goes back to Pending.
	_, err = svc.UpdateStatus(context.Background(), created.ID, UpdateStatusRequest{Status: StatusPending})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelRestoresStockExactly(t *testing.T) {
	store := newMemoryStore()
	store.seedRow(stock.Row{ID: 1, ProductID: 1, CasesQty: 10, BottlesQty: 4, TotalBottles: 124, TotalValue: 1240.0})
	svc := newTestService(store)

	created, err := svc.Create(context.Background(), CreateRequest{
		LorryID: 1,
		Items:   []ItemRequest{{ProductID: 1, Cases: 3, Bottles: 2}},
	})
	require.NoError(t, err)

	cancelled, err := svc.UpdateStatus(context.Background(), created.ID, UpdateStatusRequest{Status: StatusCancelled})
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)

	row := store.rows[1]
	require.Equal(t, 10, row.CasesQty)
	require.Equal(t, 4, row.BottlesQty)
	require.Equal(t, 124, row.TotalBottles)
	require.InDelta(t, 1240.0, row.TotalValue, 1e-9)

	require.Len(t, store.movements, 2)
	reversal := store.movements[1]
	require.Equal(t, stock.MovementReversal, reversal.Type)
	require.Equal(t, created.Code, reversal.RefCode)
	require.Equal(t, 38, reversal.TotalBottlesDelta)
}

func TestCancelFromCompletedAllowed(t *testing.T) {
	store := newMemoryStore()
	store.seedRow(stock.Row{ID: 1, ProductID: 1, CasesQty: 10, TotalBottles: 120, TotalValue: 1200.0})
	svc := newTestService(store)

	created, err := svc.Create(context.Background(), CreateRequest{
		LorryID: 1,
		Items:   []ItemRequest{{ProductID: 1, Cases: 2}},
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), created.ID, UpdateStatusRequest{Status: StatusCompleted})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), created.ID, UpdateStatusRequest{Status: StatusCancelled})
	require.NoError(t, err)

	require.Equal(t, 10, store.rows[1].CasesQty)
}

func TestCancelledIsTerminal(t *testing.T) {
	store := newMemoryStore()
	store.seedRow(stock.Row{ID: 1, ProductID: 1, CasesQty: 10, TotalBottles: 120, TotalValue: 1200.0})
	svc := newTestService(store)

	created, err := svc.Create(context.Background(), CreateRequest{
		LorryID: 1,
		Items:   []ItemRequest{{ProductID: 1, Cases: 2}},
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), created.ID, UpdateStatusRequest{Status: StatusCancelled})
	require.NoError(t, err)

	for _, next := range []Status{StatusPending, StatusCompleted, StatusCancelled} {
		_, err = svc.UpdateStatus(context.Background(), created.ID, UpdateStatusRequest{Status: next})
		require.ErrorIs(t, err, ErrInvalidTransition)
	}
	// Double cancel must not double credit.
	require.Equal(t, 10, store.rows[1].CasesQty)
	require.Equal(t, 120, store.rows[1].TotalBottles)
}
