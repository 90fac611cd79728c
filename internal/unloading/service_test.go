package unloading

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
// only on success.
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

func newTestService(store *memoryStore) *Service {
	products := &stubCatalog{products: map[int64]catalog.Product{
		1: {ID: 1, Name: "Cola 300ml", BottlesPerCase: 12, SellingPrice: 10.0, IsActive: true},
		2: {ID: 2, Name: "Soda 500ml", BottlesPerCase: 24, SellingPrice: 5.0, IsActive: true},
	}}
	fleet := &stubFleet{lorries: map[int64]bool{1: true}}
	logger := slog.New(slog.DiscardHandler)
	return NewService(logger, store, products, fleet, &recordingAudit{}, nil, stock.RunningAverageValue{}, stock.Config{})
}

func TestCreateSeedsMissingRowFromProductPrice(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	created, err := svc.Create(context.Background(), CreateRequest{
		LorryID: 1,
		Items:   []ItemRequest{{ProductID: 1, Cases: 2, Bottles: 5}},
		ActorID: 7,
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, created.Status)

	row := store.rows[1]
	require.Equal(t, 2, row.CasesQty)
	require.Equal(t, 5, row.BottlesQty)
	require.Equal(t, 29, row.TotalBottles)
	require.InDelta(t, 290.0, row.TotalValue, 1e-9)

	require.Len(t, store.movements, 1)
	require.Equal(t, stock.MovementAdd, store.movements[0].Type)
	require.Equal(t, "Unloading transaction", store.movements[0].Note)
	require.Equal(t, created.Code, store.movements[0].RefCode)
}

func TestCreateHonoursInitialStatus(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	created, err := svc.Create(context.Background(), CreateRequest{
		LorryID: 1,
		Status:  StatusCompleted,
		Items:   []ItemRequest{{ProductID: 1, Cases: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, created.Status)
	require.Equal(t, 24, store.rows[1].TotalBottles)

	for _, status := range []Status{StatusCancelled, Status("Returned")} {
		_, err := svc.Create(context.Background(), CreateRequest{
			LorryID: 1,
			Status:  status,
			Items:   []ItemRequest{{ProductID: 1, Cases: 1}},
		})
		require.ErrorIs(t, err, ErrInvalidTransition)
	}
	require.Len(t, store.headers, 1)
}

func TestCreateCreditsExistingRowAtRunningAverage(t *testing.T) {
	store := newMemoryStore()
	store.seedRow(stock.Row{ID: 1, ProductID: 1, CasesQty: 10, TotalBottles: 120, TotalValue: 600.0})
	svc := newTestService(store)

	created, err := svc.Create(context.Background(), CreateRequest{
		LorryID: 1,
		Items:   []ItemRequest{{ProductID: 1, Cases: 1}},
	})
	require.NoError(t, err)

	// 5.0 per bottle before the credit, not the 10.0 selling price.
	row := store.rows[1]
	require.Equal(t, 132, row.TotalBottles)
	require.InDelta(t, 660.0, row.TotalValue, 1e-9)
	require.InDelta(t, 60.0, created.Details[0].ValueAmount, 1e-9)
}

func TestCreateRejectsUnknownProduct(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), CreateRequest{
		LorryID: 1,
		Items:   []ItemRequest{{ProductID: 99, Cases: 1}},
	})
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
	require.Empty(t, store.headers)
	require.Empty(t, store.rows)
}

func TestCreateRejectsUnknownLorry(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), CreateRequest{
		LorryID: 42,
		Items:   []ItemRequest{{ProductID: 1, Cases: 1}},
	})
	require.ErrorIs(t, err, ErrLorryNotAvailable)
}

func TestCancelRemovesCreditedStockExactly(t *testing.T) {
	store := newMemoryStore()
	store.seedRow(stock.Row{ID: 1, ProductID: 1, CasesQty: 3, BottlesQty: 1, TotalBottles: 37, TotalValue: 370.0})
	svc := newTestService(store)

	created, err := svc.Create(context.Background(), CreateRequest{
		LorryID: 1,
		Items:   []ItemRequest{{ProductID: 1, Cases: 2, Bottles: 3}},
	})
	require.NoError(t, err)

	cancelled, err := svc.UpdateStatus(context.Background(), created.ID, UpdateStatusRequest{Status: StatusCancelled})
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)

	row := store.rows[1]
	require.Equal(t, 3, row.CasesQty)
	require.Equal(t, 1, row.BottlesQty)
	require.Equal(t, 37, row.TotalBottles)
	require.InDelta(t, 370.0, row.TotalValue, 1e-9)

	require.Len(t, store.movements, 2)
	require.Equal(t, stock.MovementReversal, store.movements[1].Type)
	require.Equal(t, created.Code, store.movements[1].RefCode)
}

func TestCancelFailsWhenStockAlreadyConsumed(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	created, err := svc.Create(context.Background(), CreateRequest{
		LorryID: 1,
		Items:   []ItemRequest{{ProductID: 1, Cases: 2, Bottles: 5}},
	})
	require.NoError(t, err)

	// A loading document has since taken most of the stock away.
	row := store.rows[1]
	row.CasesQty = 1
	row.BottlesQty = 0
	row.TotalBottles = 12
	row.TotalValue = 120.0
	store.rows[1] = row

	_, err = svc.UpdateStatus(context.Background(), created.ID, UpdateStatusRequest{Status: StatusCancelled})
	require.ErrorIs(t, err, ErrReversalNegative)

	// Nothing committed: status and row are untouched.
	header, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, header.Status)
	require.Equal(t, 12, store.rows[1].TotalBottles)
	require.Len(t, store.movements, 1)
}

func TestStatusMachine(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	created, err := svc.Create(context.Background(), CreateRequest{
		LorryID: 1,
		Items:   []ItemRequest{{ProductID: 1, Bottles: 6}},
	})
	require.NoError(t, err)

	completed, err := svc.UpdateStatus(context.Background(), created.ID, UpdateStatusRequest{Status: StatusCompleted})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)

	_, err = svc.UpdateStatus(context.Background(), created.ID, UpdateStatusRequest{Status: StatusPending})
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.UpdateStatus(context.Background(), created.ID, UpdateStatusRequest{Status: StatusCancelled})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), created.ID, UpdateStatusRequest{Status: StatusCompleted})
	require.ErrorIs(t, err, ErrInvalidTransition)
}
