package catalog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	nextID   int64
	products map[int64]Product
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, products: make(map[int64]Product)}
}

func (m *memoryRepo) List(_ context.Context, req ListProductsRequest) ([]Product, int, error) {
	var out []Product
	for _, p := range m.products {
		if req.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(req.Search)) {
			continue
		}
		if req.IsActive != nil && p.IsActive != *req.IsActive {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (m *memoryRepo) Create(_ context.Context, product Product) (Product, error) {
	product.ID = m.nextID
	m.nextID++
	product.CreatedAt = time.Now().UTC()
	product.UpdatedAt = product.CreatedAt
	m.products[product.ID] = product
	return product, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, product Product) error {
	if _, ok := m.products[id]; !ok {
		return ErrProductNotFound
	}
	product.ID = id
	m.products[id] = product
	return nil
}

func TestCreateActivatesProduct(t *testing.T) {
	svc := NewService(newMemoryRepo())

	product, err := svc.Create(context.Background(), CreateProductRequest{
		Name:           "Cola 300ml",
		ContainerSize:  "300ml",
		BottlesPerCase: 12,
		UnitCost:       6.5,
		SellingPrice:   10.0,
	})
	require.NoError(t, err)
	require.True(t, product.IsActive)
	require.Equal(t, 12, product.BottlesPerCase)
}

func TestCreateRejectsZeroCaseSize(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), CreateProductRequest{
		Name:          "Cola 300ml",
		ContainerSize: "300ml",
	})
	require.Error(t, err)
}

func TestUpdateMergesOnlyProvidedFields(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), CreateProductRequest{
		Name: "Cola 300ml", ContainerSize: "300ml", BottlesPerCase: 12, SellingPrice: 10.0,
	})
	require.NoError(t, err)

	newPrice := 11.5
	updated, err := svc.Update(context.Background(), created.ID, UpdateProductRequest{SellingPrice: &newPrice})
	require.NoError(t, err)
	require.InDelta(t, 11.5, updated.SellingPrice, 1e-9)
	require.Equal(t, "Cola 300ml", updated.Name)
	require.Equal(t, 12, updated.BottlesPerCase)
}

func TestDeactivateKeepsProduct(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), CreateProductRequest{
		Name: "Cola 300ml", ContainerSize: "300ml", BottlesPerCase: 12,
	})
	require.NoError(t, err)

	product, err := svc.Deactivate(context.Background(), created.ID)
	require.NoError(t, err)
	require.False(t, product.IsActive)

	// Still fetchable for history even when inactive.
	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)
}

func TestGetUnknownProduct(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Get(context.Background(), 99)
	require.ErrorIs(t, err, ErrProductNotFound)
}
