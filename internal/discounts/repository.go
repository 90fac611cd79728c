package discounts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	ListShops(ctx context.Context, activeOnly bool) ([]Shop, error)
	GetShop(ctx context.Context, id int64) (Shop, error)
	CreateShop(ctx context.Context, shop Shop) (Shop, error)
	ListSubTypes(ctx context.Context) ([]SubDiscountType, error)
	GetSubType(ctx context.Context, id int64) (SubDiscountType, error)
	CreateSubType(ctx context.Context, st SubDiscountType) (SubDiscountType, error)
	InsertDiscount(ctx context.Context, d Discount) (Discount, error)
	ListDiscounts(ctx context.Context, shopID int64, limit, offset int) ([]Discount, error)
	CasesForShopSince(ctx context.Context, shopID int64, since time.Time) (int, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const shopColumns = `id, name, owner, address, contact_number, discount_type_id, max_discounted_cases, is_active, created_at, updated_at`

func scanShop(row pgx.Row) (Shop, error) {
	var s Shop
	err := row.Scan(&s.ID, &s.Name, &s.Owner, &s.Address, &s.ContactNumber, &s.DiscountTypeID, &s.MaxDiscountedCases, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *repository) ListShops(ctx context.Context, activeOnly bool) ([]Shop, error) {
	query := `SELECT ` + shopColumns + ` FROM shops`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shops []Shop
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, err
		}
		shops = append(shops, s)
	}
	return shops, rows.Err()
}

func (r *repository) GetShop(ctx context.Context, id int64) (Shop, error) {
	s, err := scanShop(r.db.QueryRow(ctx,
		`SELECT `+shopColumns+` FROM shops WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Shop{}, ErrShopNotFound
		}
		return Shop{}, err
	}
	return s, nil
}

func (r *repository) CreateShop(ctx context.Context, shop Shop) (Shop, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx,
		`INSERT INTO shops (name, owner, address, contact_number, discount_type_id, max_discounted_cases, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		shop.Name, shop.Owner, shop.Address, shop.ContactNumber, shop.DiscountTypeID, shop.MaxDiscountedCases, shop.IsActive, now, now).
		Scan(&shop.ID)
	if err != nil {
		return Shop{}, err
	}
	shop.CreatedAt = now
	shop.UpdatedAt = now
	return shop, nil
}

func (r *repository) ListSubTypes(ctx context.Context) ([]SubDiscountType, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, discount_type_id, name, discount_per_case, created_at FROM sub_discount_types ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SubDiscountType
	for rows.Next() {
		var st SubDiscountType
		if err := rows.Scan(&st.ID, &st.DiscountTypeID, &st.Name, &st.DiscountPerCase, &st.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (r *repository) GetSubType(ctx context.Context, id int64) (SubDiscountType, error) {
	var st SubDiscountType
	err := r.db.QueryRow(ctx,
		`SELECT id, discount_type_id, name, discount_per_case, created_at FROM sub_discount_types WHERE id = $1`, id).
		Scan(&st.ID, &st.DiscountTypeID, &st.Name, &st.DiscountPerCase, &st.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SubDiscountType{}, ErrSubTypeNotFound
		}
		return SubDiscountType{}, err
	}
	return st, nil
}

func (r *repository) CreateSubType(ctx context.Context, st SubDiscountType) (SubDiscountType, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO sub_discount_types (discount_type_id, name, discount_per_case, created_at)
		 VALUES ($1, $2, $3, NOW()) RETURNING id, created_at`,
		st.DiscountTypeID, st.Name, st.DiscountPerCase).
		Scan(&st.ID, &st.CreatedAt)
	if err != nil {
		return SubDiscountType{}, err
	}
	return st, nil
}

func (r *repository) InsertDiscount(ctx context.Context, d Discount) (Discount, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO discounts (shop_id, sub_discount_type_id, invoice_number, selling_date, discounted_cases, total_discount, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW()) RETURNING id, created_at`,
		d.ShopID, d.SubDiscountTypeID, d.InvoiceNumber, d.SellingDate, d.DiscountedCases, d.TotalDiscount, d.CreatedBy).
		Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return Discount{}, err
	}
	return d, nil
}

func (r *repository) ListDiscounts(ctx context.Context, shopID int64, limit, offset int) ([]Discount, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, shop_id, sub_discount_type_id, invoice_number, selling_date, discounted_cases, total_discount, created_by, created_at
		 FROM discounts WHERE shop_id = $1 ORDER BY selling_date DESC, id DESC LIMIT $2 OFFSET $3`,
		shopID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Discount
	for rows.Next() {
		var d Discount
		if err := rows.Scan(&d.ID, &d.ShopID, &d.SubDiscountTypeID, &d.InvoiceNumber, &d.SellingDate, &d.DiscountedCases, &d.TotalDiscount, &d.CreatedBy, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repository) CasesForShopSince(ctx context.Context, shopID int64, since time.Time) (int, error) {
	var total int
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(discounted_cases), 0) FROM discounts WHERE shop_id = $1 AND selling_date >= $2`,
		shopID, since).Scan(&total)
	return total, err
}
