package fleet

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrLorryNotFound indicates the requested lorry does not exist.
	ErrLorryNotFound = errors.New("fleet: lorry not found")
	// ErrDuplicateRegistration indicates the registration number is taken.
	ErrDuplicateRegistration = errors.New("fleet: registration number already registered")
)

type Repository interface {
	List(ctx context.Context, activeOnly bool) ([]Lorry, error)
	Get(ctx context.Context, id int64) (Lorry, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, lorry Lorry) (Lorry, error)
	Update(ctx context.Context, id int64, lorry Lorry) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]Lorry, error) {
	query := `SELECT id, registration_number, driver_name, capacity_cases, is_active, created_at, updated_at FROM lorries`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY registration_number ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lorries []Lorry
	for rows.Next() {
		var l Lorry
		if err := rows.Scan(&l.ID, &l.RegistrationNumber, &l.DriverName, &l.CapacityCases, &l.IsActive, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		lorries = append(lorries, l)
	}
	return lorries, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Lorry, error) {
	var l Lorry
	err := r.db.QueryRow(ctx, `SELECT id, registration_number, driver_name, capacity_cases, is_active, created_at, updated_at FROM lorries WHERE id = $1`, id).
		Scan(&l.ID, &l.RegistrationNumber, &l.DriverName, &l.CapacityCases, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lorry{}, ErrLorryNotFound
		}
		return Lorry{}, err
	}
	return l, nil
}

func (r *repository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM lorries WHERE id = $1 AND is_active)`, id).Scan(&exists)
	return exists, err
}

func (r *repository) Create(ctx context.Context, lorry Lorry) (Lorry, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, `INSERT INTO lorries (registration_number, driver_name, capacity_cases, is_active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		lorry.RegistrationNumber, lorry.DriverName, lorry.CapacityCases, lorry.IsActive, now, now).Scan(&lorry.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Lorry{}, ErrDuplicateRegistration
		}
		return Lorry{}, err
	}
	lorry.CreatedAt = now
	lorry.UpdatedAt = now
	return lorry, nil
}

func (r *repository) Update(ctx context.Context, id int64, lorry Lorry) error {
	tag, err := r.db.Exec(ctx, `UPDATE lorries SET registration_number = $1, driver_name = $2, capacity_cases = $3, is_active = $4, updated_at = $5 WHERE id = $6`,
		lorry.RegistrationNumber, lorry.DriverName, lorry.CapacityCases, lorry.IsActive, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLorryNotFound
	}
	return nil
}
