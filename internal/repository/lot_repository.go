package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parkpass/parkpass-reservations/internal/domain"
)

type LotFilter struct {
	Active   *bool
	Category *domain.LotCategory
	Search   string
}

type LotRepository interface {
	Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	GetByID(ctx context.Context, id int64) (*domain.ParkingLot, error)
	List(ctx context.Context, filter LotFilter, limit, offset int) ([]domain.ParkingLot, error)
}

type lotRepository struct {
	pool *pgxpool.Pool
}

func NewLotRepository(pool *pgxpool.Pool) LotRepository {
	return &lotRepository{pool: pool}
}

const lotCols = `id, name, category, location, capacity, active`

func (r *lotRepository) Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	const q = `INSERT INTO parking_lots (name, category, location, capacity, active)
	VALUES ($1,$2,$3,$4,$5)
	RETURNING ` + lotCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var out domain.ParkingLot
	err := r.pool.QueryRow(ctx, q, lot.Name, lot.Category, lot.Location, lot.Capacity, lot.Active).Scan(
		&out.ID, &out.Name, &out.Category, &out.Location, &out.Capacity, &out.Active,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *lotRepository) GetByID(ctx context.Context, id int64) (*domain.ParkingLot, error) {
	const q = `SELECT ` + lotCols + ` FROM parking_lots WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var out domain.ParkingLot
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&out.ID, &out.Name, &out.Category, &out.Location, &out.Capacity, &out.Active,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &out, err
}

func (r *lotRepository) List(ctx context.Context, filter LotFilter, limit, offset int) ([]domain.ParkingLot, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + lotCols + ` FROM parking_lots WHERE 1=1`
	args := []any{}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		q += ` AND active=$` + itoa(len(args))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		q += ` AND category=$` + itoa(len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := itoa(len(args))
		q += ` AND (name ILIKE $` + n + ` OR location ILIKE $` + n + `)`
	}
	args = append(args, limit)
	q += ` ORDER BY name LIMIT $` + itoa(len(args))
	args = append(args, offset)
	q += ` OFFSET $` + itoa(len(args))

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lots []domain.ParkingLot
	for rows.Next() {
		var l domain.ParkingLot
		if err := rows.Scan(&l.ID, &l.Name, &l.Category, &l.Location, &l.Capacity, &l.Active); err != nil {
			return nil, err
		}
		lots = append(lots, l)
	}
	return lots, rows.Err()
}
