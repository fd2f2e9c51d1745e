package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parkpass/parkpass-reservations/internal/domain"
)

type RatePlanRepository interface {
	Create(ctx context.Context, plan *domain.RatePlan) (*domain.RatePlan, error)
	GetByID(ctx context.Context, id int64) (*domain.RatePlan, error)
	ListByLot(ctx context.Context, lotID int64) ([]domain.RatePlan, error)
}

type ratePlanRepository struct {
	pool *pgxpool.Pool
}

func NewRatePlanRepository(pool *pgxpool.Pool) RatePlanRepository {
	return &ratePlanRepository{pool: pool}
}

const planCols = `id, lot_id, name, hourly_rate_cents, daily_cap_cents, created_at`

func scanPlan(row pgx.Row) (*domain.RatePlan, error) {
	var p domain.RatePlan
	var rate int64
	var cap *int64
	err := row.Scan(&p.ID, &p.LotID, &p.Name, &rate, &cap, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.HourlyRate = domain.Money(rate)
	if cap != nil {
		c := domain.Money(*cap)
		p.DailyCap = &c
	}
	return &p, nil
}

func (r *ratePlanRepository) Create(ctx context.Context, plan *domain.RatePlan) (*domain.RatePlan, error) {
	const q = `INSERT INTO rate_plans (lot_id, name, hourly_rate_cents, daily_cap_cents)
	VALUES ($1,$2,$3,$4)
	RETURNING ` + planCols

	var cap *int64
	if plan.DailyCap != nil {
		c := plan.DailyCap.Cents()
		cap = &c
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	out, err := scanPlan(r.pool.QueryRow(ctx, q, plan.LotID, plan.Name, plan.HourlyRate.Cents(), cap))
	if isUniqueViolation(err, "rate_plans_lot_id_name_key") {
		return nil, ErrDuplicatePlanName
	}
	return out, err
}

func (r *ratePlanRepository) GetByID(ctx context.Context, id int64) (*domain.RatePlan, error) {
	const q = `SELECT ` + planCols + ` FROM rate_plans WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	out, err := scanPlan(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return out, err
}

func (r *ratePlanRepository) ListByLot(ctx context.Context, lotID int64) ([]domain.RatePlan, error) {
	const q = `SELECT ` + planCols + ` FROM rate_plans WHERE lot_id=$1 ORDER BY id`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, lotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []domain.RatePlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}
