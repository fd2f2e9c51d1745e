package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parkpass/parkpass-reservations/internal/domain"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error)
	GetByReservation(ctx context.Context, reservationID uuid.UUID) (*domain.Payment, error)
}

type paymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepository{pool: pool}
}

const paymentCols = `id, reservation_id, amount_cents, provider, status, provider_ref, created_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	var amount int64
	err := row.Scan(&p.ID, &p.ReservationID, &amount, &p.Provider, &p.Status, &p.ProviderRef, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Amount = domain.Money(amount)
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	const q = `INSERT INTO payments (reservation_id, amount_cents, provider, status, provider_ref)
	VALUES ($1,$2,$3,$4,$5)
	RETURNING ` + paymentCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanPayment(r.pool.QueryRow(ctx, q,
		p.ReservationID, p.Amount.Cents(), p.Provider, p.Status, p.ProviderRef,
	))
}

func (r *paymentRepository) GetByReservation(ctx context.Context, reservationID uuid.UUID) (*domain.Payment, error) {
	const q = `SELECT ` + paymentCols + ` FROM payments WHERE reservation_id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	out, err := scanPayment(r.pool.QueryRow(ctx, q, reservationID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return out, err
}
