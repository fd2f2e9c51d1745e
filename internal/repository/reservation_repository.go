package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parkpass/parkpass-reservations/internal/domain"
)

type ReservationRepository interface {
	Create(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	GetByToken(ctx context.Context, token string) (*domain.Reservation, error)
	TokenExists(ctx context.Context, token string) (bool, error)
	List(ctx context.Context, limit, offset int, status *domain.ReservationStatus) ([]domain.Reservation, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int, status *domain.ReservationStatus) ([]domain.Reservation, error)
	UpdatePriced(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error)
	UpdateStatusFrom(ctx context.Context, id uuid.UUID, from []domain.ReservationStatus, to domain.ReservationStatus) (bool, error)
	ApplyCheck(ctx context.Context, id uuid.UUID, from, to domain.ReservationStatus, kind domain.CheckKind, staffID *int64) (*domain.CheckEvent, error)
}

type reservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) ReservationRepository {
	return &reservationRepository{pool: pool}
}

const reservationCols = `id, user_id, lot_id, rate_plan_id, plate,
starts_at, ends_at, status, gate_token, fee_cents, created_at`

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var res domain.Reservation
	var fee int64
	err := row.Scan(
		&res.ID, &res.UserID, &res.LotID, &res.RatePlanID, &res.Plate,
		&res.StartsAt, &res.EndsAt, &res.Status, &res.GateToken, &fee, &res.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	res.Fee = domain.Money(fee)
	return &res, nil
}

func (r *reservationRepository) Create(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	const q = `INSERT INTO reservations (
		id, user_id, lot_id, rate_plan_id, plate,
		starts_at, ends_at, status, gate_token, fee_cents
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	RETURNING ` + reservationCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	out, err := scanReservation(r.pool.QueryRow(ctx, q,
		res.ID, res.UserID, res.LotID, res.RatePlanID, res.Plate,
		res.StartsAt, res.EndsAt, res.Status, res.GateToken, res.Fee.Cents(),
	))
	if isUniqueViolation(err, "reservations_gate_token_key") {
		return nil, ErrDuplicateToken
	}
	return out, err
}

func (r *reservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	out, err := scanReservation(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return out, err
}

func (r *reservationRepository) GetByToken(ctx context.Context, token string) (*domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE gate_token=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	out, err := scanReservation(r.pool.QueryRow(ctx, q, token))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return out, err
}

func (r *reservationRepository) TokenExists(ctx context.Context, token string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM reservations WHERE gate_token=$1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var exists bool
	err := r.pool.QueryRow(ctx, q, token).Scan(&exists)
	return exists, err
}

func (r *reservationRepository) List(ctx context.Context, limit, offset int, status *domain.ReservationStatus) ([]domain.Reservation, error) {
	q := `SELECT ` + reservationCols + ` FROM reservations`
	args := []any{}
	if status != nil {
		q += ` WHERE status=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, *status, clampLimit(limit), clampOffset(offset))
	} else {
		q += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, clampLimit(limit), clampOffset(offset))
	}
	return r.queryReservations(ctx, q, args...)
}

func (r *reservationRepository) ListByUser(ctx context.Context, userID int64, limit, offset int, status *domain.ReservationStatus) ([]domain.Reservation, error) {
	q := `SELECT ` + reservationCols + ` FROM reservations WHERE user_id=$1`
	args := []any{userID}
	if status != nil {
		q += ` AND status=$2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`
		args = append(args, *status, clampLimit(limit), clampOffset(offset))
	} else {
		q += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, clampLimit(limit), clampOffset(offset))
	}
	return r.queryReservations(ctx, q, args...)
}

func (r *reservationRepository) queryReservations(ctx context.Context, q string, args ...any) ([]domain.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

// UpdatePriced persists the price-affecting fields together with the fee
// recomputed for them. The gate token and status are never touched here.
func (r *reservationRepository) UpdatePriced(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	const q = `UPDATE reservations
	SET lot_id=$2, rate_plan_id=$3, plate=$4, starts_at=$5, ends_at=$6, fee_cents=$7
	WHERE id=$1
	RETURNING ` + reservationCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	out, err := scanReservation(r.pool.QueryRow(ctx, q,
		res.ID, res.LotID, res.RatePlanID, res.Plate, res.StartsAt, res.EndsAt, res.Fee.Cents(),
	))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return out, err
}

// UpdateStatusFrom is a compare-and-swap on the status column. It reports
// false when no row matched, meaning a concurrent request transitioned the
// reservation first.
func (r *reservationRepository) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from []domain.ReservationStatus, to domain.ReservationStatus) (bool, error) {
	const q = `UPDATE reservations SET status=$3 WHERE id=$1 AND status=ANY($2)`

	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id, states, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ApplyCheck performs the status transition and the audit event insert as
// one transaction. The guarded UPDATE serializes concurrent checks on the
// same reservation: the loser matches no row and gets ErrStatusConflict
// without an event ever being written.
func (r *reservationRepository) ApplyCheck(ctx context.Context, id uuid.UUID, from, to domain.ReservationStatus, kind domain.CheckKind, staffID *int64) (*domain.CheckEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin check transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE reservations SET status=$3 WHERE id=$1 AND status=$2`,
		id, from, to,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrStatusConflict
	}

	var ev domain.CheckEvent
	err = tx.QueryRow(ctx,
		`INSERT INTO check_events (reservation_id, kind, staff_id)
		VALUES ($1,$2,$3)
		RETURNING id, reservation_id, kind, staff_id, recorded_at`,
		id, kind, staffID,
	).Scan(&ev.ID, &ev.ReservationID, &ev.Kind, &ev.StaffID, &ev.RecordedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit check transaction: %w", err)
	}
	return &ev, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
