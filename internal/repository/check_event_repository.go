package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parkpass/parkpass-reservations/internal/domain"
)

// CheckEventRepository reads the audit trail. Events are only ever written
// inside ReservationRepository.ApplyCheck; there is no update or delete.
type CheckEventRepository interface {
	List(ctx context.Context, limit, offset int) ([]domain.CheckEvent, error)
}

type checkEventRepository struct {
	pool *pgxpool.Pool
}

func NewCheckEventRepository(pool *pgxpool.Pool) CheckEventRepository {
	return &checkEventRepository{pool: pool}
}

func (r *checkEventRepository) List(ctx context.Context, limit, offset int) ([]domain.CheckEvent, error) {
	const q = `SELECT id, reservation_id, kind, staff_id, recorded_at
	FROM check_events ORDER BY recorded_at DESC LIMIT $1 OFFSET $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, clampLimit(limit), clampOffset(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.CheckEvent
	for rows.Next() {
		var ev domain.CheckEvent
		if err := rows.Scan(&ev.ID, &ev.ReservationID, &ev.Kind, &ev.StaffID, &ev.RecordedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
