package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/parkpass/parkpass-reservations/internal/domain"
	"github.com/parkpass/parkpass-reservations/internal/repository"
	"github.com/parkpass/parkpass-reservations/pkg/events"
	"github.com/parkpass/parkpass-reservations/pkg/logger"
)

type CheckService interface {
	Apply(ctx context.Context, gateToken string, kind domain.CheckKind, staffID *int64) (*domain.Reservation, *domain.CheckEvent, error)
	ListEvents(ctx context.Context, limit, offset int) ([]domain.CheckEvent, error)
}

type checkService struct {
	reservations repository.ReservationRepository
	checkEvents  repository.CheckEventRepository
	eventBus     events.Publisher
}

func NewCheckService(
	reservations repository.ReservationRepository,
	checkEvents repository.CheckEventRepository,
	eventBus events.Publisher,
) CheckService {
	return &checkService{
		reservations: reservations,
		checkEvents:  checkEvents,
		eventBus:     eventBus,
	}
}

// Apply looks up the reservation by gate token and applies the check event.
// The status change and the audit record are committed as one transaction;
// the status-guarded update inside makes concurrent duplicate checks lose
// cleanly with an InvalidTransitionError.
func (s *checkService) Apply(ctx context.Context, gateToken string, kind domain.CheckKind, staffID *int64) (*domain.Reservation, *domain.CheckEvent, error) {
	res, err := s.reservations.GetByToken(ctx, gateToken)
	if err != nil {
		return nil, nil, fmt.Errorf("look up reservation by token: %w", err)
	}
	if res == nil {
		return nil, nil, domain.ErrNotFound
	}

	next, err := domain.NextStatusForCheck(res.Status, kind)
	if err != nil {
		return nil, nil, err
	}

	ev, err := s.reservations.ApplyCheck(ctx, res.ID, res.Status, next, kind, staffID)
	if errors.Is(err, repository.ErrStatusConflict) {
		// Another request transitioned the reservation between our read and
		// the guarded update. Report the status that won.
		current, readErr := s.reservations.GetByID(ctx, res.ID)
		if readErr != nil || current == nil {
			return nil, nil, &domain.InvalidTransitionError{From: res.Status, Event: string(kind)}
		}
		return nil, nil, &domain.InvalidTransitionError{From: current.Status, Event: string(kind)}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("apply %s: %w", kind, err)
	}

	res.Status = next

	if err := s.eventBus.Publish(ctx, events.CheckRecorded, events.CheckRecordedEvent{
		ReservationID: res.ID,
		Kind:          string(kind),
		Status:        string(next),
		StaffID:       staffID,
		RecordedAt:    ev.RecordedAt,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish check recorded event", "error", err, "reservation_id", res.ID)
	}

	return res, ev, nil
}

func (s *checkService) ListEvents(ctx context.Context, limit, offset int) ([]domain.CheckEvent, error) {
	return s.checkEvents.List(ctx, limit, offset)
}
