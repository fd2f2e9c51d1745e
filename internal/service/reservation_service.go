package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/parkpass/parkpass-reservations/internal/domain"
	"github.com/parkpass/parkpass-reservations/internal/pricing"
	"github.com/parkpass/parkpass-reservations/internal/repository"
	"github.com/parkpass/parkpass-reservations/internal/token"
	"github.com/parkpass/parkpass-reservations/internal/utils"
	"github.com/parkpass/parkpass-reservations/pkg/events"
	"github.com/parkpass/parkpass-reservations/pkg/logger"
)

// createAttempts bounds how often a create is re-committed after the gate
// token unique index rejects it. The issuer's pre-check makes hitting this
// at all unlikely.
const createAttempts = 3

type CreateReservationReq struct {
	LotID      int64     `json:"lot_id"`
	RatePlanID *int64    `json:"rate_plan_id,omitempty"`
	Plate      string    `json:"plate"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
}

// ReservationPatch carries the admin-updatable fields. Start, end, lot and
// rate plan affect the price; changing any of them recomputes the fee.
type ReservationPatch struct {
	LotID      *int64     `json:"lot_id,omitempty"`
	RatePlanID *int64     `json:"rate_plan_id,omitempty"`
	Plate      *string    `json:"plate,omitempty"`
	StartsAt   *time.Time `json:"starts_at,omitempty"`
	EndsAt     *time.Time `json:"ends_at,omitempty"`
}

type ReservationService interface {
	Create(ctx context.Context, actor domain.Actor, req *CreateReservationReq) (*domain.Reservation, error)
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Reservation, error)
	List(ctx context.Context, actor domain.Actor, limit, offset int, status *domain.ReservationStatus) ([]domain.Reservation, error)
	Update(ctx context.Context, id uuid.UUID, patch ReservationPatch) (*domain.Reservation, error)
	Cancel(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Reservation, error)
}

type reservationService struct {
	reservations repository.ReservationRepository
	lots         repository.LotRepository
	plans        repository.RatePlanRepository
	issuer       *token.Issuer
	eventBus     events.Publisher
}

func NewReservationService(
	reservations repository.ReservationRepository,
	lots repository.LotRepository,
	plans repository.RatePlanRepository,
	issuer *token.Issuer,
	eventBus events.Publisher,
) ReservationService {
	return &reservationService{
		reservations: reservations,
		lots:         lots,
		plans:        plans,
		issuer:       issuer,
		eventBus:     eventBus,
	}
}

func (s *reservationService) Create(ctx context.Context, actor domain.Actor, req *CreateReservationReq) (*domain.Reservation, error) {
	if !req.EndsAt.After(req.StartsAt) {
		return nil, domain.Validation("end time must be after start time")
	}
	if !utils.IsValidPlate(req.Plate) {
		return nil, domain.Validation("invalid license plate %q", req.Plate)
	}
	plate := utils.NormalizePlate(req.Plate)

	lot, err := s.lots.GetByID(ctx, req.LotID)
	if err != nil {
		return nil, fmt.Errorf("load lot: %w", err)
	}
	if lot == nil {
		return nil, domain.Validation("lot %d does not exist", req.LotID)
	}
	if !lot.Active {
		return nil, domain.Validation("lot %q is not active", lot.Name)
	}

	plan, err := s.resolvePlan(ctx, req.RatePlanID, lot.ID)
	if err != nil {
		return nil, err
	}

	fee, err := pricing.ComputeFee(req.StartsAt, req.EndsAt, plan)
	if err != nil {
		return nil, err
	}

	var ownerID *int64
	if actor.UserID != 0 {
		id := actor.UserID
		ownerID = &id
	}

	// The issuer pre-checks the token, but two concurrent creates can still
	// collide at the unique index. Regenerate and re-commit a bounded number
	// of times before giving up.
	for attempt := 0; attempt < createAttempts; attempt++ {
		gateToken, err := s.issuer.Issue(ctx)
		if err != nil {
			if errors.Is(err, token.ErrExhausted) {
				return nil, domain.ErrTokenExhausted
			}
			return nil, fmt.Errorf("issue gate token: %w", err)
		}

		res := &domain.Reservation{
			ID:         uuid.New(),
			UserID:     ownerID,
			LotID:      lot.ID,
			RatePlanID: req.RatePlanID,
			Plate:      plate,
			StartsAt:   req.StartsAt,
			EndsAt:     req.EndsAt,
			Status:     domain.ReservationPending,
			GateToken:  gateToken,
			Fee:        fee,
		}

		created, err := s.reservations.Create(ctx, res)
		if errors.Is(err, repository.ErrDuplicateToken) {
			logger.WarnContext(ctx, "Gate token collided at commit, regenerating",
				"attempt", attempt+1, "lot_id", lot.ID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("persist reservation: %w", err)
		}

		s.publishCreated(ctx, created, actor.Email)
		return created, nil
	}

	return nil, domain.ErrTokenExhausted
}

func (s *reservationService) resolvePlan(ctx context.Context, planID *int64, lotID int64) (*domain.RatePlan, error) {
	if planID != nil {
		plan, err := s.plans.GetByID(ctx, *planID)
		if err != nil {
			return nil, fmt.Errorf("load rate plan: %w", err)
		}
		if plan == nil {
			return nil, domain.Validation("rate plan %d does not exist", *planID)
		}
		if plan.LotID != lotID {
			return nil, domain.Validation("rate plan %q does not belong to the chosen lot", plan.Name)
		}
		return plan, nil
	}

	lotPlans, err := s.plans.ListByLot(ctx, lotID)
	if err != nil {
		return nil, fmt.Errorf("load lot rate plans: %w", err)
	}
	return pricing.ResolvePlan(nil, lotPlans), nil
}

func (s *reservationService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load reservation: %w", err)
	}
	if res == nil {
		return nil, domain.ErrNotFound
	}
	if !actor.IsAdmin() && !res.IsOwner(actor.UserID) {
		return nil, domain.ErrForbidden
	}
	return res, nil
}

func (s *reservationService) List(ctx context.Context, actor domain.Actor, limit, offset int, status *domain.ReservationStatus) ([]domain.Reservation, error) {
	if actor.IsAdmin() {
		return s.reservations.List(ctx, limit, offset, status)
	}
	return s.reservations.ListByUser(ctx, actor.UserID, limit, offset, status)
}

func (s *reservationService) Update(ctx context.Context, id uuid.UUID, patch ReservationPatch) (*domain.Reservation, error) {
	existing, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load reservation: %w", err)
	}
	if existing == nil {
		return nil, domain.ErrNotFound
	}

	next := *existing
	var changes []string
	if patch.LotID != nil && *patch.LotID != next.LotID {
		next.LotID = *patch.LotID
		next.RatePlanID = nil // a plan from the old lot cannot carry over
		changes = append(changes, "lot_id")
	}
	if patch.RatePlanID != nil {
		next.RatePlanID = patch.RatePlanID
		changes = append(changes, "rate_plan_id")
	}
	if patch.Plate != nil {
		if !utils.IsValidPlate(*patch.Plate) {
			return nil, domain.Validation("invalid license plate %q", *patch.Plate)
		}
		if plate := utils.NormalizePlate(*patch.Plate); plate != next.Plate {
			next.Plate = plate
			changes = append(changes, "plate")
		}
	}
	if patch.StartsAt != nil && !patch.StartsAt.Equal(next.StartsAt) {
		next.StartsAt = *patch.StartsAt
		changes = append(changes, "starts_at")
	}
	if patch.EndsAt != nil && !patch.EndsAt.Equal(next.EndsAt) {
		next.EndsAt = *patch.EndsAt
		changes = append(changes, "ends_at")
	}
	if len(changes) == 0 {
		return existing, nil
	}

	if !next.EndsAt.After(next.StartsAt) {
		return nil, domain.Validation("end time must be after start time")
	}

	lot, err := s.lots.GetByID(ctx, next.LotID)
	if err != nil {
		return nil, fmt.Errorf("load lot: %w", err)
	}
	if lot == nil {
		return nil, domain.Validation("lot %d does not exist", next.LotID)
	}

	// Fee always tracks the stored interval, lot and plan. The gate token is
	// never regenerated on update.
	plan, err := s.resolvePlan(ctx, next.RatePlanID, next.LotID)
	if err != nil {
		return nil, err
	}
	next.Fee, err = pricing.ComputeFee(next.StartsAt, next.EndsAt, plan)
	if err != nil {
		return nil, err
	}

	updated, err := s.reservations.UpdatePriced(ctx, &next)
	if err != nil {
		return nil, fmt.Errorf("persist reservation update: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrNotFound
	}

	if err := s.eventBus.Publish(ctx, events.ReservationUpdated, events.ReservationUpdatedEvent{
		ReservationID: updated.ID,
		Changes:       changes,
		Fee:           updated.Fee.String(),
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish reservation updated event", "error", err, "reservation_id", updated.ID)
	}

	return updated, nil
}

func (s *reservationService) Cancel(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load reservation: %w", err)
	}
	if res == nil {
		return nil, domain.ErrNotFound
	}
	if !actor.IsAdmin() && !res.IsOwner(actor.UserID) {
		return nil, domain.ErrForbidden
	}
	if !domain.CanCancel(res.Status) {
		return nil, &domain.InvalidTransitionError{From: res.Status, Event: "cancel"}
	}

	ok, err := s.reservations.UpdateStatusFrom(ctx, id,
		[]domain.ReservationStatus{domain.ReservationPending, domain.ReservationConfirmed},
		domain.ReservationCanceled,
	)
	if err != nil {
		return nil, fmt.Errorf("cancel reservation: %w", err)
	}
	if !ok {
		// Lost the race: re-read so the error names the status that won.
		current, err := s.reservations.GetByID(ctx, id)
		if err != nil || current == nil {
			return nil, &domain.InvalidTransitionError{From: res.Status, Event: "cancel"}
		}
		return nil, &domain.InvalidTransitionError{From: current.Status, Event: "cancel"}
	}

	res.Status = domain.ReservationCanceled

	if err := s.eventBus.Publish(ctx, events.ReservationCanceled, events.ReservationCanceledEvent{
		ReservationID: res.ID,
		Reason:        "user_requested",
		CanceledAt:    time.Now(),
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish reservation canceled event", "error", err, "reservation_id", res.ID)
	}

	return res, nil
}

func (s *reservationService) publishCreated(ctx context.Context, res *domain.Reservation, ownerEmail string) {
	event := events.ReservationCreatedEvent{
		ReservationID: res.ID,
		OwnerEmail:    ownerEmail,
		Plate:         res.Plate,
		LotID:         res.LotID,
		StartsAt:      res.StartsAt,
		EndsAt:        res.EndsAt,
		Fee:           res.Fee.String(),
		GateToken:     res.GateToken,
		CreatedAt:     res.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.ReservationCreated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish reservation created event", "error", err, "reservation_id", res.ID)
	}
}
