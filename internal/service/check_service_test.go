package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/parkpass/parkpass-reservations/internal/domain"
	"github.com/parkpass/parkpass-reservations/internal/repository"
	"github.com/parkpass/parkpass-reservations/internal/service"
)

type mockCheckEventRepo struct{}

func (m *mockCheckEventRepo) List(_ context.Context, _, _ int) ([]domain.CheckEvent, error) {
	return nil, nil
}

func newCheckFixture(t *testing.T) (*mockReservationRepo, service.CheckService, *domain.Reservation) {
	t.Helper()
	resRepo, _, _, _, resSvc := newFixture(t)
	checkSvc := service.NewCheckService(resRepo, &mockCheckEventRepo{}, &mockPublisher{})

	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	res, err := resSvc.Create(context.Background(), customer, createReq(start, 3))
	if err != nil {
		t.Fatalf("seed reservation: %v", err)
	}
	return resRepo, checkSvc, res
}

var staffID = func() *int64 { id := int64(5); return &id }()

func TestApplyCheckLifecycle(t *testing.T) {
	_, svc, res := newCheckFixture(t)
	ctx := context.Background()

	// Check-in from pending.
	checked, ev, err := svc.Apply(ctx, res.GateToken, domain.CheckIn, staffID)
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if checked.Status != domain.ReservationCheckedIn {
		t.Errorf("status after check-in = %s, want checked_in", checked.Status)
	}
	if ev.Kind != domain.CheckIn || ev.ReservationID != res.ID {
		t.Errorf("event = %+v", ev)
	}
	if ev.StaffID == nil || *ev.StaffID != 5 {
		t.Errorf("event staff = %v, want 5", ev.StaffID)
	}

	// A second check-in must fail and report the current status.
	_, _, err = svc.Apply(ctx, res.GateToken, domain.CheckIn, staffID)
	var transitionErr *domain.InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("second check-in error = %v, want InvalidTransitionError", err)
	}
	if transitionErr.From != domain.ReservationCheckedIn {
		t.Errorf("error reports %q, want checked_in", transitionErr.From)
	}

	// Check-out from checked_in.
	checked, _, err = svc.Apply(ctx, res.GateToken, domain.CheckOut, staffID)
	if err != nil {
		t.Fatalf("check-out: %v", err)
	}
	if checked.Status != domain.ReservationCheckedOut {
		t.Errorf("status after check-out = %s, want checked_out", checked.Status)
	}

	// A second check-out must fail as well.
	_, _, err = svc.Apply(ctx, res.GateToken, domain.CheckOut, staffID)
	if !errors.As(err, &transitionErr) {
		t.Fatalf("second check-out error = %v, want InvalidTransitionError", err)
	}
	if transitionErr.From != domain.ReservationCheckedOut {
		t.Errorf("error reports %q, want checked_out", transitionErr.From)
	}
}

func TestApplyCheckInFromConfirmed(t *testing.T) {
	resRepo, svc, res := newCheckFixture(t)
	resRepo.reservations[res.ID].Status = domain.ReservationConfirmed

	checked, _, err := svc.Apply(context.Background(), res.GateToken, domain.CheckIn, staffID)
	if err != nil {
		t.Fatalf("check-in from confirmed: %v", err)
	}
	if checked.Status != domain.ReservationCheckedIn {
		t.Errorf("status = %s, want checked_in", checked.Status)
	}
}

func TestApplyCheckOutRequiresCheckIn(t *testing.T) {
	_, svc, res := newCheckFixture(t)

	_, _, err := svc.Apply(context.Background(), res.GateToken, domain.CheckOut, staffID)
	var transitionErr *domain.InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("error = %v, want InvalidTransitionError", err)
	}
	if transitionErr.From != domain.ReservationPending {
		t.Errorf("error reports %q, want pending", transitionErr.From)
	}
}

func TestApplyCheckUnknownToken(t *testing.T) {
	_, svc, _ := newCheckFixture(t)

	_, _, err := svc.Apply(context.Background(), "no-such-token", domain.CheckIn, staffID)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestApplyCheckCanceledReservation(t *testing.T) {
	resRepo, svc, res := newCheckFixture(t)
	resRepo.reservations[res.ID].Status = domain.ReservationCanceled

	_, _, err := svc.Apply(context.Background(), res.GateToken, domain.CheckIn, staffID)
	var transitionErr *domain.InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("error = %v, want InvalidTransitionError", err)
	}
	if transitionErr.From != domain.ReservationCanceled {
		t.Errorf("error reports %q, want canceled", transitionErr.From)
	}
}

func TestApplyCheckLosesRace(t *testing.T) {
	resRepo, _, _, _, resSvc := newFixture(t)
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	res, err := resSvc.Create(context.Background(), customer, createReq(start, 2))
	if err != nil {
		t.Fatalf("seed reservation: %v", err)
	}

	raced := &racingRepo{mockReservationRepo: resRepo, flipTo: domain.ReservationCheckedIn}
	svc := service.NewCheckService(raced, &mockCheckEventRepo{}, &mockPublisher{})

	_, _, err = svc.Apply(context.Background(), res.GateToken, domain.CheckIn, staffID)
	var transitionErr *domain.InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("error = %v, want InvalidTransitionError", err)
	}
	if transitionErr.From != domain.ReservationCheckedIn {
		t.Errorf("error reports %q, want the winner's checked_in", transitionErr.From)
	}
}

// racingRepo flips the stored status right before the guarded update so the
// update always sees a stale expected status.
type racingRepo struct {
	*mockReservationRepo
	flipTo domain.ReservationStatus
}

func (r *racingRepo) ApplyCheck(ctx context.Context, id uuid.UUID, from, to domain.ReservationStatus, kind domain.CheckKind, staffID *int64) (*domain.CheckEvent, error) {
	r.mu.Lock()
	if res, ok := r.reservations[id]; ok && res.Status == from {
		res.Status = r.flipTo
	}
	r.mu.Unlock()
	return nil, repository.ErrStatusConflict
}
