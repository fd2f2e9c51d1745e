// Package payments is the billing collaborator: it turns a reservation's
// computed fee into a provider payment intent and records the pending
// payment row. One payment at most exists per reservation.
package payments

import (
	"context"
	"fmt"

	"github.com/parkpass/parkpass-reservations/internal/domain"
	"github.com/parkpass/parkpass-reservations/internal/repository"
)

type Service interface {
	CreateIntent(ctx context.Context, res *domain.Reservation) (*domain.Payment, error)
}

// NewMockService returns a provider that records payments without talking
// to any gateway, for development and tests.
func NewMockService(repo repository.PaymentRepository) Service {
	return &mockService{repo: repo}
}

type mockService struct {
	repo repository.PaymentRepository
}

func (s *mockService) CreateIntent(ctx context.Context, res *domain.Reservation) (*domain.Payment, error) {
	if existing, err := s.repo.GetByReservation(ctx, res.ID); err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	} else if existing != nil {
		return existing, nil
	}

	return s.repo.Create(ctx, &domain.Payment{
		ReservationID: res.ID,
		Amount:        res.Fee,
		Provider:      domain.PaymentMock,
		Status:        domain.PaymentPending,
		ProviderRef:   "mock-" + res.ID.String(),
	})
}
