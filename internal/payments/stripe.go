package payments

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"

	"github.com/parkpass/parkpass-reservations/internal/domain"
	"github.com/parkpass/parkpass-reservations/internal/repository"
)

type stripeService struct {
	repo     repository.PaymentRepository
	currency string
}

// NewStripeService configures the Stripe client with the given secret key.
func NewStripeService(repo repository.PaymentRepository, secretKey, currency string) Service {
	stripe.Key = secretKey
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &stripeService{repo: repo, currency: currency}
}

func (s *stripeService) CreateIntent(ctx context.Context, res *domain.Reservation) (*domain.Payment, error) {
	if existing, err := s.repo.GetByReservation(ctx, res.ID); err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	} else if existing != nil {
		return existing, nil
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(res.Fee.Cents()),
		Currency: stripe.String(s.currency),
	}
	params.AddMetadata("reservation_id", res.ID.String())
	params.AddMetadata("plate", res.Plate)

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("create stripe payment intent: %w", err)
	}

	return s.repo.Create(ctx, &domain.Payment{
		ReservationID: res.ID,
		Amount:        res.Fee,
		Provider:      domain.PaymentStripe,
		Status:        domain.PaymentPending,
		ProviderRef:   intent.ID,
	})
}
