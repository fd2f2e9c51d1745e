package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentProvider string

const (
	PaymentMock   PaymentProvider = "mock"
	PaymentStripe PaymentProvider = "stripe"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Payment is the external billing collaborator's record: at most one per
// reservation, created when a payment intent is requested for the fee.
type Payment struct {
	ID            int64           `json:"id"`
	ReservationID uuid.UUID       `json:"reservation_id"`
	Amount        Money           `json:"amount"`
	Provider      PaymentProvider `json:"provider"`
	Status        PaymentStatus   `json:"status"`
	ProviderRef   string          `json:"provider_ref,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
