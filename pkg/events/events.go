package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/parkpass/parkpass-reservations/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{Subject: msg.Subject, Data: msg.Data, Timestamp: time.Now()})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{Subject: msg.Subject, Data: msg.Data, Timestamp: time.Now()})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Subjects
const (
	ReservationCreated  = "reservation.created"
	ReservationUpdated  = "reservation.updated"
	ReservationCanceled = "reservation.canceled"
	CheckRecorded       = "check.recorded"
)

// Event payloads
type ReservationCreatedEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	OwnerEmail    string    `json:"owner_email,omitempty"`
	Plate         string    `json:"plate"`
	LotID         int64     `json:"lot_id"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	Fee           string    `json:"fee"`
	GateToken     string    `json:"gate_token"`
	CreatedAt     time.Time `json:"created_at"`
}

type ReservationUpdatedEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	Changes       []string  `json:"changes"`
	Fee           string    `json:"fee"`
}

type ReservationCanceledEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	Reason        string    `json:"reason"`
	CanceledAt    time.Time `json:"canceled_at"`
}

type CheckRecordedEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	Kind          string    `json:"kind"`
	Status        string    `json:"status"`
	StaffID       *int64    `json:"staff_id,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"`
}
