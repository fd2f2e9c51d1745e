// The notifier consumes reservation.created events and mails the customer
// their gate pass.
package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/parkpass/parkpass-reservations/pkg/config"
	"github.com/parkpass/parkpass-reservations/pkg/events"
	"github.com/parkpass/parkpass-reservations/pkg/logger"
	"github.com/parkpass/parkpass-reservations/pkg/mailer"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	var mail mailer.Service
	if cfg.Email.DevMode || cfg.Email.MailerSendKey == "" {
		mail = mailer.NewDevMailer()
	} else {
		mail = mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail)
	}

	err = eventBus.QueueSubscribe(events.ReservationCreated, "notifier", func(msg *events.Message) {
		var ev events.ReservationCreatedEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Error("Failed to decode reservation created event", "error", err)
			return
		}
		if ev.OwnerEmail == "" {
			logger.Debug("Reservation has no owner email, skipping gate pass mail",
				"reservation_id", ev.ReservationID)
			return
		}
		if err := mail.SendGatePass(ev.OwnerEmail, ev.Plate, ev.GateToken, ev.Fee); err != nil {
			logger.Error("Failed to send gate pass",
				"error", err, "reservation_id", ev.ReservationID)
		}
	})
	if err != nil {
		logger.Error("Failed to subscribe", "error", err)
		os.Exit(1)
	}

	logger.Info("Notifier started", "subject", events.ReservationCreated)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down notifier...")
}
