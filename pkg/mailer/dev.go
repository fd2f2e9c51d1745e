package mailer

import (
	"github.com/parkpass/parkpass-reservations/pkg/logger"
)

// DevMailer logs mail instead of sending it.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	logger.Info("[DEV MAIL]",
		"to", toEmail,
		"name", toName,
		"subject", subject,
		"text", text,
	)
	return "dev", nil
}

func (d *DevMailer) SendGatePass(email, plate, gateToken, fee string) error {
	logger.Info("[DEV MAIL] Gate pass",
		"to", email,
		"plate", plate,
		"gate_token", gateToken,
		"fee", fee,
	)
	return nil
}
