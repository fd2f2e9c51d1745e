package mailer

// Service sends customer-facing mail. SendGatePass delivers the reservation
// confirmation with the single-use gate token the customer presents at
// check-in.
type Service interface {
	Send(toEmail, toName, subject, text, html string) (string, error)
	SendGatePass(email, plate, gateToken, fee string) error
}
