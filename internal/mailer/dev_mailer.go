package mailer

import (
	"github.com/tavolo/reservations/internal/domain"
	"github.com/tavolo/reservations/pkg/logger"
)

// DevMailer prints mail to the logs instead of sending.
type DevMailer struct{}

func NewDevMailer() *DevMailer { return &DevMailer{} }

func (d *DevMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	logger.Info("[DEV MAIL]",
		"to", toEmail,
		"subject", subject,
		"text", text,
	)
	return "dev", nil
}

func (d *DevMailer) SendPendingApproval(toEmail string, r *domain.Reservation, confirmLink, declineLink string) error {
	logger.Info("[DEV MAIL] pending approval",
		"to", toEmail,
		"reservation_id", r.ID,
		"confirm_link", confirmLink,
		"decline_link", declineLink,
	)
	return nil
}

var _ Service = (*DevMailer)(nil)
