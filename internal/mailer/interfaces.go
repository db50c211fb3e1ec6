package mailer

import "github.com/tavolo/reservations/internal/domain"

// Service sends owner-facing mail. Send failures are logged by callers and
// never surfaced to the reservation flow.
type Service interface {
	Send(toEmail, toName, subject, text, html string) (string, error)
	// SendPendingApproval mails the owner the two one-time action links for a
	// reservation awaiting approval.
	SendPendingApproval(toEmail string, r *domain.Reservation, confirmLink, declineLink string) error
}
