package mailer

import (
	"fmt"

	"github.com/tavolo/reservations/internal/domain"
)

func pendingApprovalBody(r *domain.Reservation, confirmLink, declineLink string) (subject, text, html string) {
	subject = fmt.Sprintf("Reservation request: %s, %d people, %s %s",
		r.CustomerName, r.PartySize, r.ServiceDate, r.ServiceTime)

	text = fmt.Sprintf("New reservation request awaiting your approval.\n\n"+
		"Name: %s\nPhone: %s\nDate: %s\nTime: %s\nParty size: %d\n\n"+
		"Confirm: %s\nDecline: %s\n\n"+
		"Links are single-use and expire shortly.",
		r.CustomerName, r.Phone, r.ServiceDate, r.ServiceTime, r.PartySize,
		confirmLink, declineLink)

	html = fmt.Sprintf(`<p>New reservation request awaiting your approval.</p>
<ul>
  <li>Name: <b>%s</b></li>
  <li>Phone: %s</li>
  <li>Date: %s at %s</li>
  <li>Party size: %d</li>
</ul>
<p><a href="%s">Confirm</a> &middot; <a href="%s">Decline</a></p>
<p>Links are single-use and expire shortly.</p>`,
		r.CustomerName, r.Phone, r.ServiceDate, r.ServiceTime, r.PartySize,
		confirmLink, declineLink)

	return subject, text, html
}
