package pveapi

import "time"

// TicketLifetime is how long a ticket is honoured after issuance.
//
// Proxmox tickets expire two hours after login. Freshness is checked as
// now-IssuedAt < TicketLifetime.
const TicketLifetime = 7200 * time.Second

// Session is one authenticated context. The zero value means "not logged in".
type Session struct {
	IssuedAt  time.Time
	Ticket    string
	Username  string
	CSRFToken string
}

// Valid reports whether the session holds a ticket that is still fresh at now.
func (s Session) Valid(now time.Time) bool {
	if s.Ticket == "" || s.IssuedAt.IsZero() {
		return false
	}
	return now.Sub(s.IssuedAt) < TicketLifetime
}

// ExpiresAt returns when the ticket stops being honoured.
func (s Session) ExpiresAt() time.Time {
	if s.IssuedAt.IsZero() {
		return time.Time{}
	}
	return s.IssuedAt.Add(TicketLifetime)
}

// ticketResponse is the payload of POST /access/ticket.
type ticketResponse struct {
	Data *struct {
		Ticket              string `json:"ticket"`
		Username            string `json:"username"`
		CSRFPreventionToken string `json:"CSRFPreventionToken"`
	} `json:"data"`
}
