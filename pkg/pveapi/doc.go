// Package pveapi is a client for the Proxmox VE REST API (api2).
//
// A Client logs in once, at construction, by exchanging a username and
// password for a ticket and a CSRF prevention token. Every later request
// carries the ticket as the PVEAuthCookie cookie; PUT, POST and DELETE also
// carry the CSRFPreventionToken header. Tickets are honoured for two hours and
// are never refreshed: build a new Client to log in again.
//
// Usage:
//
//	c, err := pveapi.New(ctx, pveapi.Config{
//		Hostname: "pve.example.com",
//		Username: "root",
//		Userpass: "secret",
//		Realm:    "pam",
//	})
//	if err != nil {
//		return err
//	}
//	version, err := c.Version(ctx)
//
// Errors are *Error values with stable codes (compare with errors.Is against
// the Err* sentinels) or *RejectedError for non-200 answers.
package pveapi
