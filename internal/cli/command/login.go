package command

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pveapi-go/internal/telemetry/logger"
)

// sessionView is the printable form of a ticket.
type sessionView struct {
	Target    string    `json:"target"`
	Username  string    `json:"username"`
	Ticket    string    `json:"ticket"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Fresh     bool      `json:"fresh"`
}

// LoginCommand returns the login command.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Obtain a ticket and show the session",
		Description: "Logs in with the selected profile or the connection flags. " +
			"The ticket is printed masked.",
		Action: loginAction,
	}
}

func loginAction(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	s := client.Session()
	view := sessionView{
		Username:  s.Username,
		Ticket:    logger.RedactString(s.Ticket),
		IssuedAt:  s.IssuedAt,
		ExpiresAt: s.ExpiresAt(),
		Fresh:     client.LoggedIn(),
	}
	if cur := GetConnectionManager(c).Current(); cur != nil {
		view.Target = cur.Label()
	}
	return render(c, view)
}

// LogoutCommand returns the logout command.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Forget the current ticket",
		Action: func(c *cli.Context) error {
			mgr := GetConnectionManager(c)
			if mgr == nil || mgr.Current() == nil {
				fmt.Fprintln(stdout(c), "Not logged in")
				return nil
			}
			label := mgr.Current().Label()
			mgr.Disconnect()
			fmt.Fprintf(stdout(c), "Logged out of %s\n", label)
			return nil
		},
	}
}

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show the Proxmox VE version of the host",
		Action: func(c *cli.Context) error {
			client, err := EnsureConnected(c)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(c)
			defer cancel()

			info, err := client.VersionInfo(ctx)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			return render(c, info)
		},
	}
}
