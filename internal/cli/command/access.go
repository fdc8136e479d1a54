package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pveapi-go/pkg/pveapi"
)

// RoleCommand returns the role subcommand group.
func RoleCommand() *cli.Command {
	return &cli.Command{
		Name:    "role",
		Aliases: []string{"roles"},
		Usage:   "Inspect roles",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List roles and their privileges",
				Action: func(c *cli.Context) error {
					client, err := EnsureConnected(c)
					if err != nil {
						return err
					}
					ctx, cancel := requestContext(c)
					defer cancel()

					roles, err := client.ListRoles(ctx)
					if err != nil {
						return fmt.Errorf("request failed: %w", err)
					}
					return render(c, roles)
				},
			},
		},
	}
}

func aclFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "path", Usage: "ACL path, e.g. /vms/100", Required: true},
		&cli.StringFlag{Name: "roles", Usage: "Comma-separated role list", Required: true},
		&cli.StringFlag{Name: "users", Usage: "Comma-separated user list"},
		&cli.StringFlag{Name: "groups", Usage: "Comma-separated group list"},
		&cli.StringFlag{Name: "tokens", Usage: "Comma-separated API token list"},
		&cli.BoolFlag{Name: "propagate", Usage: "Apply to sub-paths", Value: true},
	}
}

// ACLCommand returns the acl subcommand group.
func ACLCommand() *cli.Command {
	return &cli.Command{
		Name:  "acl",
		Usage: "Manage access control lists",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List ACL entries",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "ugid", Usage: "Only entries of this user or group"},
					&cli.StringFlag{Name: "path-prefix", Usage: "Only paths with this prefix"},
				},
				Action: aclList,
			},
			{
				Name:   "grant",
				Usage:  "Grant roles on a path",
				Flags:  aclFlags(),
				Action: aclGrant,
			},
			{
				Name:   "revoke",
				Usage:  "Revoke roles on a path",
				Flags:  aclFlags(),
				Action: aclRevoke,
			},
		},
	}
}

func aclList(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	acl, err := client.ListACL(ctx)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	ugid, prefix := c.String("ugid"), c.String("path-prefix")
	filtered := make([]pveapi.ACLEntry, 0, len(acl))
	for _, e := range acl {
		if ugid != "" && e.UGID != ugid {
			continue
		}
		if prefix != "" && !strings.HasPrefix(e.Path, prefix) {
			continue
		}
		filtered = append(filtered, e)
	}
	return render(c, filtered)
}

func aclParams(c *cli.Context) (pveapi.Params, error) {
	params := pveapi.Params{
		"path":      c.String("path"),
		"roles":     c.String("roles"),
		"propagate": pveapi.Flag(c.Bool("propagate")).FormValue(),
	}
	subjects := 0
	for _, name := range []string{"users", "groups", "tokens"} {
		if v := c.String(name); v != "" {
			params[name] = v
			subjects++
		}
	}
	if subjects == 0 {
		return nil, errors.New("one of --users, --groups or --tokens is required")
	}
	return params, nil
}

func aclGrant(c *cli.Context) error {
	params, err := aclParams(c)
	if err != nil {
		return err
	}
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if _, err := client.CreateACL(ctx, params); err != nil {
		return fmt.Errorf("grant: %w", err)
	}
	fmt.Fprintf(stdout(c), "Granted %s on %s.\n", params["roles"], params["path"])
	return nil
}

func aclRevoke(c *cli.Context) error {
	params, err := aclParams(c)
	if err != nil {
		return err
	}
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if _, err := client.DeleteACL(ctx, params); err != nil {
		return fmt.Errorf("revoke: %w", err)
	}
	fmt.Fprintf(stdout(c), "Revoked %s on %s.\n", params["roles"], params["path"])
	return nil
}

// AccessCommand returns the access command.
func AccessCommand() *cli.Command {
	return &cli.Command{
		Name:      "access",
		Usage:     "Browse /access or one of its sub-paths",
		ArgsUsage: "[SUBPATH]",
		Action: func(c *cli.Context) error {
			client, err := EnsureConnected(c)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(c)
			defer cancel()

			res, err := client.Access(ctx, c.Args().First())
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			return renderResult(c, res)
		},
	}
}
