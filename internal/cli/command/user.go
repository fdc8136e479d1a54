package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pveapi-go/internal/cli/output"
	"github.com/yndnr/pveapi-go/internal/telemetry/logger"
	"github.com/yndnr/pveapi-go/pkg/pveapi"
	"github.com/yndnr/pveapi-go/pkg/pvecontrol"
)

// userAttrFlags are the optional attributes accepted by create and update.
func userAttrFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "email", Usage: "E-mail address"},
		&cli.StringFlag{Name: "comment", Usage: "Free-form comment"},
		&cli.StringFlag{Name: "firstname", Usage: "First name"},
		&cli.StringFlag{Name: "lastname", Usage: "Last name"},
		&cli.StringFlag{Name: "groups", Usage: "Comma-separated group list"},
		&cli.Int64Flag{Name: "expire", Usage: "Account expiry as a Unix timestamp (0 = never)"},
		&cli.BoolFlag{Name: "enable", Usage: "Enable the account", Value: true},
	}
}

// UserCommand returns the user subcommand group.
func UserCommand() *cli.Command {
	return &cli.Command{
		Name:    "user",
		Aliases: []string{"users"},
		Usage:   "Manage Proxmox VE users",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List users",
				Action: userList,
			},
			{
				Name:      "show",
				Usage:     "Show a user with its VM grants",
				ArgsUsage: "USERID",
				Action:    userShow,
			},
			{
				Name:      "create",
				Usage:     "Create a user",
				ArgsUsage: "USERID",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "new-password",
						Usage: "Initial password (generated when omitted)",
					},
					&cli.IntFlag{
						Name:  "length",
						Usage: "Length of a generated password",
						Value: pvecontrol.DefaultPasswordLength,
					},
				}, userAttrFlags()...),
				Action: userCreate,
			},
			{
				Name:      "update",
				Usage:     "Change user attributes",
				ArgsUsage: "USERID",
				Flags:     userAttrFlags(),
				Action:    userUpdate,
			},
			{
				Name:      "passwd",
				Aliases:   []string{"password"},
				Usage:     "Set a user password",
				ArgsUsage: "USERID",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "new-password",
						Usage: "New password (generated when omitted)",
					},
					&cli.IntFlag{
						Name:  "length",
						Usage: "Length of a generated password",
						Value: pvecontrol.DefaultPasswordLength,
					},
				},
				Action: userPasswd,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a user",
				ArgsUsage: "USERID",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Skip confirmation",
					},
				},
				Action: userDelete,
			},
		},
	}
}

func userList(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := client.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return render(c, users)
}

func userShow(c *cli.Context) error {
	userid := c.Args().First()
	if userid == "" {
		return errors.New("user ID required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	ctrl := pvecontrol.New(client, logger.Default())
	subject, err := ctrl.SetUser(ctx, userid)
	if err != nil {
		return err
	}

	format, err := outputFormat(c)
	if err != nil {
		return err
	}
	if format != output.FormatTable {
		return render(c, subject)
	}

	if err := render(c, subject.Config); err != nil {
		return err
	}
	fmt.Fprintf(stdout(c), "\nVM grants (%d):\n", len(subject.ACLVMs))
	if len(subject.ACLVMs) == 0 {
		return nil
	}
	return render(c, subject.ACLVMs)
}

// userParams collects the attribute flags that were set.
func userParams(c *cli.Context, userid string) pveapi.Params {
	params := pveapi.Params{"userid": userid}
	for _, name := range []string{"email", "comment", "firstname", "lastname", "groups"} {
		if c.IsSet(name) {
			params[name] = c.String(name)
		}
	}
	if c.IsSet("expire") {
		params["expire"] = strconv.FormatInt(c.Int64("expire"), 10)
	}
	if c.IsSet("enable") || c.Command.Name == "create" {
		params["enable"] = pveapi.Flag(c.Bool("enable")).FormValue()
	}
	return params
}

// passwordArg returns --new-password or a generated password. generated tells
// the caller to print it.
func passwordArg(c *cli.Context) (pw string, generated bool, err error) {
	if pw = c.String("new-password"); pw != "" {
		return pw, false, nil
	}
	pw, err = pvecontrol.GeneratePassword(c.Int("length"))
	return pw, true, err
}

func userCreate(c *cli.Context) error {
	userid := c.Args().First()
	if userid == "" {
		return errors.New("user ID required")
	}
	pw, generated, err := passwordArg(c)
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	params := userParams(c, userid)
	params["password"] = pw
	if _, err := client.CreateUser(ctx, params); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(stdout(c), "User %s created.\n", userid)
	if generated {
		fmt.Fprintf(stdout(c), "  Password: %s\n", pw)
	}
	return nil
}

func userUpdate(c *cli.Context) error {
	userid := c.Args().First()
	if userid == "" {
		return errors.New("user ID required")
	}
	params := userParams(c, userid)
	if len(params) == 1 {
		return errors.New("nothing to update: pass at least one attribute flag")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if _, err := client.UpdateUser(ctx, params); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	fmt.Fprintf(stdout(c), "User %s updated.\n", userid)
	return nil
}

func userPasswd(c *cli.Context) error {
	userid := c.Args().First()
	if userid == "" {
		return errors.New("user ID required")
	}
	pw, generated, err := passwordArg(c)
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if _, err := client.UpdateUserPassword(ctx, pveapi.Params{"userid": userid, "password": pw}); err != nil {
		return fmt.Errorf("set password: %w", err)
	}

	fmt.Fprintf(stdout(c), "Password of %s changed.\n", userid)
	if generated {
		fmt.Fprintf(stdout(c), "  Password: %s\n", pw)
	}
	return nil
}

func userDelete(c *cli.Context) error {
	userid := c.Args().First()
	if userid == "" {
		return errors.New("user ID required")
	}
	if !c.Bool("force") && !confirm(c, fmt.Sprintf("Delete user '%s'? [y/N]: ", userid)) {
		fmt.Fprintln(stdout(c), "Cancelled.")
		return nil
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if _, err := client.DeleteUser(ctx, userid); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	fmt.Fprintf(stdout(c), "User %s deleted.\n", userid)
	return nil
}

// confirm asks a yes/no question on the app's reader.
func confirm(c *cli.Context, prompt string) bool {
	fmt.Fprint(stdout(c), prompt)
	var in io.Reader = os.Stdin
	if c.App.Reader != nil {
		in = c.App.Reader
	}
	answer, _ := bufio.NewReader(in).ReadString('\n')
	answer = strings.TrimSpace(answer)
	return answer == "y" || answer == "Y"
}

// PasswordCommand returns the password subcommand group.
func PasswordCommand() *cli.Command {
	return &cli.Command{
		Name:  "password",
		Usage: "Password helpers",
		Subcommands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Print a random password from an unambiguous alphabet",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "length",
						Aliases: []string{"n"},
						Usage:   "Password length",
						Value:   pvecontrol.DefaultPasswordLength,
					},
				},
				Action: func(c *cli.Context) error {
					pw, err := pvecontrol.GeneratePassword(c.Int("length"))
					if err != nil {
						return err
					}
					fmt.Fprintln(stdout(c), pw)
					return nil
				},
			},
		},
	}
}
