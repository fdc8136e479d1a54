package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pveapi-go/pkg/pveapi"
)

// APICommand returns the raw api subcommand group.
func APICommand() *cli.Command {
	var subs []*cli.Command
	for _, m := range []pveapi.Method{pveapi.MethodGet, pveapi.MethodPut, pveapi.MethodPost, pveapi.MethodDelete} {
		subs = append(subs, apiVerbCommand(m))
	}
	return &cli.Command{
		Name:        "api",
		Usage:       "Call any API path",
		Description: "Paths are relative to /api2/<format>, e.g. 'pvectl api get /cluster/resources'.",
		Subcommands: subs,
	}
}

func apiVerbCommand(m pveapi.Method) *cli.Command {
	cmd := &cli.Command{
		Name:      strings.ToLower(m.String()),
		Usage:     m.String() + " an API path",
		ArgsUsage: "PATH",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Usage: "Response format: json, extjs, html, text, png",
			},
		},
		Action: func(c *cli.Context) error {
			return apiCall(c, m)
		},
	}
	if m == pveapi.MethodPut || m == pveapi.MethodPost {
		cmd.Flags = append(cmd.Flags, &cli.StringSliceFlag{
			Name:    "data",
			Aliases: []string{"d"},
			Usage:   "Form parameter as KEY=VALUE (repeatable)",
		})
	}
	return cmd
}

// parseData turns KEY=VALUE pairs into request parameters.
func parseData(pairs []string) (pveapi.Params, error) {
	params := make(pveapi.Params, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid data %q: want KEY=VALUE", pair)
		}
		params[key] = value
	}
	return params, nil
}

func apiCall(c *cli.Context, m pveapi.Method) error {
	path := c.Args().First()
	if path == "" {
		return errors.New("API path required")
	}
	params, err := parseData(c.StringSlice("data"))
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if f := c.String("format"); f != "" {
		prev := client.ResponseFormat()
		client.SetResponseFormat(f)
		defer client.SetResponseFormat(prev)
	}

	res, err := client.Execute(ctx, path, m, params)
	if err != nil {
		return fmt.Errorf("%s %s: %w", m, path, err)
	}
	return renderResult(c, res)
}
