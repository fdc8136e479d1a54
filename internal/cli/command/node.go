package command

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pveapi-go/pkg/pveapi"
)

// NodeCommand returns the node subcommand group.
func NodeCommand() *cli.Command {
	return &cli.Command{
		Name:    "node",
		Aliases: []string{"nodes"},
		Usage:   "Inspect cluster nodes",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List cluster nodes",
				Action: nodeList,
			},
			{
				Name:      "get",
				Usage:     "Show the API index of a node",
				ArgsUsage: "NODE",
				Action:    nodeGet,
			},
		},
	}
}

func nodeList(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	nodes, err := client.ListNodeInfo(ctx)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return render(c, nodes)
}

func nodeGet(c *cli.Context) error {
	node := c.Args().First()
	if node == "" {
		return errors.New("node name required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := client.Nodes(ctx, node)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return renderResult(c, res)
}

// vmRow is a guest together with the node hosting it.
type vmRow struct {
	Node string `json:"node"`
	pveapi.VM
}

// VMCommand returns the vm subcommand group.
func VMCommand() *cli.Command {
	return &cli.Command{
		Name:    "vm",
		Aliases: []string{"qemu"},
		Usage:   "Inspect QEMU guests",
		Subcommands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List guests of the given nodes, or of every node",
				ArgsUsage: "[NODE...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "running",
						Usage: "Only show running guests",
					},
				},
				Action: vmList,
			},
		},
	}
}

func vmList(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	nodes := c.Args().Slice()
	if len(nodes) == 0 {
		nodes, err = client.ListNodes(ctx)
		if err != nil {
			return fmt.Errorf("list nodes: %w", err)
		}
	}

	rows := make([]vmRow, 0)
	for _, node := range nodes {
		vms, err := client.ListVMs(ctx, node)
		if err != nil {
			return fmt.Errorf("list guests of %s: %w", node, err)
		}
		for _, vm := range vms {
			if c.Bool("running") && !vm.Running() {
				continue
			}
			rows = append(rows, vmRow{Node: node, VM: vm})
		}
	}
	return render(c, rows)
}
