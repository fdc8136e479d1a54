package command

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/pveapi-go/internal/cli/connection"
	"github.com/yndnr/pveapi-go/internal/infra/buildinfo"
	"github.com/yndnr/pveapi-go/internal/infra/shutdown"
	"github.com/yndnr/pveapi-go/internal/telemetry/logger"
	"github.com/yndnr/pveapi-go/internal/telemetry/metric"
	"github.com/yndnr/pveapi-go/pkg/pveapi"
)

// ExporterCommand returns the Prometheus exporter command.
func ExporterCommand() *cli.Command {
	return &cli.Command{
		Name:  "exporter",
		Usage: "Serve node and guest inventory as Prometheus metrics",
		Description: "Polls /nodes and /nodes/{node}/qemu of the selected host. " +
			"A new ticket is obtained when the current one ages out.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "Metrics listen address",
				Value:   ":9221",
				EnvVars: []string{"PVECTL_EXPORTER_LISTEN"},
			},
			&cli.StringFlag{
				Name:  "metrics-path",
				Usage: "Metrics endpoint path",
				Value: "/metrics",
			},
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Inventory poll interval",
				Value:   30 * time.Second,
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Usage: "Time allowed for in-flight scrapes on shutdown",
				Value: 10 * time.Second,
			},
		},
		Action: exporterAction,
	}
}

func exporterAction(c *cli.Context) error {
	interval := c.Duration("interval")
	if interval <= 0 {
		return errors.New("--interval must be positive")
	}
	target, err := ResolveTarget(c)
	if err != nil {
		return err
	}

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	reg := metric.NewRegistry()
	instance := uuid.NewString()
	reg.SetExporterInfo(buildinfo.Version, instance, target.Label())
	log := logger.Default().With("instance", instance, "target", target.Label())

	mgr := connection.NewManager(
		connection.WithLogger(log),
		connection.WithClientOptions(pveapi.WithObserver(reg)),
	)
	if target.Insecure {
		log.Warn("TLS certificate verification disabled")
	}
	if _, err := mgr.Connect(ctx, target); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	ln, err := net.Listen("tcp", c.String("listen"))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{
		Handler:           exporterMux(c.String("metrics-path"), reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	pollCtx, stopPolling := context.WithCancel(ctx)
	waitCtx, stopWaiting := context.WithCancel(ctx)
	defer stopWaiting()

	sh := shutdown.NewHandler(c.Duration("shutdown-timeout"))
	sh.OnShutdown(func(context.Context) error {
		stopPolling()
		return nil
	})
	sh.OnShutdown(srv.Shutdown)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stopWaiting()
		}
	}()

	poller := newInventoryPoller(mgr, reg.Inventory(), log)
	go poller.Run(pollCtx, interval)

	log.Info("exporter started", "listen", ln.Addr().String(), "interval", interval)
	fmt.Fprintf(stdout(c), "Serving metrics on http://%s%s\n", ln.Addr(), c.String("metrics-path"))

	err = sh.Wait(waitCtx)
	select {
	case sErr := <-serveErr:
		return errors.Join(fmt.Errorf("serve: %w", sErr), err)
	default:
		return err
	}
}

func exporterMux(path string, reg *metric.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(path, reg.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<html><head><title>pvectl exporter</title></head><body>"+
			"<h1>pvectl exporter</h1><p><a href=%q>Metrics</a></p></body></html>\n", path)
	})
	return mux
}

// clientSource hands out a client with a fresh ticket.
type clientSource interface {
	Client(ctx context.Context) (*pveapi.Client, error)
}

// inventoryPoller refreshes the inventory collector from the API.
type inventoryPoller struct {
	source clientSource
	inv    *metric.InventoryCollector
	log    logger.Logger
	now    func() time.Time
}

func newInventoryPoller(source clientSource, inv *metric.InventoryCollector, l logger.Logger) *inventoryPoller {
	return &inventoryPoller{
		source: source,
		inv:    inv,
		log:    l,
		now:    time.Now,
	}
}

// Run refreshes at most once per interval until ctx is done. The first
// refresh happens immediately.
func (p *inventoryPoller) Run(ctx context.Context, interval time.Duration) {
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		refreshCtx, cancel := context.WithTimeout(ctx, interval)
		if err := p.refresh(refreshCtx); err != nil && ctx.Err() == nil {
			p.log.Warn("inventory refresh failed", "error", err)
		}
		cancel()
	}
}

// refresh takes one snapshot of the cluster members. A node whose guests cannot be listed is kept
// without guests; a failed node listing keeps the previous snapshot.
func (p *inventoryPoller) refresh(ctx context.Context) error {
	client, err := p.source.Client(ctx)
	if err != nil {
		p.inv.MarkFailed(p.now())
		return fmt.Errorf("login: %w", err)
	}

	nodes, err := client.ListNodeInfo(ctx)
	if err != nil {
		p.inv.MarkFailed(p.now())
		return fmt.Errorf("list nodes: %w", err)
	}

	members := make([]pveapi.NodeInfo, 0, len(nodes))
	vms := make(map[string][]pveapi.VM, len(nodes))
	for _, n := range nodes {
		if n.Type != "node" {
			continue
		}
		members = append(members, n)
		if !n.Online() {
			continue
		}
		list, err := client.ListVMs(ctx, n.Node)
		if err != nil {
			p.log.Warn("list guests failed", "node", n.Node, "error", err)
			continue
		}
		vms[n.Node] = list
	}

	p.inv.Update(members, vms, p.now())
	p.log.Debug("inventory refreshed", "nodes", len(members))
	return nil
}
