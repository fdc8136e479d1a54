package connection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/yndnr/pveapi-go/internal/infra/buildinfo"
	"github.com/yndnr/pveapi-go/internal/infra/tlsroots"
	"github.com/yndnr/pveapi-go/internal/telemetry/logger"
	"github.com/yndnr/pveapi-go/pkg/pveapi"
)

// ErrNotConnected is returned when no target has been connected.
var ErrNotConnected = errors.New("connection: not connected")

// Target describes the host to log in to.
type Target struct {
	// Name is the profile name, empty for flag-only targets.
	Name     string
	Config   pveapi.Config
	CAFile   string
	Insecure bool
	Timeout  time.Duration
	Debug    bool
}

// Label returns the profile name or user@host for display.
func (t Target) Label() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Config.Username + "@" + t.Config.Hostname
}

// Manager holds the current client.
type Manager struct {
	mu         sync.Mutex
	log        logger.Logger
	clientOpts []pveapi.Option
	target     *Target
	client     *pveapi.Client
	logins     int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger handed to clients.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

// WithClientOptions appends options to every client the manager builds.
func WithClientOptions(opts ...pveapi.Option) Option {
	return func(m *Manager) {
		m.clientOpts = append(m.clientOpts, opts...)
	}
}

// NewManager creates a new connection manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{log: logger.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect logs in to t and makes it the current connection. The previous
// connection is kept when the login fails.
func (m *Manager) Connect(ctx context.Context, t Target) (*pveapi.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.dial(ctx, t)
	if err != nil {
		return nil, err
	}
	m.target = &t
	m.client = c
	return c, nil
}

// Client returns the current client, logging in again when its ticket is
// no longer fresh.
func (m *Manager) Client(ctx context.Context) (*pveapi.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.target == nil {
		return nil, ErrNotConnected
	}
	if m.client != nil && m.client.LoggedIn() {
		return m.client, nil
	}

	m.log.Info("ticket expired, logging in again", "target", m.target.Label())
	c, err := m.dial(ctx, *m.target)
	if err != nil {
		return nil, err
	}
	m.client = c
	return c, nil
}

func (m *Manager) dial(ctx context.Context, t Target) (*pveapi.Client, error) {
	opts := []pveapi.Option{
		pveapi.WithLogger(m.log),
		pveapi.WithUserAgent(buildinfo.UserAgent()),
	}
	if t.CAFile != "" {
		pool, err := tlsroots.Load(t.CAFile)
		if err != nil {
			return nil, fmt.Errorf("load CA file: %w", err)
		}
		opts = append(opts, pveapi.WithTLSConfig(pool.ClientConfig()))
	}
	if t.Insecure {
		opts = append(opts, pveapi.WithInsecureSkipVerify(true))
	}
	if t.Timeout > 0 {
		opts = append(opts, pveapi.WithTimeout(t.Timeout))
	}
	if t.Debug {
		opts = append(opts, pveapi.WithDebug(0))
	}
	opts = append(opts, m.clientOpts...)

	c, err := pveapi.New(ctx, t.Config, opts...)
	if err != nil {
		return nil, err
	}
	m.logins++
	return c, nil
}

// Current returns the current target, or nil.
func (m *Manager) Current() *Target {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.target == nil {
		return nil
	}
	t := *m.target
	return &t
}

// Session returns the ticket details of the current client.
func (m *Manager) Session() (pveapi.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return pveapi.Session{}, false
	}
	return m.client.Session(), true
}

// IsConnected reports whether a client with a fresh ticket is held.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client != nil && m.client.LoggedIn()
}

// Logins returns how many successful logins the manager performed.
func (m *Manager) Logins() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logins
}

// Disconnect drops the current client and target.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.client = nil
	m.target = nil
}

// FlushDebug writes and clears the diagnostics of the current client. It is
// a no-op when no client is held.
func (m *Manager) FlushDebug(w io.Writer) error {
	m.mu.Lock()
	c := m.client
	m.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.FlushDebug(w)
}
