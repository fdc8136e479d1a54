package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pveapi-go/internal/cli/config"
	"github.com/yndnr/pveapi-go/internal/cli/connection"
	"github.com/yndnr/pveapi-go/internal/cli/output"
	"github.com/yndnr/pveapi-go/internal/infra/buildinfo"
	"github.com/yndnr/pveapi-go/internal/telemetry/logger"
	"github.com/yndnr/pveapi-go/pkg/pveapi"
)

const (
	metaConnMgr = "connMgr"
	metaState   = "state"
	metaGlobals = "globals"
)

// DefaultRequestTimeout bounds one command when no --timeout is given.
const DefaultRequestTimeout = 30 * time.Second

// App creates the CLI application.
func App() *cli.App {
	app := &cli.App{
		Name:                 "pvectl",
		Usage:                "Proxmox VE command-line client",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			LoginCommand(),
			LogoutCommand(),
			VersionCommand(),
			NodeCommand(),
			VMCommand(),
			UserCommand(),
			RoleCommand(),
			ACLCommand(),
			AccessCommand(),
			APICommand(),
			PasswordCommand(),
			ConfigCommand(),
			ShellCommand(),
			ExporterCommand(),
		},
		Metadata: make(map[string]any),
		Before:   before,
		After:    after,
	}
	return app
}

// before sets up logging, loads the CLI configuration and creates the
// connection manager. The manager survives repeated runs of the same app,
// which is how the shell keeps one login across commands.
func before(c *cli.Context) error {
	flags := readGlobalFlags(c)

	level := "warn"
	if flags.Verbose {
		level = "debug"
	}
	l, err := logger.New(logger.Config{Level: level, Format: "text", Output: c.App.ErrWriter})
	if err != nil {
		return err
	}
	logger.SetDefault(l)

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[metaGlobals] = flags

	st, ok := c.App.Metadata[metaState].(*state)
	if !ok {
		st = &state{}
		c.App.Metadata[metaState] = st
	}
	if !st.loaded(flags.Config) {
		if err := st.load(flags.Config); err != nil {
			return err
		}
	}

	if GetConnectionManager(c) == nil {
		c.App.Metadata[metaConnMgr] = connection.NewManager(connection.WithLogger(l))
	}
	return nil
}

// after prints the diagnostics buffer when --debug is set.
func after(c *cli.Context) error {
	if !ParseGlobalFlags(c).Debug {
		return nil
	}
	mgr := GetConnectionManager(c)
	if mgr == nil {
		return nil
	}
	return mgr.FlushDebug(c.App.ErrWriter)
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI configuration file",
			EnvVars: []string{"PVECTL_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"P"},
			Usage:   "Connection profile (defaults to the current profile)",
			EnvVars: []string{"PVECTL_PROFILE"},
		},
		&cli.StringFlag{
			Name:    "host",
			Aliases: []string{"H"},
			Usage:   "Proxmox host name or address",
			EnvVars: []string{"PVECTL_HOST"},
		},
		&cli.IntFlag{
			Name:  "port",
			Usage: "pveproxy port (default 8006)",
		},
		&cli.StringFlag{
			Name:    "user",
			Aliases: []string{"u"},
			Usage:   "User name without realm",
			EnvVars: []string{"PVECTL_USER"},
		},
		&cli.StringFlag{
			Name:    "password",
			Usage:   "Password (prefer a profile or PVECTL_PASSWORD)",
			EnvVars: []string{"PVECTL_PASSWORD"},
		},
		&cli.StringFlag{
			Name:  "realm",
			Usage: "Authentication realm (default pve)",
		},
		&cli.StringFlag{
			Name:  "ca-file",
			Usage: "PEM file or directory of trusted root certificates",
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "Skip TLS certificate verification (lab hosts only)",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Per-request timeout",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Print the raw request and response log after the command",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable verbose logging",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	// Configuration
	Config  string
	Profile string

	// Connection overrides
	Host     string
	Port     int
	User     string
	Password string
	Realm    string
	CAFile   string
	Insecure bool
	Timeout  time.Duration

	// Output format
	Output string // table, json, yaml
	Wide   bool

	// Other
	Debug   bool
	Verbose bool
}

// ParseGlobalFlags returns the global flags of the current run. They are
// captured on the app context by the Before hook, because a subcommand flag
// of the same name (user create --new-password, config set-profile --host)
// shadows the global one in a subcommand context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	if f, ok := c.App.Metadata[metaGlobals].(*GlobalFlags); ok {
		cp := *f
		return &cp
	}
	return readGlobalFlags(c)
}

func readGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:   c.String("config"),
		Profile:  c.String("profile"),
		Host:     c.String("host"),
		Port:     c.Int("port"),
		User:     c.String("user"),
		Password: c.String("password"),
		Realm:    c.String("realm"),
		CAFile:   c.String("ca-file"),
		Insecure: c.Bool("insecure"),
		Timeout:  c.Duration("timeout"),
		Output:   c.String("output"),
		Wide:     c.Bool("wide"),
		Debug:    c.Bool("debug"),
		Verbose:  c.Bool("verbose"),
	}
}

// state is the loaded CLI configuration. The shell reloads it when the file
// changes, so access goes through the mutex.
type state struct {
	mu   sync.RWMutex
	path string
	cfg  *config.CLIConfig
}

func (s *state) load(path string) error {
	cfg, err := config.Load(path, nil)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = path
	s.cfg = cfg
	return nil
}

func (s *state) loaded(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg != nil && s.path == path
}

// set replaces the configuration after it was saved by a command.
func (s *state) set(cfg *config.CLIConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

func (s *state) config() (*config.CLIConfig, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, s.path
}

func getState(c *cli.Context) *state {
	if st, ok := c.App.Metadata[metaState].(*state); ok {
		return st
	}
	return nil
}

// loadedConfig returns the configuration loaded in before, or the defaults.
func loadedConfig(c *cli.Context) (*config.CLIConfig, string) {
	if st := getState(c); st != nil {
		if cfg, path := st.config(); cfg != nil {
			return cfg, path
		}
	}
	return config.Default(), ParseGlobalFlags(c).Config
}

// GetConnectionManager retrieves the connection manager from context.
func GetConnectionManager(c *cli.Context) *connection.Manager {
	if mgr, ok := c.App.Metadata[metaConnMgr].(*connection.Manager); ok {
		return mgr
	}
	return nil
}

// ResolveTarget merges the selected profile with the connection flags.
// Flags win over the profile.
func ResolveTarget(c *cli.Context) (connection.Target, error) {
	flags := ParseGlobalFlags(c)
	cfg, _ := loadedConfig(c)

	var t connection.Target
	name, p, err := cfg.Profile(flags.Profile)
	switch {
	case err == nil:
		pc, err := p.PVEConfig(os.Getenv(config.SecretEnv))
		if err != nil {
			return t, fmt.Errorf("profile %s: %w", name, err)
		}
		t = connection.Target{
			Name:     name,
			Config:   pc,
			CAFile:   p.CAFile,
			Insecure: p.Insecure,
			Timeout:  p.Timeout,
		}
	case errors.Is(err, config.ErrNoProfile) && flags.Profile == "":
	default:
		return t, err
	}

	if flags.Host != "" {
		t.Config.Hostname = flags.Host
	}
	if flags.Port != 0 {
		t.Config.Port = flags.Port
	}
	if flags.User != "" {
		t.Config.Username = flags.User
	}
	if flags.Password != "" {
		t.Config.Userpass = flags.Password
	}
	if flags.Realm != "" {
		t.Config.Realm = flags.Realm
	}
	if flags.CAFile != "" {
		t.CAFile = flags.CAFile
	}
	if flags.Insecure {
		t.Insecure = true
	}
	if flags.Timeout > 0 {
		t.Timeout = flags.Timeout
	}
	t.Debug = flags.Debug

	if t.Config.Hostname == "" {
		return t, errors.New("no Proxmox host: pass --host or create a profile with 'pvectl config set-profile'")
	}
	return t, nil
}

// EnsureConnected returns a logged-in client for the resolved target. The
// current connection is reused while it matches the target and its ticket
// is fresh.
func EnsureConnected(c *cli.Context) (*pveapi.Client, error) {
	mgr := GetConnectionManager(c)
	if mgr == nil {
		return nil, errors.New("connection manager not initialized")
	}
	target, err := ResolveTarget(c)
	if err != nil {
		return nil, err
	}

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if cur := mgr.Current(); cur != nil && *cur == target {
		return mgr.Client(ctx)
	}

	if target.Insecure {
		logger.Warn("TLS certificate verification disabled", "target", target.Label())
	}
	return mgr.Connect(ctx, target)
}

// requestContext bounds one command.
func requestContext(c *cli.Context) (context.Context, context.CancelFunc) {
	parent := c.Context
	if parent == nil {
		parent = context.Background()
	}
	timeout := ParseGlobalFlags(c).Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return context.WithTimeout(parent, timeout)
}

// outputFormat returns --output, then the configured default.
func outputFormat(c *cli.Context) (output.Format, error) {
	if f := ParseGlobalFlags(c).Output; f != "" {
		return output.ParseFormat(f)
	}
	cfg, _ := loadedConfig(c)
	return output.ParseFormat(cfg.DefaultOutput)
}

// render writes data in the selected output format.
func render(c *cli.Context, data any) error {
	format, err := outputFormat(c)
	if err != nil {
		return err
	}
	return output.NewFormatter(format, ParseGlobalFlags(c).Wide).Format(stdout(c), data)
}

// renderResult decodes the payload of a raw API result. Non-JSON formats
// and empty payloads print the body as received.
func renderResult(c *cli.Context, res *pveapi.Result) error {
	if res.Empty() {
		if len(res.Body) > 0 && res.Data == nil && !isJSONBody(res.Body) {
			_, err := stdout(c).Write(res.Body)
			return err
		}
		fmt.Fprintf(stdout(c), "OK (%s)\n", res.StatusLine)
		return nil
	}
	var data any
	if err := res.Decode(&data); err != nil {
		return err
	}
	return render(c, data)
}

func isJSONBody(b []byte) bool {
	for _, ch := range b {
		switch ch {
		case ' ', '\t', '\r', '\n':
			continue
		case '{', '[':
			return true
		default:
			return false
		}
	}
	return false
}

func stdout(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
