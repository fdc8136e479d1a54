package command

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pveapi-go/internal/cli/config"
	"github.com/yndnr/pveapi-go/internal/cli/output"
	"github.com/yndnr/pveapi-go/internal/telemetry/logger"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage connection profiles",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the configuration with passwords hidden",
				Action: configShow,
			},
			{
				Name:      "set-profile",
				Usage:     "Add or replace a profile",
				ArgsUsage: "NAME",
				Description: "The password is sealed with " + config.SecretEnv + " when it is set, " +
					"and stored as plain text otherwise.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "host", Usage: "Proxmox host name or address", Required: true},
					&cli.IntFlag{Name: "port", Usage: "pveproxy port"},
					&cli.StringFlag{Name: "user", Usage: "User name without realm", Required: true},
					&cli.StringFlag{Name: "password", Usage: "Password to store"},
					&cli.StringFlag{Name: "realm", Usage: "Authentication realm"},
					&cli.StringFlag{Name: "format", Usage: "API response format"},
					&cli.StringFlag{Name: "ca-file", Usage: "Trusted root certificates"},
					&cli.BoolFlag{Name: "insecure", Usage: "Skip TLS certificate verification"},
					&cli.DurationFlag{Name: "timeout", Usage: "Per-request timeout"},
					&cli.BoolFlag{Name: "use", Usage: "Make this the current profile"},
				},
				Action: configSetProfile,
			},
			{
				Name:      "use",
				Usage:     "Select the current profile",
				ArgsUsage: "NAME",
				Action:    configUse,
			},
			{
				Name:      "delete-profile",
				Usage:     "Remove a profile",
				ArgsUsage: "NAME",
				Action:    configDeleteProfile,
			},
			{
				Name:   "validate",
				Usage:  "Validate the configuration file",
				Action: configValidate,
			},
		},
	}
}

// configView is the printable configuration.
type configView struct {
	Path           string                    `json:"path" yaml:"path"`
	CurrentProfile string                    `json:"current_profile" yaml:"current_profile"`
	DefaultOutput  string                    `json:"default_output" yaml:"default_output"`
	Profiles       map[string]config.Profile `json:"profiles" yaml:"profiles"`
}

func configShow(c *cli.Context) error {
	cfg, path := loadedConfig(c)

	view := configView{
		Path:           path,
		CurrentProfile: cfg.CurrentProfile,
		DefaultOutput:  cfg.DefaultOutput,
		Profiles:       make(map[string]config.Profile, len(cfg.Profiles)),
	}
	for _, name := range cfg.Names() {
		view.Profiles[name] = cfg.Profiles[name].Redacted()
	}

	format, err := outputFormat(c)
	if err != nil {
		return err
	}
	if format != output.FormatTable {
		return render(c, view)
	}

	w := stdout(c)
	fmt.Fprintf(w, "Config file:     %s\n", view.Path)
	fmt.Fprintf(w, "Current profile: %s\n", view.CurrentProfile)
	fmt.Fprintf(w, "Default output:  %s\n\n", view.DefaultOutput)
	if len(view.Profiles) == 0 {
		fmt.Fprintln(w, "(no profiles)")
		return nil
	}

	table := &output.Table{}
	table.SetHeaders("", "NAME", "HOST", "PORT", "USER", "REALM", "PASSWORD", "TLS")
	for _, name := range cfg.Names() {
		p := view.Profiles[name]
		current := ""
		if name == view.CurrentProfile {
			current = "*"
		}
		tls := "verify"
		switch {
		case p.Insecure:
			tls = "insecure"
		case p.CAFile != "":
			tls = "ca-file"
		}
		table.AddRow(current, name, p.Hostname, portString(p.Port), p.Username, orDash(p.Realm), orDash(p.Password), tls)
	}
	return table.Render(w)
}

func portString(port int) string {
	if port == 0 {
		return "-"
	}
	return fmt.Sprint(port)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// saveConfig writes cfg and makes it the loaded configuration.
func saveConfig(c *cli.Context, cfg *config.CLIConfig, path string) error {
	if err := config.Save(cfg, path); err != nil {
		return err
	}
	if st := getState(c); st != nil {
		st.set(cfg)
	}
	return nil
}

func configSetProfile(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return errors.New("profile name required")
	}
	cfg, path := loadedConfig(c)

	p := config.Profile{
		Hostname: c.String("host"),
		Port:     c.Int("port"),
		Username: c.String("user"),
		Realm:    c.String("realm"),
		Format:   c.String("format"),
		CAFile:   c.String("ca-file"),
		Insecure: c.Bool("insecure"),
		Timeout:  c.Duration("timeout"),
	}
	if pw := c.String("password"); pw != "" {
		if secret := os.Getenv(config.SecretEnv); secret != "" {
			if err := p.SealPassword(secret, pw); err != nil {
				return err
			}
		} else {
			p.Password = pw
			logger.Warn("storing password as plain text", "profile", name, "hint", "set "+config.SecretEnv+" to seal it")
		}
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("profile %s: %w", name, err)
	}

	if err := cfg.SetProfile(name, p); err != nil {
		return err
	}
	if c.Bool("use") {
		if err := cfg.Use(name); err != nil {
			return err
		}
	}
	if err := saveConfig(c, cfg, path); err != nil {
		return err
	}

	state := "stored"
	if p.Sealed() {
		state = "stored (password sealed)"
	}
	fmt.Fprintf(stdout(c), "Profile %s %s in %s\n", name, state, path)
	return nil
}

func configUse(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return errors.New("profile name required")
	}
	cfg, path := loadedConfig(c)
	if err := cfg.Use(name); err != nil {
		return err
	}
	if err := saveConfig(c, cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(stdout(c), "Current profile: %s\n", name)
	return nil
}

func configDeleteProfile(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return errors.New("profile name required")
	}
	cfg, path := loadedConfig(c)
	if _, ok := cfg.Profiles[name]; !ok {
		return fmt.Errorf("%w: %s", config.ErrProfileNotFound, name)
	}
	delete(cfg.Profiles, name)
	if cfg.CurrentProfile == name {
		cfg.CurrentProfile = ""
	}
	if err := saveConfig(c, cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(stdout(c), "Profile %s deleted.\n", name)
	return nil
}

func configValidate(c *cli.Context) error {
	_, path := loadedConfig(c)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stdout(c), "No configuration file found at %s\n", path)
		fmt.Fprintln(stdout(c), "Using default settings.")
		return nil
	}

	cfg, err := config.Load(path, nil)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	secret := os.Getenv(config.SecretEnv)
	for _, name := range cfg.Names() {
		p := cfg.Profiles[name]
		if !p.Sealed() {
			continue
		}
		if _, err := p.OpenPassword(secret); err != nil {
			return fmt.Errorf("profile %s: %w", name, err)
		}
	}

	fmt.Fprintf(stdout(c), "Configuration is valid: %s (%d profiles)\n", path, len(cfg.Profiles))
	return nil
}
