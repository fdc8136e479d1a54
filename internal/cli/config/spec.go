package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yndnr/pveapi-go/pkg/crypto/adaptive"
	"github.com/yndnr/pveapi-go/pkg/pveapi"
)

var (
	// ErrProfileNotFound is returned for an unknown profile name.
	ErrProfileNotFound = errors.New("config: profile not found")
	// ErrNoProfile is returned when no profile is selected.
	ErrNoProfile = errors.New("config: no profile selected")
	// ErrSecretRequired is returned when a sealed password is opened without PVECTL_SECRET.
	ErrSecretRequired = errors.New("config: PVECTL_SECRET is required to use sealed passwords")
)

// SecretEnv names the variable holding the password sealing passphrase.
const SecretEnv = "PVECTL_SECRET"

// CLIConfig is the configuration for pvectl.
type CLIConfig struct {
	CurrentProfile string             `yaml:"current_profile,omitempty" koanf:"current_profile"`
	DefaultOutput  string             `yaml:"default_output,omitempty" koanf:"default_output"`
	Profiles       map[string]Profile `yaml:"profiles" koanf:"profiles"`
}

// Profile stores connection details for one Proxmox host.
type Profile struct {
	Hostname string        `yaml:"hostname" koanf:"hostname" json:"hostname"`
	Port     int           `yaml:"port,omitempty" koanf:"port" json:"port,omitempty"`
	Username string        `yaml:"username" koanf:"username" json:"username"`
	Password string        `yaml:"password,omitempty" koanf:"password" json:"password,omitempty"`
	Realm    string        `yaml:"realm,omitempty" koanf:"realm" json:"realm,omitempty"`
	Format   string        `yaml:"format,omitempty" koanf:"format" json:"format,omitempty"`
	CAFile   string        `yaml:"ca_file,omitempty" koanf:"ca_file" json:"ca_file,omitempty"`
	Insecure bool          `yaml:"insecure,omitempty" koanf:"insecure" json:"insecure,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty" koanf:"timeout" json:"timeout,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		DefaultOutput: "table",
		Profiles:      make(map[string]Profile),
	}
}

// Profile returns the named profile, or the current one when name is empty.
func (c *CLIConfig) Profile(name string) (string, Profile, error) {
	if name == "" {
		name = c.CurrentProfile
	}
	if name == "" {
		return "", Profile{}, ErrNoProfile
	}
	p, ok := c.Profiles[name]
	if !ok {
		return "", Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return name, p, nil
}

// SetProfile adds or replaces a profile. The first profile becomes current.
func (c *CLIConfig) SetProfile(name string, p Profile) error {
	if err := validateName(name); err != nil {
		return err
	}
	if c.Profiles == nil {
		c.Profiles = make(map[string]Profile)
	}
	c.Profiles[name] = p
	if c.CurrentProfile == "" {
		c.CurrentProfile = name
	}
	return nil
}

// Use selects the current profile.
func (c *CLIConfig) Use(name string) error {
	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	c.CurrentProfile = name
	return nil
}

// Names returns the profile names in sorted order.
func (c *CLIConfig) Names() []string {
	names := make([]string, 0, len(c.Profiles))
	for n := range c.Profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate reports every problem found in the configuration.
func (c *CLIConfig) Validate() error {
	var errs []error
	switch c.DefaultOutput {
	case "", "table", "json", "yaml":
	default:
		errs = append(errs, fmt.Errorf("default_output %q: want table, json or yaml", c.DefaultOutput))
	}
	if c.CurrentProfile != "" {
		if _, ok := c.Profiles[c.CurrentProfile]; !ok {
			errs = append(errs, fmt.Errorf("current_profile: %w: %s", ErrProfileNotFound, c.CurrentProfile))
		}
	}
	for _, name := range c.Names() {
		if err := validateName(name); err != nil {
			errs = append(errs, err)
		}
		if err := c.Profiles[name].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("profile %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("profile name must not be empty")
	}
	if strings.ContainsAny(name, ". ") {
		return fmt.Errorf("profile name %q must not contain dots or spaces", name)
	}
	return nil
}

// Validate checks the profile without opening its password.
func (p Profile) Validate() error {
	cfg := pveapi.Config{
		Hostname: p.Hostname,
		Username: p.Username,
		Userpass: p.Password,
		Port:     p.Port,
	}
	if cfg.Userpass == "" {
		// The password may be supplied at login time.
		cfg.Userpass = "-"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if p.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	return nil
}

// Sealed reports whether the stored password is encrypted.
func (p Profile) Sealed() bool {
	return adaptive.IsSealed(p.Password)
}

// SealPassword encrypts plaintext for storage in the profile.
func (p *Profile) SealPassword(secret, plaintext string) error {
	if secret == "" {
		return ErrSecretRequired
	}
	sealed, err := adaptive.SealString(secret, p.label(), plaintext)
	if err != nil {
		return fmt.Errorf("seal password: %w", err)
	}
	p.Password = sealed
	return nil
}

// OpenPassword returns the plaintext password. Unsealed values are returned as is.
func (p Profile) OpenPassword(secret string) (string, error) {
	if !p.Sealed() {
		return p.Password, nil
	}
	if secret == "" {
		return "", ErrSecretRequired
	}
	pw, err := adaptive.OpenString(secret, p.label(), p.Password)
	if err != nil {
		return "", fmt.Errorf("open password: %w", err)
	}
	return pw, nil
}

// label binds a sealed password to its account.
func (p Profile) label() string {
	return "pvectl:" + p.Username + "@" + p.Realm
}

// PVEConfig converts the profile into a client configuration.
func (p Profile) PVEConfig(secret string) (pveapi.Config, error) {
	pw, err := p.OpenPassword(secret)
	if err != nil {
		return pveapi.Config{}, err
	}
	return pveapi.Config{
		Hostname:       p.Hostname,
		Username:       p.Username,
		Userpass:       pw,
		Realm:          p.Realm,
		Port:           p.Port,
		ResponseFormat: p.Format,
	}, nil
}

// Redacted returns a copy safe to print.
func (p Profile) Redacted() Profile {
	switch {
	case p.Password == "":
	case p.Sealed():
		p.Password = "(sealed)"
	default:
		p.Password = "(plaintext)"
	}
	return p
}
