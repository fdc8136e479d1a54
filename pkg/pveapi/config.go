package pveapi

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/yndnr/pveapi-go/internal/telemetry/logger"
)

const (
	// DefaultRealm is the authentication realm used when none is configured.
	DefaultRealm = "pve"

	// DefaultPort is the pveproxy HTTPS port.
	DefaultPort = 8006

	// DefaultResponseFormat is the api2 output format.
	DefaultResponseFormat = "json"

	// DefaultTimeout bounds a single HTTP exchange.
	DefaultTimeout = 30 * time.Second
)

var supportedFormats = map[string]bool{
	"json":  true,
	"html":  true,
	"extjs": true,
	"text":  true,
	"png":   true,
}

// Config holds the connection and credential settings for a Client.
type Config struct {
	Hostname string
	Username string
	Userpass string
	Realm    string // defaults to "pve"
	Port     int    // defaults to 8006

	// ResponseFormat selects the api2 output format; unsupported values fall back to json.
	ResponseFormat string
}

// Validate checks required fields.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Hostname) == "" {
		missing = append(missing, "hostname")
	}
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Userpass == "" {
		missing = append(missing, "userpass")
	}
	if len(missing) > 0 {
		return ErrConfiguration.WithDetails("required: " + strings.Join(missing, ", "))
	}
	if c.Port < 0 || c.Port > 65535 {
		return ErrConfiguration.WithDetails(fmt.Sprintf("port %d out of range", c.Port))
	}
	return nil
}

// withDefaults fills optional fields.
func (c Config) withDefaults() Config {
	if c.Realm == "" {
		c.Realm = DefaultRealm
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if !supportedFormats[c.ResponseFormat] {
		c.ResponseFormat = DefaultResponseFormat
	}
	return c
}

// Observer receives dispatch and login outcomes, e.g. for metrics.
type Observer interface {
	// ObserveRequest is called once per dispatched request; statusCode is 0
	// when no HTTP status was received.
	ObserveRequest(method Method, statusCode int, elapsed time.Duration)
	// ObserveLogin is called once per login exchange with its outcome.
	ObserveLogin(err error)
}

type options struct {
	logger     logger.Logger
	tlsConfig  *tls.Config
	insecure   bool
	timeout    time.Duration
	transport  Transport
	observer   Observer
	now        func() time.Time
	debug      bool
	debugLimit int
	userAgent  string
}

// Option configures a Client.
type Option func(*options)

// WithLogger sets the logger used for request tracing.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTLSConfig sets the TLS configuration (e.g. custom root CAs).
func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *options) {
		o.tlsConfig = cfg
	}
}

// WithInsecureSkipVerify disables server certificate verification.
//
// INSECURE: only meant for lab hosts with self-signed certificates. Any
// intermediary can read the ticket and the credentials when this is set.
func WithInsecureSkipVerify(insecure bool) Option {
	return func(o *options) {
		o.insecure = insecure
	}
}

// WithTimeout bounds each HTTP exchange.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithTransport replaces the HTTPS transport.
func WithTransport(t Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithObserver registers an outcome observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithDebug enables the diagnostics buffer, keeping at most limit bytes.
// A limit <= 0 selects DefaultDebugLimit.
func WithDebug(limit int) Option {
	return func(o *options) {
		o.debug = true
		o.debugLimit = limit
	}
}

// WithUserAgent sets the User-Agent header of every request.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}
