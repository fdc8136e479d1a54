package pveapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/pveapi-go/internal/telemetry/logger"
	"github.com/yndnr/pveapi-go/pkg/token"
)

const formContentType = "application/x-www-form-urlencoded"

// Client talks to one Proxmox VE host with a single ticket obtained at construction.
//
// A Client is owned by one logical caller: requests must not be issued
// concurrently. Diagnostics (LastResult, DebugReport) may be read from
// another goroutine.
type Client struct {
	cfg       Config
	baseURL   string
	transport Transport
	log       logger.Logger
	observer  Observer
	now       func() time.Time
	session   Session
	userAgent string

	mu      sync.Mutex
	format  string
	last    *Result
	debugOn bool
	debug   *debugLog
	nodes   []string
}

// New validates cfg, logs in and returns a client holding a fresh session.
// It fails with ErrConfiguration, ErrAuth or ErrTransport.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	o := options{
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		cfg:       cfg,
		baseURL:   "https://" + net.JoinHostPort(cfg.Hostname, strconv.Itoa(cfg.Port)) + "/api2",
		transport: o.transport,
		log:       o.logger,
		observer:  o.observer,
		now:       o.now,
		userAgent: o.userAgent,
		format:    cfg.ResponseFormat,
		debugOn:   o.debug,
		debug:     newDebugLog(o.debugLimit),
	}
	if c.log == nil {
		c.log = logger.Default()
	}
	c.log = c.log.With("host", cfg.Hostname, "port", cfg.Port)

	if c.transport == nil {
		c.transport = newHTTPTransport(c.tlsConfig(o), o.timeout)
	}

	if err := c.login(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) tlsConfig(o options) *tls.Config {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if o.tlsConfig != nil {
		cfg = o.tlsConfig.Clone()
	}
	if o.insecure {
		c.log.Warn("TLS certificate verification disabled; credentials and ticket are exposed to interception")
		cfg.InsecureSkipVerify = true
	}
	return cfg
}

// login performs the ticket exchange. The session is only assigned on success.
func (c *Client) login(ctx context.Context) (err error) {
	defer func() {
		if c.observer != nil {
			c.observer.ObserveLogin(err)
		}
	}()

	form := url.Values{}
	form.Set("username", c.cfg.Username+"@"+c.cfg.Realm)
	form.Set("password", c.cfg.Userpass)

	u := c.APIURL() + "/access/ticket"
	c.debugURL(u)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return ErrConfiguration.WithDetails("build login request").WithCause(err)
	}
	req.Header.Set("Content-Type", formContentType)
	c.setUserAgent(req)

	raw, err := c.transport.Do(req)
	if err != nil {
		c.debugAdd("Error login request: " + err.Error())
		c.log.Warn("login transport failure", "error", err)
		return ErrTransport.WithDetails("login").WithCause(err)
	}

	resp := SplitRawResponse(raw)
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		c.debugAdd("Login returned an empty response: " + resp.StatusLine)
		return ErrAuth.WithDetails("empty response")
	}

	var tr ticketResponse
	if err := json.Unmarshal(resp.Body, &tr); err != nil {
		return ErrAuth.WithDetails("missing ticket fields").WithCause(err)
	}
	if tr.Data == nil || tr.Data.Ticket == "" || tr.Data.CSRFPreventionToken == "" {
		return ErrAuth.WithDetails("missing ticket fields").WithCause(fmt.Errorf("server answered %q", resp.StatusLine))
	}

	username := tr.Data.Username
	if username == "" {
		username = c.cfg.Username + "@" + c.cfg.Realm
	}
	c.session = Session{
		IssuedAt:  c.now(),
		Ticket:    tr.Data.Ticket,
		Username:  username,
		CSRFToken: tr.Data.CSRFPreventionToken,
	}
	c.log.Info("logged in",
		"user", username,
		"fingerprint", token.Fingerprint(tr.Data.Ticket),
		"expires_at", c.session.ExpiresAt(),
	)
	return nil
}

// APIURL returns the base URL including the response format.
func (c *Client) APIURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseURL + "/" + c.format
}

// ResponseFormat returns the current api2 output format.
func (c *Client) ResponseFormat() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.format
}

// SetResponseFormat switches the api2 output format. Unsupported values are ignored.
func (c *Client) SetResponseFormat(format string) {
	if !supportedFormats[format] {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.format = format
}

// Session returns a copy of the current session.
func (c *Client) Session() Session {
	return c.session
}

// LoggedIn reports whether the session ticket is present and still fresh.
func (c *Client) LoggedIn() bool {
	return c.session.Valid(c.now())
}

// LastResult returns the last successful non-PUT result, or nil.
func (c *Client) LastResult() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// SetDebug toggles the diagnostics buffer.
func (c *Client) SetDebug(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debugOn = on
}

// DebugReport renders the diagnostics buffer, or "" when debugging is off.
func (c *Client) DebugReport() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.debugOn {
		return ""
	}
	return c.debug.report()
}

// FlushDebug writes the diagnostics report to w and clears the buffer.
func (c *Client) FlushDebug(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.debugOn {
		return nil
	}
	_, err := io.WriteString(w, c.debug.report())
	c.debug.reset()
	return err
}

func (c *Client) debugEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.debugOn
}

func (c *Client) debugURL(u string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debug.setURL(u)
}

func (c *Client) debugAdd(lines ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.debugOn {
		c.debug.add(lines...)
	}
}

func (c *Client) setUserAgent(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}
