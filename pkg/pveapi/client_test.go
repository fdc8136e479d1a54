package pveapi

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yndnr/pveapi-go/internal/telemetry/logger"
)

func TestNew_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		detail string
	}{
		{"missing hostname", func(c *Config) { c.Hostname = "" }, "hostname"},
		{"blank hostname", func(c *Config) { c.Hostname = "   " }, "hostname"},
		{"missing username", func(c *Config) { c.Username = "" }, "username"},
		{"missing password", func(c *Config) { c.Userpass = "" }, "userpass"},
		{"port out of range", func(c *Config) { c.Port = 70000 }, "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{respond: func(recordedRequest) ([]byte, error) {
				return raw("200 OK", loginBody), nil
			}}
			cfg := testConfig()
			tt.mutate(&cfg)

			c, err := New(context.Background(), cfg, WithTransport(ft), WithLogger(logger.Discard()))
			require.Nil(t, c)
			require.ErrorIs(t, err, ErrConfiguration)
			require.Contains(t, err.Error(), tt.detail)
			require.Zero(t, ft.count(), "no network activity expected")
		})
	}
}

func TestNew_Login(t *testing.T) {
	clock := newFakeClock()
	c, ft := newTestClient(t, nil, WithNowFunc(clock.Now))

	req := ft.last()
	require.Equal(t, http.MethodPost, req.Method)
	require.Equal(t, loginPath, req.Path)
	require.Equal(t, formContentType, req.Header.Get("Content-Type"))
	require.Empty(t, req.Header.Get("Cookie"))

	form, err := url.ParseQuery(req.Body)
	require.NoError(t, err)
	require.Equal(t, "root@pam", form.Get("username"))
	require.Equal(t, "secret", form.Get("password"))

	s := c.Session()
	require.Equal(t, testTicket, s.Ticket)
	require.Equal(t, testCSRF, s.CSRFToken)
	require.Equal(t, "root@pam", s.Username)
	require.Equal(t, clock.Now(), s.IssuedAt)
	require.Equal(t, clock.Now().Add(TicketLifetime), s.ExpiresAt())
	require.True(t, c.LoggedIn())
}

func TestNew_Defaults(t *testing.T) {
	ft := &fakeTransport{respond: func(recordedRequest) ([]byte, error) {
		return raw("200 OK", loginBody), nil
	}}
	cfg := Config{Hostname: "10.0.0.5", Username: "admin", Userpass: "pw", ResponseFormat: "xml"}

	c, err := New(context.Background(), cfg, WithTransport(ft), WithLogger(logger.Discard()))
	require.NoError(t, err)
	require.Equal(t, "https://10.0.0.5:8006/api2/json", c.APIURL())
	require.Equal(t, "json", c.ResponseFormat())

	form, err := url.ParseQuery(ft.last().Body)
	require.NoError(t, err)
	require.Equal(t, "admin@pve", form.Get("username"))
}

func TestNew_IPv6Host(t *testing.T) {
	ft := &fakeTransport{respond: func(recordedRequest) ([]byte, error) {
		return raw("200 OK", loginBody), nil
	}}
	cfg := testConfig()
	cfg.Hostname = "fd00::10"
	cfg.Port = 443

	c, err := New(context.Background(), cfg, WithTransport(ft), WithLogger(logger.Discard()))
	require.NoError(t, err)
	require.Equal(t, "https://[fd00::10]:443/api2/json", c.APIURL())
}

func TestNew_LoginFailures(t *testing.T) {
	tests := []struct {
		name    string
		respond func(recordedRequest) ([]byte, error)
		want    error
		detail  string
	}{
		{
			name:    "transport failure",
			respond: func(recordedRequest) ([]byte, error) { return nil, errConnRefused },
			want:    ErrTransport,
		},
		{
			name:    "empty body",
			respond: func(recordedRequest) ([]byte, error) { return raw("200 OK", ""), nil },
			want:    ErrAuth,
			detail:  "empty response",
		},
		{
			name:    "nothing at all",
			respond: func(recordedRequest) ([]byte, error) { return nil, nil },
			want:    ErrAuth,
			detail:  "empty response",
		},
		{
			name:    "wrong credentials",
			respond: func(recordedRequest) ([]byte, error) { return raw("401 authentication failure", `{"data":null}`), nil },
			want:    ErrAuth,
			detail:  "missing ticket fields",
		},
		{
			name:    "missing csrf token",
			respond: func(recordedRequest) ([]byte, error) { return raw("200 OK", `{"data":{"ticket":"PVE:x"}}`), nil },
			want:    ErrAuth,
			detail:  "missing ticket fields",
		},
		{
			name:    "not json",
			respond: func(recordedRequest) ([]byte, error) { return raw("200 OK", "<html>proxy error</html>"), nil },
			want:    ErrAuth,
			detail:  "missing ticket fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &recordingObserver{}
			ft := &fakeTransport{respond: tt.respond}

			c, err := New(context.Background(), testConfig(),
				WithTransport(ft), WithObserver(obs), WithLogger(logger.Discard()))
			require.Nil(t, c)
			require.ErrorIs(t, err, tt.want)
			if tt.detail != "" {
				require.Contains(t, err.Error(), tt.detail)
			}
			require.Len(t, obs.logins, 1)
			require.ErrorIs(t, obs.logins[0], tt.want)
		})
	}
}

func TestNew_TransportCausePreserved(t *testing.T) {
	ft := &fakeTransport{respond: func(recordedRequest) ([]byte, error) { return nil, errConnRefused }}

	_, err := New(context.Background(), testConfig(), WithTransport(ft), WithLogger(logger.Discard()))
	require.ErrorIs(t, err, errConnRefused)
	require.Equal(t, "PVE-NET-5030", ErrorCode(err))
}

func TestNew_UsernameFallback(t *testing.T) {
	ft := &fakeTransport{respond: func(recordedRequest) ([]byte, error) {
		return raw("200 OK", `{"data":{"ticket":"PVE:t","CSRFPreventionToken":"c"}}`), nil
	}}

	c, err := New(context.Background(), testConfig(), WithTransport(ft), WithLogger(logger.Discard()))
	require.NoError(t, err)
	require.Equal(t, "root@pam", c.Session().Username)
}

func TestNew_ObserverSuccess(t *testing.T) {
	obs := &recordingObserver{}
	newTestClient(t, nil, WithObserver(obs))
	require.Equal(t, []error{nil}, obs.logins)
}

func TestClient_TicketFreshness(t *testing.T) {
	clock := newFakeClock()
	c, ft := newTestClient(t, func(recordedRequest) ([]byte, error) {
		return raw("200 OK", `{"data":{"version":"8.1"}}`), nil
	}, WithNowFunc(clock.Now))

	clock.Advance(TicketLifetime - time.Second)
	require.True(t, c.LoggedIn())
	_, err := c.Get(context.Background(), "/version")
	require.NoError(t, err)

	calls := ft.count()
	clock.Advance(time.Second)
	require.False(t, c.LoggedIn())

	_, err = c.Get(context.Background(), "/version")
	require.ErrorIs(t, err, ErrNotAuthenticated)
	require.Equal(t, calls, ft.count(), "no network activity expected")
}

func TestClient_UserAgent(t *testing.T) {
	c, ft := newTestClient(t, func(recordedRequest) ([]byte, error) {
		return raw("200 OK", `{"data":null}`), nil
	}, WithUserAgent("pvectl/1.2.3"))
	require.Equal(t, "pvectl/1.2.3", ft.last().Header.Get("User-Agent"))

	_, err := c.Get(context.Background(), "/version")
	require.NoError(t, err)
	require.Equal(t, "pvectl/1.2.3", ft.last().Header.Get("User-Agent"))
}

func TestClient_ResponseFormat(t *testing.T) {
	c, _ := newTestClient(t, nil)

	for _, f := range []string{"html", "extjs", "text", "png", "json"} {
		c.SetResponseFormat(f)
		require.Equal(t, f, c.ResponseFormat())
		require.Equal(t, "https://pve.example.com:8006/api2/"+f, c.APIURL())
	}

	c.SetResponseFormat("xml")
	require.Equal(t, "json", c.ResponseFormat())
	c.SetResponseFormat("")
	require.Equal(t, "json", c.ResponseFormat())
}

// newTLSProxmox starts an HTTPS server answering the ticket exchange and /version.
func newTLSProxmox(t *testing.T) (*httptest.Server, Config) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api2/json/access/ticket", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.PostFormValue("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"data":null}`))
			return
		}
		_, _ = w.Write([]byte(loginBody))
	})
	mux.HandleFunc("/api2/json/version", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("PVEAuthCookie")
		if err != nil || cookie.Value != testTicket {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"version":"8.2.4","release":"8.2","repoid":"faa83925c9641325"}}`))
	})
	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Hostname = host
	cfg.Port = port
	return srv, cfg
}

func TestClient_TLSVerification(t *testing.T) {
	srv, cfg := newTLSProxmox(t)
	quiet := WithLogger(logger.Discard())

	t.Run("unknown authority rejected by default", func(t *testing.T) {
		_, err := New(context.Background(), cfg, quiet)
		require.ErrorIs(t, err, ErrTransport)
	})

	t.Run("trusted root", func(t *testing.T) {
		pool := x509.NewCertPool()
		pool.AddCert(srv.Certificate())

		c, err := New(context.Background(), cfg, quiet, WithTLSConfig(&tls.Config{RootCAs: pool}))
		require.NoError(t, err)

		info, err := c.VersionInfo(context.Background())
		require.NoError(t, err)
		require.Equal(t, VersionInfo{Version: "8.2.4", Release: "8.2", RepoID: "faa83925c9641325"}, info)
	})

	t.Run("explicit insecure opt-out", func(t *testing.T) {
		c, err := New(context.Background(), cfg, quiet, WithInsecureSkipVerify(true))
		require.NoError(t, err)
		v, err := c.Version(context.Background())
		require.NoError(t, err)
		require.Equal(t, "8.2.4", v)
	})

	t.Run("wrong password over tls", func(t *testing.T) {
		bad := cfg
		bad.Userpass = "nope"
		_, err := New(context.Background(), bad, quiet, WithInsecureSkipVerify(true))
		require.ErrorIs(t, err, ErrAuth)
		require.False(t, errors.Is(err, ErrTransport))
	})
}

func TestClient_ContextCanceled(t *testing.T) {
	_, cfg := newTLSProxmox(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(ctx, cfg, WithLogger(logger.Discard()), WithInsecureSkipVerify(true))
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, context.Canceled)
}
