package pveapi

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Transport performs one HTTP exchange and returns the raw response text:
// status line, header lines, a blank line, then the body.
type Transport interface {
	Do(req *http.Request) ([]byte, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(req *http.Request) ([]byte, error)

// Do calls f(req).
func (f TransportFunc) Do(req *http.Request) ([]byte, error) {
	return f(req)
}

// httpTransport opens a fresh connection per request and never follows redirects.
type httpTransport struct {
	client *http.Client
}

func newHTTPTransport(tlsConfig *tls.Config, timeout time.Duration) *httpTransport {
	return &httpTransport{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				TLSClientConfig:     tlsConfig,
				TLSHandshakeTimeout: 10 * time.Second,
				DisableKeepAlives:   true,
			},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Do implements Transport.
func (t *httpTransport) Do(req *http.Request) ([]byte, error) {
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s%s", resp.Proto, resp.Status, lineSeparator)
	if err := resp.Header.Write(&buf); err != nil {
		return nil, fmt.Errorf("write headers: %w", err)
	}
	buf.WriteString(lineSeparator)
	buf.Write(body)
	return buf.Bytes(), nil
}
