package pveapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yndnr/pveapi-go/internal/telemetry/logger"
)

const (
	testTicket = "PVE:root@pam:4EEC61E2::rsKoApxDTLYPn6H3NNT6iP2mv"
	testCSRF   = "4EEC61E2:lwk7od06fa1+DcPUwBTXCcndyAY"
	loginBody  = `{"data":{"ticket":"` + testTicket + `","username":"root@pam","CSRFPreventionToken":"` + testCSRF + `"}}`
	loginPath  = "/api2/json/access/ticket"
)

var errConnRefused = errors.New("dial tcp 10.0.0.1:8006: connect: connection refused")

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Header http.Header
}

// fakeTransport records every request and answers with raw response text.
type fakeTransport struct {
	mu       sync.Mutex
	requests []recordedRequest
	respond  func(r recordedRequest) ([]byte, error)
}

func (f *fakeTransport) Do(req *http.Request) ([]byte, error) {
	rec := recordedRequest{
		Method: req.Method,
		Path:   req.URL.EscapedPath(),
		Header: req.Header.Clone(),
	}
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		rec.Body = string(b)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()
	return f.respond(rec)
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeTransport) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// raw builds an HTTP/1.1 response as the transport would return it.
func raw(status, body string) []byte {
	return []byte("HTTP/1.1 " + status + "\r\n" +
		"Content-Type: application/json;charset=UTF-8\r\n" +
		"Server: pve-api-daemon/3.0\r\n" +
		"\r\n" + body)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingObserver struct {
	mu       sync.Mutex
	requests []string
	logins   []error
}

func (o *recordingObserver) ObserveRequest(method Method, statusCode int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = append(o.requests, fmt.Sprintf("%s %d", method, statusCode))
}

func (o *recordingObserver) ObserveLogin(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.logins = append(o.logins, err)
}

func testConfig() Config {
	return Config{
		Hostname: "pve.example.com",
		Username: "root",
		Userpass: "secret",
		Realm:    "pam",
	}
}

// newTestClient logs in against a fake transport. Requests other than the
// ticket exchange are answered by respond.
func newTestClient(t *testing.T, respond func(r recordedRequest) ([]byte, error), opts ...Option) (*Client, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{respond: func(r recordedRequest) ([]byte, error) {
		if r.Path == loginPath {
			return raw("200 OK", loginBody), nil
		}
		return respond(r)
	}}
	opts = append([]Option{WithTransport(ft), WithLogger(logger.Discard())}, opts...)
	c, err := New(context.Background(), testConfig(), opts...)
	require.NoError(t, err)
	return c, ft
}
