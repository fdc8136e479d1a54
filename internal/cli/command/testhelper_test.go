package command

import (
	"bytes"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/urfave/cli/v2"
)

const (
	fakeTicket = "PVE:root@pam:66A1B2C3::c2lnbmF0dXJl"
	fakeCSRF   = "66A1B2C3:Y3NyZg"
	fakePass   = "secret"
)

// fakeRequest is one authenticated request seen by fakePVE.
type fakeRequest struct {
	Method string
	Path   string
	Form   url.Values
}

// fakePVE is a minimal pveproxy: it issues a ticket for root@pam and
// answers GETs from a route table. Writes are recorded and acknowledged.
type fakePVE struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]string
	requests []fakeRequest
	logins   int
}

func newFakePVE(t *testing.T) *fakePVE {
	t.Helper()
	f := &fakePVE{routes: map[string]string{
		"/version":           `{"data":{"version":"8.2.4","release":"8.2","repoid":"faa83925c9641325"}}`,
		"/access":            `{"data":[{"subdir":"users"},{"subdir":"acl"},{"subdir":"roles"}]}`,
		"/access/users":      `{"data":[{"userid":"root@pam","enable":1},{"userid":"bob@pve","enable":1,"email":"bob@example.com","firstname":"Bob"}]}`,
		"/access/roles":      `{"data":[{"roleid":"PVEVMUser","privs":"VM.Console,VM.PowerMgmt","special":1},{"roleid":"Operator","privs":"VM.Audit"}]}`,
		"/access/acl":        `{"data":[{"path":"/vms/100","roleid":"PVEVMUser","type":"user","ugid":"bob@pve","propagate":1},{"path":"/storage/local","roleid":"Operator","type":"group","ugid":"ops","propagate":0}]}`,
		"/nodes":             `{"data":[{"node":"pve1","type":"node","status":"online","mem":1073741824,"maxmem":8589934592},{"node":"pve2","type":"node","status":"offline"},{"node":"qdev","type":"qdevice"}]}`,
		"/nodes/pve1":        `{"data":[{"subdir":"qemu"},{"subdir":"status"}]}`,
		"/nodes/pve1/qemu":   `{"data":[{"vmid":100,"name":"web","status":"running","mem":536870912,"maxmem":2147483648},{"vmid":101,"name":"db","status":"stopped","maxmem":4294967296}]}`,
		"/nodes/pve2/qemu":   `{"data":[]}`,
		"/cluster/resources": `{"data":[{"id":"node/pve1","type":"node"}]}`,
	}}
	f.Server = httptest.NewTLSServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *fakePVE) serve(w http.ResponseWriter, r *http.Request) {
	path, ok := strings.CutPrefix(r.URL.Path, "/api2/json")
	if !ok {
		http.NotFound(w, r)
		return
	}

	if path == "/access/ticket" {
		if r.Method != http.MethodPost || r.PostFormValue("password") != fakePass {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"data":null}`))
			return
		}
		f.mu.Lock()
		f.logins++
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"data":{"ticket":"` + fakeTicket + `","CSRFPreventionToken":"` + fakeCSRF + `","username":"root@pam"}}`))
		return
	}

	if c, err := r.Cookie("PVEAuthCookie"); err != nil || c.Value != fakeTicket {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodGet && r.Header.Get("CSRFPreventionToken") != fakeCSRF {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	_ = r.ParseForm()
	f.mu.Lock()
	f.requests = append(f.requests, fakeRequest{Method: r.Method, Path: path, Form: r.PostForm})
	body, found := f.routes[path]
	f.mu.Unlock()

	if r.Method != http.MethodGet {
		_, _ = w.Write([]byte(`{"data":null}`))
		return
	}
	if !found {
		w.WriteHeader(http.StatusNotImplemented)
		_, _ = w.Write([]byte(`{"data":null}`))
		return
	}
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	_, _ = w.Write([]byte(body))
}

// lastRequest returns the most recent authenticated request.
func (f *fakePVE) lastRequest() fakeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return fakeRequest{}
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakePVE) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakePVE) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

// hostPort splits the server address.
func (f *fakePVE) hostPort() (string, string) {
	u, _ := url.Parse(f.URL)
	host, port, _ := net.SplitHostPort(u.Host)
	return host, port
}

// connArgs returns the global flags that log in to f.
func (f *fakePVE) connArgs() []string {
	host, port := f.hostPort()
	return []string{
		"--host", host,
		"--port", port,
		"--user", "root",
		"--realm", "pam",
		"--password", fakePass,
		"--insecure",
	}
}

// testCLI runs the app repeatedly with a private config file, the way the
// shell does.
type testCLI struct {
	t      *testing.T
	app    *cli.App
	config string
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newTestCLI(t *testing.T) *testCLI {
	t.Helper()
	tc := &testCLI{
		t:      t,
		app:    App(),
		config: filepath.Join(t.TempDir(), "cli.yaml"),
	}
	tc.app.Writer = &tc.stdout
	tc.app.ErrWriter = &tc.stderr
	tc.app.Reader = strings.NewReader("")
	return tc
}

// run executes one command line and returns its standard output.
func (tc *testCLI) run(args ...string) (string, error) {
	tc.t.Helper()
	tc.stdout.Reset()
	argv := append([]string{"pvectl", "--config", tc.config}, args...)
	err := tc.app.Run(argv)
	return tc.stdout.String(), err
}

// runWith executes args after the connection flags of f.
func (tc *testCLI) runWith(f *fakePVE, args ...string) (string, error) {
	tc.t.Helper()
	return tc.run(append(f.connArgs(), args...)...)
}
