package command

import (
	"strings"
	"testing"
)

func TestLoginCommand(t *testing.T) {
	f := newFakePVE(t)
	tc := newTestCLI(t)

	out, err := tc.runWith(f, "-o", "json", "login")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if strings.Contains(out, fakeTicket) {
		t.Errorf("ticket must be masked, got %q", out)
	}
	for _, want := range []string{`"username": "root@pam"`, `"target": "root@127.0.0.1"`, `"fresh": true`, `"ticket": "PVE:`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestLogoutCommand(t *testing.T) {
	f := newFakePVE(t)
	tc := newTestCLI(t)

	if _, err := tc.runWith(f, "login"); err != nil {
		t.Fatalf("login: %v", err)
	}

	out, err := tc.run("logout")
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if out != "Logged out of root@127.0.0.1\n" {
		t.Errorf("output = %q", out)
	}

	out, err = tc.run("logout")
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if out != "Not logged in\n" {
		t.Errorf("output = %q", out)
	}

	if _, err := tc.runWith(f, "version"); err != nil {
		t.Fatalf("version: %v", err)
	}
	if n := f.loginCount(); n != 2 {
		t.Errorf("logins = %d, want a new login after logout", n)
	}
}

func TestVersionCommand(t *testing.T) {
	f := newFakePVE(t)
	tc := newTestCLI(t)

	out, err := tc.runWith(f, "-o", "yaml", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	want := "version: 8.2.4\nrelease: \"8.2\"\nrepoid: faa83925c9641325\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}
