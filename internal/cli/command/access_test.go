package command

import (
	"strings"
	"testing"
)

func TestRoleList(t *testing.T) {
	f := newFakePVE(t)
	tc := newTestCLI(t)

	out, err := tc.runWith(f, "role", "list")
	if err != nil {
		t.Fatalf("role list: %v", err)
	}
	for _, want := range []string{"PRIVS", "PVEVMUser", "VM.Console,VM.PowerMgmt", "VM.Audit"} {
		if !strings.Contains(out, want) {
			t.Errorf("default output missing %q:\n%s", want, out)
		}
	}
}

func TestACLList_Filters(t *testing.T) {
	f := newFakePVE(t)
	tc := newTestCLI(t)

	tests := []struct {
		name    string
		args    []string
		want    string
		notWant string
	}{
		{"all", nil, "/storage/local", ""},
		{"by ugid", []string{"--ugid", "bob@pve"}, "/vms/100", "/storage/local"},
		{"by path prefix", []string{"--path-prefix", "/storage"}, "ops", "/vms/100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"-o", "json", "acl", "list"}, tt.args...)
			out, err := tc.runWith(f, args...)
			if err != nil {
				t.Fatalf("acl list: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %s:\n%s", tt.want, out)
			}
			if tt.notWant != "" && strings.Contains(out, tt.notWant) {
				t.Errorf("output should not contain %s:\n%s", tt.notWant, out)
			}
		})
	}
}

func TestACLGrantRevoke(t *testing.T) {
	f := newFakePVE(t)
	tc := newTestCLI(t)

	out, err := tc.runWith(f, "acl", "grant", "--path", "/vms/100", "--roles", "PVEVMUser", "--users", "bob@pve")
	if err != nil {
		t.Fatalf("acl grant: %v", err)
	}
	req := f.lastRequest()
	if req.Method != "PUT" || req.Path != "/access/acl" {
		t.Fatalf("request = %s %s", req.Method, req.Path)
	}
	if req.Form.Get("path") != "/vms/100" || req.Form.Get("roles") != "PVEVMUser" ||
		req.Form.Get("users") != "bob@pve" || req.Form.Get("propagate") != "1" {
		t.Errorf("form = %v", req.Form)
	}
	if req.Form.Has("delete") {
		t.Error("grant must not send delete")
	}
	if out != "Granted PVEVMUser on /vms/100.\n" {
		t.Errorf("output = %q", out)
	}

	out, err = tc.runWith(f, "acl", "revoke", "--path", "/vms/100", "--roles", "PVEVMUser", "--groups", "ops", "--propagate=false")
	if err != nil {
		t.Fatalf("acl revoke: %v", err)
	}
	req = f.lastRequest()
	if req.Form.Get("delete") != "1" || req.Form.Get("groups") != "ops" || req.Form.Get("propagate") != "0" {
		t.Errorf("form = %v", req.Form)
	}
	if out != "Revoked PVEVMUser on /vms/100.\n" {
		t.Errorf("output = %q", out)
	}
}

func TestACLGrant_Validation(t *testing.T) {
	f := newFakePVE(t)
	tc := newTestCLI(t)

	_, err := tc.runWith(f, "acl", "grant", "--path", "/vms/100", "--roles", "PVEVMUser")
	if err == nil || !strings.Contains(err.Error(), "--users") {
		t.Errorf("err = %v, want subject error", err)
	}
	if _, err := tc.runWith(f, "acl", "grant", "--path", "/vms/100", "--users", "bob@pve"); err == nil {
		t.Error("missing --roles should fail")
	}
	if n := f.requestCount(); n != 0 {
		t.Errorf("requests = %d, want none", n)
	}
}

func TestAccessCommand(t *testing.T) {
	f := newFakePVE(t)
	tc := newTestCLI(t)

	out, err := tc.runWith(f, "access")
	if err != nil {
		t.Fatalf("access: %v", err)
	}
	if out != "SUBDIR\nusers\nacl\nroles\n" {
		t.Errorf("output = %q", out)
	}

	out, err = tc.runWith(f, "-o", "json", "access", "users")
	if err != nil {
		t.Fatalf("access users: %v", err)
	}
	if !strings.Contains(out, `"userid": "bob@pve"`) || !strings.Contains(out, `"enable": 1`) {
		t.Errorf("output:\n%s", out)
	}
}
