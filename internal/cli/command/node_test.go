package command

import (
	"errors"
	"strings"
	"testing"

	"github.com/yndnr/pveapi-go/pkg/pveapi"
)

func TestNodeList(t *testing.T) {
	f := newFakePVE(t)
	tc := newTestCLI(t)

	out, err := tc.runWith(f, "node", "list")
	if err != nil {
		t.Fatalf("node list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header and 3 nodes:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "NODE") {
		t.Errorf("header = %q", lines[0])
	}
	if strings.Contains(lines[0], "MAXDISK") {
		t.Errorf("wide column shown without --wide: %q", lines[0])
	}
	if !strings.Contains(lines[1], "pve1") || !strings.Contains(lines[1], "online") {
		t.Errorf("first row = %q", lines[1])
	}

	out, err = tc.run(append(f.connArgs(), "--wide", "node", "list")...)
	if err != nil {
		t.Fatalf("node list --wide: %v", err)
	}
	if !strings.Contains(out, "MAXDISK") {
		t.Errorf("wide output missing MAXDISK:\n%s", out)
	}
}

func TestNodeGet(t *testing.T) {
	f := newFakePVE(t)
	tc := newTestCLI(t)

	out, err := tc.runWith(f, "node", "get", "pve1")
	if err != nil {
		t.Fatalf("node get: %v", err)
	}
	if out != "SUBDIR\nqemu\nstatus\n" {
		t.Errorf("output = %q", out)
	}

	if _, err := tc.runWith(f, "node", "get"); err == nil {
		t.Error("node get without a name should fail")
	}

	_, err = tc.runWith(f, "node", "get", "pve9")
	if !errors.Is(err, pveapi.ErrRequestRejected) {
		t.Errorf("err = %v, want ErrRequestRejected", err)
	}
}

func TestVMList(t *testing.T) {
	f := newFakePVE(t)
	tc := newTestCLI(t)

	out, err := tc.runWith(f, "-o", "json", "vm", "list")
	if err != nil {
		t.Fatalf("vm list: %v", err)
	}
	for _, want := range []string{`"node": "pve1"`, `"vmid": 100`, `"vmid": 101`, `"name": "db"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}

	out, err = tc.runWith(f, "vm", "list", "--running", "pve1")
	if err != nil {
		t.Fatalf("vm list --running: %v", err)
	}
	if !strings.Contains(out, "web") || strings.Contains(out, "db") {
		t.Errorf("--running output:\n%s", out)
	}
	if f.lastRequest().Path != "/nodes/pve1/qemu" {
		t.Errorf("last path = %q", f.lastRequest().Path)
	}

	if _, err := tc.runWith(f, "vm", "list", "pve9"); err == nil {
		t.Error("unknown node should fail")
	}
}
