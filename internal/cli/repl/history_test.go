package repl

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestNewHistory_DefaultFile(t *testing.T) {
	h := NewHistory()
	if h.maxSize != DefaultHistorySize {
		t.Errorf("maxSize = %d, want %d", h.maxSize, DefaultHistorySize)
	}
	if filepath.Base(h.file) != "history" || filepath.Base(filepath.Dir(h.file)) != ".pvectl" {
		t.Errorf("unexpected history file %q", h.file)
	}
}

func TestHistory_Add(t *testing.T) {
	h := NewFileHistory(filepath.Join(t.TempDir(), "history"), 3)

	for _, cmd := range []string{"cmd1", "cmd2", "cmd2", "", "cmd3", "cmd4"} {
		h.Add(cmd)
	}
	if want := []string{"cmd2", "cmd3", "cmd4"}; !reflect.DeepEqual(h.Entries(), want) {
		t.Errorf("Entries() = %q, want %q", h.Entries(), want)
	}
}

func TestHistory_Add_SkipsSecrets(t *testing.T) {
	h := NewFileHistory("", 0)
	h.Add("user passwd bob@pve --new-password hunter2")
	h.Add("user create carol@pve --new-password=hunter2")
	h.Add("--password pw version")
	h.Add("api put /access/password -d password=x")
	h.Add("user passwd bob@pve")
	h.Add("password generate")
	if h.Len() != 2 || h.Get(0) != "password generate" || h.Get(1) != "user passwd bob@pve" {
		t.Errorf("Entries() = %q", h.Entries())
	}
}

func TestHistory_Get(t *testing.T) {
	h := NewFileHistory("", 10)
	h.Add("first")
	h.Add("second")
	h.Add("third")

	tests := []struct {
		index int
		want  string
	}{
		{0, "third"},
		{1, "second"},
		{2, "first"},
		{3, ""},
		{-1, ""},
	}
	for _, tt := range tests {
		if got := h.Get(tt.index); got != tt.want {
			t.Errorf("Get(%d) = %q, want %q", tt.index, got, tt.want)
		}
	}
}

func TestHistory_SaveLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", ".pvectl", "history")

	h := NewFileHistory(file, 100)
	h.Add("node list")
	h.Add("vm list pve1")
	if err := h.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(file)
	if err != nil {
		t.Fatalf("history file not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("history file mode = %o, want 600", perm)
	}

	loaded := NewFileHistory(file, 100)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(loaded.Entries(), h.Entries()) {
		t.Errorf("loaded %q, want %q", loaded.Entries(), h.Entries())
	}
}

func TestHistory_Load_NonexistentFile(t *testing.T) {
	h := NewFileHistory(filepath.Join(t.TempDir(), "missing"), 10)
	if err := h.Load(); err != nil {
		t.Errorf("Load() of a missing file should not fail: %v", err)
	}
	if h.Len() != 0 {
		t.Errorf("entries should be empty, got %q", h.Entries())
	}
}
