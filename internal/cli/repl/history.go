package repl

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultHistorySize caps the number of kept entries.
const DefaultHistorySize = 1000

// History manages command history for the REPL.
type History struct {
	entries []string
	maxSize int
	file    string
}

// NewHistory creates a history backed by ~/.pvectl/history.
func NewHistory() *History {
	homeDir, _ := os.UserHomeDir()
	return NewFileHistory(filepath.Join(homeDir, ".pvectl", "history"), DefaultHistorySize)
}

// NewFileHistory creates a history backed by file, keeping at most maxSize entries.
func NewFileHistory(file string, maxSize int) *History {
	if maxSize <= 0 {
		maxSize = DefaultHistorySize
	}
	return &History{
		entries: make([]string, 0),
		maxSize: maxSize,
		file:    file,
	}
}

// Add appends cmd. Repeats of the last entry and lines that carry a
// password are not recorded.
func (h *History) Add(cmd string) {
	if cmd == "" || carriesSecret(cmd) {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == cmd {
		return
	}
	h.entries = append(h.entries, cmd)
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[len(h.entries)-h.maxSize:]
	}
}

// carriesSecret reports whether cmd has a password flag (--password,
// --new-password) or a password=value argument.
func carriesSecret(cmd string) bool {
	for _, field := range strings.Fields(strings.ToLower(cmd)) {
		if strings.Contains(field, "password=") {
			return true
		}
		if strings.HasPrefix(field, "-") && strings.HasSuffix(field, "password") {
			return true
		}
	}
	return false
}

// Get returns the history entry at index (0 = most recent).
func (h *History) Get(index int) string {
	if index < 0 || index >= len(h.entries) {
		return ""
	}
	return h.entries[len(h.entries)-1-index]
}

// Entries returns a copy of the entries, oldest first.
func (h *History) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Load appends the entries stored in the history file. A missing file is not an error.
func (h *History) Load() error {
	file, err := os.Open(h.file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		h.Add(strings.TrimSpace(scanner.Text()))
	}
	return scanner.Err()
}

// Save writes the entries to the history file with mode 0600.
func (h *History) Save() error {
	dir := filepath.Dir(h.file)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	file, err := os.OpenFile(h.file, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(file)
	for _, entry := range h.entries {
		if _, err := w.WriteString(entry + "\n"); err != nil {
			file.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
