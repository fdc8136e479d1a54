package repl

import (
	"reflect"
	"testing"
)

func TestCompleter_Complete(t *testing.T) {
	c := NewCompleter([]string{
		"node", "node list", "node get",
		"user", "user list", "user  show",
		"node list",
	})

	tests := []struct {
		prefix string
		want   []string
	}{
		{"node", []string{"node", "node get", "node list"}},
		{"node ", []string{"node get", "node list"}},
		{"node   l", []string{"node list"}},
		{"user s", []string{"user show"}},
		{"ex", []string{"exit"}},
		{"h", []string{"help", "history"}},
		{"nonexistent", nil},
	}
	for _, tt := range tests {
		got := c.Complete(tt.prefix)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Complete(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestCompleter_EmptyPrefix(t *testing.T) {
	c := NewCompleter([]string{"node list", "node list", " "})
	got := c.Complete("")
	if len(got) != len(Builtins)+1 {
		t.Errorf("Complete(\"\") = %q, want builtins plus one command", got)
	}
}
