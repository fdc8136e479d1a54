package repl

import (
	"sort"
	"strings"
)

// Builtins are handled by the REPL itself.
var Builtins = []string{"exit", "quit", "history", "help"}

// Completer suggests command paths such as "acl grant".
type Completer struct {
	commands []string
}

// NewCompleter creates a completer over the given command paths plus the
// built-ins. Duplicates are dropped.
func NewCompleter(commands []string) *Completer {
	seen := make(map[string]bool)
	var all []string
	for _, cmd := range append(append([]string{}, commands...), Builtins...) {
		cmd = strings.Join(strings.Fields(cmd), " ")
		if cmd == "" || seen[cmd] {
			continue
		}
		seen[cmd] = true
		all = append(all, cmd)
	}
	sort.Strings(all)
	return &Completer{commands: all}
}

// Complete returns the sorted command paths starting with prefix. Runs of
// whitespace in prefix count as one space.
func (c *Completer) Complete(prefix string) []string {
	trailing := strings.HasSuffix(prefix, " ")
	prefix = strings.Join(strings.Fields(prefix), " ")
	if trailing && prefix != "" {
		prefix += " "
	}

	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}
