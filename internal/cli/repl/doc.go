// Package repl provides the interactive shell of pvectl.
//
// Each input line is split into arguments and handed to an Executor, which
// runs it through the same command tree as single-command mode, so one login
// serves every command typed in the session.
//
//   - repl.go: read loop, argument splitting and built-ins
//   - completer.go: command path completion ("node l?" lists matches)
//   - history.go: persisted history in ~/.pvectl/history
package repl
