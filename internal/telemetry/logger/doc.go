// Package logger provides structured logging for pveapi and pvectl.
//
// It wraps log/slog:
//
//   - logger.go: handler setup, level control and the process default
//   - context.go: logger and request ID propagation through context.Context
//   - redact.go: masking of tickets, CSRF tokens and passwords
//
// Proxmox tickets ("PVE:..." values and PVEAuthCookie headers) are masked
// before they reach the handler, as are values stored under sensitive keys.
package logger
