// Package shutdown coordinates graceful termination of long-running
// pvectl commands such as the exporter.
//
// Usage:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown(srv.Shutdown)
//	err := h.Wait(ctx) // returns after SIGINT, SIGTERM or ctx cancellation
package shutdown
