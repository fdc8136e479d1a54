// Package buildinfo exposes build-time version information for pvectl.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/pveapi-go/internal/infra/buildinfo.Version=v1.0.0"
//
// When Commit is not injected it is read from the VCS stamp embedded by the
// Go toolchain.
package buildinfo
