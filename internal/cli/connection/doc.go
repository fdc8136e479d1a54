// Package connection owns the pveapi.Client used by pvectl commands.
//
// A Manager turns a Target (resolved from flags or a profile) into a logged-in
// client, builds the TLS trust store from the target's CA file, and logs in
// again with the same target once the two-hour ticket has aged out.
package connection
