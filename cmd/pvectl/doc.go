// Package main provides the entry point for pvectl.
//
// pvectl is a command-line client for the Proxmox VE REST API:
//
//   - Ticket login with saved connection profiles
//   - Node, guest, user, role and ACL inventory
//   - User and ACL management
//   - Raw GET/PUT/POST/DELETE against any API path
//   - Interactive shell sharing one login
//   - Prometheus exporter for the node and guest inventory
//
// Usage:
//
//	pvectl config set-profile lab --host pve.lab --user root --realm pam --password ...
//	pvectl vm list --running
//	pvectl -o json api get /cluster/resources
//	pvectl exporter --listen :9221
package main
