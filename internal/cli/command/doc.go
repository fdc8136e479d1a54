// Package command provides the pvectl command tree.
//
// Commands are built with urfave/cli/v2:
//
//   - root.go: application, global flags, target resolution, output
//   - login.go: login, logout and version
//   - node.go: node and vm inventory
//   - user.go: user management and password generation
//   - access.go: roles, ACL entries and the /access browser
//   - api.go: raw GET/PUT/POST/DELETE against any API path
//   - config.go: connection profiles
//   - shell.go: interactive shell sharing one login
//   - exporter.go: Prometheus exporter for the node and guest inventory
//
// Every command resolves its target from the selected profile and the
// connection flags, then renders the result as a table, JSON or YAML.
package command
