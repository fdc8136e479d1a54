package pveapi

import (
	"context"
	"net/url"
	"strings"
)

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Result, error) {
	return c.Execute(ctx, path, MethodGet, nil)
}

// Put issues a PUT request with a form body.
func (c *Client) Put(ctx context.Context, path string, params Params) (*Result, error) {
	return c.Execute(ctx, path, MethodPut, params)
}

// Post issues a POST request with a form body.
func (c *Client) Post(ctx context.Context, path string, params Params) (*Result, error) {
	return c.Execute(ctx, path, MethodPost, params)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Result, error) {
	return c.Execute(ctx, path, MethodDelete, nil)
}

// getInto runs a GET and decodes the data member into v.
func (c *Client) getInto(ctx context.Context, path string, v any) error {
	res, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	return res.Decode(v)
}

// VersionInfo returns GET /version.
func (c *Client) VersionInfo(ctx context.Context) (VersionInfo, error) {
	var v VersionInfo
	err := c.getInto(ctx, "/version", &v)
	return v, err
}

// Version returns the Proxmox VE version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	v, err := c.VersionInfo(ctx)
	if err != nil {
		return "", err
	}
	return v.Version, nil
}

// Access fetches /access or /access/{sub} (domains, groups, roles, users, acl, ...).
func (c *Client) Access(ctx context.Context, sub string) (*Result, error) {
	return c.Get(ctx, joinPath("/access", sub))
}

// Nodes fetches /nodes or /nodes/{node}.
func (c *Client) Nodes(ctx context.Context, node string) (*Result, error) {
	return c.Get(ctx, joinPath("/nodes", node))
}

// ListNodeInfo returns every entry of /nodes.
func (c *Client) ListNodeInfo(ctx context.Context) ([]NodeInfo, error) {
	var nodes []NodeInfo
	err := c.getInto(ctx, "/nodes", &nodes)
	return nodes, err
}

// ListNodes returns the cluster node names. The list is fetched once per client.
func (c *Client) ListNodes(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	cached := c.nodes
	c.mu.Unlock()
	if len(cached) > 0 {
		return append([]string(nil), cached...), nil
	}

	infos, err := c.ListNodeInfo(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, n := range infos {
		if n.Type == "node" {
			names = append(names, n.Node)
		}
	}

	c.mu.Lock()
	c.nodes = names
	c.mu.Unlock()
	return append([]string(nil), names...), nil
}

// ListVMs returns the QEMU guests of node.
func (c *Client) ListVMs(ctx context.Context, node string) ([]VM, error) {
	if strings.Trim(node, "/") == "" {
		return nil, ErrInvalidArgument.WithDetails(`require param "node"`)
	}
	var vms []VM
	err := c.getInto(ctx, joinPath("/nodes", node)+"/qemu", &vms)
	return vms, err
}

// ListUsers returns /access/users.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	err := c.getInto(ctx, "/access/users", &users)
	return users, err
}

// ListRoles returns /access/roles.
func (c *Client) ListRoles(ctx context.Context) ([]Role, error) {
	var roles []Role
	err := c.getInto(ctx, "/access/roles", &roles)
	return roles, err
}

// ListACL returns /access/acl.
func (c *Client) ListACL(ctx context.Context) ([]ACLEntry, error) {
	var acl []ACLEntry
	err := c.getInto(ctx, "/access/acl", &acl)
	return acl, err
}

// CreateUser creates a user. params must carry "userid"; other keys
// (password, email, enable, expire, firstname, lastname, groups, comment, keys)
// are passed through.
func (c *Client) CreateUser(ctx context.Context, params Params) (*Result, error) {
	if err := requireParams(params, "userid"); err != nil {
		return nil, err
	}
	return c.Post(ctx, "/access/users", params)
}

// UpdateUser changes a user's configuration. "userid" selects the user and is
// not sent in the body.
func (c *Client) UpdateUser(ctx context.Context, params Params) (*Result, error) {
	if err := requireParams(params, "userid"); err != nil {
		return nil, err
	}
	body := params.clone()
	userid := body["userid"]
	delete(body, "userid")
	return c.Put(ctx, "/access/users/"+url.PathEscape(userid), body)
}

// UpdateUserPassword changes a password. params carries "userid" and "password".
func (c *Client) UpdateUserPassword(ctx context.Context, params Params) (*Result, error) {
	if err := requireParams(params, "userid"); err != nil {
		return nil, err
	}
	return c.Put(ctx, "/access/password", params)
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, userid string) (*Result, error) {
	if strings.TrimSpace(userid) == "" {
		return nil, ErrInvalidArgument.WithDetails(`require param "userid"`)
	}
	return c.Delete(ctx, "/access/users/"+url.PathEscape(userid))
}

// CreateACL grants roles on path. params must carry "path" and "roles";
// "users", "groups" and "propagate" are passed through.
func (c *Client) CreateACL(ctx context.Context, params Params) (*Result, error) {
	if err := requireParams(params, "path", "roles"); err != nil {
		return nil, err
	}
	return c.Put(ctx, "/access/acl", params)
}

// UpdateACL is CreateACL: the API treats both as the same PUT.
func (c *Client) UpdateACL(ctx context.Context, params Params) (*Result, error) {
	return c.CreateACL(ctx, params)
}

// DeleteACL revokes roles on path.
func (c *Client) DeleteACL(ctx context.Context, params Params) (*Result, error) {
	if err := requireParams(params, "path", "roles"); err != nil {
		return nil, err
	}
	body := params.clone()
	body["delete"] = "1"
	return c.CreateACL(ctx, body)
}

func requireParams(params Params, keys ...string) error {
	var missing []string
	for _, k := range keys {
		if params[k] == "" {
			missing = append(missing, `"`+k+`"`)
		}
	}
	if len(missing) > 0 {
		return ErrInvalidArgument.WithDetails("require param " + strings.Join(missing, " and "))
	}
	return nil
}

func joinPath(base, sub string) string {
	sub = strings.Trim(sub, "/")
	if sub == "" {
		return base
	}
	return base + "/" + sub
}
