package pveapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Flag is a Proxmox boolean. The API emits 0/1 (sometimes quoted) and accepts 0/1.
type Flag bool

// UnmarshalJSON accepts 0, 1, "0", "1", true, false and null.
func (f *Flag) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	switch s {
	case "", "null", "0", "false":
		*f = false
	case "1", "true":
		*f = true
	default:
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("pveapi: invalid boolean %s", b)
		}
		*f = n != 0
	}
	return nil
}

// MarshalJSON encodes the flag as 0 or 1.
func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

// FormValue renders the flag for a form body.
func (f Flag) FormValue() string {
	if f {
		return "1"
	}
	return "0"
}

// VersionInfo is GET /version.
type VersionInfo struct {
	Version string `json:"version"`
	Release string `json:"release,omitempty"`
	RepoID  string `json:"repoid,omitempty"`
}

// NodeInfo is one entry of GET /nodes.
type NodeInfo struct {
	ID      string  `json:"id,omitempty" table:"wide"`
	Node    string  `json:"node"`
	Type    string  `json:"type"`
	Status  string  `json:"status"`
	CPU     float64 `json:"cpu,omitempty"`
	MaxCPU  int     `json:"maxcpu,omitempty"`
	Mem     int64   `json:"mem,omitempty"`
	MaxMem  int64   `json:"maxmem,omitempty"`
	Disk    int64   `json:"disk,omitempty" table:"wide"`
	MaxDisk int64   `json:"maxdisk,omitempty" table:"wide"`
	Uptime  int64   `json:"uptime,omitempty"`
}

// Online reports whether the node answered the cluster status check.
func (n NodeInfo) Online() bool {
	return n.Status == "online"
}

// VM is one entry of GET /nodes/{node}/qemu.
type VM struct {
	VMID    json.Number `json:"vmid"`
	Name    string      `json:"name"`
	Status  string      `json:"status"`
	CPUs    int         `json:"cpus,omitempty"`
	Mem     int64       `json:"mem,omitempty"`
	MaxMem  int64       `json:"maxmem,omitempty"`
	MaxDisk int64       `json:"maxdisk,omitempty" table:"wide"`
	Uptime  int64       `json:"uptime,omitempty" table:"wide"`
}

// Running reports whether the guest is started.
func (v VM) Running() bool {
	return v.Status == "running"
}

// User is one entry of GET /access/users.
type User struct {
	UserID    string `json:"userid"`
	Enable    Flag   `json:"enable"`
	Expire    int64  `json:"expire,omitempty" table:"wide"`
	FirstName string `json:"firstname,omitempty" table:"wide"`
	LastName  string `json:"lastname,omitempty" table:"wide"`
	Email     string `json:"email,omitempty"`
	Comment   string `json:"comment,omitempty"`
}

// Role is one entry of GET /access/roles.
type Role struct {
	RoleID  string `json:"roleid"`
	Privs   string `json:"privs,omitempty"`
	Special Flag   `json:"special,omitempty"`
}

// ACLEntry is one entry of GET /access/acl.
type ACLEntry struct {
	Path      string `json:"path"`
	RoleID    string `json:"roleid"`
	Type      string `json:"type"`
	UGID      string `json:"ugid"`
	Propagate Flag   `json:"propagate"`
}
