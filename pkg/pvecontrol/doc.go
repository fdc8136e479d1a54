// Package pvecontrol joins Proxmox users with the VMs their ACL entries grant
// them, and generates passwords suitable for new accounts.
package pvecontrol
