// Package tlsroots builds the trust store used to verify Proxmox hosts.
//
// Proxmox nodes ship with a cluster CA that is usually absent from the
// system store. A Pool starts from the system roots and adds the PEM bundle
// or directory named by --ca-file or a profile's ca_file.
package tlsroots
