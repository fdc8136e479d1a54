// Package config defines pvectl's local configuration (~/.pvectl/cli.yaml).
//
// The file holds named connection profiles. Profile passwords are sealed
// with a passphrase taken from PVECTL_SECRET before they are written, and
// opened again when a profile is turned into a pveapi.Config.
package config
