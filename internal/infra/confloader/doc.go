// Package confloader loads pvectl configuration with koanf.
//
// Priority (highest to lowest):
//
//  1. Command-line flags (LoadMap)
//  2. Environment variables (PVECTL_*)
//  3. Configuration file (YAML)
//  4. Defaults held by the target struct
//
// Environment keys map to config keys by dropping the prefix and lowering
// the rest; a double underscore separates nesting levels, so
// PVECTL_PROFILES__LAB__HOSTNAME sets profiles.lab.hostname and
// PVECTL_CURRENT_PROFILE sets current_profile.
//
// Watcher reports edits to a loaded file so interactive sessions can reload.
package confloader
