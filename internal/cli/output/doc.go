// Package output renders pvectl results as tables, JSON or YAML.
//
// Tables are built by reflection: struct fields become columns named after
// their json tags, fields tagged table:"wide" only appear with --wide, and
// decoded API payloads ([]any of maps) become one column per key.
package output
