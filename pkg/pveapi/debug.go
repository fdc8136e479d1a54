package pveapi

import (
	"strings"
)

// DefaultDebugLimit caps the diagnostics buffer.
const DefaultDebugLimit = 256 << 10

const minDebugLimit = 1 << 10

const (
	debugRule   = "----------------------------------------------\n"
	debugHeader = "\n\n------------  D E B U G   L O G  -------------\n"
	truncMarker = "\n...(truncated)"
)

// debugLog accumulates human-readable blocks per call. The oldest blocks are
// dropped once the total size passes limit.
type debugLog struct {
	limit  int
	size   int
	url    string
	blocks []string
}

func newDebugLog(limit int) *debugLog {
	switch {
	case limit <= 0:
		limit = DefaultDebugLimit
	case limit < minDebugLimit:
		limit = minDebugLimit
	}
	return &debugLog{limit: limit}
}

func (d *debugLog) setURL(u string) {
	d.url = u
}

func (d *debugLog) add(lines ...string) {
	for _, line := range lines {
		block := debugRule + line + "\n\n"
		if len(block) > d.limit {
			block = block[:d.limit-len(truncMarker)] + truncMarker
		}
		d.blocks = append(d.blocks, block)
		d.size += len(block)
	}
	for d.size > d.limit && len(d.blocks) > 0 {
		d.size -= len(d.blocks[0])
		d.blocks = d.blocks[1:]
	}
}

func (d *debugLog) report() string {
	var b strings.Builder
	b.WriteString(debugHeader)
	b.WriteString("Request url: " + d.url + "\n")
	for _, block := range d.blocks {
		b.WriteString(block)
	}
	b.WriteString("\n\n")
	return b.String()
}

func (d *debugLog) reset() {
	d.url = ""
	d.blocks = nil
	d.size = 0
}
