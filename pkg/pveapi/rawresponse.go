package pveapi

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	headerBodySeparator = "\r\n\r\n"
	lineSeparator       = "\r\n"
)

var statusLinePattern = regexp.MustCompile(`^HTTP/1\.1 ([0-9]{3})(?: |$)`)

// RawResponse is a transport response split into its wire parts.
type RawResponse struct {
	StatusLine string
	Headers    []string // "Name: value" lines, canonicalised and sorted by name
	Body       []byte
}

// SplitRawResponse splits the combined header and body text on the first blank line.
// A response without a blank line is treated as headers only.
func SplitRawResponse(raw []byte) RawResponse {
	head, body, _ := bytes.Cut(raw, []byte(headerBodySeparator))
	lines := strings.Split(string(head), lineSeparator)

	resp := RawResponse{StatusLine: lines[0], Body: body}
	for _, line := range lines[1:] {
		if line != "" {
			resp.Headers = append(resp.Headers, line)
		}
	}
	return resp
}

// StatusCode parses the numeric code from an "HTTP/1.1 <code>" status line.
func (r RawResponse) StatusCode() (int, error) {
	m := statusLinePattern.FindStringSubmatch(r.StatusLine)
	if m == nil {
		return 0, ErrMalformedResponse.WithDetails(fmt.Sprintf("invalid status line %q", r.StatusLine))
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, ErrMalformedResponse.WithDetails(fmt.Sprintf("invalid status code %q", m[1])).WithCause(err)
	}
	return code, nil
}

// Header returns the first value of the named header (case-insensitive).
func (r RawResponse) Header(name string) string {
	for _, line := range r.Headers {
		k, v, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(k), name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// head reassembles the status line and header lines.
func (r RawResponse) head() string {
	return strings.Join(append([]string{r.StatusLine}, r.Headers...), lineSeparator)
}
