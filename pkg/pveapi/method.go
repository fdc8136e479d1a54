package pveapi

import (
	"net/http"
	"strings"
)

// Method is one of the HTTP verbs the API accepts.
type Method int

const (
	MethodGet Method = iota + 1
	MethodPut
	MethodPost
	MethodDelete
)

// String returns the wire name of the verb.
func (m Method) String() string {
	switch m {
	case MethodGet:
		return http.MethodGet
	case MethodPut:
		return http.MethodPut
	case MethodPost:
		return http.MethodPost
	case MethodDelete:
		return http.MethodDelete
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether m is a supported verb.
func (m Method) Valid() bool {
	switch m {
	case MethodGet, MethodPut, MethodPost, MethodDelete:
		return true
	default:
		return false
	}
}

// mutating reports whether the verb requires the CSRF token.
func (m Method) mutating() bool {
	return m != MethodGet
}

// hasBody reports whether params are form-encoded into the request body.
func (m Method) hasBody() bool {
	switch m {
	case MethodPut, MethodPost:
		return true
	default:
		return false
	}
}

// ParseMethod converts a verb name (case-insensitive) to a Method.
func ParseMethod(s string) (Method, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case http.MethodGet:
		return MethodGet, nil
	case http.MethodPut:
		return MethodPut, nil
	case http.MethodPost:
		return MethodPost, nil
	case http.MethodDelete:
		return MethodDelete, nil
	default:
		return 0, ErrUnsupportedMethod.WithDetails(s)
	}
}
