package pveapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Params are the named string parameters sent as a form body with PUT and POST.
type Params map[string]string

// Encode returns the application/x-www-form-urlencoded body, keys sorted.
func (p Params) Encode() string {
	v := make(url.Values, len(p))
	for k, val := range p {
		v.Set(k, val)
	}
	return v.Encode()
}

func (p Params) clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Result is a successful response.
type Result struct {
	StatusCode int
	StatusLine string
	Headers    []string
	Body       []byte

	// Data is the value of the top-level "data" member for json/extjs
	// formats. It is nil for PUT, for an empty body and for "data": null.
	Data json.RawMessage
}

// Empty reports whether the response carried no payload.
func (r *Result) Empty() bool {
	return r == nil || len(r.Data) == 0
}

// Decode unmarshals Data into v. It is a no-op when the result is empty.
func (r *Result) Decode(v any) error {
	if r.Empty() {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return ErrMalformedResponse.WithDetails("decode data").WithCause(err)
	}
	return nil
}

// Execute dispatches one authenticated request to path under the API base URL.
//
// Missing or stale sessions, then unsupported methods, fail before any
// network activity. A non-200 status yields a *RejectedError.
func (c *Client) Execute(ctx context.Context, path string, method Method, params Params) (*Result, error) {
	if !c.LoggedIn() {
		c.debugAdd("Not logged into Proxmox host. No login access ticket found or ticket expired.")
		return nil, ErrNotAuthenticated
	}
	if !method.Valid() {
		return nil, ErrUnsupportedMethod.WithDetails(method.String())
	}

	log := c.log.With("request_id", ulid.Make().String(), "method", method.String())

	u := c.APIURL() + "/" + strings.Trim(path, "/")
	c.debugURL(u)

	var encoded string
	if method.hasBody() {
		encoded = params.Encode()
	}
	body := strings.NewReader(encoded)
	req, err := http.NewRequestWithContext(ctx, method.String(), u, body)
	if err != nil {
		return nil, ErrInvalidArgument.WithDetails("build request for " + path).WithCause(err)
	}

	req.Header.Set("Cookie", "PVEAuthCookie="+c.session.Ticket)
	if method.mutating() {
		req.Header.Set("CSRFPreventionToken", c.session.CSRFToken)
	}
	if method.hasBody() {
		req.Header.Set("Content-Type", formContentType)
	}
	c.setUserAgent(req)

	start := time.Now()
	log.Debug("dispatch", "url", u)

	raw, err := c.transport.Do(req)
	if err != nil {
		c.observe(method, 0, start)
		c.debugAdd("Error " + method.String() + " request: " + err.Error())
		log.Warn("transport failure", "error", err)
		return nil, ErrTransport.WithDetails(method.String() + " " + u).WithCause(err)
	}
	if len(raw) == 0 {
		c.observe(method, 0, start)
		c.debugAdd("Error - Invalid response")
		return nil, ErrEmptyResponse.WithDetails(method.String() + " " + u)
	}

	resp := SplitRawResponse(raw)
	code, err := resp.StatusCode()
	if err != nil {
		c.observe(method, 0, start)
		c.debugAdd("FULL RESPONSE:\n\n" + string(raw))
		return nil, err
	}
	c.observe(method, code, start)

	if c.debugEnabled() {
		c.debugAdd(
			"FULL RESPONSE:\n\n"+string(raw),
			"HEADERS:\n\n"+resp.head(),
			"DATA:\n\n"+string(resp.Body),
		)
	}

	if code != http.StatusOK {
		c.debugAdd("This API Request Failed.\nHTTP Response - " + resp.StatusLine)
		log.Info("request rejected", "path", path, "status", code)
		return nil, &RejectedError{StatusCode: code, StatusLine: resp.StatusLine}
	}

	result := &Result{
		StatusCode: code,
		StatusLine: resp.StatusLine,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}
	if method == MethodPut {
		log.Debug("done", "path", path, "elapsed", time.Since(start))
		return result, nil
	}

	if format := c.ResponseFormat(); format == "json" || format == "extjs" {
		data, err := extractData(resp.Body)
		if err != nil {
			return nil, err
		}
		result.Data = data
		if c.debugEnabled() && len(data) > 0 {
			var pretty bytes.Buffer
			if json.Indent(&pretty, data, "", "  ") == nil {
				c.debugAdd("RESPONSE ARRAY:\n\n" + pretty.String())
			}
		}
	}

	c.mu.Lock()
	c.last = result
	c.mu.Unlock()

	log.Debug("done", "path", path, "elapsed", time.Since(start))
	return result, nil
}

// extractData returns the raw "data" member. An empty body or a null member
// gives nil.
func extractData(body []byte) (json.RawMessage, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, ErrMalformedResponse.WithDetails("body is not a JSON document").WithCause(err)
	}
	if len(envelope.Data) == 0 || bytes.Equal(envelope.Data, []byte("null")) {
		return nil, nil
	}
	return envelope.Data, nil
}

func (c *Client) observe(method Method, code int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(method, code, time.Since(start))
	}
}
