package ports

import (
	"context"
	"encoding/json"
	"net/http"
)

// Response is the normalized result of a gateway call.
//
// Status 0 is a local sentinel meaning the transport failed and the server
// was never reached; callers branch on OK/Unreachable instead of handling
// transport errors themselves.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports whether the response carries a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Unreachable reports whether the server could not be reached. Status 0
// (transport failure) and 503 (edge cache synthetic) are treated identically.
func (r *Response) Unreachable() bool {
	return r.Status == 0 || r.Status == http.StatusServiceUnavailable
}

// DecodeJSON unmarshals the response body into v.
func (r *Response) DecodeJSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// RequestConfig carries per-request extras applied by options.
type RequestConfig struct {
	Header http.Header
}

// RequestOption customizes a single gateway request.
type RequestOption func(*RequestConfig)

// WithHeader adds a header to the outgoing request.
func WithHeader(key, value string) RequestOption {
	return func(rc *RequestConfig) {
		if rc.Header == nil {
			rc.Header = http.Header{}
		}
		rc.Header.Set(key, value)
	}
}

// Gateway is the single chokepoint for all marketplace API traffic. It
// injects the bearer token, transparently performs one refresh-and-retry
// cycle on authorization expiry, and converts transport failures into a
// status-0 Response instead of returning an error.
//
// The returned error is non-nil only for terminal session expiry
// (domain.ErrSessionExpired) or a request that could not be built.
type Gateway interface {
	Request(ctx context.Context, method, endpoint string, body any, opts ...RequestOption) (*Response, error)
}
