package ports

import "context"

// CachedResponse is a stored copy of an upstream HTTP response.
type CachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// ResponseCache stores upstream responses for the edge layer, keyed by
// request identity (method + URL) and tagged with a cache generation.
type ResponseCache interface {
	// Get returns the cached copy for the exact request, or (nil, nil) on miss.
	Get(ctx context.Context, method, url string) (*CachedResponse, error)

	// Put overwrites the cache entry for the request.
	Put(ctx context.Context, method, url string, res *CachedResponse) error

	// PurgeStale deletes every entry whose generation tag does not match the
	// current one. Run on activation to bound growth across deployments.
	PurgeStale(ctx context.Context) (int64, error)
}
