// Package edge is the request-interception layer providing offline fallback
// for static and API traffic. It runs independently of the in-page
// components and shares their failure philosophy: a network error never
// propagates to the client as anything but a well-formed response.
//
// Policy table:
//   - static asset:  cache-first with background revalidation
//   - API GET:       network-first, cached copy as fallback
//   - API non-GET:   network-only, synthetic 503 on failure so the offline
//     queue can take over
package edge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ecosdelcampo/fieldsync/internal/api/metrics"
	"github.com/ecosdelcampo/fieldsync/internal/core/ports"
)

const (
	apiPrefix         = "/api"
	revalidateTimeout = 10 * time.Second
)

// Config captures the edge proxy settings.
type Config struct {
	// Upstream is the origin serving both the API and static assets.
	Upstream    string
	OfflinePage string
	ShellAssets []string
	Timeout     time.Duration
}

// Proxy intercepts all outbound HTTP and applies per-class cache policies.
type Proxy struct {
	upstream *url.URL
	cache    ports.ResponseCache
	client   *http.Client
	offline  string
	shell    []string
	log      zerolog.Logger
}

func NewProxy(cfg Config, cache ports.ResponseCache, log zerolog.Logger) (*Proxy, error) {
	upstream, err := url.Parse(cfg.Upstream)
	if err != nil || upstream.Scheme == "" {
		return nil, fmt.Errorf("edge: invalid upstream %q", cfg.Upstream)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Proxy{
		upstream: upstream,
		cache:    cache,
		client:   &http.Client{Timeout: timeout},
		offline:  cfg.OfflinePage,
		shell:    cfg.ShellAssets,
		log:      log,
	}, nil
}

// Install pre-populates the cache with the shell asset manifest. Returns an
// error if any asset could not be fetched; entries that did succeed stay
// cached.
func (p *Proxy) Install(ctx context.Context) error {
	var failed []string
	for _, asset := range p.shell {
		res, err := p.fetch(ctx, http.MethodGet, asset, nil, nil)
		if err != nil || res.Status != http.StatusOK {
			failed = append(failed, asset)
			continue
		}
		if err := p.cache.Put(ctx, http.MethodGet, asset, res); err != nil {
			failed = append(failed, asset)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("edge: precache failed for %s", strings.Join(failed, ", "))
	}
	p.log.Info().Int("assets", len(p.shell)).Msg("shell precached")
	return nil
}

// Activate deletes cache entries from previous generations.
func (p *Proxy) Activate(ctx context.Context) error {
	removed, err := p.cache.PurgeStale(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		p.log.Info().Int64("removed", removed).Msg("purged stale cache generations")
	}
	return nil
}

// Router builds the echo instance intercepting all requests.
func (p *Proxy) Router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomiddleware.Recover())
	e.Any("/*", p.handle)
	return e
}

func (p *Proxy) handle(c echo.Context) error {
	req := c.Request()
	switch {
	case isAPI(req.URL.Path) && req.Method == http.MethodGet:
		return p.networkFirst(c)
	case isAPI(req.URL.Path):
		return p.networkOnly(c)
	case req.Method == http.MethodGet:
		return p.cacheFirst(c)
	default:
		return p.networkOnly(c)
	}
}

// networkFirst serves API GETs: live fetch, overwrite cache on success, fall
// back to the last cached copy for the exact request.
func (p *Proxy) networkFirst(c echo.Context) error {
	req := c.Request()
	uri := req.URL.RequestURI()

	res, err := p.forward(req)
	if err == nil {
		if res.Status == http.StatusOK {
			p.put(req.Context(), http.MethodGet, uri, res)
		}
		metrics.EdgeRequestsTotal.WithLabelValues("api_get", "network").Inc()
		return respond(c, res)
	}

	cached, cacheErr := p.cache.Get(req.Context(), http.MethodGet, uri)
	if cacheErr == nil && cached != nil {
		metrics.EdgeRequestsTotal.WithLabelValues("api_get", "cache").Inc()
		return respond(c, cached)
	}

	metrics.EdgeRequestsTotal.WithLabelValues("api_get", "synthetic").Inc()
	return syntheticOffline(c)
}

// networkOnly serves API mutations: never cached, synthetic 503 on failure
// so the caller's offline queue takes over.
func (p *Proxy) networkOnly(c echo.Context) error {
	res, err := p.forward(c.Request())
	if err != nil {
		metrics.EdgeRequestsTotal.WithLabelValues("api_mutation", "synthetic").Inc()
		return syntheticOffline(c)
	}
	metrics.EdgeRequestsTotal.WithLabelValues("api_mutation", "network").Inc()
	return respond(c, res)
}

// cacheFirst serves static assets: cached copy immediately if present, with
// a background refetch overwriting the entry; offline fallback page for
// navigation requests when nothing is cached and the network fails.
func (p *Proxy) cacheFirst(c echo.Context) error {
	req := c.Request()
	uri := req.URL.RequestURI()

	cached, err := p.cache.Get(req.Context(), http.MethodGet, uri)
	if err == nil && cached != nil {
		go p.revalidate(uri)
		metrics.EdgeRequestsTotal.WithLabelValues("static", "cache").Inc()
		return respond(c, cached)
	}

	res, err := p.forward(req)
	if err == nil {
		if res.Status == http.StatusOK {
			p.put(req.Context(), http.MethodGet, uri, res)
		}
		metrics.EdgeRequestsTotal.WithLabelValues("static", "network").Inc()
		return respond(c, res)
	}

	if isNavigation(req) {
		fallback, err := p.cache.Get(req.Context(), http.MethodGet, p.offline)
		if err == nil && fallback != nil {
			metrics.EdgeRequestsTotal.WithLabelValues("static", "offline_fallback").Inc()
			return respond(c, fallback)
		}
	}

	metrics.EdgeRequestsTotal.WithLabelValues("static", "synthetic").Inc()
	return syntheticOffline(c)
}

// revalidate refetches a static asset in the background and overwrites the
// cache entry when the origin answers 200.
func (p *Proxy) revalidate(uri string) {
	ctx, cancel := context.WithTimeout(context.Background(), revalidateTimeout)
	defer cancel()

	res, err := p.fetch(ctx, http.MethodGet, uri, nil, nil)
	if err != nil || res.Status != http.StatusOK {
		return
	}
	p.put(ctx, http.MethodGet, uri, res)
}

// forward relays the client request to the upstream, preserving method,
// path, query, headers and body.
func (p *Proxy) forward(req *http.Request) (*ports.CachedResponse, error) {
	return p.fetch(req.Context(), req.Method, req.URL.RequestURI(), req.Header, req.Body)
}

func (p *Proxy) fetch(ctx context.Context, method, uri string, header http.Header, body io.Reader) (*ports.CachedResponse, error) {
	out, err := http.NewRequestWithContext(ctx, method, p.upstream.String()+uri, body)
	if err != nil {
		return nil, err
	}
	for key, values := range header {
		for _, v := range values {
			out.Header.Add(key, v)
		}
	}

	res, err := p.client.Do(out)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	return &ports.CachedResponse{
		Status:      res.StatusCode,
		ContentType: res.Header.Get("Content-Type"),
		Body:        b,
	}, nil
}

func (p *Proxy) put(ctx context.Context, method, uri string, res *ports.CachedResponse) {
	if err := p.cache.Put(ctx, method, uri, res); err != nil {
		p.log.Warn().Err(err).Str("uri", uri).Msg("edge cache write failed")
	}
}

func isAPI(path string) bool {
	return path == apiPrefix || strings.HasPrefix(path, apiPrefix+"/")
}

func isNavigation(req *http.Request) bool {
	return req.Method == http.MethodGet &&
		strings.Contains(req.Header.Get("Accept"), "text/html")
}

func respond(c echo.Context, res *ports.CachedResponse) error {
	contentType := res.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	return c.Blob(res.Status, contentType, res.Body)
}

func syntheticOffline(c echo.Context) error {
	return c.JSON(http.StatusServiceUnavailable, map[string]any{
		"error":   "offline",
		"offline": true,
	})
}
