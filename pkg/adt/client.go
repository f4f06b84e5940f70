// Package adt is a read-only client for the ABAP Development Tools
// (ADT) REST services of an SAP NetWeaver application server. It covers
// the three services abapdoc needs: object source retrieval, the
// repository quick search, and package node structures.
//
// Responses are cached through pkg/cache; transient failures (network
// errors, 5xx responses) are retried with exponential backoff.
package adt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/abapdoc/abapdoc/pkg/cache"
	"github.com/abapdoc/abapdoc/pkg/observability"
)

const defaultTimeout = 30 * time.Second

// Sentinel errors. ErrNotFound, ErrNetwork and ErrAuth are shared with
// pkg/cache so errors.Is works across package boundaries.
var (
	// ErrNotFound is returned when the requested object does not exist
	// in the repository.
	ErrNotFound = cache.ErrNotFound

	// ErrNetwork is returned for HTTP failures (timeouts, connection
	// errors, 5xx responses).
	ErrNetwork = cache.ErrNetwork

	// ErrAuth is returned for 401/403 responses. Authentication
	// failures abort a build instead of being recorded per object.
	ErrAuth = cache.ErrAuth

	// ErrNoSource is returned by FetchSource for object types that have
	// no source representation in ADT (data elements, domains).
	ErrNoSource = errors.New("no source representation")
)

// Config holds the connection parameters for one SAP system.
type Config struct {
	// BaseURL is the application server root, e.g. https://vhcala4hci:44300.
	BaseURL string

	// Client is the SAP client number sent as sap-client, e.g. "100".
	Client string

	// Username and Password authenticate via HTTP basic auth. ADT has
	// no token scheme on the releases this tool targets.
	Username string
	Password string

	// Language is sent as sap-language. Empty omits the parameter and
	// lets the system pick the logon language.
	Language string

	// Timeout bounds each HTTP request. 0 selects 30s; SAP application
	// servers routinely take >10s for cold repository reads.
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate checks. Development
	// systems commonly run with self-signed certificates.
	InsecureSkipVerify bool

	// Cache stores raw responses. nil disables caching.
	Cache cache.Cache

	// CacheTTL is how long responses stay fresh. 0 selects 1h.
	CacheTTL time.Duration
}

// Client talks to one SAP system's ADT services. All methods are safe
// for concurrent use; the underlying http.Client pools connections.
//
// The zero value is not usable - use NewClient.
type Client struct {
	http      *http.Client
	cache     cache.Cache
	keyer     cache.Keyer
	ttl       time.Duration
	baseURL   string
	sapClient string
	language  string
	username  string
	password  string
}

// NewClient validates cfg and creates a client. Cache keys are scoped
// by host and SAP client so several systems can share one backend.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("adt: base URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("adt: parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("adt: unsupported scheme %q", u.Scheme)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = time.Hour
	}
	backend := cfg.Cache
	if backend == nil {
		backend = cache.NewNullCache()
	}

	scope := fmt.Sprintf("system:%s/%s:", u.Host, cfg.Client)
	return &Client{
		http:      newHTTPClient(timeout, cfg.InsecureSkipVerify),
		cache:     backend,
		keyer:     cache.NewScopedKeyer(cache.NewDefaultKeyer(), scope),
		ttl:       ttl,
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		sapClient: cfg.Client,
		language:  cfg.Language,
		username:  cfg.Username,
		password:  cfg.Password,
	}, nil
}

func newHTTPClient(timeout time.Duration, insecure bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// cached retrieves a value from cache or executes fetch and caches the
// result. If refresh is true, the cache is bypassed and fetch is always
// called. The fetch function should populate v; on success, v is stored
// in the cache as JSON.
func (c *Client) cached(ctx context.Context, namespace, key string, refresh bool, v any, fetch func() error) error {
	fullKey := c.keyer.HTTPKey(namespace, key)
	if !refresh {
		if data, ok, _ := c.cache.Get(ctx, fullKey); ok {
			if err := json.Unmarshal(data, v); err == nil {
				observability.Cache().OnCacheHit(ctx, "http")
				return nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "http")
	}
	if err := cache.RetryWithBackoff(ctx, fetch); err != nil {
		return err
	}
	if data, err := json.Marshal(v); err == nil {
		_ = c.cache.Set(ctx, fullKey, data, c.ttl)
		observability.Cache().OnCacheSet(ctx, "http", len(data))
	}
	return nil
}

// getText performs a GET expecting a plain-text body.
func (c *Client) getText(ctx context.Context, path string, query url.Values) (string, error) {
	body, err := c.do(ctx, http.MethodGet, path, query, "text/plain")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// getXML performs a request expecting an XML body and decodes it into v.
func (c *Client) getXML(ctx context.Context, method, path string, query url.Values, v any) error {
	body, err := c.do(ctx, method, path, query, "application/xml")
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(body, v); err != nil {
		return fmt.Errorf("adt: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, accept string) ([]byte, error) {
	if query == nil {
		query = url.Values{}
	}
	if c.sapClient != "" {
		query.Set("sap-client", c.sapClient)
	}
	if c.language != "" {
		query.Set("sap-language", c.language)
	}

	reqURL := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", accept)

	observability.ADT().OnRequest(ctx, method, path)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.ADT().OnError(ctx, method, path, err)
		return nil, cache.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	defer resp.Body.Close()
	observability.ADT().OnResponse(ctx, method, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuth, code)
	case code >= 500:
		return cache.Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}
