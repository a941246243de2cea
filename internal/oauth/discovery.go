package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"promptd/pkg/logging"
)

// defaultMetadataCacheTTL is the time-to-live for cached authorization
// server metadata. After this duration, metadata is re-fetched.
const defaultMetadataCacheTTL = 5 * time.Minute

const (
	wellKnownAuthServer = "/.well-known/oauth-authorization-server"
	wellKnownOpenID     = "/.well-known/openid-configuration"
)

// metadataCacheEntry holds cached metadata with its timestamp.
type metadataCacheEntry struct {
	metadata  *Metadata
	fetchedAt time.Time
}

// Resolver discovers authorization server metadata for MCP server URLs.
//
// Resolution proceeds in a fixed order and stops at the first success:
//
//  1. Probe the MCP server itself and follow the resource reference in its
//     WWW-Authenticate challenge to the protected resource metadata, which
//     names the authorization server.
//  2. The RFC 8414 well-known path on the MCP server's origin.
//  3. The OpenID Connect discovery path on the origin.
//
// Each step's failure is recorded and the next step tried; only exhaustion
// of all three yields a DiscoveryError.
type Resolver struct {
	httpClient *http.Client
	cacheTTL   time.Duration
	now        func() time.Time

	// Metadata cache (origin -> entry) with mutex for thread safety
	mu    sync.RWMutex
	cache map[string]*metadataCacheEntry

	// singleflight group to deduplicate concurrent discovery for the same origin
	group singleflight.Group
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithHTTPClient sets the HTTP client used for discovery requests.
func WithHTTPClient(client *http.Client) ResolverOption {
	return func(r *Resolver) {
		r.httpClient = client
	}
}

// WithCacheTTL sets the metadata cache time-to-live.
func WithCacheTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.cacheTTL = ttl
	}
}

// WithClock sets the time source used for cache expiry.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver creates a metadata resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cacheTTL:   defaultMetadataCacheTTL,
		now:        time.Now,
		cache:      make(map[string]*metadataCacheEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve discovers authorization server metadata for the given MCP server
// URL. Results are cached per origin and concurrent lookups deduplicated.
func (r *Resolver) Resolve(ctx context.Context, serverURL string) (*Metadata, error) {
	origin, err := originOf(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", serverURL, err)
	}

	// Check cache first with read lock
	r.mu.RLock()
	if entry, ok := r.cache[origin]; ok {
		if r.now().Sub(entry.fetchedAt) < r.cacheTTL {
			r.mu.RUnlock()
			return entry.metadata, nil
		}
		logging.Debug("OAuth", "Metadata cache expired for origin=%s, refreshing", origin)
	}
	r.mu.RUnlock()

	// Deduplicate concurrent discovery for the same origin
	result, err, _ := r.group.Do(origin, func() (interface{}, error) {
		// Double-check cache after acquiring the singleflight lock
		r.mu.RLock()
		if entry, ok := r.cache[origin]; ok {
			if r.now().Sub(entry.fetchedAt) < r.cacheTTL {
				r.mu.RUnlock()
				return entry.metadata, nil
			}
		}
		r.mu.RUnlock()

		metadata, err := r.discover(ctx, serverURL, origin)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[origin] = &metadataCacheEntry{
			metadata:  metadata,
			fetchedAt: r.now(),
		}
		r.mu.Unlock()

		return metadata, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*Metadata), nil
}

// discover runs the discovery steps in order and returns the first success.
func (r *Resolver) discover(ctx context.Context, serverURL, origin string) (*Metadata, error) {
	var attempts []string

	// Step 1: follow the server's WWW-Authenticate challenge
	metadata, err := r.discoverViaChallenge(ctx, serverURL)
	if err == nil {
		logging.Debug("OAuth", "Resolved metadata for %s via WWW-Authenticate challenge (issuer=%s)",
			serverURL, metadata.Issuer)
		return metadata, nil
	}
	attempts = append(attempts, fmt.Sprintf("challenge probe: %v", err))

	// Step 2: RFC 8414 well-known on the origin
	metadata, err = r.fetchMetadataDocument(ctx, origin+wellKnownAuthServer)
	if err == nil {
		logging.Debug("OAuth", "Resolved metadata for %s via %s", serverURL, wellKnownAuthServer)
		return metadata, nil
	}
	attempts = append(attempts, fmt.Sprintf("%s: %v", wellKnownAuthServer, err))

	// Step 3: OpenID Connect discovery on the origin
	metadata, err = r.fetchMetadataDocument(ctx, origin+wellKnownOpenID)
	if err == nil {
		logging.Debug("OAuth", "Resolved metadata for %s via %s", serverURL, wellKnownOpenID)
		return metadata, nil
	}
	attempts = append(attempts, fmt.Sprintf("%s: %v", wellKnownOpenID, err))

	return nil, &DiscoveryError{ServerURL: serverURL, Attempts: attempts}
}

// discoverViaChallenge probes the MCP server and follows the resource
// reference in its WWW-Authenticate header to the authorization server.
func (r *Resolver) discoverViaChallenge(ctx context.Context, serverURL string) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", serverURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	header := resp.Header.Get("WWW-Authenticate")
	if header == "" {
		return nil, fmt.Errorf("no WWW-Authenticate header in response (status=%d)", resp.StatusCode)
	}

	challenge, err := ParseWWWAuthenticate(header)
	if err != nil {
		return nil, err
	}
	if challenge.ResourceMetadataURL == "" {
		return nil, fmt.Errorf("WWW-Authenticate header carries no resource reference")
	}

	prm, err := r.fetchProtectedResourceMetadata(ctx, challenge.ResourceMetadataURL)
	if err != nil {
		return nil, fmt.Errorf("fetching protected resource metadata: %w", err)
	}
	if len(prm.AuthorizationServers) == 0 {
		return nil, fmt.Errorf("protected resource metadata lists no authorization servers")
	}

	issuer := prm.AuthorizationServers[0]

	// The issuer advertises its own metadata under the same two well-known
	// paths. Try RFC 8414 first, then OpenID Connect.
	metadata, asErr := r.fetchMetadataDocument(ctx, strings.TrimSuffix(issuer, "/")+wellKnownAuthServer)
	if asErr == nil {
		return metadata, nil
	}
	metadata, oidcErr := r.fetchMetadataDocument(ctx, strings.TrimSuffix(issuer, "/")+wellKnownOpenID)
	if oidcErr == nil {
		return metadata, nil
	}

	return nil, fmt.Errorf("issuer %s metadata unavailable: %v; %v", issuer, asErr, oidcErr)
}

// fetchProtectedResourceMetadata fetches an RFC 9728 document.
func (r *Resolver) fetchProtectedResourceMetadata(ctx context.Context, metadataURL string) (*protectedResourceMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", metadataURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status=%d", resp.StatusCode)
	}

	var prm protectedResourceMetadata
	if err := json.NewDecoder(resp.Body).Decode(&prm); err != nil {
		return nil, fmt.Errorf("malformed document: %w", err)
	}
	return &prm, nil
}

// fetchMetadataDocument fetches and validates one metadata document.
func (r *Resolver) fetchMetadataDocument(ctx context.Context, metadataURL string) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", metadataURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status=%d", resp.StatusCode)
	}

	var metadata Metadata
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return nil, fmt.Errorf("malformed metadata: %w", err)
	}

	if metadata.AuthorizationEndpoint == "" || metadata.TokenEndpoint == "" {
		return nil, fmt.Errorf("metadata missing authorization_endpoint or token_endpoint")
	}

	return &metadata, nil
}

// originOf reduces a URL to its scheme://host origin.
func originOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("missing scheme or host")
	}
	return u.Scheme + "://" + u.Host, nil
}
