package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"platter/internal/metadata"
)

// Query carries the free-text search terms for candidate retrieval.
type Query struct {
	Artist     string
	Album      string
	TrackCount int
}

// CacheKey returns a stable string representation for caching.
func (q Query) CacheKey() string {
	var builder strings.Builder
	builder.WriteString("a=")
	builder.WriteString(strings.ToLower(strings.TrimSpace(q.Artist)))
	builder.WriteString("|r=")
	builder.WriteString(strings.ToLower(strings.TrimSpace(q.Album)))
	builder.WriteString("|t=")
	builder.WriteString(strconv.Itoa(q.TrackCount))
	return builder.String()
}

// Client provides access to a MusicBrainz-compatible catalog.
type Client struct {
	baseURL    string
	userAgent  string
	limit      int
	httpClient *http.Client

	// MusicBrainz enforces one request per second per client; requests are
	// spaced out accordingly.
	rateMu    sync.Mutex
	rateDelay time.Duration
	lastCall  time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRateLimit sets the minimum spacing between requests. Zero disables
// spacing, which tests rely on.
func WithRateLimit(delay time.Duration) Option {
	return func(c *Client) {
		c.rateDelay = delay
	}
}

// WithLimit caps the number of releases a search returns.
func WithLimit(limit int) Option {
	return func(c *Client) {
		if limit > 0 {
			c.limit = limit
		}
	}
}

// New creates a catalog client.
func New(baseURL, userAgent string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("musicbrainz base url required")
	}
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return nil, errors.New("musicbrainz user agent required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		limit:      5,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		rateDelay:  time.Second,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SearchReleases performs a free-text release search.
func (c *Client) SearchReleases(ctx context.Context, query Query) ([]*metadata.CandidateRelease, error) {
	terms := buildLuceneQuery(query)
	if terms == "" {
		return nil, errors.New("query must not be empty")
	}
	endpoint, err := url.Parse(c.baseURL + "/release")
	if err != nil {
		return nil, fmt.Errorf("parse musicbrainz url: %w", err)
	}
	params := url.Values{}
	params.Set("query", terms)
	params.Set("fmt", "json")
	params.Set("limit", strconv.Itoa(c.limit))
	params.Set("inc", "recordings+artist-credits+labels+release-groups+media")
	endpoint.RawQuery = params.Encode()

	var payload searchResponse
	if err := c.get(ctx, endpoint.String(), &payload); err != nil {
		return nil, fmt.Errorf("release search: %w", err)
	}

	candidates := make([]*metadata.CandidateRelease, 0, len(payload.Releases))
	for _, release := range payload.Releases {
		candidates = append(candidates, release.toCandidate())
	}
	return candidates, nil
}

// LookupRelease fetches one release by catalog identifier. A missing release
// returns (nil, nil).
func (c *Client) LookupRelease(ctx context.Context, id string) (*metadata.CandidateRelease, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("release id must not be empty")
	}
	endpoint, err := url.Parse(c.baseURL + "/release/" + url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("parse musicbrainz url: %w", err)
	}
	params := url.Values{}
	params.Set("fmt", "json")
	params.Set("inc", "recordings+artist-credits+labels+release-groups+media")
	endpoint.RawQuery = params.Encode()

	var payload releasePayload
	if err := c.get(ctx, endpoint.String(), &payload); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("release lookup: %w", err)
	}
	return payload.toCandidate(), nil
}

// LookupByFingerprint resolves an acoustic fingerprint to candidate releases.
func (c *Client) LookupByFingerprint(ctx context.Context, fingerprint string) ([]*metadata.CandidateRelease, error) {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return nil, errors.New("fingerprint must not be empty")
	}
	endpoint, err := url.Parse(c.baseURL + "/fingerprint")
	if err != nil {
		return nil, fmt.Errorf("parse musicbrainz url: %w", err)
	}
	params := url.Values{}
	params.Set("fingerprint", fingerprint)
	params.Set("fmt", "json")
	params.Set("limit", strconv.Itoa(c.limit))
	endpoint.RawQuery = params.Encode()

	var payload searchResponse
	if err := c.get(ctx, endpoint.String(), &payload); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fingerprint lookup: %w", err)
	}

	candidates := make([]*metadata.CandidateRelease, 0, len(payload.Releases))
	for _, release := range payload.Releases {
		candidates = append(candidates, release.toCandidate())
	}
	return candidates, nil
}

var errNotFound = errors.New("not found")

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	c.waitRate(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return errNotFound
	default:
		return fmt.Errorf("catalog returned %d (latency=%v)", resp.StatusCode, latency)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}

func (c *Client) waitRate(ctx context.Context) {
	if c.rateDelay <= 0 {
		return
	}
	c.rateMu.Lock()
	defer c.rateMu.Unlock()

	wait := c.rateDelay - time.Since(c.lastCall)
	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
		}
	}
	c.lastCall = time.Now()
}

func buildLuceneQuery(query Query) string {
	var parts []string
	if artist := strings.TrimSpace(query.Artist); artist != "" {
		parts = append(parts, fmt.Sprintf("artist:%q", artist))
	}
	if album := strings.TrimSpace(query.Album); album != "" {
		parts = append(parts, fmt.Sprintf("release:%q", album))
	}
	if query.TrackCount > 0 {
		parts = append(parts, "tracks:"+strconv.Itoa(query.TrackCount))
	}
	return strings.Join(parts, " AND ")
}
