// Package retrieval defines the candidate retrieval capability and a TTL
// cache that keeps repeated imports of the same unit from hammering the
// remote catalog.
package retrieval

import (
	"context"
	"errors"
	"sync"
	"time"

	"platter/internal/metadata"
	"platter/internal/musicbrainz"
	"platter/internal/services"
)

// Source is the candidate retrieval capability. Implementations must be safe
// to call repeatedly and honor context cancellation and timeouts.
type Source interface {
	Search(ctx context.Context, query musicbrainz.Query) ([]*metadata.CandidateRelease, error)
	LookupByID(ctx context.Context, id string) (*metadata.CandidateRelease, error)
	LookupByFingerprint(ctx context.Context, fingerprint string) ([]*metadata.CandidateRelease, error)
}

// CatalogSource adapts the MusicBrainz client to the Source interface.
type CatalogSource struct {
	client *musicbrainz.Client
}

// NewCatalogSource wraps a catalog client.
func NewCatalogSource(client *musicbrainz.Client) *CatalogSource {
	return &CatalogSource{client: client}
}

func (s *CatalogSource) Search(ctx context.Context, query musicbrainz.Query) ([]*metadata.CandidateRelease, error) {
	return s.client.SearchReleases(ctx, query)
}

func (s *CatalogSource) LookupByID(ctx context.Context, id string) (*metadata.CandidateRelease, error) {
	return s.client.LookupRelease(ctx, id)
}

func (s *CatalogSource) LookupByFingerprint(ctx context.Context, fingerprint string) ([]*metadata.CandidateRelease, error) {
	return s.client.LookupByFingerprint(ctx, fingerprint)
}

// Classify maps a retrieval failure onto the service error taxonomy:
// deadline expiry becomes a timeout, everything else a retrieval failure.
// Both are recoverable; the caller proceeds with zero candidates.
func Classify(operation string, err error) error {
	if err == nil {
		return nil
	}
	marker := services.ErrRetrieval
	if errors.Is(err, context.DeadlineExceeded) {
		marker = services.ErrTimeout
	}
	return services.Wrap(marker, "fetch", operation, "remote catalog request failed", err)
}

type cacheEntry struct {
	releases []*metadata.CandidateRelease
	expires  time.Time
}

// CachedSource memoizes Source results for a TTL. Only successful responses
// are cached; failures always retry upstream.
type CachedSource struct {
	upstream Source
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCachedSource wraps upstream with a TTL cache. A non-positive TTL
// disables caching.
func NewCachedSource(upstream Source, ttl time.Duration) *CachedSource {
	return &CachedSource{
		upstream: upstream,
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[string]cacheEntry),
	}
}

func (c *CachedSource) Search(ctx context.Context, query musicbrainz.Query) ([]*metadata.CandidateRelease, error) {
	return c.cached(ctx, "search|"+query.CacheKey(), func(ctx context.Context) ([]*metadata.CandidateRelease, error) {
		return c.upstream.Search(ctx, query)
	})
}

func (c *CachedSource) LookupByID(ctx context.Context, id string) (*metadata.CandidateRelease, error) {
	releases, err := c.cached(ctx, "id|"+id, func(ctx context.Context) ([]*metadata.CandidateRelease, error) {
		release, err := c.upstream.LookupByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if release == nil {
			return nil, nil
		}
		return []*metadata.CandidateRelease{release}, nil
	})
	if err != nil || len(releases) == 0 {
		return nil, err
	}
	return releases[0], nil
}

func (c *CachedSource) LookupByFingerprint(ctx context.Context, fingerprint string) ([]*metadata.CandidateRelease, error) {
	return c.cached(ctx, "fp|"+fingerprint, func(ctx context.Context) ([]*metadata.CandidateRelease, error) {
		return c.upstream.LookupByFingerprint(ctx, fingerprint)
	})
}

func (c *CachedSource) cached(ctx context.Context, key string, fetch func(context.Context) ([]*metadata.CandidateRelease, error)) ([]*metadata.CandidateRelease, error) {
	if c.ttl <= 0 {
		return fetch(ctx)
	}

	c.mu.Lock()
	entry, found := c.entries[key]
	c.mu.Unlock()
	if found && c.now().Before(entry.expires) {
		return entry.releases, nil
	}

	releases, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{releases: releases, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return releases, nil
}
