// Package linkcache validates externally sourced artwork URLs and caches
// the verdicts. Concurrent requests for the same not-yet-resolved URL are
// coalesced into a single outbound check; every waiter sees the one
// settled verdict.
package linkcache

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"artkeeper/internal/config"
	"artkeeper/internal/models"
)

// verifyConcurrency bounds batch fan-out so a large candidate batch does
// not open an unbounded number of sockets.
const verifyConcurrency = 8

// VerifyOptions tune one verification request.
type VerifyOptions struct {
	CID          string // recorded alongside the verdict when set
	ForceRefresh bool   // drop any settled entry before checking
}

// Cache is the link verification cache.
type Cache struct {
	store   VerdictStore
	checker Checker
	cfg     config.LinkCacheConfig
	flight  singleflight.Group
	log     zerolog.Logger
}

func New(store VerdictStore, checker Checker, cfg config.LinkCacheConfig, log zerolog.Logger) *Cache {
	return &Cache{
		store:   store,
		checker: checker,
		cfg:     cfg,
		log:     log,
	}
}

// NormalizeURL produces the cache key: scheme + host + path, query and
// fragment stripped. Unparseable URLs key on their raw string.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(rawURL)
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String()
}

// Verify returns the verdict for rawURL, from cache when fresh,
// otherwise via a coalesced outbound check.
func (c *Cache) Verify(ctx context.Context, rawURL string, opts VerifyOptions) Verdict {
	key := NormalizeURL(rawURL)

	if opts.ForceRefresh {
		c.store.Delete(ctx, key)
	} else if v, ok := c.store.Get(ctx, key); ok {
		return v
	}

	v, err := c.coalesced(key, rawURL, opts.CID)
	if err == nil {
		return v
	}

	// The single-flight layer itself failed. Fall back to a direct,
	// uncoalesced check instead of blocking the caller.
	c.log.Error().Err(err).Str("url", rawURL).Msg("link check coalescing failed, checking directly")
	return c.resolve(key, rawURL, opts.CID)
}

// VerifyMany verifies a batch concurrently and returns a verdict per
// input URL. One slow host only delays its own entry: every check
// carries its own timeout.
func (c *Cache) VerifyMany(ctx context.Context, rawURLs []string, opts VerifyOptions) map[string]Verdict {
	results := make(map[string]Verdict, len(rawURLs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(verifyConcurrency)

	seen := make(map[string]bool, len(rawURLs))
	for _, raw := range rawURLs {
		if raw == "" || seen[raw] {
			continue
		}
		seen[raw] = true
		raw := raw
		g.Go(func() error {
			v := c.Verify(ctx, raw, opts)
			mu.Lock()
			results[raw] = v
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Invalidate drops the settled entry for one URL.
func (c *Cache) Invalidate(ctx context.Context, rawURL string) {
	c.store.Delete(ctx, NormalizeURL(rawURL))
}

// InvalidateDomain drops every settled entry for host. In-flight checks
// for that host are left to complete; their verdicts land after the
// purge, which is exactly what the next caller wants.
func (c *Cache) InvalidateDomain(ctx context.Context, host string) int {
	return c.store.DeleteDomain(ctx, strings.ToLower(strings.TrimSpace(host)))
}

// PurgeExpired sweeps entries past their TTL.
func (c *Cache) PurgeExpired(ctx context.Context) int {
	return c.store.PurgeExpired(ctx)
}

func (c *Cache) coalesced(key, rawURL, cid string) (v Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("single-flight panic for %s: %v", key, r)
		}
	}()

	res, err, _ := c.flight.Do(key, func() (any, error) {
		return c.resolve(key, rawURL, cid), nil
	})
	if err != nil {
		return Verdict{}, err
	}
	verdict, ok := res.(Verdict)
	if !ok {
		return Verdict{}, fmt.Errorf("single-flight returned %T for %s", res, key)
	}
	return verdict, nil
}

// resolve performs the outbound check and stores the verdict. It runs on
// a context detached from any caller: an aborted request must not cancel
// a check whose result is useful to the next one.
func (c *Cache) resolve(key, rawURL, cid string) Verdict {
	ctx := context.Background()
	status, err := c.checker.Check(ctx, rawURL)

	v := Verdict{StatusCode: status, CID: cid, CheckedAt: time.Now()}
	ttl := c.cfg.InvalidTTL

	switch {
	case err != nil:
		// Transient network trouble: record Invalid with a short TTL
		// so a merely-slow upstream does not poison the cache.
		v.Validity = models.LinkInvalid
		v.StatusCode = http.StatusRequestTimeout
		ttl = c.cfg.FailureTTL
		c.log.Debug().Err(err).Str("url", rawURL).Msg("link check failed")
	case status >= 200 && status < 400:
		v.Validity = models.LinkValid
		ttl = c.cfg.ValidTTL
	default:
		v.Validity = models.LinkInvalid
	}

	c.store.Set(ctx, key, v, ttl)
	return v
}
