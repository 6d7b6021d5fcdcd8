package linkcache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artkeeper/internal/config"
	"artkeeper/internal/models"
)

var testCfg = config.LinkCacheConfig{
	CheckTimeout: 4 * time.Second,
	ValidTTL:     24 * time.Hour,
	InvalidTTL:   time.Hour,
	FailureTTL:   5 * time.Minute,
}

// countingChecker counts outbound checks and can stall until released.
type countingChecker struct {
	calls  atomic.Int64
	status int
	err    error
	gate   chan struct{} // when set, Check blocks until closed
}

func (c *countingChecker) Check(ctx context.Context, rawURL string) (int, error) {
	c.calls.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	return c.status, c.err
}

func newCache(checker Checker) (*Cache, *MemoryStore) {
	store := NewMemoryStore()
	return New(store, checker, testCfg, zerolog.Nop()), store
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://Example.com/a/b.jpg?token=1#frag", "https://example.com/a/b.jpg"},
		{"https://example.com/a/b.jpg", "https://example.com/a/b.jpg"},
		{"  https://example.com/x  ", "https://example.com/x"},
		{"not a url", "not a url"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeURL(tt.in))
	}
}

func TestVerifyCachesVerdict(t *testing.T) {
	checker := &countingChecker{status: http.StatusOK}
	cache, _ := newCache(checker)

	first := cache.Verify(context.Background(), "https://example.com/a.jpg", VerifyOptions{})
	assert.Equal(t, models.LinkValid, first.Validity)

	again := cache.Verify(context.Background(), "https://example.com/a.jpg", VerifyOptions{})
	assert.Equal(t, first, again)
	assert.Equal(t, int64(1), checker.calls.Load(), "cache hit must not reach the network")
}

func TestVerifyQueryStrippedURLsShareEntry(t *testing.T) {
	checker := &countingChecker{status: http.StatusOK}
	cache, _ := newCache(checker)

	cache.Verify(context.Background(), "https://example.com/a.jpg?v=1", VerifyOptions{})
	cache.Verify(context.Background(), "https://example.com/a.jpg?v=2", VerifyOptions{})
	assert.Equal(t, int64(1), checker.calls.Load())
}

// N concurrent verifications of one uncached URL: exactly one outbound
// check, every caller observes the same verdict.
func TestVerifySingleFlight(t *testing.T) {
	checker := &countingChecker{status: http.StatusOK, gate: make(chan struct{})}
	cache, _ := newCache(checker)

	const n = 32
	verdicts := make([]Verdict, n)
	var started, done sync.WaitGroup
	started.Add(n)
	done.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			started.Done()
			verdicts[i] = cache.Verify(context.Background(), "https://example.com/big.jpg", VerifyOptions{})
			done.Done()
		}(i)
	}

	started.Wait()
	time.Sleep(50 * time.Millisecond) // let every goroutine join the flight
	close(checker.gate)
	done.Wait()

	assert.Equal(t, int64(1), checker.calls.Load(), "concurrent checks must coalesce")
	for i := 1; i < n; i++ {
		assert.Equal(t, verdicts[0], verdicts[i])
	}
}

func TestVerifyForceRefresh(t *testing.T) {
	checker := &countingChecker{status: http.StatusOK}
	cache, _ := newCache(checker)

	cache.Verify(context.Background(), "https://example.com/a.jpg", VerifyOptions{})
	require.Equal(t, int64(1), checker.calls.Load())

	// TTL has not elapsed, but force refresh must check again.
	cache.Verify(context.Background(), "https://example.com/a.jpg", VerifyOptions{ForceRefresh: true})
	assert.Equal(t, int64(2), checker.calls.Load())
}

func TestVerifyTransientFailureGetsShortTTL(t *testing.T) {
	checker := &countingChecker{err: errors.New("dial tcp: i/o timeout")}
	store := NewMemoryStore()
	cache := New(store, checker, testCfg, zerolog.Nop())

	v := cache.Verify(context.Background(), "https://slow.example.com/a.jpg", VerifyOptions{})
	assert.Equal(t, models.LinkInvalid, v.Validity)
	assert.Equal(t, http.StatusRequestTimeout, v.StatusCode)

	key := NormalizeURL("https://slow.example.com/a.jpg")
	entry, ok := store.entries[key]
	require.True(t, ok)
	// The entry must expire on the failure TTL, well before InvalidTTL.
	assert.WithinDuration(t, time.Now().Add(testCfg.FailureTTL), entry.expiresAt, time.Minute)
}

func TestVerifyNotFoundIsInvalid(t *testing.T) {
	checker := &countingChecker{status: http.StatusNotFound}
	cache, _ := newCache(checker)

	v := cache.Verify(context.Background(), "https://example.com/gone.jpg", VerifyOptions{})
	assert.Equal(t, models.LinkInvalid, v.Validity)
	assert.Equal(t, http.StatusNotFound, v.StatusCode)
}

func TestExpiredEntryIsAbsent(t *testing.T) {
	store := NewMemoryStore()
	store.Set(context.Background(), "https://example.com/old.jpg", Verdict{Validity: models.LinkValid}, -time.Second)

	_, ok := store.Get(context.Background(), "https://example.com/old.jpg")
	assert.False(t, ok, "an expired entry is absent, not invalid")
}

func TestInvalidateDomain(t *testing.T) {
	checker := &countingChecker{status: http.StatusOK}
	cache, store := newCache(checker)
	ctx := context.Background()

	cache.Verify(ctx, "https://a.example.com/1.jpg", VerifyOptions{})
	cache.Verify(ctx, "https://a.example.com/2.jpg", VerifyOptions{})
	cache.Verify(ctx, "https://b.example.com/3.jpg", VerifyOptions{})
	require.Equal(t, 3, store.Len())

	dropped := cache.InvalidateDomain(ctx, "a.example.com")
	assert.Equal(t, 2, dropped)
	assert.Equal(t, 1, store.Len())

	// The dropped URLs check again, the untouched one stays cached.
	cache.Verify(ctx, "https://a.example.com/1.jpg", VerifyOptions{})
	cache.Verify(ctx, "https://b.example.com/3.jpg", VerifyOptions{})
	assert.Equal(t, int64(4), checker.calls.Load())
}

func TestVerifyMany(t *testing.T) {
	checker := &countingChecker{status: http.StatusOK}
	cache, _ := newCache(checker)

	urls := []string{
		"https://example.com/a.jpg",
		"https://example.com/b.jpg",
		"https://example.com/a.jpg", // duplicate collapses
		"",
	}
	results := cache.VerifyMany(context.Background(), urls, VerifyOptions{})

	assert.Len(t, results, 2)
	assert.Equal(t, int64(2), checker.calls.Load())
	for _, v := range results {
		assert.Equal(t, models.LinkValid, v.Validity)
	}
}

func TestPurgeExpired(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.Set(ctx, "https://example.com/old.jpg", Verdict{}, -time.Second)
	store.Set(ctx, "https://example.com/new.jpg", Verdict{}, time.Hour)

	cache := New(store, &countingChecker{}, testCfg, zerolog.Nop())
	assert.Equal(t, 1, cache.PurgeExpired(ctx))
	assert.Equal(t, 1, store.Len())
}

func TestHTTPCheckerAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := NewHTTPChecker("test-agent", "", 2*time.Second)
	status, err := checker.Check(context.Background(), srv.URL+"/img.jpg")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
}

func TestHTTPCheckerTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	checker := NewHTTPChecker("test-agent", "", 50*time.Millisecond)
	_, err := checker.Check(context.Background(), srv.URL+"/slow.jpg")
	assert.Error(t, err)
}

// A slow host must not stall the rest of the batch: the fast URL settles
// while the slow one is still in flight.
func TestVerifyManyBoundedBySlowHost(t *testing.T) {
	slowGate := make(chan struct{})
	checker := &hostAwareChecker{slowHost: "slow.example.com", gate: slowGate}
	cache, _ := newCache(checker)

	done := make(chan map[string]Verdict, 1)
	go func() {
		done <- cache.VerifyMany(context.Background(), []string{
			"https://slow.example.com/a.jpg",
			"https://fast.example.com/b.jpg",
		}, VerifyOptions{})
	}()

	// The fast check settles promptly even while the slow one hangs.
	require.Eventually(t, func() bool {
		return checker.fastDone.Load()
	}, time.Second, 5*time.Millisecond)

	close(slowGate)
	results := <-done
	assert.Len(t, results, 2)
}

type hostAwareChecker struct {
	slowHost string
	gate     chan struct{}
	fastDone atomic.Bool
}

func (c *hostAwareChecker) Check(ctx context.Context, rawURL string) (int, error) {
	if hostOf(NormalizeURL(rawURL)) == c.slowHost {
		<-c.gate
		return http.StatusOK, nil
	}
	c.fastDone.Store(true)
	return http.StatusOK, nil
}
