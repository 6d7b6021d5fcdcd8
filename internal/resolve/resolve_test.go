package resolve

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artkeeper/internal/catalog"
	"artkeeper/internal/linkcache"
	"artkeeper/internal/models"
)

type fakeLookup struct {
	records []models.CandidateRecord
	err     error
	gate    chan struct{} // when set, LookupCandidates blocks until closed
	calls   atomic.Int64
	byCID   atomic.Int64
}

func (f *fakeLookup) LookupCandidates(ctx context.Context, code string) ([]models.CandidateRecord, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return f.records, f.err
}

func (f *fakeLookup) LookupByCID(cid string) ([]models.CandidateRecord, error) {
	f.byCID.Add(1)
	return f.records, f.err
}

type fakeVerifier struct {
	validity models.LinkValidity
	checks   atomic.Int64
}

func (f *fakeVerifier) Verify(ctx context.Context, rawURL string, opts linkcache.VerifyOptions) linkcache.Verdict {
	f.checks.Add(1)
	return linkcache.Verdict{
		Validity:   f.validity,
		StatusCode: http.StatusOK,
		CheckedAt:  time.Now(),
	}
}

func record(cid string) models.CandidateRecord {
	return models.CandidateRecord{
		CID:       cid,
		Wallpaper: models.CandidateURL{URL: "https://img.example.com/" + cid + "pl.jpg", Validity: models.LinkUnknown},
		Cover:     models.CandidateURL{URL: "https://img.example.com/" + cid + "ps.jpg", Validity: models.LinkUnknown},
	}
}

func waitFor(t *testing.T, o *Orchestrator, id string, want State) Snapshot {
	t.Helper()
	var snap Snapshot
	require.Eventually(t, func() bool {
		s, ok := o.State(id)
		if !ok {
			return false
		}
		snap = s
		return s.State == want
	}, 2*time.Second, 5*time.Millisecond)
	return snap
}

func TestResolutionReady(t *testing.T) {
	lookup := &fakeLookup{records: []models.CandidateRecord{record("abc00123")}}
	verifier := &fakeVerifier{validity: models.LinkValid}
	o := NewOrchestrator(lookup, verifier, zerolog.Nop())

	id := o.Start(context.Background(), Request{Code: "ABC-123"})
	snap := waitFor(t, o, id, StateReady)

	require.Len(t, snap.Candidates, 1)
	assert.Equal(t, models.LinkValid, snap.Candidates[0].Wallpaper.Validity)
	assert.Equal(t, models.LinkValid, snap.Candidates[0].Cover.Validity)
	assert.Equal(t, int64(2), verifier.checks.Load(), "both URLs verified")
	assert.False(t, snap.SettledAt.IsZero())
}

// Verification failures are UI state, not orchestration failures.
func TestResolutionReadyWhenAllInvalid(t *testing.T) {
	lookup := &fakeLookup{records: []models.CandidateRecord{record("abc00123")}}
	verifier := &fakeVerifier{validity: models.LinkInvalid}
	o := NewOrchestrator(lookup, verifier, zerolog.Nop())

	id := o.Start(context.Background(), Request{Code: "ABC-123"})
	snap := waitFor(t, o, id, StateReady)
	assert.Equal(t, models.LinkInvalid, snap.Candidates[0].Wallpaper.Validity)
}

func TestResolutionFailedOnLookupError(t *testing.T) {
	lookup := &fakeLookup{err: &catalog.LookupError{Code: "ABC-123", Reason: "search page returned 502"}}
	o := NewOrchestrator(lookup, &fakeVerifier{}, zerolog.Nop())

	id := o.Start(context.Background(), Request{Code: "ABC-123"})
	snap := waitFor(t, o, id, StateFailed)
	assert.Contains(t, snap.Reason, "502", "upstream reason surfaces verbatim")
}

func TestResolutionFailedOnZeroCandidates(t *testing.T) {
	lookup := &fakeLookup{records: nil}
	o := NewOrchestrator(lookup, &fakeVerifier{}, zerolog.Nop())

	id := o.Start(context.Background(), Request{Code: "ABC-123"})
	snap := waitFor(t, o, id, StateFailed)
	assert.Equal(t, "no candidates found", snap.Reason)
}

func TestManualCIDBypassesLookup(t *testing.T) {
	lookup := &fakeLookup{records: []models.CandidateRecord{record("xyz00042")}}
	verifier := &fakeVerifier{validity: models.LinkValid}
	o := NewOrchestrator(lookup, verifier, zerolog.Nop())

	id := o.Start(context.Background(), Request{CID: "xyz00042"})
	waitFor(t, o, id, StateReady)

	assert.Equal(t, int64(0), lookup.calls.Load())
	assert.Equal(t, int64(1), lookup.byCID.Load())
}

// An aborted caller's results are not surfaced, but the verifications
// still ran and (through the real cache) would have been stored.
func TestAbortedRequestNotSurfaced(t *testing.T) {
	gate := make(chan struct{})
	lookup := &fakeLookup{records: []models.CandidateRecord{record("abc00123")}, gate: gate}
	verifier := &fakeVerifier{validity: models.LinkValid}
	o := NewOrchestrator(lookup, verifier, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	id := o.Start(ctx, Request{Code: "ABC-123"})
	cancel()      // caller goes away while the lookup is in flight
	close(gate)   // now let the resolution proceed to completion

	require.Eventually(t, func() bool {
		return verifier.checks.Load() == 2
	}, 2*time.Second, 5*time.Millisecond, "verifications complete despite the abort")

	assert.Eventually(t, func() bool {
		_, ok := o.State(id)
		return !ok
	}, 2*time.Second, 5*time.Millisecond, "aborted snapshot must not be surfaced")
}

func TestUnknownRequestID(t *testing.T) {
	o := NewOrchestrator(&fakeLookup{}, &fakeVerifier{}, zerolog.Nop())
	_, ok := o.State("nope")
	assert.False(t, ok)
}
