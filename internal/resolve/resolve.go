// Package resolve drives candidate resolution: look up candidate URLs
// for a title code, verify them through the link cache, and expose the
// request's progress for polling.
package resolve

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
	"golang.org/x/sync/errgroup"

	"artkeeper/internal/linkcache"
	"artkeeper/internal/models"
)

// State is the per-request resolution phase.
type State string

const (
	StateIdle      State = "idle"
	StateQuerying  State = "querying"
	StateVerifying State = "verifying"
	StateReady     State = "ready"
	StateFailed    State = "failed"
)

// Lookup is the external catalog collaborator.
type Lookup interface {
	LookupCandidates(ctx context.Context, code string) ([]models.CandidateRecord, error)
	LookupByCID(cid string) ([]models.CandidateRecord, error)
}

// Verifier is the slice of the link cache the orchestrator needs.
type Verifier interface {
	Verify(ctx context.Context, rawURL string, opts linkcache.VerifyOptions) linkcache.Verdict
}

// Request starts one resolution. Exactly one of Code or CID is set; a
// manual CID bypasses the catalog scrape but follows the same path.
type Request struct {
	Code         string
	CID          string
	ForceRefresh bool
}

// Snapshot is the polled view of one request.
type Snapshot struct {
	ID         string                   `json:"id"`
	State      State                    `json:"state"`
	Candidates []models.CandidateRecord `json:"candidates"`
	Reason     string                   `json:"reason,omitempty"`
	StartedAt  time.Time                `json:"startedAt"`
	SettledAt  time.Time                `json:"settledAt,omitempty"`
}

type requestEntry struct {
	snapshot Snapshot
	aborted  bool
}

// Orchestrator runs resolutions and keeps their snapshots until they are
// read or expire.
type Orchestrator struct {
	lookup   Lookup
	verifier Verifier
	log      zerolog.Logger

	mu       sync.RWMutex
	requests map[string]*requestEntry

	retention time.Duration
}

func NewOrchestrator(lookup Lookup, verifier Verifier, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		lookup:    lookup,
		verifier:  verifier,
		log:       log,
		requests:  make(map[string]*requestEntry),
		retention: 10 * time.Minute,
	}
}

// Start begins a resolution and returns its polling id. The work runs in
// the background; cancellation of ctx stops results from being surfaced
// but in-flight verifications complete and populate the cache.
func (o *Orchestrator) Start(ctx context.Context, req Request) string {
	id := ksuid.New().String()

	o.mu.Lock()
	o.requests[id] = &requestEntry{snapshot: Snapshot{
		ID:        id,
		State:     StateIdle,
		StartedAt: time.Now(),
	}}
	o.mu.Unlock()

	go o.run(ctx, id, req)
	return id
}

// State returns the current snapshot of a request.
func (o *Orchestrator) State(id string) (Snapshot, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	entry, ok := o.requests[id]
	if !ok || entry.aborted {
		return Snapshot{}, false
	}
	return entry.snapshot, true
}

func (o *Orchestrator) run(ctx context.Context, id string, req Request) {
	o.transition(id, func(s *Snapshot) { s.State = StateQuerying })

	var (
		records []models.CandidateRecord
		err     error
	)
	if req.CID != "" {
		records, err = o.lookup.LookupByCID(req.CID)
	} else {
		records, err = o.lookup.LookupCandidates(ctx, req.Code)
	}

	if err != nil {
		o.log.Warn().Err(err).Str("code", req.Code).Str("request_id", id).Msg("candidate lookup failed")
		o.settle(ctx, id, func(s *Snapshot) {
			s.State = StateFailed
			s.Reason = err.Error()
		})
		return
	}
	if len(records) == 0 {
		o.settle(ctx, id, func(s *Snapshot) {
			s.State = StateFailed
			s.Reason = "no candidates found"
		})
		return
	}

	o.transition(id, func(s *Snapshot) { s.State = StateVerifying })

	// Verification runs detached from the caller on purpose: the link
	// cache keeps whatever settles, even if the caller went away.
	g := new(errgroup.Group)
	for i := range records {
		rec := &records[i]
		opts := linkcache.VerifyOptions{CID: rec.CID, ForceRefresh: req.ForceRefresh}
		for _, cu := range []*models.CandidateURL{&rec.Wallpaper, &rec.Cover} {
			cu := cu
			g.Go(func() error {
				v := o.verifier.Verify(context.Background(), cu.URL, opts)
				cu.Validity = v.Validity
				cu.StatusCode = v.StatusCode
				cu.LastCheckedAt = v.CheckedAt
				return nil
			})
		}
	}
	_ = g.Wait()

	// Verification outcomes are UI state, not failures: the request is
	// Ready once every check settled, valid or not.
	o.settle(ctx, id, func(s *Snapshot) {
		s.State = StateReady
		s.Candidates = records
	})
}

func (o *Orchestrator) transition(id string, mutate func(*Snapshot)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if entry, ok := o.requests[id]; ok {
		mutate(&entry.snapshot)
	}
}

func (o *Orchestrator) settle(ctx context.Context, id string, mutate func(*Snapshot)) {
	aborted := ctx.Err() != nil

	o.mu.Lock()
	if entry, ok := o.requests[id]; ok {
		mutate(&entry.snapshot)
		entry.snapshot.SettledAt = time.Now()
		entry.aborted = aborted
	}
	o.mu.Unlock()

	if aborted {
		o.log.Debug().Str("request_id", id).Msg("resolution settled after caller abort; result not surfaced")
	}

	time.AfterFunc(o.retention, func() {
		o.mu.Lock()
		delete(o.requests, id)
		o.mu.Unlock()
	})
}
