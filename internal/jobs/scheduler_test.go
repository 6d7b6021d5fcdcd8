package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurger struct{ purged int }

func (p *fakePurger) PurgeExpired(context.Context) int {
	p.purged++
	return 3
}

type fakeTrimmer struct {
	keep int
	err  error
}

func (t *fakeTrimmer) Trim(_ context.Context, keep int) (int, error) {
	t.keep = keep
	return 2, t.err
}

func TestScheduledJobsRunCollaborators(t *testing.T) {
	purger := &fakePurger{}
	trimmer := &fakeTrimmer{}
	s := NewScheduler(purger, trimmer, 24, zerolog.Nop())

	s.purgeVerdicts()
	s.trimCovers()

	assert.Equal(t, 1, purger.purged)
	assert.Equal(t, 24, trimmer.keep)
}

func TestTrimErrorDoesNotPanic(t *testing.T) {
	trimmer := &fakeTrimmer{err: errors.New("bucket gone")}
	s := NewScheduler(nil, trimmer, 24, zerolog.Nop())

	require.NotPanics(t, func() { s.trimCovers() })
}

func TestStartWithNilCollaborators(t *testing.T) {
	s := NewScheduler(nil, nil, 24, zerolog.Nop())
	require.NoError(t, s.Start())
	cancel := s.Stop()
	cancel()
}
