package swap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/slotswap/internal/slot"
	"github.com/roach88/slotswap/internal/store"
	"github.com/roach88/slotswap/internal/testutil"
)

var slotStart = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// recordingPublisher captures notices in publish order.
type recordingPublisher struct {
	mu      sync.Mutex
	notices []Notice
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, n Notice) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.notices = append(p.notices, n)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.notices))
	for i, n := range p.notices {
		out[i] = n.Type
	}
	return out
}

// hookStore runs beforeCommit once, just before the next Commit, to inject a
// concurrent writer between the Service's reads and its batch.
type hookStore struct {
	*store.Store
	beforeCommit func()
}

func (h *hookStore) Commit(ctx context.Context, b store.Batch) error {
	if f := h.beforeCommit; f != nil {
		h.beforeCommit = nil
		f()
	}
	return h.Store.Commit(ctx, b)
}

type fixture struct {
	st  *store.Store
	svc *Service
	pub *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "swap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	pub := &recordingPublisher{}
	return &fixture{
		st:  st,
		pub: pub,
		svc: newService(st, pub),
	}
}

func newService(st Store, pub Publisher) *Service {
	return New(st,
		WithClock(testutil.NewStepClock(time.Time{}, time.Second)),
		WithIDGenerator(testutil.NewSequenceIDs("id")),
		WithPublisher(pub),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

// slotFor creates an event owned by owner starting offset after slotStart.
func (f *fixture) slotFor(t *testing.T, owner string, status slot.OwnerStatus, offset time.Duration) slot.Event {
	t.Helper()
	e, err := f.svc.CreateEvent(context.Background(), owner, slot.NewEvent{
		Title:     owner + " slot",
		StartTime: slotStart.Add(offset),
		EndTime:   slotStart.Add(offset + time.Hour),
		Status:    status,
	})
	require.NoError(t, err)
	return e
}

func (f *fixture) event(t *testing.T, id string) slot.Event {
	t.Helper()
	e, err := f.st.GetEvent(context.Background(), id)
	require.NoError(t, err)
	return e
}

func (f *fixture) request(t *testing.T, id string) slot.SwapRequest {
	t.Helper()
	r, err := f.st.GetSwapRequest(context.Background(), id)
	require.NoError(t, err)
	return r
}

func (f *fixture) requireConsistent(t *testing.T) {
	t.Helper()
	report, err := f.svc.Audit(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Violations)
}

var errPublish = errors.New("broker down")
