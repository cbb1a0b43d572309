package swap

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/slotswap/internal/slot"
	"github.com/roach88/slotswap/internal/store"
)

// Store is the persistence the Service needs. *store.Store implements it.
type Store interface {
	GetEvent(ctx context.Context, id string) (slot.Event, error)
	GetSwapRequest(ctx context.Context, id string) (slot.SwapRequest, error)
	LockHolder(ctx context.Context, eventID string) (string, bool, error)
	ListEvents(ctx context.Context, f store.EventFilter) ([]slot.Event, error)
	ListRequests(ctx context.Context, f store.RequestFilter) ([]slot.RequestDetail, error)
	Snapshot(ctx context.Context) (store.Snapshot, error)
	ReadJournal(ctx context.Context, afterSeq int64, limit int) ([]store.JournalEntry, error)
	Commit(ctx context.Context, b store.Batch) error
}

// Service is the swap coordinator. It is safe for concurrent use: it holds
// no mutable state, and every mutation is a single conditional store batch.
type Service struct {
	store     Store
	clock     Clock
	ids       IDGenerator
	publisher Publisher
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the timestamp source. Default: SystemClock.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithIDGenerator sets the record id source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Service) { s.ids = g }
}

// WithPublisher sets where swap notices go. Default: none.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service over st.
func New(st Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		clock:  SystemClock{},
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func requireCaller(callerID string) error {
	if callerID == "" {
		return slot.ErrUnauthenticated
	}
	return nil
}

// getEvent loads an event, mapping a missing row to slot.ErrNotFound.
func (s *Service) getEvent(ctx context.Context, id string) (slot.Event, error) {
	e, err := s.store.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return slot.Event{}, slot.WithMetadata(slot.CodeNotFound, "event not found", map[string]string{"eventId": id})
		}
		return slot.Event{}, slot.Wrap(slot.CodeInternal, "load event", err)
	}
	return e, nil
}

// findEvent loads an event that may legitimately be gone. Returns nil when it is.
func (s *Service) findEvent(ctx context.Context, id string) (*slot.Event, error) {
	e, err := s.store.GetEvent(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, slot.Wrap(slot.CodeInternal, "load event", err)
	}
	return &e, nil
}

func (s *Service) getRequest(ctx context.Context, id string) (slot.SwapRequest, error) {
	r, err := s.store.GetSwapRequest(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return slot.SwapRequest{}, slot.WithMetadata(slot.CodeNotFound, "swap request not found", map[string]string{"requestId": id})
		}
		return slot.SwapRequest{}, slot.Wrap(slot.CodeInternal, "load swap request", err)
	}
	return r, nil
}

// commit submits b and translates store failures into domain errors.
// A lost precondition is a Conflict; anything else is Internal.
func (s *Service) commit(ctx context.Context, b store.Batch) error {
	err := s.store.Commit(ctx, b)
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrPreconditionFailed) {
		return slot.Wrap(slot.CodeConflict, "records changed concurrently", err)
	}
	return slot.Wrap(slot.CodeInternal, "commit", err)
}

// rejected logs a refused operation at Debug and returns err unchanged.
func (s *Service) rejected(op, callerID string, err error) error {
	s.logger.Debug("operation rejected",
		"op", op,
		"caller", callerID,
		"code", slot.CodeOf(err),
		"error", err,
	)
	return err
}

func (s *Service) publish(ctx context.Context, n Notice) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, n); err != nil {
		s.logger.Warn("notice not published",
			"type", n.Type,
			"request", n.RequestID,
			"error", err,
		)
	}
}
