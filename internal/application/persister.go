package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/notekeeper/internal/domain/model"
	"github.com/ericfisherdev/notekeeper/internal/domain/port/driven"
)

// PersistMode selects how a Workspace writes its list after a mutation.
type PersistMode int

const (
	// PersistSync saves inside the mutation, as suits local storage.
	PersistSync PersistMode = iota
	// PersistQueued hands the snapshot to a per-workspace writer goroutine.
	// Writes land in mutation order; a pending snapshot is replaced by a newer one.
	PersistQueued
	// PersistStrict saves inside the mutation and returns the save error to
	// the caller instead of logging it. Used by one-shot commands.
	PersistStrict
)

// String returns the mode name used in logs.
func (m PersistMode) String() string {
	switch m {
	case PersistQueued:
		return "queued"
	case PersistStrict:
		return "strict"
	default:
		return "sync"
	}
}

// defaultSaveTimeout bounds a single queued save.
const defaultSaveTimeout = 30 * time.Second

// persister writes note list snapshots. Failures are never retried; only the
// strict persister reports them, the others log and return nil.
type persister interface {
	persist(ctx context.Context, notes []model.Note) error
	flush(ctx context.Context) error
	close()
}

func newPersister(mode PersistMode, store driven.NoteListStore, userID string, logger *slog.Logger) persister {
	switch mode {
	case PersistQueued:
		return newQueuedPersister(store, userID, defaultSaveTimeout, logger)
	case PersistStrict:
		return &syncPersister{store: store, userID: userID, strict: true, logger: logger}
	default:
		return &syncPersister{store: store, userID: userID, logger: logger}
	}
}

type syncPersister struct {
	store  driven.NoteListStore
	userID string
	strict bool
	logger *slog.Logger
}

func (p *syncPersister) persist(ctx context.Context, notes []model.Note) error {
	if err := p.store.Save(ctx, p.userID, notes); err != nil {
		if p.strict {
			return fmt.Errorf("save notes: %w", err)
		}
		p.logger.Error("error writing notes", "user_id", p.userID, "error", err)
		return nil
	}
	p.logger.Debug("notes saved", "user_id", p.userID, "count", len(notes))
	return nil
}

func (p *syncPersister) flush(context.Context) error { return nil }

func (p *syncPersister) close() {}

// queuedPersister owns one writer goroutine. The queue holds at most one
// snapshot; persist replaces an unsent snapshot with the newer one.
type queuedPersister struct {
	store   driven.NoteListStore
	userID  string
	timeout time.Duration
	logger  *slog.Logger

	queue     chan []model.Note
	closeOnce sync.Once

	mu       sync.Mutex
	inflight int
	idle     chan struct{}
}

func newQueuedPersister(store driven.NoteListStore, userID string, timeout time.Duration, logger *slog.Logger) *queuedPersister {
	idle := make(chan struct{})
	close(idle)

	p := &queuedPersister{
		store:   store,
		userID:  userID,
		timeout: timeout,
		logger:  logger,
		queue:   make(chan []model.Note, 1),
		idle:    idle,
	}
	go p.run()
	return p
}

// persist must not be called concurrently or after close; Workspace holds its
// lock around every call.
func (p *queuedPersister) persist(_ context.Context, notes []model.Note) error {
	p.begin()
	for {
		select {
		case p.queue <- notes:
			return nil
		default:
		}

		select {
		case <-p.queue:
			p.logger.Debug("superseded pending note snapshot", "user_id", p.userID)
			p.end()
		default:
		}
	}
}

func (p *queuedPersister) run() {
	for notes := range p.queue {
		p.save(notes)
		p.end()
	}
}

func (p *queuedPersister) save(notes []model.Note) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.store.Save(ctx, p.userID, notes); err != nil {
		p.logger.Error("error writing notes", "user_id", p.userID, "error", err)
		return
	}
	p.logger.Debug("notes saved", "user_id", p.userID, "count", len(notes))
}

func (p *queuedPersister) begin() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inflight == 0 {
		p.idle = make(chan struct{})
	}
	p.inflight++
}

func (p *queuedPersister) end() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inflight--
	if p.inflight == 0 {
		close(p.idle)
	}
}

// flush waits until every accepted snapshot has been written or dropped.
func (p *queuedPersister) flush(ctx context.Context) error {
	p.mu.Lock()
	idle := p.idle
	p.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *queuedPersister) close() {
	p.closeOnce.Do(func() { close(p.queue) })
}
