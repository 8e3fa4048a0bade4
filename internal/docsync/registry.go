package docsync

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

type registryEntry struct {
	sync   *Synchronizer
	cancel context.CancelFunc
	done   chan struct{}
}

// Registry owns one Synchronizer per scope and runs its heartbeat
type Registry struct {
	store DocumentStore
	sink  ActiveSink
	opts  Options

	mu      sync.Mutex
	entries map[string]*registryEntry
	closed  bool
}

func NewRegistry(store DocumentStore, sink ActiveSink, opts Options) *Registry {
	return &Registry{
		store:   store,
		sink:    sink,
		opts:    opts,
		entries: make(map[string]*registryEntry),
	}
}

// Get returns the synchronizer of scope, starting one if needed
func (r *Registry) Get(scope string) *Synchronizer {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[scope]; ok {
		return e.sync
	}

	y := NewSynchronizer(r.store, r.sink, r.opts)
	y.logger = y.logger.With().Str("scope", scope).Logger()
	if r.closed {
		return y
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &registryEntry{sync: y, cancel: cancel, done: make(chan struct{})}
	r.entries[scope] = e
	go func() {
		defer close(e.done)
		y.Run(ctx)
	}()
	return y
}

// Lookup returns the synchronizer of scope without creating one
func (r *Registry) Lookup(scope string) (*Synchronizer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[scope]
	if !ok {
		return nil, false
	}
	return e.sync, true
}

// Open loads document id owned by scope into the synchronizer of scope
func (r *Registry) Open(ctx context.Context, scope, id string) (State, error) {
	return r.Get(scope).Load(ctx, scope, id)
}

// Close stops the synchronizer of scope. Unsaved edits are discarded.
func (r *Registry) Close(ctx context.Context, scope string) error {
	r.mu.Lock()
	e, ok := r.entries[scope]
	delete(r.entries, scope)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return r.stop(ctx, scope, e, false)
}

// Shutdown flushes and stops every synchronizer
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	entries := r.entries
	r.entries = make(map[string]*registryEntry)
	r.mu.Unlock()

	var errs []error
	for scope, e := range entries {
		if err := r.stop(ctx, scope, e, true); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) stop(ctx context.Context, scope string, e *registryEntry, flush bool) error {
	e.cancel()
	<-e.done

	var err error
	if flush {
		if err = e.sync.Heartbeat(ctx); err != nil {
			log.Error().Err(err).Str("scope", scope).Msg("Final flush failed")
		}
	}
	e.sync.Wait()
	e.sync.Close()
	return err
}
