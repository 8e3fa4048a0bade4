// Package docsync keeps the editing buffer of the open document in step with
// the remote document store.
//
// A Synchronizer owns at most one open document. Keystrokes only touch the
// in-memory buffer; a periodic heartbeat and explicit saves push the buffer
// to the store through a single-flight write queue.
package docsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/genpad/internal/retry"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoDocument      = errors.New("no document is open")
	ErrDocumentChanged = errors.New("active document changed")
)

const (
	DefaultHeartbeat    = 3 * time.Second
	DefaultWriteTimeout = 10 * time.Second
)

// Document is the persisted form of an editable document
type Document struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner,omitempty"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentStore is the remote store documents are loaded from and saved to
type DocumentStore interface {
	Get(ctx context.Context, owner, id string) (Document, error)
	UpdateCode(ctx context.Context, owner, id, code string) error
}

// ActiveSink receives the code of the active document after every
// successful write. It is called with the synchronizer locked and must not
// call back into it.
type ActiveSink interface {
	SetActiveCode(docID, code string)
}

// Options tune a Synchronizer. Zero values fall back to defaults.
type Options struct {
	Heartbeat    time.Duration
	WriteTimeout time.Duration
	Retry        *retry.RetryConfig
}

// State is a snapshot of the open document's buffers
type State struct {
	DocumentID        string      `json:"document_id,omitempty"`
	Mode              ContentMode `json:"mode,omitempty"`
	CurrentText       string      `json:"current_text"`
	LastPersistedText string      `json:"last_persisted_text"`
	Dirty             bool        `json:"dirty"`
	Saving            bool        `json:"saving"`
	Generation        uint64      `json:"generation"`
}

type flight struct {
	done chan struct{}
	err  error
}

func newFlight() *flight {
	return &flight{done: make(chan struct{})}
}

type pendingWrite struct {
	explicit bool
	text     string
	flight   *flight
}

type session struct {
	docID     string
	owner     string
	gen       uint64
	mode      ContentMode
	current   string
	persisted string
	revision  uint64

	inflight *flight
	pending  *pendingWrite
}

func (s *session) dirty() bool {
	return s.current != s.persisted
}

// Synchronizer tracks the open document of one scope
type Synchronizer struct {
	store  DocumentStore
	sink   ActiveSink
	opts   Options
	logger zerolog.Logger

	mu      sync.Mutex
	session *session
	gen     uint64
	writes  sync.WaitGroup
}

// NewSynchronizer creates a synchronizer with no document open. sink may be nil.
func NewSynchronizer(store DocumentStore, sink ActiveSink, opts Options) *Synchronizer {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = DefaultHeartbeat
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.Retry == nil {
		cfg := retry.PersistRetryConfig()
		opts.Retry = &cfg
	}
	return &Synchronizer{
		store:  store,
		sink:   sink,
		opts:   opts,
		logger: log.With().Str("component", "docsync").Logger(),
	}
}

// Load fetches id of owner from the store and opens it
func (y *Synchronizer) Load(ctx context.Context, owner, id string) (State, error) {
	doc, err := y.store.Get(ctx, owner, id)
	if err != nil {
		return State{}, fmt.Errorf("load document %s: %w", id, err)
	}
	return y.Open(doc), nil
}

// Open switches to doc. Both buffers take the stored code and any result
// of a write still running for the previous document is discarded.
func (y *Synchronizer) Open(doc Document) State {
	y.mu.Lock()
	defer y.mu.Unlock()

	y.gen++
	y.session = &session{
		docID:     doc.ID,
		owner:     doc.Owner,
		gen:       y.gen,
		mode:      DetectMode(doc.Code),
		current:   doc.Code,
		persisted: doc.Code,
	}
	y.logger.Debug().
		Str("document_id", doc.ID).
		Str("mode", string(y.session.mode)).
		Uint64("generation", y.gen).
		Msg("Document opened")
	return y.stateLocked()
}

// Close switches to "no document". Nothing is persisted.
func (y *Synchronizer) Close() {
	y.mu.Lock()
	defer y.mu.Unlock()
	y.gen++
	y.session = nil
}

// Edit replaces the working buffer of docID
func (y *Synchronizer) Edit(docID, text string) error {
	y.mu.Lock()
	defer y.mu.Unlock()
	if err := y.checkActiveLocked(docID); err != nil {
		return err
	}
	y.session.current = text
	y.session.revision++
	return nil
}

// ApplyGenerated writes generated code into the buffer if docID is still open
func (y *Synchronizer) ApplyGenerated(docID, text string) error {
	y.mu.Lock()
	defer y.mu.Unlock()
	if y.session == nil || y.session.docID != docID {
		y.logger.Debug().Str("document_id", docID).Msg("Dropping generated code for inactive document")
		return ErrDocumentChanged
	}
	y.session.current = text
	y.session.revision++
	return nil
}

// State returns a snapshot of the buffers
func (y *Synchronizer) State() State {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.stateLocked()
}

func (y *Synchronizer) stateLocked() State {
	s := y.session
	if s == nil {
		return State{Generation: y.gen}
	}
	return State{
		DocumentID:        s.docID,
		Mode:              s.mode,
		CurrentText:       s.current,
		LastPersistedText: s.persisted,
		Dirty:             s.dirty(),
		Saving:            s.inflight != nil,
		Generation:        s.gen,
	}
}

// Heartbeat persists the buffer when it is non-empty and dirty
func (y *Synchronizer) Heartbeat(ctx context.Context) error {
	y.mu.Lock()
	s := y.session
	if s == nil || s.current == "" || !s.dirty() {
		y.mu.Unlock()
		return nil
	}
	y.mu.Unlock()
	return y.persist(ctx, s, false, "")
}

// SaveNow persists text to docID even when it matches the last persisted
// value. Empty text is ignored.
func (y *Synchronizer) SaveNow(ctx context.Context, docID, text string) error {
	y.mu.Lock()
	if err := y.checkActiveLocked(docID); err != nil {
		y.mu.Unlock()
		return err
	}
	s := y.session
	y.mu.Unlock()
	if text == "" {
		return nil
	}
	return y.persist(ctx, s, true, text)
}

func (y *Synchronizer) checkActiveLocked(docID string) error {
	if y.session == nil {
		return ErrNoDocument
	}
	if y.session.docID != docID {
		return ErrDocumentChanged
	}
	return nil
}

// Run drives the heartbeat until ctx is done
func (y *Synchronizer) Run(ctx context.Context) {
	ticker := time.NewTicker(y.opts.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := y.Heartbeat(ctx); err != nil && !errors.Is(err, context.Canceled) {
				y.logger.Warn().Err(err).Msg("Heartbeat save failed")
			}
		}
	}
}

// Wait blocks until no write is running
func (y *Synchronizer) Wait() {
	y.writes.Wait()
}

// persist queues a write for s. With a write already running, the request
// joins the single follow-up write and the caller receives its outcome.
func (y *Synchronizer) persist(ctx context.Context, s *session, explicit bool, text string) error {
	y.mu.Lock()
	if y.session != s {
		y.mu.Unlock()
		return ErrDocumentChanged
	}

	var f *flight
	if s.inflight == nil {
		if !explicit {
			text = s.current
		}
		f = newFlight()
		s.inflight = f
		y.writes.Add(1)
		go y.drive(s, f, text, s.revision)
	} else {
		if s.pending == nil {
			s.pending = &pendingWrite{flight: newFlight()}
		}
		if explicit {
			s.pending.explicit = true
			s.pending.text = text
		}
		f = s.pending.flight
	}
	y.mu.Unlock()

	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drive runs the write for s and then any follow-up that queued behind it
func (y *Synchronizer) drive(s *session, f *flight, text string, rev uint64) {
	defer y.writes.Done()

	for {
		err := y.write(s.owner, s.docID, text)

		y.mu.Lock()
		active := y.session == s
		switch {
		case !active:
			y.logger.Debug().
				Str("document_id", s.docID).
				Uint64("generation", s.gen).
				Msg("Discarding write result for superseded document")
		case err != nil:
			y.logger.Error().Err(err).Str("document_id", s.docID).Msg("Failed to persist document")
		default:
			s.persisted = text
			if s.revision == rev {
				s.current = text
			}
			if y.sink != nil {
				y.sink.SetActiveCode(s.docID, text)
			}
		}
		f.err = err
		close(f.done)

		next := s.pending
		s.pending = nil
		switch {
		case next == nil:
			s.inflight = nil
			y.mu.Unlock()
			return
		case !active:
			s.inflight = nil
			next.flight.err = ErrDocumentChanged
			close(next.flight.done)
			y.mu.Unlock()
			return
		case !next.explicit && (!s.dirty() || s.current == ""):
			s.inflight = nil
			close(next.flight.done)
			y.mu.Unlock()
			return
		case !next.explicit:
			next.text = s.current
		}

		f, text, rev = next.flight, next.text, s.revision
		s.inflight = f
		y.mu.Unlock()
	}
}

func (y *Synchronizer) write(owner, docID, text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), y.opts.WriteTimeout)
	defer cancel()

	logger := y.logger.With().Str("document_id", docID).Logger()
	result := retry.RetryWithBackoff(ctx, *y.opts.Retry, func(ctx context.Context) error {
		return y.store.UpdateCode(ctx, owner, docID, text)
	}, logger)
	if err := result.Err(); err != nil {
		return fmt.Errorf("update document %s after %d attempts: %w", docID, result.Attempts, err)
	}
	return nil
}
