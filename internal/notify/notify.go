// Package notify delivers user-facing notifications raised by generation.
package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Level of a notification
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notification is one user-facing message
type Notification struct {
	Level   Level  `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Notifier delivers notifications to the user
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier writes notifications to the structured log
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) {
	evt := log.Info()
	if n.Level == LevelError {
		evt = log.Warn()
	}
	evt.Str("title", n.Title).Msg(n.Message)
}

// Collector gathers notifications for one request so they can be returned
// to the caller. It also forwards each notification to next, if set.
type Collector struct {
	mu    sync.Mutex
	items []Notification
	next  Notifier
}

func NewCollector(next Notifier) *Collector {
	return &Collector{next: next}
}

func (c *Collector) Notify(ctx context.Context, n Notification) {
	c.mu.Lock()
	c.items = append(c.items, n)
	c.mu.Unlock()
	if c.next != nil {
		c.next.Notify(ctx, n)
	}
}

// Items returns a copy of the collected notifications
func (c *Collector) Items() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.items))
	copy(out, c.items)
	return out
}

type ctxKey struct{}

// WithNotifier attaches n to ctx; dispatch prefers it over its default notifier
func WithNotifier(ctx context.Context, n Notifier) context.Context {
	return context.WithValue(ctx, ctxKey{}, n)
}

// FromContext returns the notifier attached to ctx, or fallback
func FromContext(ctx context.Context, fallback Notifier) Notifier {
	if n, ok := ctx.Value(ctxKey{}).(Notifier); ok && n != nil {
		return n
	}
	return fallback
}
