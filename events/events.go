// Package events is the explicit post-commit dispatch layer. Components emit
// an event after their primary write commits; subscribers run asynchronously
// and their failures are logged, never propagated back to the emitter.
package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	RelationCreated    = "relation.created"
	RelationRemoved    = "relation.removed"
	CommentCreated     = "comment.created"
	UserPictureChanged = "user.picture.changed"
)

// RelationEvent describes the creation or removal of a like, bookmark,
// follow, or comment. TargetID is a recipe id, except for follows where it is
// the followed user's handle.
type RelationEvent struct {
	Kind     string
	ID       string
	Actor    string
	TargetID string
}

// PictureEvent fires when a user's profile picture URL changes.
type PictureEvent struct {
	Handle string
	URL    string
}

type Handler func(ctx context.Context, payload any) error

type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Emit fires all subscribers for name in their own goroutines. Emit never
// blocks on handlers and never reports their errors; a panicking or failing
// handler is terminal for that invocation only.
func (b *Bus) Emit(name string, payload any) {
	b.mu.RLock()
	hs := b.handlers[name]
	b.mu.RUnlock()

	for _, h := range hs {
		h := h
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Error().Str("event", name).Any("panic", r).Msg("event handler panicked")
				}
			}()
			if err := h(context.Background(), payload); err != nil {
				log.Error().Err(err).Str("event", name).Msg("event handler failed")
			}
		}()
	}
}

// Wait blocks until every in-flight handler has returned. Used by tests and
// graceful shutdown.
func (b *Bus) Wait() {
	b.wg.Wait()
}
