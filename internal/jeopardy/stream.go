package jeopardy

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Message is one inbound chat message, stripped down to what the engine needs.
type Message struct {
	ChannelID  string
	AuthorID   string
	AuthorName string
	Bot        bool
	Content    string
}

// Messenger sends messages on behalf of the engine. Implemented by the
// Discord adapter; tests use a fake.
type Messenger interface {
	Send(channelID, content string) (messageID string, err error)
	OpenPrivateChannel(userID string) (channelID string, err error)
}

// Ledger settles round winnings. Implemented by the ledger service.
type Ledger interface {
	Settle(ctx context.Context, userID, reason string, amount int64, contextIDs ...string) error
}

// Router fans inbound messages out to transient listeners. Listeners run on
// their own goroutines; a panicking listener is logged, never propagated.
type Router struct {
	log *zap.SugaredLogger

	mu        sync.Mutex
	nextID    int
	listeners map[int]func(Message)
}

func NewRouter(log *zap.SugaredLogger) *Router {
	return &Router{
		log:       log,
		listeners: make(map[int]func(Message)),
	}
}

// Listen registers fn for every dispatched message. The returned cancel
// function removes the listener and is safe to call more than once.
func (r *Router) Listen(fn func(Message)) (cancel func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// Dispatch delivers the message to every registered listener.
func (r *Router) Dispatch(m Message) {
	r.mu.Lock()
	fns := make([]func(Message), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn := fn
		go func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Warnw("message listener panicked", "panic", rec)
				}
			}()
			fn(m)
		}()
	}
}

// Await blocks until a non-bot message on channelID satisfies match, or
// returns nil when the timeout elapses. The listener is removed on both
// paths.
func (r *Router) Await(channelID string, match func(content string) bool, timeout time.Duration) *Message {
	ch := make(chan Message, 1)
	cancel := r.Listen(func(m Message) {
		if m.Bot || m.ChannelID != channelID || !match(m.Content) {
			return
		}
		select {
		case ch <- m:
		default:
		}
	})
	defer cancel()

	select {
	case m := <-ch:
		return &m
	case <-time.After(timeout):
		return nil
	}
}
