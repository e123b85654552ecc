// Package notify is a typed publish/subscribe channel for user-facing
// messages: toasts and navigation requests. Publishing never blocks; a
// subscriber that falls behind loses toasts rather than stalling the
// publisher. A Navigate is never lost: it pushes out the oldest buffered
// message instead.
package notify

import (
	"sync"
	"sync/atomic"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is implemented by every payload the bus carries.
type Message interface {
	message()
}

// Toast is a short status line for the user. Route, when set, is where
// acting on the toast should lead.
type Toast struct {
	Level Level
	Text  string
	Route string
}

// Navigate asks the front-end to switch to Route, e.g. after a click on a
// notification or when the session ends.
type Navigate struct {
	Route string
}

func (Toast) message()    {}
func (Navigate) message() {}

// Publisher is the sending half of a Bus.
type Publisher interface {
	Publish(m Message)
}

type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Message
	next   uint64
	closed bool

	dropped atomic.Uint64
}

func NewBus() *Bus {
	return &Bus{subs: map[uint64]chan Message{}}
}

// Publish delivers m to every subscriber with room for it.
func (b *Bus) Publish(m Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	_, urgent := m.(Navigate)
	for _, ch := range b.subs {
		if urgent {
			b.force(ch, m)
			continue
		}
		select {
		case ch <- m:
		default:
			b.dropped.Add(1)
		}
	}
}

// force sends m, evicting the oldest buffered messages until it fits.
// Callers hold the read lock, so ch cannot be closed underneath.
func (b *Bus) force(ch chan Message, m Message) {
	for {
		select {
		case ch <- m:
			return
		default:
		}
		select {
		case <-ch:
			b.dropped.Add(1)
		default:
		}
	}
}

// Subscribe returns a channel of messages and a cancel func that closes it.
func (b *Bus) Subscribe(buffer int) (<-chan Message, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Message, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Dropped is how many deliveries were skipped because a subscriber was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes every subscription. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// Info, Warn and Error are shorthands for publishing a Toast.
func Info(p Publisher, text string)  { publishToast(p, LevelInfo, text) }
func Warn(p Publisher, text string)  { publishToast(p, LevelWarning, text) }
func Error(p Publisher, text string) { publishToast(p, LevelError, text) }

func publishToast(p Publisher, level Level, text string) {
	if p == nil {
		return
	}
	p.Publish(Toast{Level: level, Text: text})
}
