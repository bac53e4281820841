// Package events carries the two process-wide session signals: session
// expiry (broadcast so every in-flight caller and every UI surface learns of
// the loss, not just the request that detected it) and token refresh.
package events

import "sync"

// SessionExpired is broadcast when the refresh protocol fails terminally.
// Reason is a human-readable message surfaced to the user verbatim; Err is
// the triggering error.
type SessionExpired struct {
	Reason string
	Err    error
}

// TokenRefreshed is broadcast after a successful transparent token renewal.
type TokenRefreshed struct{}

type SessionExpiredHandler func(SessionExpired)

type TokenRefreshedHandler func(TokenRefreshed)

type sessionExpiredSub struct {
	id      int
	handler SessionExpiredHandler
}

type tokenRefreshedSub struct {
	id      int
	handler TokenRefreshedHandler
}

// Bus is a small synchronous publish/subscribe channel. Handlers for one
// signal run in registration order; delivery happens on the emitting
// goroutine. Safe for concurrent use.
type Bus struct {
	lock    sync.Mutex
	nextID  int
	expired []sessionExpiredSub
	renewed []tokenRefreshedSub
}

func NewBus() *Bus {
	return &Bus{}
}

// OnSessionExpired registers a handler and returns its unsubscribe function.
func (b *Bus) OnSessionExpired(handler SessionExpiredHandler) (off func()) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.nextID++
	id := b.nextID
	b.expired = append(b.expired, sessionExpiredSub{id: id, handler: handler})

	return func() {
		b.lock.Lock()
		defer b.lock.Unlock()
		for i, sub := range b.expired {
			if sub.id == id {
				b.expired = append(b.expired[:i], b.expired[i+1:]...)
				return
			}
		}
	}
}

// OnTokenRefreshed registers a handler and returns its unsubscribe function.
func (b *Bus) OnTokenRefreshed(handler TokenRefreshedHandler) (off func()) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.nextID++
	id := b.nextID
	b.renewed = append(b.renewed, tokenRefreshedSub{id: id, handler: handler})

	return func() {
		b.lock.Lock()
		defer b.lock.Unlock()
		for i, sub := range b.renewed {
			if sub.id == id {
				b.renewed = append(b.renewed[:i], b.renewed[i+1:]...)
				return
			}
		}
	}
}

// EmitSessionExpired delivers the signal to every subscriber in
// registration order.
func (b *Bus) EmitSessionExpired(event SessionExpired) {
	b.lock.Lock()
	subs := make([]sessionExpiredSub, len(b.expired))
	copy(subs, b.expired)
	b.lock.Unlock()

	for _, sub := range subs {
		sub.handler(event)
	}
}

// EmitTokenRefreshed delivers the signal to every subscriber in
// registration order.
func (b *Bus) EmitTokenRefreshed() {
	b.lock.Lock()
	subs := make([]tokenRefreshedSub, len(b.renewed))
	copy(subs, b.renewed)
	b.lock.Unlock()

	for _, sub := range subs {
		sub.handler(TokenRefreshed{})
	}
}

// NotifySessionExpired implements the api package's SessionNotifier.
func (b *Bus) NotifySessionExpired(reason string, err error) {
	b.EmitSessionExpired(SessionExpired{Reason: reason, Err: err})
}

// NotifyTokenRefreshed implements the api package's SessionNotifier.
func (b *Bus) NotifyTokenRefreshed() {
	b.EmitTokenRefreshed()
}
