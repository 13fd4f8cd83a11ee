// Package fanout delivers values to a dynamic set of subscribers.
package fanout

import "sync"

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Registry holds subscribers in registration order. The zero value is ready
// to use and safe for concurrent use.
type Registry[T any] struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscriber[T]
}

// Subscribe registers fn and returns a function that removes it again.
// Calling the returned function more than once is a no-op.
func (r *Registry[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs = append(r.subs, subscriber[T]{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(id) })
	}
}

func (r *Registry[T]) remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.subs {
		if s.id == id {
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			return
		}
	}
}

// Publish calls every subscriber with v, in registration order. Subscribers
// run outside the lock so they may unsubscribe themselves.
func (r *Registry[T]) Publish(v T) {
	r.mu.RLock()
	subs := r.subs
	r.mu.RUnlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Len returns the number of registered subscribers.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
