// Package bus provides a typed listener list used to fan out connection
// events (messages, connects, disconnects, state changes) to any number of
// registered handlers.
package bus

import "sync"

// Feed fans out values of one event kind to registered handlers. Handlers
// run on the publishing goroutine in registration order. The zero value is
// ready to use.
type Feed[T any] struct {
	mu       sync.Mutex
	nextID   int
	handlers []entry[T]
}

type entry[T any] struct {
	id int
	fn func(T)
}

// Subscribe registers a handler and returns its deregistration func.
// Deregistering twice is a no-op.
func (f *Feed[T]) Subscribe(fn func(T)) (cancel func()) {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.handlers = append(f.handlers, entry[T]{id: id, fn: fn})
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, e := range f.handlers {
			if e.id == id {
				f.handlers = append(f.handlers[:i], f.handlers[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers v to every registered handler in registration order.
// Handlers registered or removed during dispatch take effect on the next
// publish.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	snapshot := make([]entry[T], len(f.handlers))
	copy(snapshot, f.handlers)
	f.mu.Unlock()

	for _, e := range snapshot {
		e.fn(v)
	}
}

// Len returns the number of registered handlers.
func (f *Feed[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}
