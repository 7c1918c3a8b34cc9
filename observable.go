package simforge

import "sync"

// Readable is a value that can be observed.
type Readable[T any] interface {
	// Subscribe registers fn and calls it immediately with the current value,
	// then again on every publish. The returned func removes the subscription.
	Subscribe(fn func(T)) (unsubscribe func())

	// Get returns the current value.
	Get() T
}

// Observable is a Readable that can be written.
type Observable[T any] interface {
	Readable[T]

	// Set replaces the value and publishes it.
	Set(value T)

	// Update replaces the value with fn(current) and publishes the result.
	Update(fn func(T) T)
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

type publication[T any] struct {
	value T
	subs  []subscriber[T]
}

// Writable is an in-memory Observable that broadcasts synchronously to its
// subscribers in subscription order.
//
// # Concurrency
//
// A single mutex guards the value, so Update is atomic with respect to every
// other Set or Update. Subscriber callbacks run outside the mutex: a Set or
// Update issued from inside a callback is queued and delivered once the
// current broadcast finishes, so every subscriber observes publishes in the
// order they were made.
//
// Update functions must not call back into the same Writable.
type Writable[T any] struct {
	mu       sync.Mutex
	value    T
	equal    func(a, b T) bool
	subs     []subscriber[T]
	nextID   uint64
	pending  []publication[T]
	flushing bool
}

// NewWritable creates a Writable holding initial.
// When equal is non-nil, a Set or Update whose result is equal to the
// current value is not published. With a nil equal every write publishes.
//
// Example:
//
//	// Publish only when the pointer changes.
//	w := simforge.NewWritable(&State{}, func(a, b *State) bool { return a == b })
func NewWritable[T any](initial T, equal func(a, b T) bool) *Writable[T] {
	return &Writable[T]{
		value: initial,
		equal: equal,
	}
}

// Get returns the current value.
func (w *Writable[T]) Get() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

// Subscribe implements Readable.
func (w *Writable[T]) Subscribe(fn func(T)) func() {
	w.mu.Lock()
	w.nextID++
	id := w.nextID
	w.subs = append(w.subs, subscriber[T]{id: id, fn: fn})
	current := w.value
	w.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			for i, s := range w.subs {
				if s.id == id {
					// Copy so snapshots held by queued publications stay intact.
					subs := make([]subscriber[T], 0, len(w.subs)-1)
					subs = append(subs, w.subs[:i]...)
					w.subs = append(subs, w.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Set implements Observable.
func (w *Writable[T]) Set(value T) {
	w.publish(func(T) T { return value })
}

// Update implements Observable.
func (w *Writable[T]) Update(fn func(T) T) {
	w.publish(fn)
}

// SubscriberCount returns the number of active subscriptions.
func (w *Writable[T]) SubscriberCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}

// publish stores fn(current) and delivers it, unless a broadcast already in
// progress will pick it up from the queue.
func (w *Writable[T]) publish(fn func(T) T) {
	if w.enqueue(fn) {
		w.flush()
	}
}

// enqueue applies fn under the mutex and queues the result. It reports
// whether the caller must flush the queue.
func (w *Writable[T]) enqueue(fn func(T) T) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	value := fn(w.value)
	if w.equal != nil && w.equal(w.value, value) {
		return false
	}
	w.value = value
	w.pending = append(w.pending, publication[T]{value: value, subs: w.subs})
	if w.flushing {
		return false
	}
	w.flushing = true
	return true
}

// flush delivers queued publications in order. If a subscriber panics the
// rest of the queue is dropped and the panic propagates; the stored value is
// kept and later writes publish normally.
func (w *Writable[T]) flush() {
	drained := false
	defer func() {
		if drained {
			return
		}
		w.mu.Lock()
		w.flushing = false
		w.pending = nil
		w.mu.Unlock()
	}()

	for {
		w.mu.Lock()
		if len(w.pending) == 0 {
			w.flushing = false
			w.pending = nil
			w.mu.Unlock()
			drained = true
			return
		}
		next := w.pending[0]
		w.pending = w.pending[1:]
		w.mu.Unlock()

		for _, s := range next.subs {
			s.fn(next.value)
		}
	}
}

// Compile-time check: *Writable must implement Observable.
var _ Observable[int] = (*Writable[int])(nil)
