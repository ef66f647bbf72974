package domain

import "iter"

// Matchable is the capability an entity needs to live in a Collection: it can
// test itself against an external identifier.
type Matchable[K comparable] interface {
	Match(key K) bool
}

// Collection is an insertion-ordered sequence of matchable entities with
// linear lookup. Duplicate prevention is the caller's responsibility; the
// collection itself accepts every insert. It is not safe for concurrent
// mutation while iterating.
type Collection[T Matchable[K], K comparable] struct {
	items []T
}

// NewCollection builds a collection seeded with the given items in order.
func NewCollection[T Matchable[K], K comparable](items ...T) Collection[T, K] {
	return Collection[T, K]{items: append([]T(nil), items...)}
}

// Insert appends the entity. It always succeeds.
func (c *Collection[T, K]) Insert(item T) bool {
	c.items = append(c.items, item)
	return true
}

// Search returns the first entity matching key in insertion order. The
// second return is false when no entity matches; callers must check it
// before using the value.
func (c *Collection[T, K]) Search(key K) (T, bool) {
	for _, item := range c.items {
		if item.Match(key) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Replace overwrites the first entity matching key, reporting whether a
// match existed.
func (c *Collection[T, K]) Replace(key K, item T) bool {
	for i := range c.items {
		if c.items[i].Match(key) {
			c.items[i] = item
			return true
		}
	}
	return false
}

// Remove deletes the first entity matching key, preserving the order of the
// remainder. It returns false when no entity matches.
func (c *Collection[T, K]) Remove(key K) bool {
	for i := range c.items {
		if c.items[i].Match(key) {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of entities held.
func (c *Collection[T, K]) Len() int { return len(c.items) }

// All returns a lazy insertion-ordered iterator over the live backing slice.
// Each call restarts from the first entity. Mutating the collection while an
// iteration is in flight is undefined; call sites must finish iterating
// before mutating or iterate a snapshot instead.
func (c *Collection[T, K]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, item := range c.items {
			if !yield(item) {
				return
			}
		}
	}
}

// Items returns a copy of the backing slice in insertion order.
func (c *Collection[T, K]) Items() []T {
	return append([]T(nil), c.items...)
}
