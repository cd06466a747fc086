// Package types contains generic containers used across the module.
package types

import (
	"container/list"
	"iter"
	"sync"
)

// CallbackManager keeps an ordered set of callbacks.
// Callbacks are kept in registration order, one-shot callbacks are dropped
// by [CallbackManager.Take] after they were handed out once.
type CallbackManager[T any] struct {
	mu     sync.RWMutex
	cbs    map[int]*list.Element
	order  *list.List
	nextID int
}

type callback[T any] struct {
	id   int
	cb   T
	once bool
}

func (m *CallbackManager[T]) Len() int {
	if m == nil {
		return 0
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cbs)
}

// Add registers a persistent callback.
func (m *CallbackManager[T]) Add(cb T) (remove func()) {
	return m.add(cb, false)
}

// AddOnce registers a callback that is handed out by [CallbackManager.Take] only once.
func (m *CallbackManager[T]) AddOnce(cb T) (remove func()) {
	return m.add(cb, true)
}

func (m *CallbackManager[T]) add(cb T, once bool) (remove func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++

	if m.cbs == nil {
		m.cbs = make(map[int]*list.Element)
	}
	if m.order == nil {
		m.order = list.New()
	}
	el := m.order.PushBack(&callback[T]{id, cb, once})
	m.cbs[id] = el
	m.mu.Unlock()

	var onceRm sync.Once
	return func() {
		onceRm.Do(func() {
			m.mu.Lock()
			if el, ok := m.cbs[id]; ok {
				m.order.Remove(el)
				delete(m.cbs, id)
			}
			m.mu.Unlock()
		})
	}
}

// All iterates over a snapshot of registered callbacks without consuming one-shot ones.
func (m *CallbackManager[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		if m == nil {
			return
		}

		m.mu.RLock()
		if m.order == nil {
			m.mu.RUnlock()
			return
		}
		callbacks := make([]T, 0, m.order.Len())
		for el := m.order.Front(); el != nil; el = el.Next() {
			entry := el.Value.(*callback[T]) //nolint:forcetypeassert
			callbacks = append(callbacks, entry.cb)
		}
		m.mu.RUnlock()

		for _, cb := range callbacks {
			if !yield(cb) {
				return
			}
		}
	}
}

// Take returns callbacks in registration order and unregisters one-shot callbacks.
func (m *CallbackManager[T]) Take() []T {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.order == nil {
		return nil
	}
	callbacks := make([]T, 0, m.order.Len())
	for el := m.order.Front(); el != nil; {
		next := el.Next()
		entry := el.Value.(*callback[T]) //nolint:forcetypeassert
		callbacks = append(callbacks, entry.cb)
		if entry.once {
			m.order.Remove(el)
			delete(m.cbs, entry.id)
		}
		el = next
	}
	return callbacks
}

// Clear unregisters all callbacks.
func (m *CallbackManager[T]) Clear() {
	if m == nil {
		return
	}

	m.mu.Lock()
	m.cbs = nil
	m.order = nil
	m.mu.Unlock()
}
