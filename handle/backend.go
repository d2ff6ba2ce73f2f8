package handle

import (
	"errors"
	"math"
	"sync"
)

var (
	ErrClosed    = errors.New("handle backend closed")
	ErrExhausted = errors.New("handle space exhausted")
)

// localBackend is an in-memory slot store with a free list.
// Handle n lives in entries[n-1].
type localBackend struct {
	entries  []entry
	freeList []JSHandle
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value any
	valid bool
}

func newLocalBackend() *localBackend {
	return &localBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]JSHandle, 0, 16),
	}
}

func (b *localBackend) create(value any) (JSHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return DisposedJSHandle, ErrClosed
	}

	e := entry{value: value, valid: true}

	if len(b.freeList) > 0 {
		h := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		b.entries[h-1] = e
		return h, nil
	}

	if len(b.entries) >= math.MaxInt32 {
		return NullJSHandle, ErrExhausted
	}

	b.entries = append(b.entries, e)
	return JSHandle(len(b.entries)), nil
}

func (b *localBackend) get(h JSHandle) (any, bool) {
	if !h.Valid() {
		return nil, false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	idx := int(h) - 1
	if idx >= len(b.entries) {
		return nil, false
	}

	e := b.entries[idx]
	if !e.valid {
		return nil, false
	}
	return e.value, true
}

func (b *localBackend) drop(h JSHandle) (any, bool) {
	if !h.Valid() {
		return nil, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	idx := int(h) - 1
	if idx >= len(b.entries) {
		return nil, false
	}

	e := &b.entries[idx]
	if !e.valid {
		return nil, false
	}

	value := e.value
	e.valid = false
	e.value = nil
	b.freeList = append(b.freeList, h)

	return value, true
}

// close marks the backend closed and returns the values that were still live.
func (b *localBackend) close() []any {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var live []any
	for i := range b.entries {
		if b.entries[i].valid {
			live = append(live, b.entries[i].value)
		}
	}

	b.entries = nil
	b.freeList = nil
	return live
}

func (b *localBackend) len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, e := range b.entries {
		if e.valid {
			count++
		}
	}
	return count
}

func (b *localBackend) each(fn func(JSHandle, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(JSHandle(i+1), e.value) {
				break
			}
		}
	}
}
