package cache

import (
	"container/list"
	"context"
	"sync"
)

// MemoryBackend is an in-process Backend, used by tests and when no
// database is configured.
type MemoryBackend struct {
	mu      sync.Mutex
	order   *list.List // *Entry, oldest insertion at front
	entries map[string]*list.Element
	tip     *Tip
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

func (b *MemoryBackend) GetEntry(_ context.Context, key string) (*Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	el, ok := b.entries[key]
	if !ok {
		return nil, nil
	}
	e := *el.Value.(*Entry)
	return &e, nil
}

func (b *MemoryBackend) PutEntry(_ context.Context, e Entry, maxEntries int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if el, ok := b.entries[e.Key]; ok {
		b.order.Remove(el)
		delete(b.entries, e.Key)
	}
	for maxEntries > 0 && b.order.Len() >= maxEntries {
		oldest := b.order.Front()
		b.order.Remove(oldest)
		delete(b.entries, oldest.Value.(*Entry).Key)
	}
	b.entries[e.Key] = b.order.PushBack(&e)
	return nil
}

func (b *MemoryBackend) Keys(_ context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	keys := make([]string, 0, b.order.Len())
	for el := b.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*Entry).Key)
	}
	return keys, nil
}

func (b *MemoryBackend) GetTip(_ context.Context) (*Tip, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tip == nil {
		return nil, nil
	}
	t := *b.tip
	return &t, nil
}

func (b *MemoryBackend) PutTip(_ context.Context, t Tip) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tip = &t
	return nil
}

func (b *MemoryBackend) Clear(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.order.Init()
	b.entries = make(map[string]*list.Element)
	b.tip = nil
	return nil
}

var _ Backend = (*MemoryBackend)(nil)
