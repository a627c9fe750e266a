package repo

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Store. It backs the test suites and
// STORE_BACKEND=memory deployments.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]map[string]Fields
	subs   map[int]*memorySub
	nextID int
}

type memorySub struct {
	collection string
	notify     chan struct{}
	cancel     context.CancelFunc
}

var (
	_ Store           = (*Memory)(nil)
	_ VersionedPutter = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{
		tables: make(map[string]map[string]Fields),
		subs:   make(map[int]*memorySub),
	}
}

func (m *Memory) Put(_ context.Context, collection, key string, fields Fields) error {
	m.mu.Lock()
	m.table(collection)[key] = fields.Clone()
	m.mu.Unlock()
	m.notify(collection)
	return nil
}

func (m *Memory) PutIfVersion(_ context.Context, collection, key string, fields Fields, expected int64) error {
	m.mu.Lock()
	t := m.table(collection)
	var current int64
	if doc, ok := t[key]; ok {
		current = doc.Int(VersionField)
	}
	if current != expected {
		m.mu.Unlock()
		return ErrVersionMismatch
	}
	t[key] = fields.Clone()
	m.mu.Unlock()
	m.notify(collection)
	return nil
}

func (m *Memory) Get(_ context.Context, collection, key string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.tables[collection][key]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{Key: key, Fields: doc.Clone()}, nil
}

func (m *Memory) Delete(_ context.Context, collection, key string) error {
	m.mu.Lock()
	_, existed := m.tables[collection][key]
	delete(m.tables[collection], key)
	m.mu.Unlock()
	if existed {
		m.notify(collection)
	}
	return nil
}

func (m *Memory) Query(_ context.Context, collection string, filter Filter) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.query(collection, filter), nil
}

// Subscribe runs one delivery goroutine per subscription. Writes only signal
// it; the goroutine recomputes the full matching set, so bursts coalesce.
func (m *Memory) Subscribe(ctx context.Context, collection string, filter Filter, onSnapshot func([]Document), _ func(error)) (Unsubscribe, error) {
	sctx, cancel := context.WithCancel(ctx)
	sub := &memorySub{collection: collection, notify: make(chan struct{}, 1), cancel: cancel}

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = sub
	m.mu.Unlock()

	sub.notify <- struct{}{}
	go func() {
		defer m.remove(id)
		for {
			select {
			case <-sctx.Done():
				return
			case <-sub.notify:
			}
			m.mu.RLock()
			docs := m.query(collection, filter)
			m.mu.RUnlock()
			if sctx.Err() != nil {
				return
			}
			onSnapshot(docs)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			m.remove(id)
		})
	}, nil
}

// Subscribers reports the number of open subscriptions.
func (m *Memory) Subscribers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

func (m *Memory) table(collection string) map[string]Fields {
	t, ok := m.tables[collection]
	if !ok {
		t = make(map[string]Fields)
		m.tables[collection] = t
	}
	return t
}

func (m *Memory) query(collection string, filter Filter) []Document {
	t := m.tables[collection]
	keys := make([]string, 0, len(t))
	for k, doc := range t {
		if filter.Matches(doc) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]Document, 0, len(keys))
	for _, k := range keys {
		out = append(out, Document{Key: k, Fields: t[k].Clone()})
	}
	return out
}

func (m *Memory) notify(collection string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sub := range m.subs {
		if sub.collection != collection {
			continue
		}
		select {
		case sub.notify <- struct{}{}:
		default:
		}
	}
}

func (m *Memory) remove(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.subs[id]; ok {
		sub.cancel()
		delete(m.subs, id)
	}
}
