package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type entry struct {
	str       *string
	hash      map[string]string
	list      []string
	expiresAt time.Time
}

// MemoryStore is an in-process Store for single-instance deployments and tests
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// lookup returns the live entry for key, dropping it when expired. Caller holds mu.
func (m *MemoryStore) lookup(key string) *entry {
	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil
	}
	return e
}

func (m *MemoryStore) ensure(key string) *entry {
	e := m.lookup(key)
	if e == nil {
		e = &entry{}
		m.entries[key] = e
	}
	return e
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil || e.str == nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return *e.str, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.set(key, value, ttl)
	return nil
}

func (m *MemoryStore) set(key, value string, ttl time.Duration) {
	e := &entry{str: &value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
}

func (m *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expire(key, ttl)
	return nil
}

func (m *MemoryStore) expire(key string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if e := m.lookup(key); e != nil {
		e.expiresAt = m.now().Add(ttl)
	}
}

func (m *MemoryStore) HGet(_ context.Context, key, field string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		return "", fmt.Errorf("%w: %s.%s", ErrNotFound, key, field)
	}
	value, ok := e.hash[field]
	if !ok {
		return "", fmt.Errorf("%w: %s.%s", ErrNotFound, key, field)
	}
	return value, nil
}

func (m *MemoryStore) HSet(_ context.Context, key, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hset(key, field, value)
	return nil
}

func (m *MemoryStore) hset(key, field, value string) {
	e := m.ensure(key)
	if e.hash == nil {
		e.hash = make(map[string]string)
	}
	e.hash[field] = value
}

func (m *MemoryStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]string)
	if e := m.lookup(key); e != nil {
		for k, v := range e.hash {
			out[k] = v
		}
	}
	return out, nil
}

func (m *MemoryStore) LPush(_ context.Context, key string, values ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.ensure(key)
	for _, v := range values {
		e.list = append([]string{v}, e.list...)
	}
	return nil
}

func (m *MemoryStore) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		return []string{}, nil
	}
	from, to, ok := listBounds(int64(len(e.list)), start, stop)
	if !ok {
		return []string{}, nil
	}
	out := make([]string, to-from+1)
	copy(out, e.list[from:to+1])
	return out, nil
}

func (m *MemoryStore) LLen(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		return 0, nil
	}
	return int64(len(e.list)), nil
}

func (m *MemoryStore) LTrim(_ context.Context, key string, start, stop int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		return nil
	}
	from, to, ok := listBounds(int64(len(e.list)), start, stop)
	if !ok {
		e.list = nil
		return nil
	}
	e.list = append([]string(nil), e.list[from:to+1]...)
	return nil
}

// Exec applies the whole batch under one lock
func (m *MemoryStore) Exec(_ context.Context, batch *Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, op := range batch.Ops() {
		switch op.Kind {
		case OpDelete, OpRPush, OpSet, OpExpire, OpHSet:
		default:
			return fmt.Errorf("unknown batch op %d", op.Kind)
		}
	}

	for _, op := range batch.Ops() {
		switch op.Kind {
		case OpDelete:
			delete(m.entries, op.Key)
		case OpRPush:
			e := m.ensure(op.Key)
			e.list = append(e.list, op.Values...)
		case OpSet:
			m.set(op.Key, op.Value, op.TTL)
		case OpExpire:
			m.expire(op.Key, op.TTL)
		case OpHSet:
			m.hset(op.Key, op.Field, op.Value)
		}
	}
	return nil
}

// listBounds converts Redis-style inclusive, possibly negative indices
func listBounds(n, start, stop int64) (int64, int64, bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}
