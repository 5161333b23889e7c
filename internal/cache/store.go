package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key or hash field does not exist
var ErrNotFound = errors.New("cache: key not found")

// Store is the shared key-value store holding success-rate counters.
// Reads and writes on a key are not linearizable; only Exec applies a
// group of writes atomically.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Expire(ctx context.Context, key string, ttl time.Duration) error

	HGet(ctx context.Context, key, field string) (string, error)
	HSet(ctx context.Context, key, field, value string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	LPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LLen(ctx context.Context, key string) (int64, error)
	LTrim(ctx context.Context, key string, start, stop int64) error

	Exec(ctx context.Context, batch *Batch) error
}

// OpKind names one step of a Batch
type OpKind int

const (
	OpDelete OpKind = iota
	OpRPush
	OpSet
	OpExpire
	OpHSet
)

// Op is a single write inside a Batch
type Op struct {
	Kind   OpKind
	Key    string
	Field  string
	Value  string
	Values []string
	TTL    time.Duration
}

// Batch describes writes that the store applies all-or-nothing
type Batch struct {
	ops []Op
}

// NewBatch returns an empty batch
func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) Delete(key string) *Batch {
	b.ops = append(b.ops, Op{Kind: OpDelete, Key: key})
	return b
}

func (b *Batch) RPush(key string, values ...string) *Batch {
	b.ops = append(b.ops, Op{Kind: OpRPush, Key: key, Values: values})
	return b
}

func (b *Batch) Set(key, value string, ttl time.Duration) *Batch {
	b.ops = append(b.ops, Op{Kind: OpSet, Key: key, Value: value, TTL: ttl})
	return b
}

func (b *Batch) Expire(key string, ttl time.Duration) *Batch {
	b.ops = append(b.ops, Op{Kind: OpExpire, Key: key, TTL: ttl})
	return b
}

func (b *Batch) HSet(key, field, value string) *Batch {
	b.ops = append(b.ops, Op{Kind: OpHSet, Key: key, Field: field, Value: value})
	return b
}

// Ops returns the batch steps in order
func (b *Batch) Ops() []Op {
	return b.ops
}

// Len returns the number of steps
func (b *Batch) Len() int {
	return len(b.ops)
}
