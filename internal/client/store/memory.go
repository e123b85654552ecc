package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/common"
)

type memRecord struct {
	rec Record
	seq uint64
}

// MemoryStore is a volatile Store. It backs the client when the database
// cannot be opened and is handy in tests.
type MemoryStore struct {
	schema Schema

	mu   sync.RWMutex
	data map[Partition]map[string]memRecord
	seq  uint64
}

func NewMemory(schema Schema) *MemoryStore {
	data := make(map[Partition]map[string]memRecord, len(schema.Partitions))
	for _, p := range schema.Partitions {
		data[p] = map[string]memRecord{}
	}
	return &MemoryStore{schema: schema, data: data}
}

func (m *MemoryStore) partition(p Partition) (map[string]memRecord, error) {
	part, ok := m.data[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPartition, p)
	}
	return part, nil
}

func cloneRecord(r Record) Record {
	r.Value = slices.Clone(r.Value)
	return r
}

func (m *MemoryStore) Get(_ context.Context, p Partition, key string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	part, err := m.partition(p)
	if err != nil {
		return Record{}, err
	}
	r, ok := part[key]
	if !ok {
		return Record{}, common.ErrorNotFound
	}
	return cloneRecord(r.rec), nil
}

func (m *MemoryStore) Put(_ context.Context, p Partition, rec Record) error {
	if rec.Key == "" {
		return fmt.Errorf("put %s: empty key", p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	part, err := m.partition(p)
	if err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if rec.Value == nil {
		rec.Value = []byte{}
	}

	seq := m.seq
	if old, ok := part[rec.Key]; ok {
		seq = old.seq
	} else {
		m.seq++
	}
	part[rec.Key] = memRecord{rec: cloneRecord(rec), seq: seq}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, p Partition, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	part, err := m.partition(p)
	if err != nil {
		return err
	}
	delete(part, key)
	return nil
}

func (m *MemoryStore) Iterate(_ context.Context, p Partition, q Query) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	part, err := m.partition(p)
	if err != nil {
		return nil, err
	}

	items := make([]memRecord, 0, len(part))
	for _, r := range part {
		if q.Index == IndexOrderID && r.rec.OrderID != q.OrderID {
			continue
		}
		items = append(items, r)
	}

	switch q.Index {
	case IndexKey:
		slices.SortFunc(items, func(a, b memRecord) int {
			switch {
			case a.rec.Key < b.rec.Key:
				return -1
			case a.rec.Key > b.rec.Key:
				return 1
			}
			return 0
		})
	case IndexCreatedAt, IndexOrderID:
		slices.SortFunc(items, func(a, b memRecord) int {
			if c := a.rec.CreatedAt.Compare(b.rec.CreatedAt); c != 0 {
				return c
			}
			switch {
			case a.seq < b.seq:
				return -1
			case a.seq > b.seq:
				return 1
			}
			return 0
		})
	default:
		return nil, fmt.Errorf("iterate %s: unknown index %q", p, q.Index)
	}

	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	out := make([]Record, 0, len(items))
	for _, r := range items {
		out = append(out, cloneRecord(r.rec))
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
