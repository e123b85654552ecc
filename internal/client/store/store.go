package store

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/client/migrations"
)

// Partition names a set of records, the equivalent of an object store.
type Partition string

const (
	PartitionProfile   Partition = "profile"
	PartitionOrders    Partition = "orders"
	PartitionSyncQueue Partition = "sync_queue"
	PartitionPhotos    Partition = "photos"
	PartitionSettings  Partition = "settings"
)

var (
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrQuotaExceeded      = errors.New("storage quota exceeded")
	ErrUnknownPartition   = errors.New("unknown partition")
)

// Schema describes one database: where its migrations live and which
// partitions they create.
type Schema struct {
	Name       string
	Dir        string
	Partitions []Partition
}

// MainSchema is the cache database.
var MainSchema = Schema{
	Name:       "main",
	Dir:        migrations.Main,
	Partitions: []Partition{PartitionProfile, PartitionOrders, PartitionSyncQueue, PartitionPhotos},
}

// SettingsSchema is the separate settings database.
var SettingsSchema = Schema{
	Name:       "settings",
	Dir:        migrations.Settings,
	Partitions: []Partition{PartitionSettings},
}

func (s Schema) has(p Partition) bool {
	for _, x := range s.Partitions {
		if x == p {
			return true
		}
	}
	return false
}

// Record is one stored value.
type Record struct {
	Key       string
	OrderID   string
	CreatedAt time.Time
	Value     []byte
}

// Index selects the walk order of Iterate.
type Index string

const (
	// IndexKey walks records by key.
	IndexKey Index = ""
	// IndexCreatedAt walks records in creation order.
	IndexCreatedAt Index = "by_created"
	// IndexOrderID walks the records of Query.OrderID in creation order.
	IndexOrderID Index = "by_order"
)

// Query parameterises Iterate. Limit <= 0 means no limit.
type Query struct {
	Index   Index
	OrderID string
	Limit   int
}

// Store is the local object store contract.
type Store interface {
	Get(ctx context.Context, p Partition, key string) (Record, error)
	// Put inserts or replaces rec. A nil Value is kept as an empty one.
	Put(ctx context.Context, p Partition, rec Record) error
	Delete(ctx context.Context, p Partition, key string) error
	Iterate(ctx context.Context, p Partition, q Query) ([]Record, error)
	Close() error
}

// WithQuotaRetry runs fn; if it fails with ErrQuotaExceeded, evict is run
// once and fn retried once.
func WithQuotaRetry(ctx context.Context, evict func(ctx context.Context) error, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if !errors.Is(err, ErrQuotaExceeded) || evict == nil {
		return err
	}
	if evictErr := evict(ctx); evictErr != nil {
		return errors.Join(err, evictErr)
	}
	return fn(ctx)
}
