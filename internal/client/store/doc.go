// Package store is the local object store of the client: named partitions
// of JSON records kept in an embedded SQLite database, with a volatile
// in-memory stand-in for hosts where persistent storage is denied.
//
// # Partitions
//
// The main database holds profile, orders, sync_queue and photos; settings
// live in a separate database so that wiping the cache never touches them.
// Each partition is a table created by the embedded goose migrations on the
// first operation against the store.
//
// # Records and indexes
//
// A Record carries its key, an optional order id, a creation timestamp and
// an opaque value. Iterate walks a partition by key, by creation order
// (FIFO) or filtered by order id.
//
// # Failures
//
//   - ErrStorageUnavailable: the database cannot be opened. Callers degrade
//     to memory-only operation (see OpenOrMemory).
//   - ErrQuotaExceeded: a write hit the size limit. Callers may evict
//     re-fetchable data and retry (see WithQuotaRetry).
//   - common.ErrorNotFound: Get on a missing key.
package store
