// Package orders keeps the local mirror of service orders.
//
// Every successful fetch overwrites the cached copy and stamps CachedAt.
// Nothing here enforces freshness: readers decide how old is too old.
//
// Cached orders are the only data the client may throw away under storage
// pressure, since they can always be fetched again. Save evicts the oldest
// entries once when the store reports ErrQuotaExceeded and retries.
//
// Typical Usage
//
//	repo := orders.NewStoreRepository(st)
//	_, _ = repo.Save(ctx, order)
//	cached, _ := repo.Get(ctx, "42")
package orders
