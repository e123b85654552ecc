// Package syncqueue holds mutations made while the API could not be reached
// and replays them when it can.
//
// # Queue
//
// Items live in the sync_queue partition of the local store, so they
// survive restarts. An item leaves the queue only when the server confirms
// it (DequeueProcessed) or the user discards it. Items are replayed in
// creation order.
//
// # Replay
//
// A Replayer walks a snapshot of the pending items:
//
//   - success: the item is removed, together with its cached photo;
//   - network failure: the attempt is counted and the pass stops, since
//     the next items would fail the same way; it never leads to Failed;
//   - auth rejection: the pass stops and ErrUnauthorized is returned so the
//     session can be dealt with; the attempt is not counted;
//   - rejection by the server (validation, unknown order): the item is
//     marked Failed at once;
//   - other server errors: the attempt is counted as a server error and the
//     item is marked Failed after MaxAttempts of those.
//
// Once an item of an order fails, later items of the same order wait for
// the next pass. Failed items stay in the queue until retried or discarded.
//
// Delivery is at least once. Each request carries the item id as its
// Idempotency-Key so the server can drop duplicates.
package syncqueue
