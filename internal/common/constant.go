package common

// Cookie names carrying the session credentials between client and API.
const (
	AccessTokenCookieName  = "access_token"
	RefreshTokenCookieName = "refresh_token"
)

// IdempotencyKeyHeader carries the sync queue item id on replayed mutations
// so the API can drop duplicates of an at-least-once delivery.
const IdempotencyKeyHeader = "Idempotency-Key"
