// Package client is the transport to the CRM REST API.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface): auth
//     (Login, Refresh, Logout, Profile), orders and their mutations and
//     notifications.
//  2. An HTTP implementation (see HTTPClient) that keeps the session in a
//     cookie jar, echoes the optional body refresh token, reauthenticates
//     once on a 401 from a data endpoint and retries, and maps responses to
//     sentinel errors.
//
// Every response uses the envelope {success, data, error, fields}.
//
// # Error Handling
//
// Conditions are exposed as sentinel errors that callers match with
// errors.Is: ErrUnavailable (transient), ErrUnauthorized (401/403),
// ErrValidation (400/409/413/422, or success=false), ErrServer (other 5xx)
// and common.ErrorNotFound (404). Server-side detail, including per-field
// messages, is available through *APIError.
//
// Mutations made with a context from WithIdempotencyKey carry the
// Idempotency-Key header, which lets the server drop replays.
package client
