// Package settings persists the user's UI settings (theme, design version)
// in two layers.
//
// The fast layer (Prefs) is an in-memory value mirrored to a small TOML
// file; it is what the front-end reads. The durable layer (Durable) is a
// record in the separate settings database. Every change is written to
// both. On a cold start, if the fast layer looks like a fresh install, the
// durable layer is consulted and, when it knows better, the fast layer is
// repaired from it. This recovers from the OS wiping caches behind our
// back.
//
// Reads never fail: unknown, missing or unreadable values come back as the
// defaults (light, v1).
package settings
