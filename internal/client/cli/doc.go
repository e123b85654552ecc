// Package cli provides the interactive fieldcrm command-line client.
//
// It wires configuration, the local store, the API client and the
// background machinery (connectivity monitor, sync replayer, session
// refresher, notification poller) into an App, and runs a REPL on top.
// Typical flow: restore the saved session, start the background loops and
// execute user commands; protected commands pass through the session
// guard first.
//
// Key features:
//   - Login / Logout, whoami
//   - Orders: list, show, change status, comment, attach photo, edit fields
//   - Sync queue: inspect, retry or discard failed items, replay now
//   - Notifications: list, mark read, dismiss
//   - Theme and design version, persisted across restarts
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See NewApp and runREPL for details.
package cli
