// Package profile persists the cached MasterProfile and the session material
// (cookies and refresh token) needed to resume silently after a restart.
//
// The profile snapshot lets the client answer "is somebody logged in"
// without a network round trip. Get returns ErrExpired together with the
// snapshot once its ExpiresAt has passed.
package profile
