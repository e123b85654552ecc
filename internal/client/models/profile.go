package models

import "time"

// RoleMaster is the only role this client serves.
const RoleMaster = "master"

// MasterProfile is the cached identity snapshot of the logged-in technician.
type MasterProfile struct {
	ID        string    `json:"id"`
	Login     string    `json:"login"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	SavedAt   time.Time `json:"saved_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the snapshot can no longer vouch for a session.
func (p MasterProfile) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

// SessionCookie is the persisted form of an auth cookie.
type SessionCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

// Session is what survives a restart so the client can refresh silently.
type Session struct {
	Cookies      []SessionCookie `json:"cookies"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time       `json:"expires_at,omitempty"`
}

// Empty reports whether there is nothing to restore.
func (s Session) Empty() bool {
	return len(s.Cookies) == 0 && s.RefreshToken == ""
}
