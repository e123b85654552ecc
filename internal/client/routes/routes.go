// Package routes names the screens of the client and tells public ones from
// those that need a session.
package routes

import "strings"

const (
	Login         = "/login"
	Offline       = "/offline"
	Help          = "/help"
	Orders        = "/orders"
	Notifications = "/notifications"
	Queue         = "/queue"
	Settings      = "/settings"
	Profile       = "/profile"
)

var public = map[string]bool{
	Login:   true,
	Offline: true,
	Help:    true,
}

// IsPublic reports whether route can be shown without a session.
func IsPublic(route string) bool {
	return public[normalize(route)]
}

// Order is the route of a single order.
func Order(id string) string {
	return Orders + "/" + id
}

func normalize(route string) string {
	route, _, _ = strings.Cut(route, "?")
	if route != "/" {
		route = strings.TrimRight(route, "/")
	}
	if route == "" {
		return "/"
	}
	return route
}
