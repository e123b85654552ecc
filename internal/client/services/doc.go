// Package services contains the application services the front-end talks
// to: authentication, orders and notifications. They combine the API
// client with the local store so that screens keep working offline, and
// route mutations through the sync queue when the server is out of reach.
package services
