// Package models defines the client-side domain types of fieldcrm: orders
// and their local cache records, queued mutations, photos, settings and the
// cached technician identity.
package models
