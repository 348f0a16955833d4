package domain

import "time"

// AuditLog is an append-only record of a security relevant event.
type AuditLog struct {
	ID             string
	Event          string
	IP             string
	UserAgent      string
	OrganizationID string
	ClientID       string
	UserID         string
	Meta           map[string]any
	CreatedAt      time.Time
}
