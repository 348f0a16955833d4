package domain

import "time"

type User struct {
	ID            string
	Email         string
	DisplayName   string
	AvatarURL     string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Organization struct {
	ID        string
	Name      string
	OwnerID   string // empty when the organization has no owner
	CreatedAt time.Time
}
