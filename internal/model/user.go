package model

import (
	"time"
)

// DirectoryUser is the contact information the directory holds for a user.
type DirectoryUser struct {
	ID          string     `db:"id" json:"id"`
	Email       string     `db:"email" json:"email"`
	DisplayName string     `db:"display_name" json:"displayName"`
	DisabledAt  *time.Time `db:"disabled_at" json:"disabledAt,omitempty"`
}
