// Package models provides data model definitions for the Quillnote sync core.
package models

import "time"

// AccountSession holds the cloud account credentials for this device.
// AccessToken is a bearer JWT issued by the cloud service; it is never
// exposed in JSON responses.
type AccountSession struct {
	ID           UUID   `db:"id" json:"id"`
	AccountEmail string `db:"account_email" json:"account_email"`
	AccessToken  string `db:"access_token" json:"-"`  // Never expose
	RefreshToken string `db:"refresh_token" json:"-"` // Never expose
	IsEnabled    bool   `db:"is_enabled" json:"is_enabled"`
	CreatedAt    int64  `db:"created_at" json:"created_at"`
	UpdatedAt    int64  `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for AccountSession.
func (AccountSession) TableName() string {
	return "account_sessions"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (s *AccountSession) CreatedAtTime() time.Time {
	return time.UnixMilli(s.CreatedAt)
}

// UpdatedAtTime returns the UpdatedAt as time.Time.
func (s *AccountSession) UpdatedAtTime() time.Time {
	return time.UnixMilli(s.UpdatedAt)
}
