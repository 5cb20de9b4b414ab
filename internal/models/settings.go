package models

import "time"

const RegistrationEnabledKey = "registration_enabled"

// Setting is a single key/value row of the settings table.
type Setting struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

type ToggleRegistrationRequest struct {
	Enabled *bool `json:"enabled"`
}

type RegistrationStatus struct {
	Enabled bool   `json:"enabled"`
	Message string `json:"message,omitempty"`
}
