// Package settings holds the global, admin-editable platform flags.
package settings

import (
	"context"
	"time"
)

const (
	// GlobalID is the id of the single settings document.
	GlobalID = "global"

	DefaultMaintenanceMessage = "The system is under maintenance. Please try again later."
)

type Settings struct {
	ID                 string    `bson:"_id" json:"-"`
	MaintenanceMode    bool      `bson:"maintenanceMode" json:"maintenanceMode"`
	MaintenanceMessage string    `bson:"maintenanceMessage" json:"maintenanceMessage"`
	UpdatedAt          time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
	UpdatedBy          string    `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
}

// Defaults is what Get returns before any admin has saved settings.
func Defaults() *Settings {
	return &Settings{
		ID:                 GlobalID,
		MaintenanceMessage: DefaultMaintenanceMessage,
	}
}

// Message returns the operator message, falling back to the default text.
func (s *Settings) Message() string {
	if s.MaintenanceMessage == "" {
		return DefaultMaintenanceMessage
	}
	return s.MaintenanceMessage
}

// Repo reads and writes the singleton settings document. Get returns Defaults when
// nothing has been stored yet.
type Repo interface {
	Get(ctx context.Context) (*Settings, error)
	Save(ctx context.Context, s *Settings) error
}
