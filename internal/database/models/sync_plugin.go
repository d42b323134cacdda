package models

import (
	"bytes"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// SyncPlugin is the raw record written by the upstream sync for one plugin.
// Metadata holds the unmodified plugin-info payload, or nothing when the
// last fetch did not return one.
type SyncPlugin struct {
	BaseModel
	Slug           string         `json:"slug" gorm:"size:255;not null;uniqueIndex"`
	Name           string         `json:"name" gorm:"type:text;not null"`
	CurrentVersion string         `json:"current_version" gorm:"size:255"`
	Status         string         `json:"status" gorm:"size:32;not null;default:'open'"`
	Metadata       datatypes.JSON `json:"metadata" gorm:"type:jsonb"`
	PulledAt       *time.Time     `json:"pulled_at"`
}

// TableName returns the table name for SyncPlugin
func (SyncPlugin) TableName() string {
	return "sync_plugins"
}

// HasMetadata reports whether the record carries a non-empty payload. null,
// an empty object and an empty array count as no payload, whatever their
// whitespace. A payload that is not valid JSON is reported as present so the
// decoder can reject it.
func (s *SyncPlugin) HasMetadata() bool {
	raw := bytes.TrimSpace(s.Metadata)
	if len(raw) == 0 {
		return false
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return true
	}
	switch t := v.(type) {
	case nil:
		return false
	case map[string]interface{}:
		return len(t) > 0
	case []interface{}:
		return len(t) > 0
	}
	return true
}
