package models

import (
	"time"

	"github.com/google/uuid"
)

// PluginTag is a label shared by many plugins, unique by slug
type PluginTag struct {
	BaseModel
	Slug string `json:"slug" gorm:"size:255;not null;uniqueIndex"`
	Name string `json:"name" gorm:"size:255;not null"`
}

// TableName returns the table name for PluginTag
func (PluginTag) TableName() string {
	return "plugin_tags"
}

// PluginPluginTag links a plugin to a tag
type PluginPluginTag struct {
	PluginID    uuid.UUID `json:"plugin_id" gorm:"type:uuid;primaryKey"`
	PluginTagID uuid.UUID `json:"plugin_tag_id" gorm:"type:uuid;primaryKey;index"`
	CreatedAt   time.Time `json:"created_at"`

	Plugin    Plugin    `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	PluginTag PluginTag `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for PluginPluginTag
func (PluginPluginTag) TableName() string {
	return "plugin_plugin_tags"
}
