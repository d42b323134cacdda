package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Plugin represents a plugin directory listing mirrored from an upstream sync record
type Plugin struct {
	BaseModel
	SyncID                 uuid.UUID      `json:"sync_id" gorm:"type:uuid;not null;uniqueIndex"`
	Slug                   string         `json:"slug" gorm:"size:255;not null;uniqueIndex" validate:"required,max=255"`
	Name                   string         `json:"name" gorm:"type:text;not null"`
	ShortDescription       string         `json:"short_description" gorm:"size:150;not null" validate:"max=150"`
	Description            string         `json:"description" gorm:"type:text;not null"`
	Version                string         `json:"version" gorm:"size:255;not null" validate:"max=255"`
	Author                 string         `json:"author" gorm:"size:255;not null" validate:"max=255"`
	Requires               string         `json:"requires" gorm:"size:255;not null" validate:"max=255"`
	RequiresPHP            *string        `json:"requires_php" gorm:"size:255" validate:"omitempty,max=255"`
	Tested                 string         `json:"tested" gorm:"size:255;not null" validate:"max=255"`
	DownloadLink           string         `json:"download_link" gorm:"size:1024;not null" validate:"max=1024"`
	Added                  time.Time      `json:"added" gorm:"not null" validate:"required"`
	LastUpdated            *time.Time     `json:"last_updated"`
	AuthorProfile          *string        `json:"author_profile" gorm:"type:text"`
	Rating                 int            `json:"rating" gorm:"not null;default:0"`
	Ratings                datatypes.JSON `json:"ratings" gorm:"type:jsonb"`
	NumRatings             int            `json:"num_ratings" gorm:"not null;default:0"`
	SupportThreads         int            `json:"support_threads" gorm:"not null;default:0"`
	SupportThreadsResolved int            `json:"support_threads_resolved" gorm:"not null;default:0"`
	ActiveInstalls         int            `json:"active_installs" gorm:"not null;default:0"`
	Downloaded             int            `json:"downloaded" gorm:"not null;default:0"`
	Homepage               *string        `json:"homepage" gorm:"type:text"`
	Banners                datatypes.JSON `json:"banners" gorm:"type:jsonb"`
	DonateLink             *string        `json:"donate_link" gorm:"size:1024" validate:"omitempty,max=1024"`
	Contributors           datatypes.JSON `json:"contributors" gorm:"type:jsonb"`
	Icons                  datatypes.JSON `json:"icons" gorm:"type:jsonb"`
	Source                 datatypes.JSON `json:"source" gorm:"type:jsonb"`
	BusinessModel          *string        `json:"business_model" gorm:"size:255" validate:"omitempty,max=255"`
	CommercialSupportURL   *string        `json:"commercial_support_url" gorm:"size:1024" validate:"omitempty,max=1024"`
	SupportURL             *string        `json:"support_url" gorm:"size:1024" validate:"omitempty,max=1024"`
	PreviewLink            *string        `json:"preview_link" gorm:"size:1024" validate:"omitempty,max=1024"`
	RepositoryURL          *string        `json:"repository_url" gorm:"size:1024" validate:"omitempty,max=1024"`
	RequiresPlugins        datatypes.JSON `json:"requires_plugins" gorm:"type:jsonb"`
	Compatibility          datatypes.JSON `json:"compatibility" gorm:"type:jsonb"`
	Screenshots            datatypes.JSON `json:"screenshots" gorm:"type:jsonb"`
	Sections               datatypes.JSON `json:"sections" gorm:"type:jsonb"`
	Versions               datatypes.JSON `json:"versions" gorm:"type:jsonb"`
	UpgradeNotice          datatypes.JSON `json:"upgrade_notice" gorm:"type:jsonb"`

	// PendingTags holds a staged tag replacement (slug -> name) that is written
	// together with the row. nil means the tag set is left as is.
	PendingTags map[string]string `json:"-" gorm:"-"`
}

// TableName returns the table name for Plugin
func (Plugin) TableName() string {
	return "plugins"
}
