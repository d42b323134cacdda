package repository

import (
	"plugin-directory-backend/internal/database/models"

	"github.com/google/uuid"
)

// PluginRepositoryInterface defines persistence operations for plugins and their tag links
type PluginRepositoryInterface interface {
	Create(plugin *models.Plugin) error
	GetByID(id uuid.UUID) (*models.Plugin, error)
	GetBySlug(slug string) (*models.Plugin, error)
	GetBySyncID(syncID uuid.UUID) (*models.Plugin, error)
	Update(plugin *models.Plugin) error
	DetachAllTags(pluginID uuid.UUID) error
	AttachTag(pluginID, tagID uuid.UUID) error
	GetTags(pluginID uuid.UUID) ([]models.PluginTag, error)
}

// PluginTagRepositoryInterface defines persistence operations for plugin tags
type PluginTagRepositoryInterface interface {
	// FirstOrCreate returns the tag with slug, creating it with name when absent.
	// The name of an existing tag is never changed.
	FirstOrCreate(slug, name string) (*models.PluginTag, error)
	GetBySlug(slug string) (*models.PluginTag, error)
}

// SyncPluginRepositoryInterface defines access to upstream sync records
type SyncPluginRepositoryInterface interface {
	Create(syncPlugin *models.SyncPlugin) error
	Update(syncPlugin *models.SyncPlugin) error
	GetByID(id uuid.UUID) (*models.SyncPlugin, error)
	GetBySlug(slug string) (*models.SyncPlugin, error)
	GetAll(limit, offset int) ([]models.SyncPlugin, int64, error)
}

// Store groups the repositories that take part in one unit of work
type Store interface {
	Plugins() PluginRepositoryInterface
	Tags() PluginTagRepositoryInterface
	SyncPlugins() SyncPluginRepositoryInterface
	// Transaction runs fn with a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	Transaction(fn func(tx Store) error) error
}
