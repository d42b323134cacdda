package repository

import (
	"plugin-directory-backend/internal/database/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PluginRepository handles database operations for plugins
type PluginRepository struct {
	db *gorm.DB
}

// NewPluginRepository creates a new plugin repository
func NewPluginRepository(db *gorm.DB) *PluginRepository {
	return &PluginRepository{db: db}
}

// Create creates a new plugin
func (r *PluginRepository) Create(plugin *models.Plugin) error {
	return r.db.Create(plugin).Error
}

// GetByID retrieves a plugin by ID
func (r *PluginRepository) GetByID(id uuid.UUID) (*models.Plugin, error) {
	var plugin models.Plugin
	if err := r.db.First(&plugin, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &plugin, nil
}

// GetBySlug retrieves a plugin by slug
func (r *PluginRepository) GetBySlug(slug string) (*models.Plugin, error) {
	var plugin models.Plugin
	if err := r.db.First(&plugin, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &plugin, nil
}

// GetBySyncID retrieves the plugin created from the given sync plugin
func (r *PluginRepository) GetBySyncID(syncID uuid.UUID) (*models.Plugin, error) {
	var plugin models.Plugin
	if err := r.db.First(&plugin, "sync_id = ?", syncID).Error; err != nil {
		return nil, err
	}
	return &plugin, nil
}

// Update writes every column of the plugin row
func (r *PluginRepository) Update(plugin *models.Plugin) error {
	return r.db.Save(plugin).Error
}

// DetachAllTags removes every tag link of the plugin
func (r *PluginRepository) DetachAllTags(pluginID uuid.UUID) error {
	return r.db.Where("plugin_id = ?", pluginID).Delete(&models.PluginPluginTag{}).Error
}

// AttachTag links a tag to the plugin. Linking an already linked tag is a no-op.
func (r *PluginRepository) AttachTag(pluginID, tagID uuid.UUID) error {
	link := &models.PluginPluginTag{PluginID: pluginID, PluginTagID: tagID}
	return r.db.Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(link).Error
}

// GetTags returns the tags currently linked to the plugin, ordered by slug
func (r *PluginRepository) GetTags(pluginID uuid.UUID) ([]models.PluginTag, error) {
	var tags []models.PluginTag
	err := r.db.Model(&models.PluginTag{}).
		Joins("JOIN plugin_plugin_tags ON plugin_plugin_tags.plugin_tag_id = plugin_tags.id").
		Where("plugin_plugin_tags.plugin_id = ?", pluginID).
		Order("plugin_tags.slug").
		Find(&tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}
