package repository

import (
	"plugin-directory-backend/internal/database/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PluginTagRepository handles database operations for plugin tags
type PluginTagRepository struct {
	db *gorm.DB
}

// NewPluginTagRepository creates a new plugin tag repository
func NewPluginTagRepository(db *gorm.DB) *PluginTagRepository {
	return &PluginTagRepository{db: db}
}

// FirstOrCreate returns the tag with the given slug, inserting it when absent.
// Implemented as INSERT ... ON CONFLICT DO NOTHING followed by a read so that
// concurrent callers creating the same slug end up with the same row.
func (r *PluginTagRepository) FirstOrCreate(slug, name string) (*models.PluginTag, error) {
	candidate := &models.PluginTag{Slug: slug, Name: name}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoNothing: true,
	}).Create(candidate).Error
	if err != nil {
		return nil, err
	}
	return r.GetBySlug(slug)
}

// GetBySlug retrieves a tag by slug
func (r *PluginTagRepository) GetBySlug(slug string) (*models.PluginTag, error) {
	var tag models.PluginTag
	if err := r.db.First(&tag, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}
