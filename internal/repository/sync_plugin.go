package repository

import (
	"plugin-directory-backend/internal/database/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncPluginRepository handles database operations for sync plugin records
type SyncPluginRepository struct {
	db *gorm.DB
}

// NewSyncPluginRepository creates a new sync plugin repository
func NewSyncPluginRepository(db *gorm.DB) *SyncPluginRepository {
	return &SyncPluginRepository{db: db}
}

// Create creates a new sync plugin record
func (r *SyncPluginRepository) Create(syncPlugin *models.SyncPlugin) error {
	return r.db.Create(syncPlugin).Error
}

// Update saves every column of an existing sync plugin record
func (r *SyncPluginRepository) Update(syncPlugin *models.SyncPlugin) error {
	return r.db.Save(syncPlugin).Error
}

// GetByID retrieves a sync plugin by ID
func (r *SyncPluginRepository) GetByID(id uuid.UUID) (*models.SyncPlugin, error) {
	var syncPlugin models.SyncPlugin
	if err := r.db.First(&syncPlugin, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &syncPlugin, nil
}

// GetBySlug retrieves a sync plugin by slug
func (r *SyncPluginRepository) GetBySlug(slug string) (*models.SyncPlugin, error) {
	var syncPlugin models.SyncPlugin
	if err := r.db.First(&syncPlugin, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &syncPlugin, nil
}

// GetAll retrieves sync plugins ordered by slug with pagination
func (r *SyncPluginRepository) GetAll(limit, offset int) ([]models.SyncPlugin, int64, error) {
	var syncPlugins []models.SyncPlugin
	var total int64

	if err := r.db.Model(&models.SyncPlugin{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.Model(&models.SyncPlugin{}).Order("slug").Limit(limit).Offset(offset).Find(&syncPlugins).Error; err != nil {
		return nil, 0, err
	}

	return syncPlugins, total, nil
}
