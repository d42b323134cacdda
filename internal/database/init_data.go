package database

import (
	"encoding/json"
	"fmt"

	"plugin-directory-backend/internal/database/models"
	"plugin-directory-backend/internal/logger"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InitDataFromYAMLs loads seed data from dataDir: each row is looked up by its
// unique key and then inserted, updated or left alone.
func InitDataFromYAMLs(db *gorm.DB, dataDir string) error {
	return handleSyncPluginsFromYAML(db, dataDir)
}

func decodeSyncPlugins(b []byte) ([]SyncPluginData, error) {
	var file SyncPluginsFile
	if err := yaml.Unmarshal(b, &file); err != nil {
		return nil, err
	}
	return file.SyncPlugins, nil
}

// metadataJSON encodes YAML metadata; a missing block stays SQL NULL
func metadataJSON(md map[string]interface{}) (datatypes.JSON, error) {
	if md == nil {
		return nil, nil
	}
	b, err := json.Marshal(md)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func handleSyncPluginsFromYAML(db *gorm.DB, dataDir string) error {
	items, err := loadFromYAMLFile[SyncPluginData](dataDir, "sync_plugins.yaml", decodeSyncPlugins)
	if err != nil {
		return fmt.Errorf("load SyncPlugins from YAML: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		created := 0
		updated := 0
		unchanged := 0

		for _, sp := range items {
			md, err := metadataJSON(sp.Metadata)
			if err != nil {
				return fmt.Errorf("marshal sync plugin %s metadata: %w", sp.Slug, err)
			}
			status := sp.Status
			if status == "" {
				status = "open"
			}

			// Lookup by unique key (slug) without triggering ErrRecordNotFound logs
			var existing models.SyncPlugin
			lookup := tx.Where("slug = ?", sp.Slug).Limit(1).Find(&existing)
			if lookup.Error != nil {
				return fmt.Errorf("query sync plugin %s: %w", sp.Slug, lookup.Error)
			}

			if lookup.RowsAffected == 0 {
				row := models.SyncPlugin{
					Slug:           sp.Slug,
					Name:           sp.Name,
					CurrentVersion: sp.CurrentVersion,
					Status:         status,
					Metadata:       md,
				}
				if err := tx.Create(&row).Error; err != nil {
					return fmt.Errorf("failed to create sync plugin %s: %w", sp.Slug, err)
				}
				created++
				continue
			}

			identical := existing.Name == sp.Name &&
				existing.CurrentVersion == sp.CurrentVersion &&
				existing.Status == status &&
				jsonEqual(existing.Metadata, md)
			if identical {
				unchanged++
				continue
			}

			updates := map[string]interface{}{
				"name":            sp.Name,
				"current_version": sp.CurrentVersion,
				"status":          status,
				"metadata":        md,
				"updated_at":      gorm.Expr("CURRENT_TIMESTAMP"),
			}
			if err := tx.Model(&existing).Updates(updates).Error; err != nil {
				return fmt.Errorf("update sync plugin %s: %w", sp.Slug, err)
			}
			updated++
		}

		logger.New().WithFields(map[string]interface{}{
			"created":   created,
			"updated":   updated,
			"unchanged": unchanged,
			"total":     len(items),
		}).Info("Sync plugins handling completed")
		return nil
	})
}
