package repository

import "gorm.io/gorm"

// GormStore implements Store on top of a gorm connection or transaction
type GormStore struct {
	db          *gorm.DB
	plugins     *PluginRepository
	tags        *PluginTagRepository
	syncPlugins *SyncPluginRepository
}

// NewGormStore creates a Store whose repositories share db
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:          db,
		plugins:     NewPluginRepository(db),
		tags:        NewPluginTagRepository(db),
		syncPlugins: NewSyncPluginRepository(db),
	}
}

// Plugins returns the plugin repository
func (s *GormStore) Plugins() PluginRepositoryInterface {
	return s.plugins
}

// Tags returns the plugin tag repository
func (s *GormStore) Tags() PluginTagRepositoryInterface {
	return s.tags
}

// SyncPlugins returns the sync plugin repository
func (s *GormStore) SyncPlugins() SyncPluginRepositoryInterface {
	return s.syncPlugins
}

// Transaction runs fn inside a database transaction. Nested calls use savepoints.
func (s *GormStore) Transaction(fn func(tx Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewGormStore(tx))
	})
}
