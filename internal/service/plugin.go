package service

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"plugin-directory-backend/internal/cache"
	"plugin-directory-backend/internal/database/models"
	apperrors "plugin-directory-backend/internal/errors"
	"plugin-directory-backend/internal/logger"
	"plugin-directory-backend/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PluginService maps sync records onto plugin rows and keeps their tags in step
type PluginService struct {
	store     repository.Store
	validator *validator.Validate
	syncIndex *cache.CacheWrapper[uuid.UUID]
	now       func() time.Time
}

// NewPluginService creates a new plugin service. cacheService memoizes the
// sync plugin id -> plugin id mapping; pass cache.NewNoOpCache() to disable it.
func NewPluginService(store repository.Store, validator *validator.Validate, cacheService cache.CacheService) *PluginService {
	if cacheService == nil {
		cacheService = cache.NewNoOpCache()
	}
	return &PluginService{
		store:     store,
		validator: validator,
		syncIndex: cache.NewCacheWrapper[uuid.UUID](cacheService, 0),
		now:       time.Now,
	}
}

// SetClock overrides the time source used when a payload has no added date
func (s *PluginService) SetClock(clock func() time.Time) {
	s.now = clock
}

// GetOrCreateFromSyncPlugin returns the plugin created from syncPlugin, creating
// it when none exists yet. An existing plugin is returned as stored.
func (s *PluginService) GetOrCreateFromSyncPlugin(syncPlugin *models.SyncPlugin) (*models.Plugin, error) {
	if syncPlugin == nil {
		return nil, apperrors.ErrSyncPluginNotFound
	}

	plugin, err := s.findBySyncID(syncPlugin.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup plugin for sync plugin %s: %w", syncPlugin.Slug, err)
	}
	if plugin != nil {
		return plugin, nil
	}
	return s.CreateFromSyncPlugin(syncPlugin)
}

// CreateFromSyncPlugin inserts a plugin seeded from syncPlugin, applies its full
// metadata and reconciles tags, all in one transaction.
func (s *PluginService) CreateFromSyncPlugin(syncPlugin *models.SyncPlugin) (*models.Plugin, error) {
	if syncPlugin == nil {
		return nil, apperrors.ErrSyncPluginNotFound
	}
	if !syncPlugin.HasMetadata() {
		return nil, apperrors.NewMissingMetadataError(syncPlugin.Slug)
	}
	meta, err := ParseMetadata(syncPlugin.Metadata)
	if err != nil {
		return nil, err
	}

	var plugin *models.Plugin
	err = s.store.Transaction(func(tx repository.Store) error {
		plugin = &models.Plugin{
			SyncID:           syncPlugin.ID,
			Slug:             syncPlugin.Slug,
			Name:             syncPlugin.Name,
			ShortDescription: Truncate(meta.ShortDescription, ShortDescriptionSeedLength),
			Description:      meta.Description,
			Version:          Truncate(syncPlugin.CurrentVersion, ShortTextLength),
			Author:           Truncate(meta.Author, AuthorLength),
			Requires:         Truncate(meta.Requires, ShortTextLength),
			Tested:           Truncate(meta.Tested, ShortTextLength),
			DownloadLink:     Truncate(meta.DownloadLink, URLLength),
			Added:            s.addedOrNow(meta.Added, time.Time{}),
		}
		if err := s.validatePlugin(plugin); err != nil {
			return err
		}
		if err := tx.Plugins().Create(plugin); err != nil {
			return fmt.Errorf("create plugin %s: %w", plugin.Slug, err)
		}
		if err := s.FillFromMetadata(plugin, meta); err != nil {
			return err
		}
		return s.persist(tx, plugin)
	})
	if err != nil {
		return nil, err
	}
	plugin.PendingTags = nil

	s.syncIndex.Store(syncIndexKey(syncPlugin.ID), plugin.ID)
	logger.New().WithFields(map[string]interface{}{
		"slug":      plugin.Slug,
		"plugin_id": plugin.ID,
		"sync_id":   syncPlugin.ID,
	}).Info("Created plugin from sync plugin")
	return plugin, nil
}

// FillFromMetadata copies meta onto plugin without persisting anything. The
// slug check runs first, so a mismatch leaves plugin untouched. A tag list in
// meta is staged in plugin.PendingTags and written by the next persist.
func (s *PluginService) FillFromMetadata(plugin *models.Plugin, meta *PluginMetadata) error {
	if plugin == nil {
		return apperrors.ErrPluginNotFound
	}
	if meta == nil {
		return apperrors.NewMissingMetadataError(plugin.Slug)
	}
	if meta.Slug != plugin.Slug {
		return apperrors.NewSlugMismatchError(plugin.Slug, meta.Slug)
	}

	if meta.Tags != nil {
		pending := make(map[string]string, len(meta.Tags))
		for slug, name := range meta.Tags {
			pending[Truncate(slug, ShortTextLength)] = Truncate(name, ShortTextLength)
		}
		plugin.PendingTags = pending
	}

	if meta.Name != nil {
		plugin.Name = *meta.Name
	}
	if meta.Version != nil {
		plugin.Version = Truncate(*meta.Version, ShortTextLength)
	}
	plugin.ShortDescription = Truncate(meta.ShortDescription, ShortDescriptionLength)
	plugin.Description = meta.Description
	plugin.Author = Truncate(meta.Author, AuthorLength)
	plugin.Requires = Truncate(meta.Requires, ShortTextLength)
	plugin.RequiresPHP = TruncatePtr(meta.RequiresPHP, ShortTextLength)
	plugin.Tested = Truncate(meta.Tested, ShortTextLength)
	plugin.DownloadLink = Truncate(meta.DownloadLink, URLLength)
	plugin.Added = s.addedOrNow(meta.Added, plugin.Added)
	plugin.LastUpdated = meta.LastUpdated
	plugin.AuthorProfile = meta.AuthorProfile

	plugin.Rating = meta.Rating
	plugin.Ratings = meta.Ratings
	plugin.NumRatings = meta.NumRatings
	plugin.SupportThreads = meta.SupportThreads
	plugin.SupportThreadsResolved = meta.SupportThreadsResolved
	plugin.ActiveInstalls = meta.ActiveInstalls
	plugin.Downloaded = meta.Downloaded

	plugin.Homepage = meta.Homepage
	plugin.Banners = meta.Banners
	plugin.DonateLink = TruncatePtr(meta.DonateLink, URLLength)
	plugin.Contributors = meta.Contributors
	plugin.Icons = meta.Icons
	plugin.Source = meta.Source
	plugin.BusinessModel = TruncatePtr(meta.BusinessModel, ShortTextLength)
	plugin.CommercialSupportURL = TruncatePtr(meta.CommercialSupportURL, URLLength)
	plugin.SupportURL = TruncatePtr(meta.SupportURL, URLLength)
	plugin.PreviewLink = TruncatePtr(meta.PreviewLink, URLLength)
	plugin.RepositoryURL = TruncatePtr(meta.RepositoryURL, URLLength)
	plugin.RequiresPlugins = meta.RequiresPlugins
	plugin.Compatibility = meta.Compatibility
	plugin.Screenshots = meta.Screenshots
	plugin.Sections = meta.Sections
	plugin.Versions = meta.Versions
	plugin.UpgradeNotice = meta.UpgradeNotice

	return nil
}

// UpdateFromSyncPlugin re-reads the linked sync record, re-applies its metadata
// and persists the result. On error plugin is left as it was.
func (s *PluginService) UpdateFromSyncPlugin(plugin *models.Plugin) (*models.Plugin, error) {
	if plugin == nil {
		return nil, apperrors.ErrPluginNotFound
	}
	syncPlugin, err := s.store.SyncPlugins().GetByID(plugin.SyncID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSyncPluginNotFound
		}
		return nil, fmt.Errorf("load sync plugin for %s: %w", plugin.Slug, err)
	}
	if !syncPlugin.HasMetadata() {
		return nil, apperrors.NewMissingMetadataError(syncPlugin.Slug)
	}
	meta, err := ParseMetadata(syncPlugin.Metadata)
	if err != nil {
		return nil, err
	}

	updated := *plugin
	updated.PendingTags = nil
	if err := s.FillFromMetadata(&updated, meta); err != nil {
		return nil, err
	}
	if err := s.Save(&updated); err != nil {
		return nil, err
	}
	*plugin = updated

	logger.New().WithFields(map[string]interface{}{
		"slug":      plugin.Slug,
		"plugin_id": plugin.ID,
	}).Info("Refreshed plugin from sync plugin")
	return plugin, nil
}

// Save writes plugin and any tags staged by FillFromMetadata in one
// transaction. Staged tags replace the current set and are cleared on success.
func (s *PluginService) Save(plugin *models.Plugin) error {
	if plugin == nil {
		return apperrors.ErrPluginNotFound
	}
	err := s.store.Transaction(func(tx repository.Store) error {
		return s.persist(tx, plugin)
	})
	if err != nil {
		return err
	}
	plugin.PendingTags = nil
	return nil
}

// Tags returns the committed tag set of plugin as slug => name. Tags staged by
// FillFromMetadata are not visible until persisted.
func (s *PluginService) Tags(plugin *models.Plugin) (map[string]string, error) {
	if plugin == nil {
		return nil, apperrors.ErrPluginNotFound
	}
	tags, err := s.store.Plugins().GetTags(plugin.ID)
	if err != nil {
		return nil, fmt.Errorf("load tags of plugin %s: %w", plugin.Slug, err)
	}
	out := make(map[string]string, len(tags))
	for _, tag := range tags {
		out[tag.Slug] = tag.Name
	}
	return out, nil
}

// GetBySlug retrieves a plugin by slug
func (s *PluginService) GetBySlug(slug string) (*models.Plugin, error) {
	plugin, err := s.store.Plugins().GetBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPluginNotFound
		}
		return nil, fmt.Errorf("failed to get plugin %s: %w", slug, err)
	}
	return plugin, nil
}

// persist writes the plugin row and, when tags are staged, replaces its tag links
func (s *PluginService) persist(tx repository.Store, plugin *models.Plugin) error {
	if err := s.validatePlugin(plugin); err != nil {
		return err
	}
	if err := tx.Plugins().Update(plugin); err != nil {
		return fmt.Errorf("update plugin %s: %w", plugin.Slug, err)
	}
	if plugin.PendingTags == nil {
		return nil
	}

	if err := tx.Plugins().DetachAllTags(plugin.ID); err != nil {
		return fmt.Errorf("detach tags of plugin %s: %w", plugin.Slug, err)
	}
	// sorted so concurrent writers lock tag rows in the same order
	slugs := make([]string, 0, len(plugin.PendingTags))
	for slug := range plugin.PendingTags {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	for _, slug := range slugs {
		tag, err := tx.Tags().FirstOrCreate(slug, plugin.PendingTags[slug])
		if err != nil {
			return fmt.Errorf("find or create tag %s: %w", slug, err)
		}
		if err := tx.Plugins().AttachTag(plugin.ID, tag.ID); err != nil {
			return fmt.Errorf("attach tag %s to plugin %s: %w", slug, plugin.Slug, err)
		}
	}
	return nil
}

// findBySyncID returns nil, nil when no plugin was created from syncID yet
func (s *PluginService) findBySyncID(syncID uuid.UUID) (*models.Plugin, error) {
	key := syncIndexKey(syncID)
	// a cached id whose row is gone is dropped and resolved once more
	for attempt := 0; attempt < 2; attempt++ {
		var fetched *models.Plugin
		id, err := s.syncIndex.GetOrFetch(key, func() (uuid.UUID, error) {
			plugin, err := s.store.Plugins().GetBySyncID(syncID)
			if err != nil {
				return uuid.Nil, err
			}
			fetched = plugin
			return plugin.ID, nil
		})
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, err
		}
		if fetched != nil {
			return fetched, nil
		}

		plugin, err := s.store.Plugins().GetByID(id)
		if err == nil {
			return plugin, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		_ = s.syncIndex.Invalidate(key)
	}
	return nil, nil
}

// validatePlugin reports the first failing field as a ValidationError
func (s *PluginService) validatePlugin(plugin *models.Plugin) error {
	err := s.validator.Struct(plugin)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		return fmt.Errorf("validate plugin %s: %w", plugin.Slug, apperrors.NewValidationError(fe.Field(), "failed on "+rule))
	}
	return fmt.Errorf("validate plugin %s: %w", plugin.Slug, err)
}

// addedOrNow keeps the current value when the payload has no usable date
func (s *PluginService) addedOrNow(added *time.Time, current time.Time) time.Time {
	if added != nil {
		return *added
	}
	if !current.IsZero() {
		return current
	}
	return s.now().UTC()
}

func syncIndexKey(syncID uuid.UUID) string {
	return cache.BuildKey(cache.KeyPrefixPluginBySyncID, syncID.String())
}
