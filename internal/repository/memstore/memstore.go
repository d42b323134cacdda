// Package memstore is an in-memory repository.Store used by unit tests.
// Transactions snapshot all tables and restore them when fn fails.
package memstore

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"plugin-directory-backend/internal/database/models"
	"plugin-directory-backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Operations that can be made to fail with FailOn
const (
	OpPluginCreate     = "plugins.create"
	OpPluginUpdate     = "plugins.update"
	OpDetachAllTags    = "plugins.detach_all_tags"
	OpAttachTag        = "plugins.attach_tag"
	OpTagFirstOrCreate = "tags.first_or_create"
)

// ErrDuplicateKey mimics a unique constraint violation
var ErrDuplicateKey = errors.New("duplicate key value violates unique constraint")

type link struct {
	pluginID uuid.UUID
	tagID    uuid.UUID
}

type tables struct {
	plugins     map[uuid.UUID]models.Plugin
	tags        map[uuid.UUID]models.PluginTag
	links       map[link]struct{}
	syncPlugins map[uuid.UUID]models.SyncPlugin
}

func (t tables) clone() tables {
	c := tables{
		plugins:     make(map[uuid.UUID]models.Plugin, len(t.plugins)),
		tags:        make(map[uuid.UUID]models.PluginTag, len(t.tags)),
		links:       make(map[link]struct{}, len(t.links)),
		syncPlugins: make(map[uuid.UUID]models.SyncPlugin, len(t.syncPlugins)),
	}
	for k, v := range t.plugins {
		c.plugins[k] = v
	}
	for k, v := range t.tags {
		c.tags[k] = v
	}
	for k := range t.links {
		c.links[k] = struct{}{}
	}
	for k, v := range t.syncPlugins {
		c.syncPlugins[k] = v
	}
	return c
}

// Store implements repository.Store in memory
type Store struct {
	mu       sync.Mutex
	data     tables
	failures map[string]error
	txCount  int
}

// New creates an empty Store
func New() *Store {
	return &Store{
		data: tables{
			plugins:     map[uuid.UUID]models.Plugin{},
			tags:        map[uuid.UUID]models.PluginTag{},
			links:       map[link]struct{}{},
			syncPlugins: map[uuid.UUID]models.SyncPlugin{},
		},
		failures: map[string]error{},
	}
}

var _ repository.Store = (*Store)(nil)

// FailOn makes every later call of op return err; a nil err clears it
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) failure(op string) error {
	return s.failures[op]
}

// Plugins returns the plugin repository
func (s *Store) Plugins() repository.PluginRepositoryInterface {
	return &pluginRepo{s: s}
}

// Tags returns the tag repository
func (s *Store) Tags() repository.PluginTagRepositoryInterface {
	return &tagRepo{s: s}
}

// SyncPlugins returns the sync plugin repository
func (s *Store) SyncPlugins() repository.SyncPluginRepositoryInterface {
	return &syncPluginRepo{s: s}
}

// Transaction snapshots all tables, runs fn and restores the snapshot when fn fails
func (s *Store) Transaction(fn func(tx repository.Store) error) error {
	s.mu.Lock()
	snapshot := s.data.clone()
	s.txCount++
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// TransactionCount returns how many transactions were started
func (s *Store) TransactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txCount
}

// PluginCount returns the number of stored plugins
func (s *Store) PluginCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.plugins)
}

// TagCount returns the number of stored tags
func (s *Store) TagCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.tags)
}

// LinkCount returns the number of tag links of a plugin
func (s *Store) LinkCount(pluginID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for l := range s.data.links {
		if l.pluginID == pluginID {
			n++
		}
	}
	return n
}

type pluginRepo struct {
	s *Store
}

func (r *pluginRepo) Create(plugin *models.Plugin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpPluginCreate); err != nil {
		return err
	}
	for _, p := range r.s.data.plugins {
		if p.Slug == plugin.Slug || p.SyncID == plugin.SyncID {
			return fmt.Errorf("plugins: %w", ErrDuplicateKey)
		}
	}
	if plugin.ID == uuid.Nil {
		plugin.ID = uuid.New()
	}
	now := time.Now()
	plugin.CreatedAt = now
	plugin.UpdatedAt = now
	r.s.data.plugins[plugin.ID] = stored(plugin)
	return nil
}

func (r *pluginRepo) find(match func(models.Plugin) bool) (*models.Plugin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.data.plugins {
		if match(p) {
			out := p
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *pluginRepo) GetByID(id uuid.UUID) (*models.Plugin, error) {
	return r.find(func(p models.Plugin) bool { return p.ID == id })
}

func (r *pluginRepo) GetBySlug(slug string) (*models.Plugin, error) {
	return r.find(func(p models.Plugin) bool { return p.Slug == slug })
}

func (r *pluginRepo) GetBySyncID(syncID uuid.UUID) (*models.Plugin, error) {
	return r.find(func(p models.Plugin) bool { return p.SyncID == syncID })
}

func (r *pluginRepo) Update(plugin *models.Plugin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpPluginUpdate); err != nil {
		return err
	}
	if plugin.ID == uuid.Nil {
		plugin.ID = uuid.New()
		plugin.CreatedAt = time.Now()
	}
	plugin.UpdatedAt = time.Now()
	r.s.data.plugins[plugin.ID] = stored(plugin)
	return nil
}

func (r *pluginRepo) DetachAllTags(pluginID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpDetachAllTags); err != nil {
		return err
	}
	for l := range r.s.data.links {
		if l.pluginID == pluginID {
			delete(r.s.data.links, l)
		}
	}
	return nil
}

func (r *pluginRepo) AttachTag(pluginID, tagID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpAttachTag); err != nil {
		return err
	}
	r.s.data.links[link{pluginID: pluginID, tagID: tagID}] = struct{}{}
	return nil
}

func (r *pluginRepo) GetTags(pluginID uuid.UUID) ([]models.PluginTag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tags := []models.PluginTag{}
	for l := range r.s.data.links {
		if l.pluginID == pluginID {
			tags = append(tags, r.s.data.tags[l.tagID])
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Slug < tags[j].Slug })
	return tags, nil
}

// stored returns the row as persisted; staged tags never reach the table
func stored(plugin *models.Plugin) models.Plugin {
	row := *plugin
	row.PendingTags = nil
	return row
}

type tagRepo struct {
	s *Store
}

func (r *tagRepo) FirstOrCreate(slug, name string) (*models.PluginTag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(OpTagFirstOrCreate); err != nil {
		return nil, err
	}
	for _, t := range r.s.data.tags {
		if t.Slug == slug {
			out := t
			return &out, nil
		}
	}
	now := time.Now()
	tag := models.PluginTag{Slug: slug, Name: name}
	tag.ID = uuid.New()
	tag.CreatedAt = now
	tag.UpdatedAt = now
	r.s.data.tags[tag.ID] = tag
	return &tag, nil
}

func (r *tagRepo) GetBySlug(slug string) (*models.PluginTag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.data.tags {
		if t.Slug == slug {
			out := t
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type syncPluginRepo struct {
	s *Store
}

func (r *syncPluginRepo) Create(syncPlugin *models.SyncPlugin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sp := range r.s.data.syncPlugins {
		if sp.Slug == syncPlugin.Slug {
			return fmt.Errorf("sync_plugins: %w", ErrDuplicateKey)
		}
	}
	if syncPlugin.ID == uuid.Nil {
		syncPlugin.ID = uuid.New()
	}
	now := time.Now()
	syncPlugin.CreatedAt = now
	syncPlugin.UpdatedAt = now
	r.s.data.syncPlugins[syncPlugin.ID] = *syncPlugin
	return nil
}

func (r *syncPluginRepo) Update(syncPlugin *models.SyncPlugin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.syncPlugins[syncPlugin.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	syncPlugin.UpdatedAt = time.Now()
	r.s.data.syncPlugins[syncPlugin.ID] = *syncPlugin
	return nil
}

func (r *syncPluginRepo) GetByID(id uuid.UUID) (*models.SyncPlugin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sp, ok := r.s.data.syncPlugins[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &sp, nil
}

func (r *syncPluginRepo) GetBySlug(slug string) (*models.SyncPlugin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sp := range r.s.data.syncPlugins {
		if sp.Slug == slug {
			out := sp
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *syncPluginRepo) GetAll(limit, offset int) ([]models.SyncPlugin, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := make([]models.SyncPlugin, 0, len(r.s.data.syncPlugins))
	for _, sp := range r.s.data.syncPlugins {
		all = append(all, sp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Slug < all[j].Slug })

	total := int64(len(all))
	if offset >= len(all) {
		return []models.SyncPlugin{}, total, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], total, nil
}
