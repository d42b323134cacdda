package database

// SyncPluginData represents one sync record in sync_plugins.yaml
type SyncPluginData struct {
	Slug           string                 `yaml:"slug"`
	Name           string                 `yaml:"name"`
	CurrentVersion string                 `yaml:"current_version"`
	Status         string                 `yaml:"status,omitempty"`
	Metadata       map[string]interface{} `yaml:"metadata,omitempty"`
}

// SyncPluginsFile wraps the sync plugins array
type SyncPluginsFile struct {
	SyncPlugins []SyncPluginData `yaml:"sync_plugins"`
}
