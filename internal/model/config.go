package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ProviderConfig holds the connection settings for the remote
// spreadsheet-backed record store.
type ProviderConfig struct {
	// BaseURL is the root URL of the provider's REST surface.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// SpreadsheetID identifies the agency's lead book.
	SpreadsheetID string `mapstructure:"spreadsheet_id" yaml:"spreadsheet_id"`

	// LeadsTab, UsersTab and BroadcastsTab name the sheet tabs read by
	// the adapter.
	LeadsTab      string `mapstructure:"leads_tab" yaml:"leads_tab"`
	UsersTab      string `mapstructure:"users_tab" yaml:"users_tab"`
	BroadcastsTab string `mapstructure:"broadcasts_tab" yaml:"broadcasts_tab"`

	// TokenURL is the provider's token endpoint used for session refresh.
	TokenURL string `mapstructure:"token_url" yaml:"token_url"`

	// TimeoutSec bounds every remote call.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// SyncConfig controls the refresh cycle.
type SyncConfig struct {
	// IntervalSec is the foreground sync period.
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`

	// ProbeIntervalSec is the connectivity probe period.
	ProbeIntervalSec int `mapstructure:"probe_interval_sec" yaml:"probe_interval_sec"`
}

// NotificationConfig seeds the stored notification settings on first run.
type NotificationConfig struct {
	DNDEnabled        bool   `mapstructure:"dnd_enabled" yaml:"dnd_enabled"`
	DNDStart          string `mapstructure:"dnd_start" yaml:"dnd_start"`
	DNDEnd            string `mapstructure:"dnd_end" yaml:"dnd_end"`
	DigestLowPriority bool   `mapstructure:"digest_low_priority" yaml:"digest_low_priority"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	// DataDir is where the local database lives.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	Provider      ProviderConfig     `mapstructure:"provider" yaml:"provider"`
	Sync          SyncConfig         `mapstructure:"sync" yaml:"sync"`
	Notifications NotificationConfig `mapstructure:"notifications" yaml:"notifications"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/tripflow/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "tripflow", "config.yaml")
}

// defaultDataDir resolves the default database directory.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "tripflow")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		DataDir: defaultDataDir(),
		Provider: ProviderConfig{
			LeadsTab:      "Leads",
			UsersTab:      "Users",
			BroadcastsTab: "Broadcasts",
			TimeoutSec:    30,
		},
		Sync: SyncConfig{
			IntervalSec:      180,
			ProbeIntervalSec: 20,
		},
		Notifications: NotificationConfig{
			DNDEnabled:        false,
			DNDStart:          "22:00",
			DNDEnd:            "07:00",
			DigestLowPriority: true,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("provider.leads_tab", "Leads")
	v.SetDefault("provider.users_tab", "Users")
	v.SetDefault("provider.broadcasts_tab", "Broadcasts")
	v.SetDefault("provider.timeout_sec", 30)
	v.SetDefault("sync.interval_sec", 180)
	v.SetDefault("sync.probe_interval_sec", 20)
	v.SetDefault("notifications.dnd_enabled", false)
	v.SetDefault("notifications.dnd_start", "22:00")
	v.SetDefault("notifications.dnd_end", "07:00")
	v.SetDefault("notifications.digest_low_priority", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("data_dir", cfg.DataDir)
	v.Set("provider", cfg.Provider)
	v.Set("sync", cfg.Sync)
	v.Set("notifications", cfg.Notifications)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// SeedSettings converts the config's notification block into stored
// notification settings for first-run initialization.
func (c NotificationConfig) SeedSettings() (NotificationSettings, error) {
	s := DefaultNotificationSettings()
	s.DNDEnabled = c.DNDEnabled
	s.DigestLowPriority = c.DigestLowPriority
	if c.DNDStart != "" {
		start, err := ParseClock(c.DNDStart)
		if err != nil {
			return s, fmt.Errorf("notifications.dnd_start: %w", err)
		}
		s.DNDStartMinutes = start
	}
	if c.DNDEnd != "" {
		end, err := ParseClock(c.DNDEnd)
		if err != nil {
			return s, fmt.Errorf("notifications.dnd_end: %w", err)
		}
		s.DNDEndMinutes = end
	}
	return s, nil
}
