/*
Package config manages TOML config for the termserve daemon and build tools.

The core engine packages take every knob as an explicit parameter; config is
only the edge where those parameters come from.
*/
package config

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/termserve/termserve/internal/utils"
)

// Config holds the entire config structure.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Build    BuildConfig    `toml:"build"`
	Snapshot SnapshotConfig `toml:"snapshot"`
}

// ServerConfig has serving-path options.
type ServerConfig struct {
	MaxLimit    int    `toml:"max_limit"`
	MaxPrefix   int    `toml:"max_prefix"`
	MetricsAddr string `toml:"metrics_addr"`
}

// BuildConfig holds build-cycle options.
type BuildConfig struct {
	TopK         int     `toml:"top_k"`
	MaxTermLen   int     `toml:"max_term_len"`
	MaxErrorRate float64 `toml:"max_error_rate"`
	IntervalSecs int     `toml:"interval_secs"`
	TermsPath    string  `toml:"terms_path"`
}

// SnapshotConfig holds snapshot file options.
type SnapshotConfig struct {
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			MaxLimit:    10,
			MaxPrefix:   256,
			MetricsAddr: "",
		},
		Build: BuildConfig{
			TopK:         10,
			MaxTermLen:   256,
			MaxErrorRate: 0.05,
			IntervalSecs: 300,
			TermsPath:    "data/terms.tsv",
		},
		Snapshot: SnapshotConfig{
			Path:  "data/terms.snap",
			Watch: true,
		},
	}
}

// GetConfigDir returns the config directory, falling back from ~/.config to
// the executable's directory.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primary := filepath.Join(homeDir, ".config", "termserve")
	if err := utils.EnsureDir(primary); err == nil {
		return primary, nil
	}
	return utils.GetExecutableDir()
}

// GetDefaultConfigPath returns the default path for config.toml.
func GetDefaultConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// InitConfig loads config from file or creates a default one if missing.
// Parse failures fall back to built-in defaults rather than aborting the
// daemon.
func InitConfig(configPath string) (*Config, error) {
	if err := utils.EnsureDir(filepath.Dir(configPath)); err != nil {
		log.Warnf("Failed to create config directory for %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	if !utils.FileExists(configPath) {
		cfg := DefaultConfig()
		if err := utils.SaveTOMLFile(cfg, configPath); err != nil {
			log.Warnf("Failed to create default config at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return cfg, nil
	}
	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file, with partial-section recovery when the
// file does not parse cleanly as a whole.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()
	if err := utils.LoadTOMLFile(configPath, cfg); err != nil {
		return tryPartialParse(configPath)
	}
	return cfg, nil
}

// tryPartialParse salvages whatever valid sections exist in a broken file.
func tryPartialParse(configPath string) (*Config, error) {
	cfg := DefaultConfig()
	raw, err := utils.ParseTOMLMap(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return cfg, nil
	}
	if section, ok := utils.ExtractSection(raw, "server"); ok {
		extractServerConfig(section, &cfg.Server)
	}
	if section, ok := utils.ExtractSection(raw, "build"); ok {
		extractBuildConfig(section, &cfg.Build)
	}
	if section, ok := utils.ExtractSection(raw, "snapshot"); ok {
		extractSnapshotConfig(section, &cfg.Snapshot)
	}
	return cfg, nil
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if v, ok := utils.ExtractInt(data, "max_limit"); ok {
		server.MaxLimit = v
	}
	if v, ok := utils.ExtractInt(data, "max_prefix"); ok {
		server.MaxPrefix = v
	}
	if v, ok := utils.ExtractString(data, "metrics_addr"); ok {
		server.MetricsAddr = v
	}
}

func extractBuildConfig(data map[string]any, build *BuildConfig) {
	if v, ok := utils.ExtractInt(data, "top_k"); ok {
		build.TopK = v
	}
	if v, ok := utils.ExtractInt(data, "max_term_len"); ok {
		build.MaxTermLen = v
	}
	if v, ok := utils.ExtractFloat(data, "max_error_rate"); ok {
		build.MaxErrorRate = v
	}
	if v, ok := utils.ExtractInt(data, "interval_secs"); ok {
		build.IntervalSecs = v
	}
	if v, ok := utils.ExtractString(data, "terms_path"); ok {
		build.TermsPath = v
	}
}

func extractSnapshotConfig(data map[string]any, snap *SnapshotConfig) {
	if v, ok := utils.ExtractBool(data, "watch"); ok {
		snap.Watch = v
	}
	if v, ok := utils.ExtractString(data, "path"); ok {
		snap.Path = v
	}
}

// SaveConfig saves into a TOML file.
func SaveConfig(cfg *Config, configPath string) error {
	return utils.SaveTOMLFile(cfg, configPath)
}
