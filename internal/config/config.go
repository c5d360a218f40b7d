package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// AlarmConfig controls boundary notifications.
type AlarmConfig struct {
	// Enabled is the global alarm switch at startup.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Sound is the default sound for activities without their own:
	// "bell" (default), "chime", "digital" or "nature".
	Sound string `yaml:"sound" json:"sound"`
	// Dedup selects the repeat-suppression policy:
	//   - "last-key" (default): a single most-recently-fired key
	//   - "per-boundary": every key fired today is remembered
	Dedup string `yaml:"dedup" json:"dedup"`
	// Bell rings the terminal bell on console notifications.
	Bell bool `yaml:"bell" json:"bell"`
	// Console prints notifications to stdout.
	Console bool `yaml:"console" json:"console"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// DataDir holds the persisted schedule and the preview capture.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// LocatorInterval is how often the current activity is recomputed.
	LocatorInterval time.Duration `yaml:"locator_interval" json:"locator_interval"`

	// AlarmInterval is how often boundaries are checked.
	AlarmInterval time.Duration `yaml:"alarm_interval" json:"alarm_interval"`

	// UpcomingDays is the default horizon for /api/upcoming.
	UpcomingDays int `yaml:"upcoming_days" json:"upcoming_days"`

	Alarms AlarmConfig `yaml:"alarms" json:"alarms"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

var validSounds = map[string]bool{"bell": true, "chime": true, "digital": true, "nature": true}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          "127.0.0.1:8080",
		DataDir:         "/var/lib/daybook",
		LogLevel:        "info",
		LocatorInterval: 10 * time.Second,
		AlarmInterval:   time.Second,
		UpcomingDays:    2,
		Alarms: AlarmConfig{
			Enabled: true,
			Sound:   "bell",
			Dedup:   "last-key",
			Bell:    true,
			Console: true,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	// Both tasks run at one-second resolution at best.
	if c.LocatorInterval < time.Second {
		c.LocatorInterval = def.LocatorInterval
	}
	if c.AlarmInterval < time.Second {
		c.AlarmInterval = def.AlarmInterval
	}
	if c.UpcomingDays <= 0 {
		c.UpcomingDays = def.UpcomingDays
	}
	if !validSounds[c.Alarms.Sound] {
		c.Alarms.Sound = def.Alarms.Sound
	}
	switch c.Alarms.Dedup {
	case "last-key", "per-boundary":
		// ok
	default:
		c.Alarms.Dedup = def.Alarms.Dedup
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (parent directory created as needed) and returned.
//   - Otherwise the YAML is decoded over the defaults and normalized, so
//     keys missing from the file keep their default value.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file in the same directory, chmod 0600, rename).
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".daybook-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
