// Package config handles csvboard preferences and dashboard definitions.
//
// Preferences follow the XDG Base Directory specification:
//   - Config:  ~/.config/csvboard/config.yaml
//   - Data:    ~/.local/share/csvboard/ (exported snapshots)
//   - State:   ~/.local/state/csvboard/ (last opened dashboard)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const appName = "csvboard"

// DefaultServerAddr is used by -serve when no address is configured.
const DefaultServerAddr = "127.0.0.1:8080"

// Dashboard is a registered data file plus its dashboard configuration.
type Dashboard struct {
	Name   string `yaml:"name"`
	Data   string `yaml:"data"`
	Config string `yaml:"config"`
}

// UIConfig holds terminal UI preferences.
type UIConfig struct {
	DefaultTab   string `yaml:"default_tab,omitempty"`   // tab id opened first
	ShowWarnings *bool  `yaml:"show_warnings,omitempty"` // warning footer, default on
	MaxCellWidth int    `yaml:"max_cell_width,omitempty"`
}

// ServerConfig holds the web server settings.
type ServerConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	ReadOnly bool   `yaml:"read_only,omitempty"` // reject editor endpoints
}

// WatchConfig tunes file watching.
type WatchConfig struct {
	DebounceMillis int  `yaml:"debounce_ms,omitempty"`
	ForcePoll      bool `yaml:"force_poll,omitempty"`
}

// Config is the top-level preferences file for csvboard.
type Config struct {
	Dashboards []Dashboard    `yaml:"dashboards,omitempty"`
	Favorites  map[int]string `yaml:"favorites,omitempty"` // Number key (1-9) -> dashboard name
	UI         UIConfig       `yaml:"ui,omitempty"`
	Server     ServerConfig   `yaml:"server,omitempty"`
	Watch      WatchConfig    `yaml:"watch,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Favorites: make(map[int]string),
		UI: UIConfig{
			MaxCellWidth: 32,
		},
		Server: ServerConfig{
			Addr: DefaultServerAddr,
		},
		Watch: WatchConfig{
			DebounceMillis: 200,
		},
	}
}

// ConfigDir returns the XDG config directory for csvboard.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the XDG data directory for csvboard.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// StateDir returns the XDG state directory for csvboard.
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, fallback, appName)
}

// lastDashboardPath is the state file naming the dashboard opened last.
func lastDashboardPath() string {
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "last_dashboard")
}

// RememberDashboard records name as the dashboard opened last.
func RememberDashboard(name string) error {
	path := lastDashboardPath()
	if path == "" {
		return fmt.Errorf("cannot determine state directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(name+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return nil
}

// LastDashboard returns the name stored by RememberDashboard, or "".
func LastDashboard() string {
	path := lastDashboardPath()
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Favorites == nil {
		cfg.Favorites = make(map[int]string)
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}

	for i := range cfg.Dashboards {
		cfg.Dashboards[i].Data = expandHome(cfg.Dashboards[i].Data)
		cfg.Dashboards[i].Config = expandHome(cfg.Dashboards[i].Config)
	}

	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// FindDashboard returns the dashboard with the given name, or nil.
func (c Config) FindDashboard(name string) *Dashboard {
	for i := range c.Dashboards {
		if strings.EqualFold(c.Dashboards[i].Name, name) {
			return &c.Dashboards[i]
		}
	}
	return nil
}

// FavoriteDashboard returns the dashboard assigned to number key n (1-9), or nil.
func (c Config) FavoriteDashboard(n int) *Dashboard {
	name, ok := c.Favorites[n]
	if !ok {
		return nil
	}
	return c.FindDashboard(name)
}

// SetFavorite assigns a dashboard name to a number key (1-9).
func (c *Config) SetFavorite(n int, name string) {
	if c.Favorites == nil {
		c.Favorites = make(map[int]string)
	}
	if name == "" {
		delete(c.Favorites, n)
	} else {
		c.Favorites[n] = name
	}
}

// Register adds or replaces a dashboard by name.
func (c *Config) Register(d Dashboard) {
	if existing := c.FindDashboard(d.Name); existing != nil {
		*existing = d
		return
	}
	c.Dashboards = append(c.Dashboards, d)
}

// WarningsVisible reports whether the TUI shows the warning footer.
func (u UIConfig) WarningsVisible() bool {
	return u.ShowWarnings == nil || *u.ShowWarnings
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
