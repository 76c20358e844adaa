package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultDeviceOpenTimeout is used when the config leaves the timeout empty.
const DefaultDeviceOpenTimeout = 5 * time.Second

// Logging selects how the application logs
type Logging struct {
	Level       string `json:"level"`       // debug, info, warn or error
	Encoding    string `json:"encoding"`    // console or json
	Destination string `json:"destination"` // "console" or a file path
}

// Config holds application configuration
type Config struct {
	FirstLaunchCompleted bool              `json:"first_launch_completed"`
	Logging              Logging           `json:"logging"`
	SynthDefinitions     []string          `json:"synth_definitions"`
	DeviceOpenTimeout    string            `json:"device_open_timeout"`
	Preferences          map[string]string `json:"preferences"`

	path string
}

// Default returns the configuration used when no file exists yet
func Default() *Config {
	return &Config{
		Logging: Logging{
			Level:       "info",
			Encoding:    "console",
			Destination: "console",
		},
		SynthDefinitions:  []string{},
		DeviceOpenTimeout: DefaultDeviceOpenTimeout.String(),
		Preferences:       map[string]string{},
	}
}

// configDir returns the platform-appropriate config directory
func configDir() (string, error) {
	configHome, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configHome, "gopher-instruments"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default location, returning defaults if not found
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads the config at path, returning defaults if not found. Save
// writes back to the same path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		cfg.path = path
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.path = path

	// Ensure collections are not nil
	if cfg.SynthDefinitions == nil {
		cfg.SynthDefinitions = []string{}
	}
	if cfg.Preferences == nil {
		cfg.Preferences = map[string]string{}
	}
	if _, err := cfg.OpenTimeout(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the file the config is saved to
func (c *Config) Path() string {
	return c.path
}

// Save writes the config to disk
func (c *Config) Save() error {
	configPath := c.path
	if configPath == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		configPath = p
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// OpenTimeout parses DeviceOpenTimeout. An empty value means the default.
func (c *Config) OpenTimeout() (time.Duration, error) {
	if c.DeviceOpenTimeout == "" {
		return DefaultDeviceOpenTimeout, nil
	}
	d, err := time.ParseDuration(c.DeviceOpenTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid device_open_timeout %q: %w", c.DeviceOpenTimeout, err)
	}
	return d, nil
}

// AddSynthDefinition records a definition file to load at startup
func (c *Config) AddSynthDefinition(path string) bool {
	for _, p := range c.SynthDefinitions {
		if p == path {
			return false
		}
	}
	c.SynthDefinitions = append(c.SynthDefinitions, path)
	return true
}

// RemoveSynthDefinition forgets a definition file
func (c *Config) RemoveSynthDefinition(path string) bool {
	for i, p := range c.SynthDefinitions {
		if p == path {
			c.SynthDefinitions = append(c.SynthDefinitions[:i], c.SynthDefinitions[i+1:]...)
			return true
		}
	}
	return false
}

// Store exposes the preferences of a Config as a key/value store. Every
// change is saved immediately.
type Store struct {
	mu  sync.Mutex
	cfg *Config
}

func NewStore(cfg *Config) *Store {
	if cfg.Preferences == nil {
		cfg.Preferences = map[string]string{}
	}
	return &Store{cfg: cfg}
}

func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.cfg.Preferences[key]
	return v, ok
}

// Set stores value under key and saves the config. An unchanged value is
// not written again.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cfg.Preferences[key]; ok && v == value {
		return nil
	}
	s.cfg.Preferences[key] = value
	return s.cfg.Save()
}
