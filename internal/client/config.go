package client

import (
	"encoding/json"
	"os"
	"path/filepath"
)

var configProfile string

// configRoot is the directory holding per-user config; tests point it elsewhere.
var configRoot = os.UserConfigDir

// SetProfile sets the config profile for multiple bots on one machine.
func SetProfile(profile string) {
	configProfile = profile
}

// Config holds bot configuration.
type Config struct {
	// Connection settings
	LastServer string `json:"last_server"`

	// Faction identity (persisted token for reconnecting)
	FactionToken string `json:"faction_token"`
	FactionName  string `json:"faction_name"`
	FactionID    string `json:"faction_id"`
	Race         string `json:"race"`

	// Behaviour
	Aggression  float64 `json:"aggression"`   // Added to 0.5 when weighing hostile targets
	ThinkMillis int     `json:"think_millis"` // Delay between planning rounds
	Expand      float64 `json:"expand"`       // Garrison needed before opening a path
	Regrow      float64 `json:"regrow"`       // Garrison below which paths are cut
}

// DefaultConfig returns a config with default values.
func DefaultConfig() *Config {
	return &Config{
		LastServer:  "localhost:30000",
		FactionName: "Bot",
		Race:        "Orc",
		Aggression:  0.5,
		ThinkMillis: 2000,
		Expand:      15,
		Regrow:      10,
	}
}

// LoadConfig loads config from the user's config directory.
func LoadConfig() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return DefaultConfig(), err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return DefaultConfig(), err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), err
	}

	return cfg, nil
}

// Save saves the config to disk.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// configPath returns the path to the config file.
func configPath() (string, error) {
	configDir, err := configRoot()
	if err != nil {
		return "", err
	}

	filename := "config.json"
	if configProfile != "" {
		filename = "config-" + configProfile + ".json"
	}

	return filepath.Join(configDir, "valhalla", filename), nil
}
