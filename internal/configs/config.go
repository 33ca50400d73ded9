package configs

import (
	"fmt"
	"os"
	"path/filepath"
)

// UserConfig holds per-user defaults that seed the interactive setup flow.
// It never contains key material.
type UserConfig struct {
	Defaults Defaults `toml:"defaults"`
}

type Defaults struct {
	// SourceURL is the secrets repository offered as the default during init.
	SourceURL string `toml:"source_url"`

	// SourceBranch is the branch offered as the default during init.
	SourceBranch string `toml:"source_branch"`
}

// LoadUserConfig loads the user configuration from the config file.
// A missing file yields an empty config, not an error.
func LoadUserConfig() (*UserConfig, error) {
	configPath := filepath.Join(UserCloakSettings.UserConfigsPath, "config.toml")

	config := &UserConfig{}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	if err := LoadTOML(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	return config, nil
}

// SaveUserConfig saves the user configuration to the config file.
func SaveUserConfig(config *UserConfig) error {
	configPath := filepath.Join(UserCloakSettings.UserConfigsPath, "config.toml")

	if err := SaveTOML(configPath, config); err != nil {
		return fmt.Errorf("failed to save user config: %w", err)
	}

	return nil
}
