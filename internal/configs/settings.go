package configs

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// EnvSecretsRepo overrides where the local secrets checkout lives. Useful
// when a developer already keeps a clone of the secrets repository.
const EnvSecretsRepo = "CLOAK_SECRETS_REPO"

type UserSettings struct {
	// SourcesPath is where cloak keeps its managed secrets checkouts.
	SourcesPath string

	// UserConfigsPath holds the per-user config.toml.
	UserConfigsPath string
}

var UserCloakSettings *UserSettings

func init() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("error getting home directory: %s", err)
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("error getting config directory: %s", err)
	}

	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	// This is independent of what repo you are in, so it is ok to init here
	UserCloakSettings = &UserSettings{
		SourcesPath:     filepath.Join(dataDir, "cloak", "sources"),
		UserConfigsPath: filepath.Join(configDir, "cloak"),
	}
}

// CheckoutPathFor returns the local checkout directory for a secrets
// repository URL. The CLOAK_SECRETS_REPO environment variable wins so that
// developers and CI can point cloak at an existing clone.
func CheckoutPathFor(url string) string {
	if v := os.Getenv(EnvSecretsRepo); v != "" {
		return v
	}
	return filepath.Join(UserCloakSettings.SourcesPath, repoDirName(url))
}

// repoDirName derives a directory name from a repository URL or path.
func repoDirName(url string) string {
	name := strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	if i := strings.LastIndexAny(name, "/:"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "secrets"
	}
	return name
}
