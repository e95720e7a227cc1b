package infra

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents application configuration loaded from environment
// variables. Provider credentials are optional here: a missing key is not a
// configuration error, it is classified by the provider client at call time.
type Config struct {
	AppEnv              string
	CloudflareAccountID string
	CloudflareAPIToken  string
	FalKey              string
	OutputDir           string
	TelemetryPath       string
	HTTPTimeout         time.Duration
}

// LoadConfig loads a .env file if one can be found (existing environment
// variables always win) and assembles the configuration with defaults.
func LoadConfig() (*Config, error) {
	root := findRepoRoot()
	if root != "" {
		_ = godotenv.Load(filepath.Join(root, ".env"))
	} else {
		_ = godotenv.Load()
		root = "."
	}

	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		CloudflareAccountID: os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
		CloudflareAPIToken:  os.Getenv("CLOUDFLARE_API_TOKEN"),
		FalKey:              falKeyFromEnv(),
		OutputDir:           getEnv("IMAGE_OUTPUT_DIR", filepath.Join(root, ".ada", "data", "images")),
		TelemetryPath:       os.Getenv("IMAGE_TELEMETRY_PATH"),
		HTTPTimeout:         time.Second * time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 60)),
	}

	return cfg, nil
}

// falKeyFromEnv honors both credential spellings; FAL_KEY wins when set.
func falKeyFromEnv() string {
	if v := os.Getenv("FAL_KEY"); v != "" {
		return v
	}
	return os.Getenv("FAL_API_KEY")
}

// findRepoRoot walks up from the working directory looking for a .env file or
// a .git directory. Returns "" when neither marker is found.
func findRepoRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for i := 0; i < 10; i++ {
		if fileExists(filepath.Join(dir, ".env")) || fileExists(filepath.Join(dir, ".git")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
