package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath     string
	OutputDir  string
	CitiesDir  string
	ArchiveDir string
	LogLevel   string

	ContextWindow     int
	DefaultTermLength int
	InferBareYear     bool
	MaxParallelCities int

	SheetsClientID     string
	SheetsClientSecret string
	SheetsRedirectURI  string
	SheetsRefreshToken string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "civicroster.db")),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		CitiesDir:  getEnv("CITIES_DIR", filepath.Join(cwd, "cities")),
		ArchiveDir: getEnv("ARCHIVE_DIR", ""),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		ContextWindow:     getEnvInt("CONTEXT_WINDOW", 160),
		DefaultTermLength: getEnvInt("DEFAULT_TERM_LENGTH", 4),
		InferBareYear:     getEnvBool("INFER_BARE_YEAR", true),
		MaxParallelCities: getEnvInt("MAX_PARALLEL_CITIES", 4),

		SheetsClientID:     getEnv("SHEETS_CLIENT_ID", ""),
		SheetsClientSecret: getEnv("SHEETS_CLIENT_SECRET", ""),
		SheetsRedirectURI:  getEnv("SHEETS_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		SheetsRefreshToken: getEnv("SHEETS_REFRESH_TOKEN", ""),
	}

	return cfg, nil
}

// CityDefaults is DefaultCity with the process-wide tuning applied.
func (c Config) CityDefaults() CityConfig {
	city := DefaultCity()
	if c.DefaultTermLength > 0 {
		city.TermLength = c.DefaultTermLength
	}
	if c.ContextWindow > 0 {
		city.ContextWindow = c.ContextWindow
	}
	bare := c.InferBareYear
	city.InferBareYear = &bare
	return city
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
