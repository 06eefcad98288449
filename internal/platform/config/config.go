package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files (e.g. ".env"); with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// Recorder holds the process settings of the recorder service.
type Recorder struct {
	Port         string
	LogLevel     string
	LogFormat    string
	OutputPrefix string
	Audio        bool
	Video        bool
	Engine       string
	DrainTimeout time.Duration
	HistoryLimit int
}

// FromEnv reads Recorder settings from the environment, applying defaults.
func FromEnv() Recorder {
	return Recorder{
		Port:         GetEnv("PORT", "8080"),
		LogLevel:     GetEnv("LOG_LEVEL", "info"),
		LogFormat:    GetEnv("LOG_FORMAT", "json"),
		OutputPrefix: GetEnv("MUX_OUTPUT_PREFIX", "recording"),
		Audio:        GetEnvBool("MUX_AUDIO", true),
		Video:        GetEnvBool("MUX_VIDEO", true),
		Engine:       strings.ToLower(GetEnv("MUX_ENGINE", "gstreamer")),
		DrainTimeout: GetEnvDuration("MUX_DRAIN_TIMEOUT", 5*time.Second),
		HistoryLimit: GetEnvInt("MUX_HISTORY_LIMIT", 256),
	}
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvBool returns the boolean value of key as accepted by strconv.ParseBool,
// or fallback if the variable is unset, empty, or not a valid boolean.
func GetEnvBool(key string, fallback bool) bool {
	if s := os.Getenv(key); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return fallback
}

// GetEnvDuration returns the duration value of key (e.g. "500ms", "5s"), or
// fallback if the variable is unset, empty, not a valid duration or negative.
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d >= 0 {
			return d
		}
	}
	return fallback
}
