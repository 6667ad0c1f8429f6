package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dfryer1193/postimport/shared/db/sqlite"
	gh "github.com/dfryer1193/postimport/shared/github"
	"github.com/joho/godotenv"
)

const (
	defaultContentDir   = "src/content/blog"
	defaultAssetsDir    = "src/assets/images"
	defaultHTTPPort     = 8080
	defaultFetchTimeout = 30 * time.Second
)

// Config is the runtime configuration shared by the CLI and the server.
type Config struct {
	ContentDir       string
	AssetsDir        string
	HTTPPort         int
	FetchTimeout     time.Duration
	PruneStaleAssets bool
	SQLite           *sqlite.SQLiteConfig
	GitHub           *gh.PublisherConfig
}

// Load reads a .env file when present and builds the configuration from the
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := intEnv("HTTP_PORT", defaultHTTPPort)
	if err != nil {
		return nil, err
	}

	timeout, err := durationEnv("FETCH_TIMEOUT", defaultFetchTimeout)
	if err != nil {
		return nil, err
	}

	prune, err := boolEnv("PRUNE_STALE_ASSETS", false)
	if err != nil {
		return nil, err
	}

	return &Config{
		ContentDir:       stringEnv("CONTENT_DIR", defaultContentDir),
		AssetsDir:        stringEnv("ASSETS_DIR", defaultAssetsDir),
		HTTPPort:         port,
		FetchTimeout:     timeout,
		PruneStaleAssets: prune,
		SQLite:           sqlite.NewSQLiteConfig(),
		GitHub:           gh.NewPublisherConfig(),
	}, nil
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > 65535 {
		return 0, fmt.Errorf("invalid %s %q: must be a port number", key, v)
	}
	return n, nil
}

// durationEnv accepts Go durations ("45s") and plain seconds ("45").
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration", key, v)
	}
	return d, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}
