package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// APIBaseURL is the marketplace API origin, e.g. https://api.ecosdelcampo.mx/api.
	APIBaseURL  string        `env:"API_BASE_URL, default=http://localhost:3000/api"`
	RefreshPath string        `env:"REFRESH_PATH, default=/auth/refresh"`
	TokenTTL    time.Duration `env:"TOKEN_TTL,    default=15m"`

	// DataDir holds the SQLite database backing the offline queue and
	// credential store.
	DataDir string `env:"DATA_DIR, default=./data"`
	// CredentialKey is the passphrase sealing the stored access token.
	CredentialKey string `env:"CREDENTIAL_KEY, required"`

	ProbeInterval time.Duration `env:"PROBE_INTERVAL, default=15s"`
	StatusAddr    string        `env:"STATUS_ADDR,    default=127.0.0.1:8090"`

	Redis RedisConfig
	Edge  EdgeConfig
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type EdgeConfig struct {
	Enabled bool   `env:"EDGE_ENABLED, default=true"`
	Addr    string `env:"EDGE_ADDR,    default=127.0.0.1:8081"`
	// Upstream is the origin the edge proxy forwards to (API and static assets).
	Upstream string `env:"EDGE_UPSTREAM, default=http://localhost:3000"`
	// Generation tags every cache key; activation purges keys from any other
	// generation.
	Generation  string        `env:"EDGE_CACHE_GENERATION, default=v3"`
	CacheTTL    time.Duration `env:"EDGE_CACHE_TTL,        default=168h"`
	OfflinePage string        `env:"EDGE_OFFLINE_PAGE,     default=/offline.html"`
	// ShellAssets is the precache manifest fetched on install.
	ShellAssets []string `env:"EDGE_SHELL_ASSETS, default=/,/index.html,/css/premium.css,/js/config.js,/manifest.json,/offline.html"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
