package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (LETSRIDE_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Firestore FirestoreConfig
	Storage   StorageConfig
	Search    SearchConfig
	Admin     AdminConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// FirestoreConfig selects the product store. An empty ProjectID runs the
// service against the in-memory store, for local development and tests.
type FirestoreConfig struct {
	ProjectID       string `usage:"GCP project id; empty runs the in-memory store" flag:"firestore-project"`
	CredentialsFile string `usage:"Path to a service account JSON file" flag:"firestore-credentials"`
}

// StorageConfig names the bucket product images upload to.
type StorageConfig struct {
	Bucket string `usage:"Cloud Storage bucket for product images" flag:"storage-bucket"`
}

// SearchConfig points at the hosted search index. An empty BaseURL leaves
// only the local fallback index.
type SearchConfig struct {
	BaseURL string `usage:"Search service base URL; empty uses the local index only" flag:"search-url"`
	Index   string `default:"products" usage:"Search index name" flag:"search-index"`
	APIKey  string `usage:"Search service API key" flag:"search-api-key"`
}

// AdminConfig controls admin endpoint authentication. With Firestore
// enabled, tokens verify against Firebase Auth; otherwise KeyHash names the
// accepted static key.
type AdminConfig struct {
	KeyPepper string `usage:"HMAC pepper for static admin keys" flag:"admin-key-pepper"`
	KeyHash   string `usage:"Hex HMAC-SHA256 of the accepted admin key" flag:"admin-key-hash"`
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "LETSRIDE",
		Files:     []string{"config.yaml", "/etc/letsride/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.Firestore.ProjectID == "" && cfg.Admin.KeyHash == "" {
		return nil, errors.New("admin auth required: set LETSRIDE_FIRESTORE_PROJECT_ID or LETSRIDE_ADMIN_KEY_HASH")
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like PORT and
// GOOGLE_CLOUD_PROJECT to the LETSRIDE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
	if c.Firestore.ProjectID == "" {
		if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
			c.Firestore.ProjectID = v
		}
	}
}
