package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/zkrising/tachi-import-scripts/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with a unique temp fallback directory per
// test and a placeholder API token. It applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Auth.APIToken = "test-token"
	cfgVal.Import.FallbackDir = filepath.Join(base, "batch-manual")
	cfgVal.Import.RequestTimeout = 5
	cfgVal.Logging.LogDir = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithToken sets the API token on the test config. An empty token simulates
// an unauthenticated install.
func WithToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Auth.APIToken = token
	}
}

// WithServer points the config at a test server.
func WithServer(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.BaseURL = baseURL
		b.cfg.Server.ClientURL = baseURL
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Import.FallbackDir)
}
