package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server identifies the Tachi instance batches are submitted to.
type Server struct {
	Name      string `toml:"name"`
	BaseURL   string `toml:"base_url"`
	ClientURL string `toml:"client_url"`
	ClientID  string `toml:"client_id"`
	Staging   bool   `toml:"staging"`
}

// Auth holds the API credential used for submissions.
type Auth struct {
	APIToken string `toml:"api_token"`
}

// BMSStores remembers the score and chart database locations for a BMS client.
type BMSStores struct {
	ScorePath string `toml:"score_path"`
	ChartPath string `toml:"chart_path"`
}

// USC remembers the USC maps database and the playtype its scores belong to.
type USC struct {
	DBPath   string `toml:"db_path"`
	Playtype string `toml:"playtype"`
}

// Import contains submission client settings.
type Import struct {
	FallbackDir    string `toml:"fallback_dir"`
	RequestTimeout int    `toml:"request_timeout"`
	PollInterval   int    `toml:"poll_interval"`
	UserAgent      string `toml:"user_agent"`
	ServiceName    string `toml:"service_name"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	LogDir string `toml:"log_dir"`
}

// Metrics configures the optional node-exporter textfile output.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Config encapsulates all configuration values for tis.
//
// Configuration sections by subsystem:
//   - Server: target Tachi instance (production or staging)
//   - Auth: API token for direct-manual imports
//   - LR2, Beatoraja, USC: remembered local database paths
//   - Import: fallback directory, timeouts and client identity
//   - Logging: log format, level and optional log directory
//   - Metrics: Prometheus textfile destination
type Config struct {
	Server    Server    `toml:"server"`
	Auth      Auth      `toml:"auth"`
	LR2       BMSStores `toml:"lr2"`
	Beatoraja BMSStores `toml:"beatoraja"`
	USC       USC       `toml:"usc"`
	Import    Import    `toml:"import"`
	Logging   Logging   `toml:"logging"`
	Metrics   Metrics   `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg, err := decodeFile(resolvedPath, exists)
	if err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func decodeFile(path string, exists bool) (Config, error) {
	cfg := Default()
	if !exists {
		return cfg, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tis.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the fallback and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Import.FallbackDir, c.Logging.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RequestTimeout returns the HTTP timeout for a single submission request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Import.RequestTimeout) * time.Second
}

// PollInterval returns the delay between import status polls.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Import.PollInterval) * time.Second
}

// HasToken reports whether an API token is configured.
func (c *Config) HasToken() bool {
	return strings.TrimSpace(c.Auth.APIToken) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultDataDir() string {
	if base, ok := os.LookupEnv("XDG_DATA_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "tis")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.local/share/tis"
	}
	return filepath.Join(home, ".local", "share", "tis")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	// The file will carry an API token once configured.
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
