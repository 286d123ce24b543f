package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeServer()
	c.normalizeAuth()
	if err := c.normalizeStores(); err != nil {
		return err
	}
	if err := c.normalizeImport(); err != nil {
		return err
	}
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	var err error
	if c.Metrics.Textfile, err = expandPath(strings.TrimSpace(c.Metrics.Textfile)); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	if value, ok := os.LookupEnv("TIS_STAGING"); ok {
		if staging, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			c.Server.Staging = staging
		}
	}
	defaults := Default().Server
	if c.Server.Staging && strings.TrimSpace(c.Server.BaseURL) == defaults.BaseURL {
		c.Server = StagingServer()
		return
	}
	c.Server.Name = strings.TrimSpace(c.Server.Name)
	if c.Server.Name == "" {
		c.Server.Name = defaults.Name
	}
	c.Server.BaseURL = strings.TrimRight(strings.TrimSpace(c.Server.BaseURL), "/")
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = defaults.BaseURL
	}
	c.Server.ClientURL = strings.TrimRight(strings.TrimSpace(c.Server.ClientURL), "/")
	if c.Server.ClientURL == "" {
		c.Server.ClientURL = c.Server.BaseURL
	}
	c.Server.ClientID = strings.TrimSpace(c.Server.ClientID)
	if c.Server.ClientID == "" {
		c.Server.ClientID = defaults.ClientID
	}
}

func (c *Config) normalizeAuth() {
	c.Auth.APIToken = strings.TrimSpace(c.Auth.APIToken)
	if c.Auth.APIToken != "" {
		return
	}
	if value, ok := os.LookupEnv("TIS_API_TOKEN"); ok {
		c.Auth.APIToken = strings.TrimSpace(value)
	} else if value, ok := os.LookupEnv("TACHI_API_KEY"); ok {
		c.Auth.APIToken = strings.TrimSpace(value)
	}
}

func (c *Config) normalizeStores() error {
	var err error
	if c.LR2.ScorePath, err = expandPath(strings.TrimSpace(c.LR2.ScorePath)); err != nil {
		return fmt.Errorf("lr2.score_path: %w", err)
	}
	if c.LR2.ChartPath, err = expandPath(strings.TrimSpace(c.LR2.ChartPath)); err != nil {
		return fmt.Errorf("lr2.chart_path: %w", err)
	}
	if c.Beatoraja.ScorePath, err = expandPath(strings.TrimSpace(c.Beatoraja.ScorePath)); err != nil {
		return fmt.Errorf("beatoraja.score_path: %w", err)
	}
	if c.Beatoraja.ChartPath, err = expandPath(strings.TrimSpace(c.Beatoraja.ChartPath)); err != nil {
		return fmt.Errorf("beatoraja.chart_path: %w", err)
	}
	if c.USC.DBPath, err = expandPath(strings.TrimSpace(c.USC.DBPath)); err != nil {
		return fmt.Errorf("usc.db_path: %w", err)
	}
	c.USC.Playtype = canonicalPlaytype(c.USC.Playtype)
	if c.USC.Playtype == "" {
		c.USC.Playtype = defaultUSCPlaytype
	}
	return nil
}

func (c *Config) normalizeImport() error {
	var err error
	if strings.TrimSpace(c.Import.FallbackDir) == "" {
		c.Import.FallbackDir = Default().Import.FallbackDir
	}
	if c.Import.FallbackDir, err = expandPath(strings.TrimSpace(c.Import.FallbackDir)); err != nil {
		return fmt.Errorf("import.fallback_dir: %w", err)
	}
	if c.Import.RequestTimeout == 0 {
		c.Import.RequestTimeout = defaultRequestTimeout
	}
	if c.Import.PollInterval == 0 {
		c.Import.PollInterval = defaultPollInterval
	}
	c.Import.UserAgent = strings.TrimSpace(c.Import.UserAgent)
	if c.Import.UserAgent == "" {
		c.Import.UserAgent = defaultUserAgent
	}
	c.Import.ServiceName = strings.TrimSpace(c.Import.ServiceName)
	if c.Import.ServiceName == "" {
		c.Import.ServiceName = defaultServiceName
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.LogDir, err = expandPath(strings.TrimSpace(c.Logging.LogDir)); err != nil {
		return fmt.Errorf("logging.log_dir: %w", err)
	}
	return nil
}

func canonicalPlaytype(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "controller":
		return "Controller"
	case "keyboard":
		return "Keyboard"
	default:
		return strings.TrimSpace(value)
	}
}
