package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable. A missing API token is not a
// validation failure: conversion works offline and submission reports the
// missing credential itself.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateUSC(); err != nil {
		return err
	}
	if err := c.validateImport(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	for key, value := range map[string]string{
		"server.base_url":   c.Server.BaseURL,
		"server.client_url": c.Server.ClientURL,
	} {
		parsed, err := url.Parse(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("%s must be an http(s) URL, got %q", key, value)
		}
		if parsed.Host == "" {
			return fmt.Errorf("%s must include a host, got %q", key, value)
		}
	}
	return nil
}

func (c *Config) validateUSC() error {
	switch c.USC.Playtype {
	case "Controller", "Keyboard":
		return nil
	default:
		return fmt.Errorf("usc.playtype must be Controller or Keyboard, got %q", c.USC.Playtype)
	}
}

func (c *Config) validateImport() error {
	if err := ensurePositiveMap(map[string]int{
		"import.request_timeout": c.Import.RequestTimeout,
		"import.poll_interval":   c.Import.PollInterval,
	}); err != nil {
		return err
	}
	if strings.TrimSpace(c.Import.FallbackDir) == "" {
		return errors.New("import.fallback_dir must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
