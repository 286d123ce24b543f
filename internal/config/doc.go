// Package config loads, normalizes, validates and persists tis configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TIS_API_TOKEN. The Store type wraps a loaded snapshot so callers can apply
// partial updates (remembered database paths, a new token) and receive the
// merged result; updates rewrite the file atomically under an advisory lock.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
