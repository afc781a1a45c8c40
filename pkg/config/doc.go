// Package config defines Warden's YAML configuration: loading, defaults,
// environment variable overrides, and validation.
//
// Basic usage:
//
//	cfg, err := config.LoadConfig("warden.yaml")
//
// With environment overrides (WARDEN_SECTION_FIELD):
//
//	cfg, err := config.LoadConfigWithEnvOverrides("warden.yaml")
package config
