// Package config loads and validates the discmapper TOML configuration.
//
// Configuration is resolved in three steps: Default produces a fully
// populated Config, Load overlays a TOML file on top of the defaults, and
// Validate checks the merged result before anything touches the drive.
package config
