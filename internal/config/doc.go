// Package config loads, normalizes, and validates platter's TOML
// configuration, including the matcher weights that drive candidate scoring.
package config
