// Package config provides configuration loading and validation for the password service.
// It reads a YAML file, fills unset values with defaults and applies PASSWDGEN_*
// environment overrides, optionally loaded from a .env file.
package config
