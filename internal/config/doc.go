// Package config loads server configuration from defaults, a YAML file, .env
// files and SESSIONAUTH_ environment variables.
package config
