// Package config loads and validates ThermoCloud Core configuration.
//
// Configuration is read from a YAML file, merged over built-in defaults,
// and selectively overridable via THERMOCLOUD_* environment variables
// (secrets and deployment-specific values only).
package config
