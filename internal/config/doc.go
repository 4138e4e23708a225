// Package config loads and validates application configuration from
// environment variables and an optional config file. Environment variables
// take precedence over file values; every setting has a documented default
// except the secrets.
package config
