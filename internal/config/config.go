// Package config loads the daemon's configuration from a JSON file with an
// environment-variable overlay, following this codebase's own viper
// singleton convention: Initialize binds defaults and environment
// variables, and the typed accessors below read through viper rather than
// handing callers a raw map.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var v *viper.Viper

// envPrefix namespaces every environment-variable override, e.g.
// TXXT_JWT_SECRET overlays jwt_secret.
const envPrefix = "TXXT"

// Initialize creates a fresh viper instance, registers defaults, and wires
// up environment-variable binding. Safe to call more than once (each call
// replaces the package-level instance); tests rely on this for isolation.
func Initialize() error {
	v = viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("tcp_socket_binding", "0.0.0.0")
	v.SetDefault("tcp_socket_port", 7890)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_expiration_in_minutes", 60)
	v.SetDefault("redb_file_path", "./grid.db")
	v.SetDefault("default_admin_username", "admin")
	v.SetDefault("default_admin_password", "")
	v.SetDefault("default_admin_email", "")
	v.SetDefault("max_connections", 64)
	v.SetDefault("nats_url", "")
	v.SetDefault("event_bus_publish_timeout", "5s")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("debug", false)

	return nil
}

// Load reads the JSON config file at path into viper (environment variables
// already bound by Initialize take precedence over file values — viper's
// standard override ordering), then returns the typed Config.
func Load(path string) (*Config, error) {
	if v == nil {
		if err := Initialize(); err != nil {
			return nil, err
		}
	}

	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{
		TCPSocketBinding:       GetString("tcp_socket_binding"),
		TCPSocketPort:          GetInt("tcp_socket_port"),
		JWTSecret:              GetString("jwt_secret"),
		JWTExpirationInMinutes: GetInt("jwt_expiration_in_minutes"),
		RedbFilePath:           GetString("redb_file_path"),
		DefaultAdminUsername:   GetString("default_admin_username"),
		DefaultAdminPassword:   GetString("default_admin_password"),
		DefaultAdminEmail:      GetString("default_admin_email"),
		MaxConnections:         GetInt("max_connections"),
		NATSURL:                GetString("nats_url"),
		EventBusPublishTimeout: GetDuration("event_bus_publish_timeout"),
		MetricsAddr:            GetString("metrics_addr"),
		Debug:                  GetBool("debug"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Config is the typed form of the JSON schema in §6: the first four field
// groups drive the core (bind address/port, save file path, token secret
// and lifetime), the trailing three are optional ambient-stack fields
// (connection governor, event-bus bridge, metrics listener).
type Config struct {
	TCPSocketBinding       string        `json:"tcp_socket_binding"`
	TCPSocketPort          int           `json:"tcp_socket_port"`
	JWTSecret              string        `json:"jwt_secret"`
	JWTExpirationInMinutes int           `json:"jwt_expiration_in_minutes"`
	RedbFilePath           string        `json:"redb_file_path"`
	DefaultAdminUsername   string        `json:"default_admin_username"`
	DefaultAdminPassword   string        `json:"default_admin_password"`
	DefaultAdminEmail      string        `json:"default_admin_email"`
	MaxConnections         int           `json:"max_connections"`
	NATSURL                string        `json:"nats_url"`
	EventBusPublishTimeout time.Duration `json:"event_bus_publish_timeout"`
	MetricsAddr            string        `json:"metrics_addr"`
	Debug                  bool          `json:"debug"`
}

// JWTExpiration returns JWTExpirationInMinutes as a time.Duration.
func (c *Config) JWTExpiration() time.Duration {
	return time.Duration(c.JWTExpirationInMinutes) * time.Minute
}

// Validate checks the fields the core cannot safely run without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("config: jwt_secret must not be empty")
	}
	if c.DefaultAdminPassword == "" {
		return fmt.Errorf("config: default_admin_password must not be empty")
	}
	if c.TCPSocketPort <= 0 || c.TCPSocketPort > 65535 {
		return fmt.Errorf("config: tcp_socket_port %d out of range", c.TCPSocketPort)
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("config: max_connections must be positive")
	}
	return nil
}

// GetString reads a string value through the package viper instance.
func GetString(key string) string { return v.GetString(key) }

// GetInt reads an int value through the package viper instance.
func GetInt(key string) int { return v.GetInt(key) }

// GetBool reads a bool value through the package viper instance.
func GetBool(key string) bool { return v.GetBool(key) }

// GetDuration reads a duration value through the package viper instance.
func GetDuration(key string) time.Duration { return v.GetDuration(key) }
