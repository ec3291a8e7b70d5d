// Package config loads the load balancer's TOML configuration: the listen
// address, the initial backend list and the provisioner, health and proxy
// settings.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"klein/internal/ring"
	"klein/internal/state"
)

// ServerConf describes one backend known at startup.
type ServerConf struct {
	Name string `toml:"name"`
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ProvisionerConf controls how backend processes are started and stopped.
// When Enabled is false membership changes are in-memory only. Strict makes
// a failed start roll back the admission instead of committing anyway.
type ProvisionerConf struct {
	Enabled  bool   `toml:"enabled"`
	Image    string `toml:"image"`
	Network  string `toml:"network"`
	Host     string `toml:"host"`
	BasePort int    `toml:"base_port"`
	Strict   bool   `toml:"strict"`
}

// HealthConf controls the liveness probes.
type HealthConf struct {
	Path       string `toml:"path"`
	TimeoutMs  int    `toml:"timeout_ms"`
	IntervalMs int    `toml:"interval_ms"`
}

// ProxyConf controls the dispatch path. TokenSeed zero means seed from the
// clock at startup.
type ProxyConf struct {
	TimeoutMs int   `toml:"timeout_ms"`
	TokenSeed int64 `toml:"token_seed"`
}

// Config is the full load balancer configuration.
type Config struct {
	Host        string          `toml:"host"`
	Port        int             `toml:"port"`
	LogLevel    string          `toml:"log_level"`
	Servers     []ServerConf    `toml:"servers"`
	Provisioner ProvisionerConf `toml:"provisioner"`
	Health      HealthConf      `toml:"health"`
	Proxy       ProxyConf       `toml:"proxy"`
}

func defaults() *Config {
	return &Config{
		Host:     "0.0.0.0",
		Port:     8000,
		LogLevel: "info",
		Provisioner: ProvisionerConf{
			Image:    "klein-backend",
			Host:     "localhost",
			BasePort: 9000,
		},
		Health: HealthConf{
			Path:      "/heartbeat",
			TimeoutMs: 2000,
		},
		Proxy: ProxyConf{
			TimeoutMs: 5000,
		},
	}
}

// Load reads the TOML file at path and applies defaults for anything it
// leaves unset.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid listen port %d", cfg.Port)
	}
	for _, s := range cfg.Servers {
		if s.Name == "" {
			return nil, fmt.Errorf("configured server missing a name")
		}
		if s.Port <= 0 || s.Port > 65535 {
			return nil, fmt.Errorf("server %s: invalid port %d", s.Name, s.Port)
		}
	}
	return cfg, nil
}

// ListenAddr returns the host:port the balancer listens on.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// HealthTimeout returns the probe timeout as a duration.
func (c *Config) HealthTimeout() time.Duration {
	return time.Duration(c.Health.TimeoutMs) * time.Millisecond
}

// HealthInterval returns the periodic probe interval; zero disables the loop.
func (c *Config) HealthInterval() time.Duration {
	return time.Duration(c.Health.IntervalMs) * time.Millisecond
}

// ProxyTimeout returns the outbound request timeout as a duration.
func (c *Config) ProxyTimeout() time.Duration {
	return time.Duration(c.Proxy.TimeoutMs) * time.Millisecond
}

// Backends converts the configured servers into ring backends, drawing an
// id for each from the shared source. Hosts default to the provisioner
// host when unset.
func (c *Config) Backends(src *state.Source) []ring.Backend {
	backends := make([]ring.Backend, 0, len(c.Servers))
	for _, s := range c.Servers {
		host := s.Host
		if host == "" {
			host = c.Provisioner.Host
		}
		backends = append(backends, ring.Backend{
			ID:   src.NextID(),
			Name: s.Name,
			Host: host,
			Port: s.Port,
		})
	}
	return backends
}
