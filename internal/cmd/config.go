package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/blocclock/blocclock/internal/gateway"
	"github.com/blocclock/blocclock/internal/registry"
)

// Config is the server configuration, loaded from YAML with environment
// overrides on top.
type Config struct {
	Port    string `yaml:"port"`
	DataDir string `yaml:"data_dir"`

	Timer struct {
		DefaultClimbSeconds      int `yaml:"default_climb_seconds"`
		DefaultTransitionSeconds int `yaml:"default_transition_seconds"`
	} `yaml:"timer"`

	Eviction struct {
		IdleMinutes  int `yaml:"idle_minutes"`
		SweepMinutes int `yaml:"sweep_minutes"`
	} `yaml:"eviction"`

	Websocket struct {
		ReadBufferSize  int `yaml:"read_buffer_size"`
		WriteBufferSize int `yaml:"write_buffer_size"`
		PingSeconds     int `yaml:"ping_seconds"`
	} `yaml:"websocket"`
}

func defaultConfig() *Config {
	cfg := &Config{
		Port:    "8080",
		DataDir: "data",
	}
	opts := registry.DefaultOptions()
	cfg.Timer.DefaultClimbSeconds = opts.DefaultClimbSeconds
	cfg.Timer.DefaultTransitionSeconds = opts.DefaultTransitionSeconds
	cfg.Eviction.IdleMinutes = int(opts.IdleEvictAfter / time.Minute)
	cfg.Eviction.SweepMinutes = int(opts.EvictSweepEvery / time.Minute)
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// loadConfig reads the YAML config file and applies env overrides. A
// missing file is not an error; defaults apply.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.Timer.DefaultClimbSeconds = getEnvAsInt("DEFAULT_CLIMB_SECONDS", cfg.Timer.DefaultClimbSeconds)
	cfg.Timer.DefaultTransitionSeconds = getEnvAsInt("DEFAULT_TRANSITION_SECONDS", cfg.Timer.DefaultTransitionSeconds)
	cfg.Eviction.IdleMinutes = getEnvAsInt("IDLE_EVICT_MINUTES", cfg.Eviction.IdleMinutes)
	cfg.Eviction.SweepMinutes = getEnvAsInt("EVICT_SWEEP_MINUTES", cfg.Eviction.SweepMinutes)

	return cfg, nil
}

// registryOptions converts the config into registry options.
func (c *Config) registryOptions() registry.Options {
	return registry.Options{
		DefaultClimbSeconds:      c.Timer.DefaultClimbSeconds,
		DefaultTransitionSeconds: c.Timer.DefaultTransitionSeconds,
		IdleEvictAfter:           time.Duration(c.Eviction.IdleMinutes) * time.Minute,
		EvictSweepEvery:          time.Duration(c.Eviction.SweepMinutes) * time.Minute,
	}
}

// gatewayConfig overlays the configured websocket tuning on the gateway
// defaults. Unset values keep the defaults.
func (c *Config) gatewayConfig() gateway.Config {
	ws := gateway.DefaultConfig()
	if c.Websocket.ReadBufferSize > 0 {
		ws.ReadBufferSize = c.Websocket.ReadBufferSize
	}
	if c.Websocket.WriteBufferSize > 0 {
		ws.WriteBufferSize = c.Websocket.WriteBufferSize
	}
	if c.Websocket.PingSeconds > 0 {
		ws.PingInterval = time.Duration(c.Websocket.PingSeconds) * time.Second
	}
	return ws
}
