package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	defaultPort           = 8080
	defaultMaxPayloadSize = 5 * 1024 * 1024 // 5 MiB
	// blob defaults
	defaultBlobMaxSize = 25 * 1024 * 1024 // 25 MiB
	// checkpoint defaults
	defaultCheckpointCron    = "0 3 * * *" // daily at 03:00
	defaultCheckpointKeep    = 3
	defaultCheckpointLockTTL = 300 * time.Second
	// rate limit defaults
	defaultRateRPS   = 1000
	defaultRateBurst = 1000
	// logging defaults
	defaultLogMaxSizeMB  = 100
	defaultLogMaxBackups = 5
	defaultLogMaxAgeDays = 28
	// telemetry defaults
	defaultTelemetrySlowMs = 200
	// sensor defaults
	defaultSensorPollInterval   = 30 * time.Second
	defaultSensorDiskHighPct    = 80
	defaultSensorDiskLowPct     = 60
	defaultSensorMemHighPct     = 80
	defaultSensorRecoveryWindow = 5 * time.Minute
)

var (
	runtimeMu  sync.RWMutex
	runtimeCfg *RuntimeConfig

	globalMu  sync.RWMutex
	globalCfg *Config
)

// SetRuntime sets the global runtime config.
func SetRuntime(rc *RuntimeConfig) {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	runtimeCfg = rc
}

// GetBackendKeys returns a copy of backend API keys.
func GetBackendKeys() map[string]struct{} {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	out := make(map[string]struct{})
	if runtimeCfg == nil || runtimeCfg.BackendKeys == nil {
		return out
	}
	for k := range runtimeCfg.BackendKeys {
		out[k] = struct{}{}
	}
	return out
}

// GetSigningKeys returns a copy of signing keys.
func GetSigningKeys() map[string]struct{} {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	out := make(map[string]struct{})
	if runtimeCfg == nil || runtimeCfg.SigningKeys == nil {
		return out
	}
	for k := range runtimeCfg.SigningKeys {
		out[k] = struct{}{}
	}
	return out
}

// SetConfig installs the process-wide effective config.
func SetConfig(c *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalCfg = c
}

// GetConfig returns the process-wide config, or an empty one before SetConfig.
func GetConfig() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalCfg == nil {
		return &Config{}
	}
	return globalCfg
}

// Addr returns the HTTP server address as host:port.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	port := c.Server.Port
	if port == 0 {
		port = defaultPort
	}
	return fmt.Sprintf("%s:%d", addr, port)
}

// LoadConfigFile reads and parses a config file.
func LoadConfigFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyDefaults fills unset values. dbPath anchors relative defaults.
func (c *Config) ApplyDefaults(dbPath string) {
	if c.Server.DBPath == "" {
		c.Server.DBPath = dbPath
	}
	if c.Server.MaxPayloadSize.Int64() == 0 {
		c.Server.MaxPayloadSize = SizeBytes(defaultMaxPayloadSize)
	}

	if c.Security.RateLimit.RPS == 0 {
		c.Security.RateLimit.RPS = defaultRateRPS
	}
	if c.Security.RateLimit.Burst == 0 {
		c.Security.RateLimit.Burst = defaultRateBurst
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = defaultLogMaxBackups
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = defaultLogMaxAgeDays
	}

	if c.Blobs.Dir == "" && dbPath != "" {
		c.Blobs.Dir = filepath.Join(dbPath, "blobs")
	}
	if c.Blobs.MaxSize.Int64() == 0 {
		c.Blobs.MaxSize = SizeBytes(defaultBlobMaxSize)
	}

	if c.Checkpoint.Cron == "" {
		c.Checkpoint.Cron = defaultCheckpointCron
	}
	if c.Checkpoint.Keep == 0 {
		c.Checkpoint.Keep = defaultCheckpointKeep
	}
	if c.Checkpoint.LockTTL.Duration() == 0 {
		c.Checkpoint.LockTTL = Duration(defaultCheckpointLockTTL)
	}

	if c.Telemetry.SlowThreshold.Duration() == 0 {
		c.Telemetry.SlowThreshold = Duration(time.Duration(defaultTelemetrySlowMs) * time.Millisecond)
	}

	m := &c.Sensor.Monitor
	if m.PollInterval.Duration() == 0 {
		m.PollInterval = Duration(defaultSensorPollInterval)
	}
	if m.DiskHighPct == 0 {
		m.DiskHighPct = defaultSensorDiskHighPct
	}
	if m.DiskLowPct == 0 {
		m.DiskLowPct = defaultSensorDiskLowPct
	}
	if m.MemHighPct == 0 {
		m.MemHighPct = defaultSensorMemHighPct
	}
	if m.RecoveryWindow.Duration() == 0 {
		m.RecoveryWindow = Duration(defaultSensorRecoveryWindow)
	}
}

// ResolveConfigPath returns the config file path, preferring flag, then env.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("PARLEY_CONFIG"); p != "" {
		return p
	}
	return flagPath
}
