package config

import (
	"fmt"
	"os"

	"github.com/adhocore/gronx"
)

// fail fast on critical errors; run after defaults are applied
func ValidateConfig(eff EffectiveConfigResult) error {
	cfg := eff.Config
	if cfg == nil {
		return fmt.Errorf("effective config is nil")
	}
	if eff.DBPath == "" {
		return fmt.Errorf("database path is empty: set --db flag, PARLEY_DB_PATH env, or server.db_path in config")
	}

	// TLS cert/key presence check if one is set
	cert := cfg.Server.TLS.CertFile
	key := cfg.Server.TLS.KeyFile
	if (cert != "" && key == "") || (cert == "" && key != "") {
		return fmt.Errorf("incomplete TLS configuration: both server.tls.cert_file and server.tls.key_file must be set")
	}
	if cert != "" {
		if _, err := os.Stat(cert); err != nil {
			return fmt.Errorf("tls cert file not accessible: %w", err)
		}
		if _, err := os.Stat(key); err != nil {
			return fmt.Errorf("tls key file not accessible: %w", err)
		}
	}

	if cfg.Security.RateLimit.RPS < 0 || cfg.Security.RateLimit.Burst < 0 {
		return fmt.Errorf("security.rate_limit values must not be negative")
	}
	if cfg.Blobs.MaxSize.Int64() < 0 {
		return fmt.Errorf("blobs.max_size must not be negative")
	}

	cp := cfg.Checkpoint
	if cp.Enabled {
		if !gronx.New().IsValid(cp.Cron) {
			return fmt.Errorf("invalid checkpoint.cron %q: not a valid cron expression", cp.Cron)
		}
		if cp.Keep < 1 {
			return fmt.Errorf("checkpoint.keep must be at least 1")
		}
	}

	m := cfg.Sensor.Monitor
	if m.DiskLowPct > m.DiskHighPct {
		return fmt.Errorf("sensor.monitor.disk_low_pct must not exceed disk_high_pct")
	}
	return nil
}
