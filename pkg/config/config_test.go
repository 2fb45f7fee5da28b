package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  address: 127.0.0.1
  port: 9090
  db_path: /var/lib/parley
  max_payload_size: 2MB
security:
  rate_limit:
    rps: 50
    burst: 100
  api_keys:
    backend: [sk_one]
    frontend: [pk_one, pk_two]
  jwt:
    secret: s3cret
    issuer: auth.example
blobs:
  max_size: 10MiB
checkpoint:
  enabled: true
  cron: "*/30 * * * *"
  keep: 5
  lock_ttl: 90
telemetry:
  slow_threshold: 150ms
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadConfigFileParsesHumanValues(t *testing.T) {
	cfg, err := LoadConfigFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, int64(2_000_000), cfg.Server.MaxPayloadSize.Int64())
	assert.Equal(t, int64(10*1024*1024), cfg.Blobs.MaxSize.Int64())
	assert.Equal(t, 90*time.Second, cfg.Checkpoint.LockTTL.Duration())
	assert.Equal(t, 150*time.Millisecond, cfg.Telemetry.SlowThreshold.Duration())
	assert.Equal(t, []string{"pk_one", "pk_two"}, cfg.Security.APIKeys.Frontend)
	assert.Equal(t, "auth.example", cfg.Security.JWT.Issuer)
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults("/data")

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, "/data", cfg.Server.DBPath)
	assert.Equal(t, filepath.Join("/data", "blobs"), cfg.Blobs.Dir)
	assert.Equal(t, int64(defaultBlobMaxSize), cfg.Blobs.MaxSize.Int64())
	assert.Equal(t, defaultCheckpointCron, cfg.Checkpoint.Cron)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, defaultSensorPollInterval, cfg.Sensor.Monitor.PollInterval.Duration())
}

func TestParseConfigEnvs(t *testing.T) {
	t.Setenv("PARLEY_ADDR", "10.0.0.1:7000")
	t.Setenv("PARLEY_DB_PATH", "/tmp/parley")
	t.Setenv("PARLEY_API_BACKEND_KEYS", "sk_a, sk_b")
	t.Setenv("PARLEY_CHECKPOINT_ENABLED", "yes")
	t.Setenv("PARLEY_BLOBS_MAX_SIZE", "1MiB")
	t.Setenv("PARLEY_JWT_SECRET", "k")

	cfg, res := ParseConfigEnvs()
	assert.True(t, res.EnvUsed)
	assert.Equal(t, "10.0.0.1", cfg.Server.Address)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "/tmp/parley", cfg.Server.DBPath)
	assert.Equal(t, []string{"sk_a", "sk_b"}, cfg.Security.APIKeys.Backend)
	assert.Contains(t, res.SigningKeys, "sk_b")
	assert.True(t, cfg.Checkpoint.Enabled)
	assert.Equal(t, int64(1024*1024), cfg.Blobs.MaxSize.Int64())
	assert.Equal(t, "k", cfg.Security.JWT.Secret)
}

func TestLoadEffectiveConfigSourcePrecedence(t *testing.T) {
	fileCfg, err := LoadConfigFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	envCfg := &Config{}
	envCfg.Server.DBPath = "/env/db"

	fs := flag.NewFlagSet("parley", flag.ContinueOnError)
	flags := parseFlagSet(fs, []string{"--addr", ":7777"})
	eff, err := LoadEffectiveConfig(flags, fileCfg, true, envCfg, EnvResult{})
	require.NoError(t, err)
	assert.Equal(t, "flags", eff.Source)
	assert.Equal(t, ":7777", eff.Addr)
	assert.Equal(t, "/env/db", eff.DBPath)
	// the file still supplies keys and the checkpoint schedule
	assert.Equal(t, []string{"sk_one"}, eff.Config.Security.APIKeys.Backend)
	assert.Equal(t, 5, eff.Config.Checkpoint.Keep)

	fs = flag.NewFlagSet("parley", flag.ContinueOnError)
	flags = parseFlagSet(fs, nil)
	eff, err = LoadEffectiveConfig(flags, &Config{}, false, envCfg, EnvResult{})
	require.NoError(t, err)
	assert.Equal(t, "env", eff.Source)
	assert.Equal(t, "/env/db", eff.DBPath)

	fs = flag.NewFlagSet("parley", flag.ContinueOnError)
	flags = parseFlagSet(fs, []string{"--config", "/nope.yaml"})
	_, err = LoadEffectiveConfig(flags, &Config{}, false, envCfg, EnvResult{})
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.ApplyDefaults("/data")
		return c
	}

	require.NoError(t, ValidateConfig(EffectiveConfigResult{Config: valid(), DBPath: "/data"}))
	assert.Error(t, ValidateConfig(EffectiveConfigResult{Config: valid()}))

	c := valid()
	c.Server.TLS.CertFile = "cert.pem"
	assert.Error(t, ValidateConfig(EffectiveConfigResult{Config: c, DBPath: "/data"}))

	c = valid()
	c.Checkpoint.Enabled = true
	c.Checkpoint.Cron = "not a cron"
	assert.Error(t, ValidateConfig(EffectiveConfigResult{Config: c, DBPath: "/data"}))

	c = valid()
	c.Security.RateLimit.RPS = -1
	assert.Error(t, ValidateConfig(EffectiveConfigResult{Config: c, DBPath: "/data"}))
}
