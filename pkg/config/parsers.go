package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// holds parsed command-line flag values and which were set
type Flags struct {
	Addr   string
	DB     string
	Config string
	Set    map[string]bool
}

// holds the results of applying environment overrides
type EnvResult struct {
	BackendKeys map[string]struct{}
	SigningKeys map[string]struct{}
	EnvUsed     bool
}

// holds the result of LoadEffectiveConfig
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	DBPath string
	Source string // "flags", "config", or "env"
}

// parses command-line flags and returns them as a Flags struct
func ParseConfigFlags() Flags {
	return parseFlagSet(flag.CommandLine, os.Args[1:])
}

func parseFlagSet(fs *flag.FlagSet, args []string) Flags {
	addrPtr := fs.String("addr", ":8080", "HTTP listen address")
	dbPtr := fs.String("db", "./.parley", "Pebble DB path")
	cfgPtr := fs.String("config", "./config.yaml", "Path to config file")
	_ = fs.Parse(args)

	// record which flags were set explicitly
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	return Flags{Addr: *addrPtr, DB: *dbPtr, Config: *cfgPtr, Set: setFlags}
}

// loads config from file, returns config, found bool, and error
func ParseConfigFile(flags Flags) (*Config, bool, error) {
	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, err := LoadConfigFile(cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}

// loads environment variables into a new Config and returns it with EnvResult; caller config is unchanged
func ParseConfigEnvs() (*Config, EnvResult) {
	envs := map[string]string{
		"SERVER_ADDR":      os.Getenv("PARLEY_SERVER_ADDR"),
		"ADDR":             os.Getenv("PARLEY_ADDR"),
		"SERVER_ADDRESS":   os.Getenv("PARLEY_SERVER_ADDRESS"),
		"SERVER_PORT":      os.Getenv("PARLEY_SERVER_PORT"),
		"SERVER_DB_PATH":   os.Getenv("PARLEY_SERVER_DB_PATH"),
		"DB_PATH":          os.Getenv("PARLEY_DB_PATH"),
		"MAX_PAYLOAD_SIZE": os.Getenv("PARLEY_MAX_PAYLOAD_SIZE"),
		"TLS_CERT":         os.Getenv("PARLEY_TLS_CERT"),
		"TLS_KEY":          os.Getenv("PARLEY_TLS_KEY"),

		// security
		"CORS_ORIGINS":      os.Getenv("PARLEY_CORS_ORIGINS"),
		"RATE_RPS":          os.Getenv("PARLEY_RATE_RPS"),
		"RATE_BURST":        os.Getenv("PARLEY_RATE_BURST"),
		"IP_WHITELIST":      os.Getenv("PARLEY_IP_WHITELIST"),
		"API_BACKEND_KEYS":  os.Getenv("PARLEY_API_BACKEND_KEYS"),
		"API_FRONTEND_KEYS": os.Getenv("PARLEY_API_FRONTEND_KEYS"),
		"API_ADMIN_KEYS":    os.Getenv("PARLEY_API_ADMIN_KEYS"),
		"JWT_SECRET":        os.Getenv("PARLEY_JWT_SECRET"),
		"JWT_ISSUER":        os.Getenv("PARLEY_JWT_ISSUER"),
		"JWT_AUDIENCE":      os.Getenv("PARLEY_JWT_AUDIENCE"),

		// logging
		"LOG_LEVEL":        os.Getenv("PARLEY_LOG_LEVEL"),
		"LOG_FILE":         os.Getenv("PARLEY_LOG_FILE"),
		"LOG_MAX_SIZE_MB":  os.Getenv("PARLEY_LOG_MAX_SIZE_MB"),
		"LOG_MAX_BACKUPS":  os.Getenv("PARLEY_LOG_MAX_BACKUPS"),
		"LOG_MAX_AGE_DAYS": os.Getenv("PARLEY_LOG_MAX_AGE_DAYS"),
		"LOG_COMPRESS":     os.Getenv("PARLEY_LOG_COMPRESS"),

		// uploaded files
		"BLOBS_DIR":             os.Getenv("PARLEY_BLOBS_DIR"),
		"BLOBS_MAX_SIZE":        os.Getenv("PARLEY_BLOBS_MAX_SIZE"),
		"BLOBS_PUBLIC_BASE_URL": os.Getenv("PARLEY_BLOBS_PUBLIC_BASE_URL"),

		// checkpoints
		"CHECKPOINT_ENABLED":  os.Getenv("PARLEY_CHECKPOINT_ENABLED"),
		"CHECKPOINT_CRON":     os.Getenv("PARLEY_CHECKPOINT_CRON"),
		"CHECKPOINT_KEEP":     os.Getenv("PARLEY_CHECKPOINT_KEEP"),
		"CHECKPOINT_LOCK_TTL": os.Getenv("PARLEY_CHECKPOINT_LOCK_TTL"),

		// telemetry
		"TELEMETRY_SLOW_THRESHOLD": os.Getenv("PARLEY_TELEMETRY_SLOW_THRESHOLD"),

		// sensor.monitor
		"SENSOR_MONITOR_POLL_INTERVAL":   os.Getenv("PARLEY_SENSOR_MONITOR_POLL_INTERVAL"),
		"SENSOR_MONITOR_DISK_HIGH_PCT":   os.Getenv("PARLEY_SENSOR_MONITOR_DISK_HIGH_PCT"),
		"SENSOR_MONITOR_DISK_LOW_PCT":    os.Getenv("PARLEY_SENSOR_MONITOR_DISK_LOW_PCT"),
		"SENSOR_MONITOR_MEM_HIGH_PCT":    os.Getenv("PARLEY_SENSOR_MONITOR_MEM_HIGH_PCT"),
		"SENSOR_MONITOR_RECOVERY_WINDOW": os.Getenv("PARLEY_SENSOR_MONITOR_RECOVERY_WINDOW"),
	}

	envUsed := false
	for _, v := range envs {
		if v != "" {
			envUsed = true
			break
		}
	}
	envCfg := &Config{}

	parseList := func(v string) []string {
		if v == "" {
			return nil
		}
		parts := []string{}
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				parts = append(parts, s)
			}
		}
		return parts
	}
	parseBool := func(v string) bool {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes":
			return true
		default:
			return false
		}
	}
	parseInt := func(v string, dst *int) {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
	parseDuration := func(v string) Duration {
		d, _ := ParseDuration(v)
		return d
	}
	parseSize := func(v string) SizeBytes {
		s, _ := ParseSizeBytes(v)
		return s
	}
	applyAddr := func(v string) {
		if h, p, err := net.SplitHostPort(v); err == nil {
			envCfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				envCfg.Server.Port = pi
			}
		} else {
			envCfg.Server.Address = v
		}
	}

	// full address variables win over host/port pieces
	if v := envs["SERVER_ADDR"]; v != "" {
		applyAddr(v)
	} else if v := envs["ADDR"]; v != "" {
		applyAddr(v)
	} else {
		if host := envs["SERVER_ADDRESS"]; host != "" {
			envCfg.Server.Address = host
		}
		if port := envs["SERVER_PORT"]; port != "" {
			parseInt(port, &envCfg.Server.Port)
		}
	}

	if v := envs["SERVER_DB_PATH"]; v != "" {
		envCfg.Server.DBPath = v
	} else if v := envs["DB_PATH"]; v != "" {
		envCfg.Server.DBPath = v
	}
	if v := envs["MAX_PAYLOAD_SIZE"]; v != "" {
		envCfg.Server.MaxPayloadSize = parseSize(v)
	}
	if c := envs["TLS_CERT"]; c != "" {
		envCfg.Server.TLS.CertFile = c
	}
	if k := envs["TLS_KEY"]; k != "" {
		envCfg.Server.TLS.KeyFile = k
	}

	if v := envs["CORS_ORIGINS"]; v != "" {
		envCfg.Security.CORS.AllowedOrigins = parseList(v)
	}
	if v := envs["RATE_RPS"]; v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			envCfg.Security.RateLimit.RPS = f
		}
	}
	if v := envs["RATE_BURST"]; v != "" {
		parseInt(v, &envCfg.Security.RateLimit.Burst)
	}
	if v := envs["IP_WHITELIST"]; v != "" {
		envCfg.Security.IPWhitelist = parseList(v)
	}
	if v := envs["API_BACKEND_KEYS"]; v != "" {
		envCfg.Security.APIKeys.Backend = parseList(v)
	}
	if v := envs["API_FRONTEND_KEYS"]; v != "" {
		envCfg.Security.APIKeys.Frontend = parseList(v)
	}
	if v := envs["API_ADMIN_KEYS"]; v != "" {
		envCfg.Security.APIKeys.Admin = parseList(v)
	}
	envCfg.Security.JWT.Secret = envs["JWT_SECRET"]
	envCfg.Security.JWT.Issuer = envs["JWT_ISSUER"]
	envCfg.Security.JWT.Audience = envs["JWT_AUDIENCE"]

	if v := envs["LOG_LEVEL"]; v != "" {
		envCfg.Logging.Level = strings.TrimSpace(v)
	}
	envCfg.Logging.File = envs["LOG_FILE"]
	if v := envs["LOG_MAX_SIZE_MB"]; v != "" {
		parseInt(v, &envCfg.Logging.MaxSizeMB)
	}
	if v := envs["LOG_MAX_BACKUPS"]; v != "" {
		parseInt(v, &envCfg.Logging.MaxBackups)
	}
	if v := envs["LOG_MAX_AGE_DAYS"]; v != "" {
		parseInt(v, &envCfg.Logging.MaxAgeDays)
	}
	if v := envs["LOG_COMPRESS"]; v != "" {
		envCfg.Logging.Compress = parseBool(v)
	}

	envCfg.Blobs.Dir = envs["BLOBS_DIR"]
	if v := envs["BLOBS_MAX_SIZE"]; v != "" {
		envCfg.Blobs.MaxSize = parseSize(v)
	}
	envCfg.Blobs.PublicBaseURL = envs["BLOBS_PUBLIC_BASE_URL"]

	if v := envs["CHECKPOINT_ENABLED"]; v != "" {
		envCfg.Checkpoint.Enabled = parseBool(v)
	}
	envCfg.Checkpoint.Cron = envs["CHECKPOINT_CRON"]
	if v := envs["CHECKPOINT_KEEP"]; v != "" {
		parseInt(v, &envCfg.Checkpoint.Keep)
	}
	if v := envs["CHECKPOINT_LOCK_TTL"]; v != "" {
		envCfg.Checkpoint.LockTTL = parseDuration(v)
	}

	if v := envs["TELEMETRY_SLOW_THRESHOLD"]; v != "" {
		envCfg.Telemetry.SlowThreshold = parseDuration(v)
	}

	if v := envs["SENSOR_MONITOR_POLL_INTERVAL"]; v != "" {
		envCfg.Sensor.Monitor.PollInterval = parseDuration(v)
	}
	if v := envs["SENSOR_MONITOR_DISK_HIGH_PCT"]; v != "" {
		parseInt(v, &envCfg.Sensor.Monitor.DiskHighPct)
	}
	if v := envs["SENSOR_MONITOR_DISK_LOW_PCT"]; v != "" {
		parseInt(v, &envCfg.Sensor.Monitor.DiskLowPct)
	}
	if v := envs["SENSOR_MONITOR_MEM_HIGH_PCT"]; v != "" {
		parseInt(v, &envCfg.Sensor.Monitor.MemHighPct)
	}
	if v := envs["SENSOR_MONITOR_RECOVERY_WINDOW"]; v != "" {
		envCfg.Sensor.Monitor.RecoveryWindow = parseDuration(v)
	}

	backendKeys := make(map[string]struct{})
	for _, k := range envCfg.Security.APIKeys.Backend {
		backendKeys[k] = struct{}{}
	}
	signingKeys := make(map[string]struct{})
	for k := range backendKeys {
		signingKeys[k] = struct{}{}
	}
	return envCfg, EnvResult{BackendKeys: backendKeys, SigningKeys: signingKeys, EnvUsed: envUsed}
}

// decides which single source to use (flags, config file, or env) and returns the effective config plus resolved addr and dbPath. if --config is set, only the config file is used; otherwise flags if set; else config file if present; else env
func LoadEffectiveConfig(flags Flags, fileCfg *Config, fileExists bool, envCfg *Config, envRes EnvResult) (EffectiveConfigResult, error) {
	var res EffectiveConfigResult

	if flags.Set["config"] {
		if !fileExists {
			return res, fmt.Errorf("config file %s not found", flags.Config)
		}
		return finish(fileCfg, "config"), nil
	}

	if flags.Set["addr"] || flags.Set["db"] {
		addr := flags.Addr
		if !flags.Set["addr"] {
			addr = envCfg.Addr()
		}
		dbPath := flags.DB
		if !flags.Set["db"] {
			if p := strings.TrimSpace(envCfg.Server.DBPath); p != "" {
				dbPath = p
			} else if p := strings.TrimSpace(fileCfg.Server.DBPath); p != "" {
				dbPath = p
			}
		}
		// flags only move the listener and db; everything else comes from the file when present
		out := &Config{}
		if fileExists {
			cp := *fileCfg
			out = &cp
		}
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}
		out.Server.Address = host
		out.Server.Port = parsePortFromAddr(addr)
		out.Server.DBPath = dbPath
		return finish(out, "flags"), nil
	}

	if fileExists {
		return finish(fileCfg, "config"), nil
	}
	return finish(envCfg, "env"), nil
}

func finish(cfg *Config, source string) EffectiveConfigResult {
	cfg.ApplyDefaults(cfg.Server.DBPath)
	return EffectiveConfigResult{
		Config: cfg,
		Addr:   cfg.Addr(),
		DBPath: cfg.Server.DBPath,
		Source: source,
	}
}

// extracts port integer from host:port string
func parsePortFromAddr(a string) int {
	if a == "" {
		return 0
	}
	if _, p, err := net.SplitHostPort(a); err == nil {
		if pi, err := strconv.Atoi(p); err == nil {
			return pi
		}
	}
	return 0
}
