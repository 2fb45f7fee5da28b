package app

import (
	"context"
	"fmt"

	"github.com/valyala/fasthttp"

	"parley/internal/checkpoint"
	"parley/pkg/blob"
	"parley/pkg/chat"
	"parley/pkg/config"
	"parley/pkg/state"
	"parley/pkg/state/logger"
	"parley/pkg/state/sensor"
	storedb "parley/pkg/store/db/storedb"
	"parley/pkg/telemetry"
)

// App groups server state and components.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	db          *storedb.Store
	chat        *chat.Service
	blobs       *blob.Store
	checkpoints *checkpoint.Manager

	cpCancel     context.CancelFunc
	stopLimiters func()
	hwSensor     *sensor.Sensor
	srvFast      *fasthttp.Server
	state        string
}

// New opens the store and builds the services. Nothing is started until Run.
// Callers must have run state.Init for eff.DBPath.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	cfg := eff.Config
	if cfg == nil {
		return nil, fmt.Errorf("effective config is empty")
	}
	if state.PathsVar.Store == "" {
		return nil, fmt.Errorf("state paths not initialized")
	}

	telemetry.SetSlowThreshold(cfg.Telemetry.SlowThreshold.Duration())

	// setup runtime keys
	runtimeCfg := &config.RuntimeConfig{BackendKeys: map[string]struct{}{}, SigningKeys: map[string]struct{}{}}
	for _, k := range cfg.Security.APIKeys.Backend {
		runtimeCfg.BackendKeys[k] = struct{}{}
		runtimeCfg.SigningKeys[k] = struct{}{}
	}
	config.SetRuntime(runtimeCfg)
	config.SetConfig(cfg)

	db, err := storedb.Open(state.PathsVar.Store, storedb.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", state.PathsVar.Store, err)
	}

	blobDir := cfg.Blobs.Dir
	if blobDir == "" {
		blobDir = state.PathsVar.Blobs
	}
	blobs, err := blob.New(db, blob.Options{
		Dir:           blobDir,
		MaxSize:       cfg.Blobs.MaxSize.Int64(),
		PublicBaseURL: cfg.Blobs.PublicBaseURL,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{
		eff:         eff,
		version:     version,
		commit:      commit,
		buildDate:   buildDate,
		db:          db,
		chat:        chat.New(db),
		blobs:       blobs,
		checkpoints: checkpoint.New(db, state.PathsVar.Checkpoints, cfg.Checkpoint),
		state:       "initialized",
	}, nil
}

// Run starts background jobs and the http server, then blocks until ctx
// ends or the server fails.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	a.cpCancel = a.checkpoints.Start(ctx)

	mon := a.eff.Config.Sensor.Monitor
	a.hwSensor = sensor.NewSensor(sensor.MonitorConfig{
		PollInterval:   mon.PollInterval.Duration(),
		Path:           state.PathsVar.Store,
		DiskHighPct:    mon.DiskHighPct,
		DiskLowPct:     mon.DiskLowPct,
		MemHighPct:     mon.MemHighPct,
		RecoveryWindow: mon.RecoveryWindow.Duration(),
	})
	a.hwSensor.Start()

	errCh := a.startHTTP(ctx)
	a.state = "running"
	logger.Info("app_running", "addr", a.eff.Config.Addr())

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}
