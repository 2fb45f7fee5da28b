// Package checkpoint takes scheduled point-in-time copies of the database
// and keeps the newest few.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"parley/pkg/config"
	"parley/pkg/state/logger"
	"parley/pkg/timeutil"
)

// ErrBusy is returned when another run holds the lease.
var ErrBusy = errors.New("checkpoint already running")

const (
	dirPrefix = "cp-"
	// sortable and free of characters that upset filesystems
	dirLayout = "20060102T150405.000000000Z"
)

var runs = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "parley_checkpoints_total",
		Help: "Checkpoint runs by outcome.",
	},
	[]string{"status"},
)

func init() {
	prometheus.MustRegister(runs)
}

// Source is the database being copied.
type Source interface {
	Checkpoint(dir string) error
}

// Result describes one completed run.
type Result struct {
	Dir    string   `json:"dir"`
	Pruned []string `json:"pruned"`
}

type Manager struct {
	db  Source
	dir string
	cfg config.CheckpointConfig

	mu      sync.Mutex
	running bool
}

func New(db Source, dir string, cfg config.CheckpointConfig) *Manager {
	if cfg.Keep < 1 {
		cfg.Keep = 1
	}
	if cfg.LockTTL.Duration() <= 0 {
		cfg.LockTTL = config.Duration(5 * time.Minute)
	}
	return &Manager{db: db, dir: dir, cfg: cfg}
}

// Start runs checkpoints on the configured cron until ctx ends.
func (m *Manager) Start(ctx context.Context) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	if !m.cfg.Enabled {
		logger.Info("checkpoint_disabled")
		return cancel
	}
	logger.Info("checkpoint_enabled", "cron", m.cfg.Cron, "keep", m.cfg.Keep)
	go m.scheduleLoop(ctx)
	return cancel
}

func (m *Manager) scheduleLoop(ctx context.Context) {
	for {
		next, err := gronx.NextTickAfter(m.cfg.Cron, timeutil.Now(), false)
		if err != nil {
			logger.Error("checkpoint_nexttick_failed", "cron", m.cfg.Cron, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait < time.Second {
			wait = time.Second
		}
		select {
		case <-time.After(wait):
			if _, err := m.RunNow(ctx); err != nil && !errors.Is(err, ErrBusy) {
				logger.Error("checkpoint_run_error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// RunNow takes a checkpoint immediately and prunes old ones.
func (m *Manager) RunNow(ctx context.Context) (Result, error) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		runs.WithLabelValues("busy").Inc()
		return Result{}, ErrBusy
	}
	m.running = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	res, err := m.run(ctx)
	switch {
	case errors.Is(err, ErrBusy):
		runs.WithLabelValues("busy").Inc()
	case err != nil:
		runs.WithLabelValues("failed").Inc()
	default:
		runs.WithLabelValues("ok").Inc()
	}
	return res, err
}

func (m *Manager) run(ctx context.Context) (Result, error) {
	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return Result{}, fmt.Errorf("create checkpoint dir: %w", err)
	}
	ttl := m.cfg.LockTTL.Duration()
	owner := uuid.NewString()
	lease := newFileLease(m.dir)
	acq, err := lease.Acquire(owner, ttl)
	if err != nil {
		return Result{}, fmt.Errorf("lease acquire failed: %w", err)
	}
	if !acq {
		return Result{}, ErrBusy
	}
	defer func() {
		if err := lease.Release(owner); err != nil {
			logger.Error("checkpoint_lease_release_error", "error", err)
		}
	}()

	// keep the lease alive while pebble copies files
	hbCtx, hbCancel := context.WithCancel(ctx)
	defer hbCancel()
	go func() {
		t := time.NewTicker(ttl / 3)
		defer t.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-t.C:
				if err := lease.Renew(owner, ttl); err != nil {
					logger.Error("checkpoint_lease_renew_failed", "error", err)
				}
			}
		}
	}()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	start := timeutil.Now()
	target := filepath.Join(m.dir, dirPrefix+start.UTC().Format(dirLayout))
	if err := m.db.Checkpoint(target); err != nil {
		return Result{}, fmt.Errorf("checkpoint %s: %w", target, err)
	}

	pruned, err := m.prune()
	if err != nil {
		logger.Error("checkpoint_prune_failed", "error", err)
	}
	logger.Info("checkpoint_complete", "dir", target, "pruned", len(pruned), "took", timeutil.Now().Sub(start).String())
	return Result{Dir: target, Pruned: pruned}, nil
}

// List returns checkpoint directories, oldest first.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), dirPrefix) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *Manager) prune() ([]string, error) {
	names, err := m.List()
	if err != nil {
		return nil, err
	}
	var pruned []string
	for len(names) > m.cfg.Keep {
		p := filepath.Join(m.dir, names[0])
		if err := os.RemoveAll(p); err != nil {
			return pruned, err
		}
		pruned = append(pruned, p)
		names = names[1:]
	}
	return pruned, nil
}
