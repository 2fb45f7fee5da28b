// Package sensor watches disk and heap usage of the running node and logs
// when either crosses its threshold.
package sensor

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sys/unix"

	"parley/pkg/state/logger"
	"parley/pkg/timeutil"
)

type MonitorConfig struct {
	PollInterval   time.Duration
	Path           string // filesystem holding the database
	DiskHighPct    int
	DiskLowPct     int
	MemHighPct     int
	RecoveryWindow time.Duration
}

var (
	diskUsed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parley_disk_used_percent",
		Help: "Used space on the filesystem holding the database.",
	})
	heapUsed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parley_heap_inuse_percent",
		Help: "Heap in use as a share of heap obtained from the OS.",
	})
)

func init() {
	prometheus.MustRegister(diskUsed, heapUsed)
}

type Sensor struct {
	config   MonitorConfig
	stopCh   chan struct{}
	stopOnce sync.Once
	mu       sync.Mutex

	diskAlert     bool
	memAlert      bool
	lastDiskAlert time.Time
	lastMemAlert  time.Time

	// overridable in tests
	diskUsage func(path string) (float64, error)
	memUsage  func() float64
}

func NewSensor(config MonitorConfig) *Sensor {
	if config.PollInterval <= 0 {
		config.PollInterval = 30 * time.Second
	}
	if config.Path == "" {
		config.Path = "/"
	}
	return &Sensor{
		config:    config,
		stopCh:    make(chan struct{}),
		diskUsage: statfsUsage,
		memUsage:  heapUsage,
	}
}

func (s *Sensor) Start() {
	go s.run()
}

func (s *Sensor) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

func (s *Sensor) run() {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()
	s.check()
	for {
		select {
		case <-ticker.C:
			s.check()
		case <-s.stopCh:
			return
		}
	}
}

func statfsUsage(path string) (float64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	available := stat.Bavail * uint64(stat.Bsize)
	total := stat.Blocks * uint64(stat.Bsize)
	if total == 0 {
		return 0, nil
	}
	return float64(total-available) / float64(total) * 100, nil
}

func heapUsage() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	if m.HeapSys == 0 {
		return 0
	}
	return float64(m.HeapInuse) / float64(m.HeapSys) * 100
}

func (s *Sensor) check() {
	now := timeutil.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	usedPct, err := s.diskUsage(s.config.Path)
	if err != nil {
		logger.Error("disk_stat_failed", "path", s.config.Path, "error", err)
	} else {
		diskUsed.Set(usedPct)
		if usedPct > float64(s.config.DiskHighPct) {
			if !s.diskAlert {
				logger.Warn("disk_usage_high", "usage_pct", usedPct, "threshold", s.config.DiskHighPct)
				s.diskAlert = true
				s.lastDiskAlert = now
			}
		} else if usedPct < float64(s.config.DiskLowPct) && s.diskAlert {
			if now.Sub(s.lastDiskAlert) >= s.config.RecoveryWindow {
				logger.Info("disk_usage_recovered", "usage_pct", usedPct, "threshold", s.config.DiskLowPct)
				s.diskAlert = false
			}
		}
	}

	memPct := s.memUsage()
	heapUsed.Set(memPct)
	if memPct > float64(s.config.MemHighPct) {
		if !s.memAlert {
			logger.Warn("memory_usage_high", "usage_pct", memPct, "threshold", s.config.MemHighPct)
			s.memAlert = true
			s.lastMemAlert = now
		}
	} else if s.memAlert && now.Sub(s.lastMemAlert) >= s.config.RecoveryWindow {
		logger.Info("memory_usage_recovered", "usage_pct", memPct, "threshold", s.config.MemHighPct)
		s.memAlert = false
	}
}

// Alerts reports whether the disk and memory alerts are raised.
func (s *Sensor) Alerts() (disk, mem bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diskAlert, s.memAlert
}
