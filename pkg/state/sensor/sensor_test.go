package sensor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"parley/pkg/state/logger"
	"parley/pkg/timeutil"
)

func TestDiskAlertRaisesAndRecoversAfterWindow(t *testing.T) {
	logger.InitNop()
	fake := timeutil.NewFake(time.Unix(0, 0))
	defer timeutil.SetClock(fake.Now)()

	s := NewSensor(MonitorConfig{DiskHighPct: 90, DiskLowPct: 80, MemHighPct: 95, RecoveryWindow: time.Minute})
	disk := 95.0
	s.diskUsage = func(string) (float64, error) { return disk, nil }
	s.memUsage = func() float64 { return 10 }

	s.check()
	d, m := s.Alerts()
	assert.True(t, d)
	assert.False(t, m)

	disk = 70
	fake.Advance(30 * time.Second)
	s.check()
	d, _ = s.Alerts()
	assert.True(t, d, "still inside recovery window")

	fake.Advance(31 * time.Second)
	s.check()
	d, _ = s.Alerts()
	assert.False(t, d)
}

func TestMemoryAlert(t *testing.T) {
	logger.InitNop()
	s := NewSensor(MonitorConfig{DiskHighPct: 100, MemHighPct: 50})
	s.diskUsage = func(string) (float64, error) { return 1, nil }
	s.memUsage = func() float64 { return 75 }

	s.check()
	_, m := s.Alerts()
	assert.True(t, m)
}

func TestStatfsUsageOnTempDir(t *testing.T) {
	pct, err := statfsUsage(t.TempDir())
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, pct, 0.0)
	assert.LessOrEqual(t, pct, 100.0)
}

func TestStartStop(t *testing.T) {
	logger.InitNop()
	s := NewSensor(MonitorConfig{PollInterval: time.Hour, Path: t.TempDir(), DiskHighPct: 100, MemHighPct: 100})
	s.Start()
	s.Stop()
	s.Stop()
}
