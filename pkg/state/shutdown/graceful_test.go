package shutdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/pkg/state/sensor"
	"parley/pkg/store/storetest"
)

func TestShutdownAppStopsComponentsAndClosesStore(t *testing.T) {
	db := storetest.Open(t)
	require.NoError(t, db.SaveKey("user:u1", []byte(`{}`)))

	var cpStopped, limitersStopped bool
	s := sensor.NewSensor(sensor.MonitorConfig{Path: t.TempDir()})

	err := ShutdownApp(context.Background(), Components{
		Checkpoints: func() { cpStopped = true },
		Limiters:    func() { limitersStopped = true },
		Sensor:      s,
		Store:       db,
	})
	require.NoError(t, err)
	assert.True(t, cpStopped)
	assert.True(t, limitersStopped)
	assert.False(t, db.Ready())

	// a second pass over already-closed components is harmless
	assert.NoError(t, ShutdownApp(context.Background(), Components{Sensor: s, Store: db}))
}

func TestSignalHandlerCancelsWithParent(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := SetupSignalHandler(parent)
	defer cancel()

	cancelParent()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
