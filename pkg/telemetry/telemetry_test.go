package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"parley/pkg/timeutil"
)

func TestTraceRecordsStepsAndTotal(t *testing.T) {
	fake := timeutil.NewFake(time.Unix(1700000000, 0))
	defer timeutil.SetClock(fake.Now)()

	tr := Track("test.trace")
	fake.Advance(5 * time.Millisecond)
	tr.Mark("load")
	fake.Advance(10 * time.Millisecond)
	tr.Mark("write")
	tr.Finish()
	tr.Finish()

	assert.Len(t, tr.Steps, 2)
	assert.InDelta(t, 5.0, tr.Steps[0].Duration, 0.001)
	assert.InDelta(t, 10.0, tr.Steps[1].Duration, 0.001)
	assert.InDelta(t, 15.0, tr.TotalMS, 0.001)
	assert.True(t, tr.done)
}

func TestSetSlowThresholdIgnoresNonPositive(t *testing.T) {
	SetSlowThreshold(time.Second)
	SetSlowThreshold(0)
	assert.Equal(t, int64(time.Second), slowThresholdNs.Load())
}
