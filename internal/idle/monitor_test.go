package idle

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func waitFor(t *testing.T, cond func() bool, within time.Duration) {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.True(t, cond(), "condition not met within %v", within)
}

func TestMonitor_FiresWarningThenTimeout(t *testing.T) {
	var warned, timedOut atomic.Int32

	m := NewMonitor(Config{
		Timeout:  120 * time.Millisecond,
		Warning:  60 * time.Millisecond,
		Throttle: 0,
	},
		func() { warned.Add(1) },
		func() { timedOut.Add(1) },
	)
	defer m.Stop()

	waitFor(t, func() bool { return warned.Load() == 1 }, time.Second)
	assert.Zero(t, timedOut.Load())

	waitFor(t, func() bool { return timedOut.Load() == 1 }, time.Second)
	assert.Equal(t, int32(1), warned.Load())
}

func TestMonitor_TouchResetsTimers(t *testing.T) {
	var timedOut atomic.Int32

	m := NewMonitor(Config{
		Timeout:  100 * time.Millisecond,
		Throttle: 0,
	}, nil, func() { timedOut.Add(1) })
	defer m.Stop()

	for i := 0; i < 5; i++ {
		time.Sleep(50 * time.Millisecond)
		m.Touch()
	}
	assert.Zero(t, timedOut.Load())

	waitFor(t, func() bool { return timedOut.Load() == 1 }, time.Second)
}

func TestMonitor_WarningFiresOncePerIdleStretch(t *testing.T) {
	var warned atomic.Int32

	m := NewMonitor(Config{
		Timeout:  300 * time.Millisecond,
		Warning:  200 * time.Millisecond,
		Throttle: 0,
	}, func() { warned.Add(1) }, nil)
	defer m.Stop()

	waitFor(t, func() bool { return warned.Load() == 1 }, time.Second)

	// Activity after the warning resets the stretch and re-arms it
	m.Touch()
	waitFor(t, func() bool { return warned.Load() == 2 }, time.Second)
}

func TestMonitor_StopCancelsCallbacks(t *testing.T) {
	var fired atomic.Int32

	m := NewMonitor(Config{
		Timeout:  80 * time.Millisecond,
		Throttle: 0,
	}, nil, func() { fired.Add(1) })

	m.Stop()
	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, fired.Load())

	// Touch after stop is a no-op
	m.Touch()
	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

func TestMonitor_TouchThrottled(t *testing.T) {
	var timedOut atomic.Int32

	m := NewMonitor(Config{
		Timeout:  150 * time.Millisecond,
		Throttle: time.Hour,
	}, nil, func() { timedOut.Add(1) })
	defer m.Stop()

	// Every touch lands inside the throttle window and is dropped, so the
	// original timeout still fires.
	for i := 0; i < 4; i++ {
		time.Sleep(40 * time.Millisecond)
		m.Touch()
	}

	waitFor(t, func() bool { return timedOut.Load() == 1 }, time.Second)
}

func TestRegistry(t *testing.T) {
	t.Run("timeout removes the monitor", func(t *testing.T) {
		var timedOutKey atomic.Value

		r := NewRegistry(Config{Timeout: 80 * time.Millisecond}, nil, func(key string) {
			timedOutKey.Store(key)
		})
		defer r.Close()

		r.Touch("patient-1")
		waitFor(t, func() bool { return timedOutKey.Load() != nil }, time.Second)
		assert.Equal(t, "patient-1", timedOutKey.Load())

		// A later touch starts fresh tracking rather than hitting a dead monitor
		timedOutKey = atomic.Value{}
		r.Touch("patient-1")
		waitFor(t, func() bool { return timedOutKey.Load() != nil }, time.Second)
	})

	t.Run("remove prevents the timeout", func(t *testing.T) {
		var fired atomic.Int32

		r := NewRegistry(Config{Timeout: 80 * time.Millisecond}, nil, func(string) {
			fired.Add(1)
		})
		defer r.Close()

		r.Touch("patient-1")
		r.Remove("patient-1")
		time.Sleep(150 * time.Millisecond)
		assert.Zero(t, fired.Load())
	})

	t.Run("close stops every monitor", func(t *testing.T) {
		var fired atomic.Int32

		r := NewRegistry(Config{Timeout: 80 * time.Millisecond}, nil, func(string) {
			fired.Add(1)
		})

		r.Touch("patient-1")
		r.Touch("patient-2")
		r.Close()

		time.Sleep(150 * time.Millisecond)
		assert.Zero(t, fired.Load())
	})
}
