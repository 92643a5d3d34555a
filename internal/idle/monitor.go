package idle

import (
	"sync"
	"time"
)

// Config controls one inactivity monitor. Warning is the lead time before
// Timeout at which the one-shot warning fires; Throttle bounds how often
// Touch actually resets the timers.
type Config struct {
	Timeout  time.Duration
	Warning  time.Duration
	Throttle time.Duration
}

// Monitor force-ends an authenticated UI session after inactivity. It shares
// the expire-on-idle contract with the doctor-session sweep but tracks a
// patient's own session, not a doctor grant, and the two are deliberately
// independent.
type Monitor struct {
	mu        sync.Mutex
	cfg       Config
	onWarn    func()
	onTimeout func()

	warnTimer    *time.Timer
	timeoutTimer *time.Timer
	lastTouch    time.Time
	warned       bool
	stopped      bool

	now func() time.Time
}

// NewMonitor starts the timers immediately. onWarn fires once per idle
// stretch at Timeout-Warning; onTimeout fires at Timeout. Either callback may
// be nil.
func NewMonitor(cfg Config, onWarn, onTimeout func()) *Monitor {
	m := &Monitor{
		cfg:       cfg,
		onWarn:    onWarn,
		onTimeout: onTimeout,
		now:       time.Now,
	}
	m.lastTouch = m.now()
	m.arm()
	return m
}

// Touch records user activity and resets both timers. Calls within the
// throttle window are dropped to bound the overhead of high-frequency
// activity signals.
func (m *Monitor) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}
	now := m.now()
	if now.Sub(m.lastTouch) < m.cfg.Throttle {
		return
	}
	m.lastTouch = now
	m.warned = false
	m.disarm()
	m.arm()
}

// Stop tears down all timers. The monitor cannot be restarted.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}
	m.stopped = true
	m.disarm()
}

func (m *Monitor) arm() {
	if m.cfg.Warning > 0 && m.cfg.Warning < m.cfg.Timeout {
		m.warnTimer = time.AfterFunc(m.cfg.Timeout-m.cfg.Warning, m.fireWarn)
	}
	m.timeoutTimer = time.AfterFunc(m.cfg.Timeout, m.fireTimeout)
}

func (m *Monitor) disarm() {
	if m.warnTimer != nil {
		m.warnTimer.Stop()
		m.warnTimer = nil
	}
	if m.timeoutTimer != nil {
		m.timeoutTimer.Stop()
		m.timeoutTimer = nil
	}
}

func (m *Monitor) fireWarn() {
	m.mu.Lock()
	if m.stopped || m.warned {
		m.mu.Unlock()
		return
	}
	m.warned = true
	cb := m.onWarn
	m.mu.Unlock()

	if cb != nil {
		cb()
	}
}

func (m *Monitor) fireTimeout() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.disarm()
	cb := m.onTimeout
	m.mu.Unlock()

	if cb != nil {
		cb()
	}
}
