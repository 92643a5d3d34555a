package idle

import (
	"sync"
)

// Registry tracks one Monitor per authenticated patient session, keyed by the
// actor id. Activity signals from authenticated requests feed Touch; a
// monitor that times out removes itself.
type Registry struct {
	mu        sync.Mutex
	cfg       Config
	onWarn    func(key string)
	onTimeout func(key string)
	monitors  map[string]*Monitor
	closed    bool
}

func NewRegistry(cfg Config, onWarn, onTimeout func(key string)) *Registry {
	return &Registry{
		cfg:       cfg,
		onWarn:    onWarn,
		onTimeout: onTimeout,
		monitors:  make(map[string]*Monitor),
	}
}

// Touch registers activity for key, creating a monitor on first sight.
func (r *Registry) Touch(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if m, ok := r.monitors[key]; ok {
		m.Touch()
		return
	}

	var warn func()
	if r.onWarn != nil {
		warn = func() { r.onWarn(key) }
	}
	r.monitors[key] = NewMonitor(r.cfg, warn, func() {
		r.remove(key)
		if r.onTimeout != nil {
			r.onTimeout(key)
		}
	})
}

// Remove stops and drops the monitor for key, if any. Used when the session
// ends for a reason other than inactivity.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	m, ok := r.monitors[key]
	delete(r.monitors, key)
	r.mu.Unlock()

	if ok {
		m.Stop()
	}
}

// Close tears down every monitor. No timers survive feature disable.
func (r *Registry) Close() {
	r.mu.Lock()
	monitors := r.monitors
	r.monitors = make(map[string]*Monitor)
	r.closed = true
	r.mu.Unlock()

	for _, m := range monitors {
		m.Stop()
	}
}

func (r *Registry) remove(key string) {
	r.mu.Lock()
	delete(r.monitors, key)
	r.mu.Unlock()
}
