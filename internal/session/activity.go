package session

import (
	"sync"
	"time"
)

// ActivityThrottle is the minimum interval between persisted activity
// refreshes, regardless of how often interactions are observed.
const ActivityThrottle = 30 * time.Second

// ActivityMonitor funnels high-frequency interaction events (clicks,
// keypresses, scrolls) into at most one activity write per throttle
// window.
type ActivityMonitor struct {
	manager  *Manager
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func NewActivityMonitor(manager *Manager) *ActivityMonitor {
	return &ActivityMonitor{
		manager:  manager,
		interval: ActivityThrottle,
	}
}

// Touch records an interaction. Safe to call at any frequency; writes
// through only when the throttle window has elapsed and a session is
// actually present.
func (a *ActivityMonitor) Touch() {
	a.mu.Lock()
	now := a.manager.now()
	if !a.last.IsZero() && now.Sub(a.last) < a.interval {
		a.mu.Unlock()
		return
	}
	a.last = now
	a.mu.Unlock()

	if a.manager.IsAuthenticated() {
		a.manager.UpdateActivity()
	}
}
