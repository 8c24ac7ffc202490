// Package health tracks the state of each desktop layer component so the
// status command and logs can say why click pass-through or the wallpaper
// placement is not working.
package health

import (
	"sort"
	"sync"
	"time"

	"github.com/mywallpaper/desktop/internal/logging"
)

var log = logging.L("health")

// Status represents the health status of a component.
type Status string

const (
	Healthy   Status = "healthy"
	Degraded  Status = "degraded"
	Unhealthy Status = "unhealthy"
)

// Components of the desktop layer.
const (
	Topology = "topology"
	Injector = "injector"
	Hook     = "hook"
	Watchdog = "watchdog"
	Surface  = "surface"
)

// Check stores the latest health result for a named component.
type Check struct {
	Name    string    `json:"name" yaml:"name"`
	Status  Status    `json:"status" yaml:"status"`
	Message string    `json:"message,omitempty" yaml:"message,omitempty"`
	Since   time.Time `json:"since" yaml:"since"`
	Updated time.Time `json:"updated" yaml:"updated"`
}

// Monitor tracks health checks for multiple components.
type Monitor struct {
	mu     sync.RWMutex
	checks map[string]Check
	now    func() time.Time
}

// NewMonitor creates a new health monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		checks: make(map[string]Check),
		now:    time.Now,
	}
}

// Update records the status of a component. Only status transitions are
// logged, so periodic jobs can report every tick.
func (m *Monitor) Update(name string, status Status, message string) {
	m.mu.Lock()
	now := m.now()
	prev, existed := m.checks[name]
	since := now
	if existed && prev.Status == status {
		since = prev.Since
	}
	m.checks[name] = Check{
		Name:    name,
		Status:  status,
		Message: message,
		Since:   since,
		Updated: now,
	}
	m.mu.Unlock()

	if existed && prev.Status == status {
		return
	}
	switch status {
	case Healthy:
		if existed {
			log.Info("component recovered", "component", name, "was", string(prev.Status))
		}
	case Degraded:
		log.Warn("component degraded", "component", name, "message", message)
	default:
		log.Error("component unhealthy", "component", name, "message", message)
	}
}

// Get returns the health check for a named component.
func (m *Monitor) Get(name string) (Check, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.checks[name]
	return c, ok
}

// Overall returns the worst status across all registered checks.
// If no checks are registered, returns Healthy.
func (m *Monitor) Overall() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	worst := Healthy
	for _, c := range m.checks {
		if worse(c.Status, worst) {
			worst = c.Status
		}
	}
	return worst
}

// All returns a snapshot of all current health checks, sorted by name.
func (m *Monitor) All() []Check {
	m.mu.RLock()
	result := make([]Check, 0, len(m.checks))
	for _, c := range m.checks {
		result = append(result, c)
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Report is the serialisable view used by the status command.
type Report struct {
	Status     Status  `json:"status" yaml:"status"`
	Components []Check `json:"components" yaml:"components"`
}

// Report returns the overall status and every component check.
func (m *Monitor) Report() Report {
	return Report{Status: m.Overall(), Components: m.All()}
}

// worse returns true if a is worse than b.
func worse(a, b Status) bool {
	return statusRank(a) > statusRank(b)
}

func statusRank(s Status) int {
	switch s {
	case Healthy:
		return 0
	case Degraded:
		return 1
	case Unhealthy:
		return 2
	default:
		return 0
	}
}
