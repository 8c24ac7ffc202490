package layer

import (
	"github.com/mywallpaper/desktop/internal/router"
)

// diagnostic is a hot-path problem handed off the hook thread for logging.
type diagnostic struct {
	fault router.Fault
	panic any
}

// logDiagnostic runs on the single diagnostics worker, so the fault
// counters need no locking.
func (l *Layer) logDiagnostic(d diagnostic) {
	if d.panic != nil {
		log.Error("recovered panic in mouse hook", "panic", d.panic)
		return
	}
	if int(d.fault) >= len(l.faults) {
		return
	}
	l.faults[d.fault]++
	n := l.faults[d.fault]
	if n == 1 || n%100 == 0 {
		log.Warn("input routing fault", "fault", d.fault.String(), "count", n)
	}
}
