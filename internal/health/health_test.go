package health

import (
	"sync"
	"testing"
	"time"
)

func TestOverallEmptyIsHealthy(t *testing.T) {
	if got := NewMonitor().Overall(); got != Healthy {
		t.Fatalf("Overall() on empty monitor = %q, want %q", got, Healthy)
	}
}

func TestOverallReturnsWorstStatus(t *testing.T) {
	m := NewMonitor()
	m.Update(Topology, Healthy, "")
	m.Update(Watchdog, Degraded, "no monitors")
	m.Update(Injector, Healthy, "")

	if got := m.Overall(); got != Degraded {
		t.Fatalf("Overall() = %q, want %q", got, Degraded)
	}

	m.Update(Hook, Unhealthy, "install failed")
	if got := m.Overall(); got != Unhealthy {
		t.Fatalf("Overall() = %q, want %q", got, Unhealthy)
	}
}

func TestSinceOnlyMovesOnTransition(t *testing.T) {
	m := NewMonitor()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	m.Update(Hook, Healthy, "")
	clock = clock.Add(time.Minute)
	m.Update(Hook, Healthy, "")

	c, _ := m.Get(Hook)
	if !c.Since.Equal(clock.Add(-time.Minute)) || !c.Updated.Equal(clock) {
		t.Fatalf("check = %+v", c)
	}

	clock = clock.Add(time.Minute)
	m.Update(Hook, Unhealthy, "gone")
	c, _ = m.Get(Hook)
	if !c.Since.Equal(clock) || c.Message != "gone" {
		t.Fatalf("check after transition = %+v", c)
	}
}

func TestReportSortedByName(t *testing.T) {
	m := NewMonitor()
	m.Update(Watchdog, Healthy, "")
	m.Update(Hook, Healthy, "")
	m.Update(Topology, Degraded, "retrying")

	r := m.Report()
	if r.Status != Degraded {
		t.Fatalf("Report status = %q", r.Status)
	}
	want := []string{Hook, Topology, Watchdog}
	for i, c := range r.Components {
		if c.Name != want[i] {
			t.Fatalf("component %d = %q, want %q", i, c.Name, want[i])
		}
	}
}

func TestConcurrentUpdates(t *testing.T) {
	m := NewMonitor()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := Healthy
			if i%2 == 0 {
				status = Degraded
			}
			m.Update(Surface, status, "")
			_ = m.Overall()
			_ = m.All()
		}(i)
	}
	wg.Wait()

	if _, ok := m.Get(Surface); !ok {
		t.Fatal("surface check missing")
	}
}
