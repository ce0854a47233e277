package core

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LoadMetrics counts what happened during one content load cycle.
type LoadMetrics struct {
	Registered atomic.Int64
	Skipped    atomic.Int64
	Duplicates atomic.Int64

	mu     sync.Mutex
	stages []stageTiming
}

type stageTiming struct {
	name     string
	duration time.Duration
}

func NewLoadMetrics() *LoadMetrics {
	return &LoadMetrics{}
}

// Stage starts timing name and returns a func that records it when called.
func (m *LoadMetrics) Stage(name string) func() {
	clock := NewClock()
	clock.Start()
	return func() {
		clock.Stop()
		m.mu.Lock()
		m.stages = append(m.stages, stageTiming{name: name, duration: clock.Elapsed()})
		m.mu.Unlock()
	}
}

func (m *LoadMetrics) StageDuration(name string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.stages {
		if s.name == name {
			return s.duration, true
		}
	}
	return 0, false
}

func (m *LoadMetrics) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "registered=%d skipped=%d duplicates=%d", m.Registered.Load(), m.Skipped.Load(), m.Duplicates.Load())
	for _, s := range m.stages {
		fmt.Fprintf(&b, " %s=%s", s.name, s.duration.Round(time.Millisecond))
	}
	return b.String()
}
