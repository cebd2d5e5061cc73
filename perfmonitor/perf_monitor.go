// Package perfmonitor measures the wall-clock time between two points.
package perfmonitor

import "time"

// PerformanceMonitor records a start and an end time. It is not safe for
// concurrent use.
type PerformanceMonitor struct {
	startTime time.Time
	endTime   time.Time
}

// NewPerformanceMonitor returns a monitor with nothing recorded.
func NewPerformanceMonitor() *PerformanceMonitor {
	return &PerformanceMonitor{}
}

// Start records the start time, replacing any previous one.
func (pm *PerformanceMonitor) Start() {
	pm.startTime = time.Now()
}

// Stop records the end time. It does nothing if Start was not called.
func (pm *PerformanceMonitor) Stop() {
	if pm.startTime.IsZero() {
		return
	}

	pm.endTime = time.Now()
}

// Reset clears both recorded times.
func (pm *PerformanceMonitor) Reset() {
	pm.startTime = time.Time{}
	pm.endTime = time.Time{}
}

// ElapsedMilliseconds returns the time between Start and Stop in
// milliseconds, or 0 if either is missing.
func (pm *PerformanceMonitor) ElapsedMilliseconds() float64 {
	if pm.startTime.IsZero() || pm.endTime.IsZero() {
		return 0
	}

	return float64(pm.endTime.Sub(pm.startTime)) / float64(time.Millisecond)
}
