package utils

import "time"

// Timer measures wall-clock time from NewTimer (or Start) to Stop.
type Timer struct {
	startTime time.Time
	duration  time.Duration
}

// NewTimer returns a running Timer.
func NewTimer() *Timer {
	return &Timer{startTime: time.Now()}
}

// Start restarts the measurement.
func (t *Timer) Start() {
	t.startTime = time.Now()
}

// Stop captures the time elapsed since the last start and returns it.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.startTime)
	return t.duration
}

// Duration returns what the last Stop captured, or zero before any Stop.
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Seconds is Duration in fractional seconds, the unit duration histograms use.
func (t *Timer) Seconds() float64 {
	return t.duration.Seconds()
}
