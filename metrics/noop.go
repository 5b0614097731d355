package metrics

import "time"

var _ Recorder = NoopRecorder{}

// NoopRecorder drops every measurement. Components fall back to it when no
// recorder is configured.
type NoopRecorder struct{}

func (NoopRecorder) IncCounter(string, map[string]string)                    {}
func (NoopRecorder) ObserveLatency(string, time.Duration, map[string]string) {}
