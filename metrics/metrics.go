package metrics

import "time"

// Recorder receives pipeline and client measurements.
// Well-known label keys are "stage", "chain" and "outcome".
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// Metric names
const (
	PipelineStage     = "pipeline_stage"
	ConfirmLatency    = "confirm"
	ConfirmPolls      = "confirm_poll"
	PreferenceFetch   = "preference_fetch"
	PreferencePublish = "preference_publish"
	QuoteRequest      = "quote_request"
	ComplianceCheck   = "compliance_check"
)
