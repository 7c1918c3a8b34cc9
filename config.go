package simforge

import "time"

// Default configuration for simforge stores and the API client.
// These can be overridden per-instance using builder methods.
var (
	// DefaultBaseURL is the SimForge API root used by NewClient when no
	// base URL is given.
	DefaultBaseURL = "http://localhost:12000/api/v1"

	// DefaultToastDuration is how long a toast stays visible when the
	// caller does not set a duration. Zero means persistent.
	DefaultToastDuration = 5000 * time.Millisecond

	// DefaultToastPosition is the screen anchor for toasts without an explicit position.
	DefaultToastPosition = ToastTopRight

	// DefaultSequenceCount is the number of sequences requested per generation call.
	DefaultSequenceCount = 1

	// DefaultTemperature is the sampling temperature sent with generation requests.
	DefaultTemperature = 0.7

	// DefaultForkCount is the number of alternatives requested per fork call.
	DefaultForkCount = 1
)
