package social

import "errors"

// Invalid-input sentinels. These are rejected synchronously and never
// reach the store. IO failures are wrapped ad hoc by the component that
// hit them; parse failures at load are logged and skipped, never returned.
var (
	ErrEmptyContent    = errors.New("post content is empty")
	ErrPastSchedule    = errors.New("scheduled time must be in the future")
	ErrUnknownPlatform = errors.New("unknown platform")
	ErrUnknownMetric   = errors.New("unknown metric type")
)
