package constants

import "time"

// Retry and backoff constants
const (
	// Delay before the second try, doubled after every try (1s, 2s, 4s, 8s...)
	DefaultInitialBackoff = 1 * time.Second

	// Zero means the backoff delay is never capped
	DefaultMaxBackoff = 0

	// Number of tries used by the CLI when retrying commands
	DefaultMaxTries = 5
)
