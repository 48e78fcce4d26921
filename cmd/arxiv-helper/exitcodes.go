package main

// Exit codes.
const (
	ExitSuccess          = 0 // Success
	ExitError            = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError      = 2 // Configuration error / index needs rebuild
	ExitModelUnavailable = 3 // Embedding backend or model not available
	ExitNoVector         = 4 // Paper not vectorized or has no text
	ExitNotFound         = 5 // Paper not found
)
