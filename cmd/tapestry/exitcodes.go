package main

const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (missing API key, bad paths)
	ExitDataError   = 3 // Data error (unknown room, validation failure)
)
