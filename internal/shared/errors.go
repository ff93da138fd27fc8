package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig    = fmt.Errorf("configuration not found")
	ErrInvalidConfig    = fmt.Errorf("invalid configuration")
	ErrMissingConnector = fmt.Errorf("missing connector name")

	// Authentication errors
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")

	// Connector and API errors
	ErrAPIRequest           = fmt.Errorf("API request failed")
	ErrConnectorUnavailable = fmt.Errorf("connector unavailable")
	ErrTrackNotFound        = fmt.Errorf("track not found")

	// Timing errors
	ErrTimeout = fmt.Errorf("operation timed out")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
