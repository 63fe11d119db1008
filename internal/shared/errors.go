package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrPrecondition       = fmt.Errorf("operation precondition not met")

	// Remote storage errors
	ErrProjectNotFound = fmt.Errorf("project not found")
	ErrBucketNotFound  = fmt.Errorf("bucket not found")
	ErrTransport       = fmt.Errorf("network request failed")
	ErrTimeout         = fmt.Errorf("operation timed out")

	// Capture errors
	ErrDeviceUnavailable = fmt.Errorf("camera device unavailable")
	ErrNotActive         = fmt.Errorf("camera not active")
	ErrEncodeFailed      = fmt.Errorf("image encode failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
