package budgetgate

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is the root of every startup configuration failure.
	ErrConfiguration = errors.New("configuration error")
	// ErrLoginRateLimited is returned when a client exceeded its login attempts.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrInvalidRole is returned when the backend hands out a role outside the console's set.
	ErrInvalidRole = errors.New("invalid account role")
	// ErrSessionWrite is returned when the session cookies could not be produced.
	ErrSessionWrite = errors.New("session cookies could not be written")
)

// ConfigurationError names the setting that prevents the gate from starting.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}
