package types

import (
	"errors"
	"fmt"
)

var (
	ErrNoTimesteps          = errors.New("no timesteps defined")
	ErrBoundLength          = errors.New("bound array length does not match link count")
	ErrInvestUnbounded      = errors.New("investment requires a finite capacity bound")
	ErrUnsupportedTransport = errors.New("unsupported transport kind")
	ErrUnknownBus           = errors.New("link references an unknown bus")
	ErrDuplicateUID         = errors.New("duplicate entity uid")
	ErrLinkCount            = errors.New("invalid number of links")
	ErrEfficiencyLength     = errors.New("efficiency array length does not match links")
	ErrMissingTemperature   = errors.New("heat bus requires a temperature")
	ErrMissingProfile       = errors.New("profile is required")
	ErrUnknownKind          = errors.New("unknown entity kind")
	ErrEmptyUID             = errors.New("entity uid cannot be empty")
	ErrInvalidParameter     = errors.New("invalid parameter")
)

// ConfigError is an invalid entity configuration. It names the entity so the
// caller can find the offending record.
type ConfigError struct {
	Entity UID
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration for %q: %v", e.Entity.String(), e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErr(uid UID, err error, format string, args ...any) error {
	if format != "" {
		err = fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...))
	}
	return &ConfigError{Entity: uid, Err: err}
}
