package config

import "errors"

var (
	ErrInvalidLogLevel        = errors.New("config: invalid log level")
	ErrInvalidMetricsBind     = errors.New("config: invalid metrics bind address")
	ErrInvalidMetricsPort     = errors.New("config: invalid metrics port")
)

// Validate checks the overlay's own fields; file-based config validity is
// checked at load time in extract.go/server.go instead; each missing
// required key already produces an ErrMissingKey there.
func (e EnvOverlay) Validate() error {
	switch e.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return ErrInvalidLogLevel
	}
	if !e.Metrics.Enabled {
		return nil
	}
	if e.Metrics.Bind == "" {
		return ErrInvalidMetricsBind
	}
	if e.Metrics.Port <= 0 || e.Metrics.Port > 65535 {
		return ErrInvalidMetricsPort
	}
	return nil
}
