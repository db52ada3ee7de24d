package config

import (
	"fmt"

	"github.com/USA-RedDragon/configulator"
)

// EnvOverlay carries deploy-time tuning that layers on top of Program B's
// file-based configuration: log verbosity and the metrics server bind
// address. Program A does not load it. It is separate from the on-disk
// file grammars in extract.go/server.go.
type EnvOverlay struct {
	LogLevel LogLevel `name:"LOG_LEVEL" default:"info"`
	Metrics  Metrics  `name:"METRICS"`
}

// Metrics configures the optional Prometheus HTTP endpoint (Program B only).
type Metrics struct {
	Enabled bool   `name:"ENABLED" default:"false"`
	Bind    string `name:"BIND" default:"0.0.0.0"`
	Port    int    `name:"PORT" default:"9090"`
}

// LoadEnvOverlay loads the environment-variable overlay via configulator.
// configulator.New[T]().Default() is the one call the retrieval pack shows
// working end to end (internal/testutils/integration.go); the teacher's
// own production entrypoint retrieves an already-built value from context
// instead (cmd/root.go's configulator.FromContext), with no pack-visible
// site that attaches one before Execute(), so that path isn't provably
// wired here.
func LoadEnvOverlay() (EnvOverlay, error) {
	cfg, err := configulator.New[EnvOverlay]().Default()
	if err != nil {
		return EnvOverlay{}, fmt.Errorf("config: load env overlay: %w", err)
	}
	return cfg, nil
}
