// Package config loads the handful of VM tunables that have no natural
// home as a CLI flag of a source-level front end this module doesn't
// implement (spec.md places lexing/parsing out of scope, so cmd/rho's
// flags cover only the asm/dis/link subcommands themselves). An optional
// .env file is read first, then environment variables override it, the
// same two-step load every caarlos0/env consumer in the ecosystem uses.
package config

import (
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds runtime limits a driver copies into lang/machine.VM's
// MaxSteps and GCThreshold fields after NewVM.
type Config struct {
	// MaxSteps bounds a single Thread's instruction count (0 means
	// unlimited); see lang/machine.Thread.MaxSteps.
	MaxSteps int64 `env:"RHO_MAX_STEPS" envDefault:"0"`

	// GCThreshold is the number of allocations between automatic
	// collections a host driver (cmd/rho's link/run path) should use when
	// it isn't calling Thread.Collect on its own cadence.
	GCThreshold int `env:"RHO_GC_THRESHOLD" envDefault:"100000"`

	// EnvFile is an optional dotenv-format file loaded before the process
	// environment is parsed into this struct; a missing file is not an
	// error, matching godotenv.Load's own convention for optional paths.
	EnvFile string `env:"RHO_ENV_FILE" envDefault:".env"`
}

// Load reads EnvFile (if present) into the process environment, then
// parses RHO_-prefixed variables into a Config.
func Load() (*Config, error) {
	envFile := ".env"
	if v, ok := os.LookupEnv("RHO_ENV_FILE"); ok {
		envFile = v
	}
	_ = godotenv.Load(envFile) // optional; a missing file is not an error

	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
