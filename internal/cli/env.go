package cli

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds environment-derived defaults for CLI flags.
// Flags always win over environment values: the parsed values become
// flag defaults, so anything passed explicitly overrides them.
type Env struct {
	// Database is the default --db path for commands that touch the store.
	// When set, those commands no longer require the flag.
	Database string `env:"VOLITION_DB"`

	// Format is the default output format.
	Format string `env:"VOLITION_FORMAT" envDefault:"text"`

	// Verbose enables verbose output by default.
	Verbose bool `env:"VOLITION_VERBOSE" envDefault:"false"`
}

// LoadEnv parses VOLITION_* environment variables.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse environment: %w", err)
	}
	return e, nil
}
