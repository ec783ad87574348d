package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds process settings taken from the environment.
type Env struct {
	DataDir   string `env:"PNSIM_DATA_DIR"   envDefault:"data"`
	LogLevel  string `env:"PNSIM_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"PNSIM_LOG_FORMAT" envDefault:"text"`
	// Workers bounds concurrent runs in compare.
	Workers int `env:"PNSIM_WORKERS" envDefault:"4"`
}

func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}
