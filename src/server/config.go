package server

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port string `envconfig:"PORT" default:"9898"`
	// When StatsUser is empty the status routes are public.
	StatsUser         string `envconfig:"STATS_USER"`
	StatsPasswordHash string `envconfig:"STATS_PASSWORD_HASH"` // bcrypt
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
