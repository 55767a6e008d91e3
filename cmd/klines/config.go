package klines

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	StartDt  time.Time `envconfig:"KLINES_START_DATE" default:"2025-01-01T00:00:00Z"`
	EndDt    time.Time `envconfig:"KLINES_END_DATE" default:"2027-01-31T00:00:00Z"`
	Interval string    `envconfig:"KLINES_INTERVAL" default:"1m"` // 1m | 1h
	AutoMode bool      `envconfig:"KLINES_AUTO_MODE" default:"true"`
	Base     string    `envconfig:"KLINES_BASE" default:"BTC"`
	Quote    string    `envconfig:"KLINES_QUOTE" default:"USDT"`
	Limit    int       `envconfig:"KLINES_LIMIT" default:"1000"`
	Endpoint string    `envconfig:"KLINES_ENDPOINT"`
}

// Symbol is the exchange symbol the bars are stored under, e.g. BTCUSDT.
func (c *Config) Symbol() string {
	return c.Base + c.Quote
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
