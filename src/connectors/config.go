package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BinanceAPIKey     string        `envconfig:"BINANCE_API_KEY"`
	BinanceAPISecret  string        `envconfig:"BINANCE_API_SECRET"`
	BinanceBaseURL    string        `envconfig:"BINANCE_BASE_URL" default:"https://testnet.binancefuture.com"`
	BinanceRecvWindow int64         `envconfig:"BINANCE_RECV_WINDOW" default:"5000"`
	HTTPTimeout       time.Duration `envconfig:"BINANCE_HTTP_TIMEOUT" default:"15s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
