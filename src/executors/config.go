package executors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	TargetSymbol string `envconfig:"TARGET_SYMBOL" default:"BTCUSDT"`
	QuoteAsset   string `envconfig:"QUOTE_ASSET" default:"USDT"`
	Leverage     int    `envconfig:"LEVERAGE" default:"80"`
	MarginType   string `envconfig:"MARGIN_TYPE" default:"ISOLATED"`

	// sizing
	MinBuffer      float64 `envconfig:"MIN_BUFFER" default:"1.03"`
	MarginFraction float64 `envconfig:"MARGIN_FRACTION" default:"0.05"`
	LossPct        float64 `envconfig:"LOSS_PCT" default:"0.3"`
	GainPct        float64 `envconfig:"GAIN_PCT" default:"0.08"`
	TimeInForce    string  `envconfig:"TIME_IN_FORCE" default:"GTC"`

	// entry price
	MakerOffsetTicks int `envconfig:"MAKER_OFFSET_TICKS" default:"1"`
	DepthLimit       int `envconfig:"DEPTH_LIMIT" default:"5"`

	ResolutionTimeout  time.Duration `envconfig:"RESOLUTION_TIMEOUT" default:"900s"`
	PollInterval       time.Duration `envconfig:"POLL_INTERVAL" default:"500ms"`
	CycleSleep         time.Duration `envconfig:"CYCLE_SLEEP" default:"5s"`
	NoPositionCooldown time.Duration `envconfig:"NO_POSITION_COOLDOWN" default:"5s"`
	MaxCycles          int           `envconfig:"MAX_CYCLES" default:"0"` // 0 = unlimited

	DecisionMode   string        `envconfig:"DECISION_MODE" default:"alternate"` // alternate | signal
	MinConfidence  float64       `envconfig:"MIN_CONFIDENCE" default:"0"`
	DecisionWindow int           `envconfig:"DECISION_WINDOW" default:"200"`
	SignalMaxAge   time.Duration `envconfig:"SIGNAL_MAX_AGE" default:"15m"`

	MetadataTTL       time.Duration `envconfig:"METADATA_TTL" default:"10m"`
	TransactionLogDir string        `envconfig:"TRANSACTION_LOG_DIR" default:"."`

	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `envconfig:"TELEGRAM_CHAT_ID"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
