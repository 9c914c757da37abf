package config

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	LCDURL           string        `env:"LCD_URL,default=http://localhost:1317"`
	ChainID          string        `env:"CHAIN_ID,default=phoenix-1"`
	AddressPrefix    string        `env:"ADDRESS_PREFIX,default=terra"`
	BridgeURL        string        `env:"BRIDGE_URL,default=http://localhost:3030"`
	WalletConnectURL string        `env:"WALLETCONNECT_URL"`
	MultisigCodeID   uint64        `env:"MULTISIG_CODE_ID,default=595"`
	APIKEY           string        `env:"API_KEY"`
	SentryURL        string        `env:"SENTRY_URL"`
	DiscordURL       string        `env:"DISCORD_URL"`
	Notify           bool          `env:"NOTIFY,default=false"`
	PollAttempts     uint          `env:"POLL_ATTEMPTS,default=50"`
	PollInterval     time.Duration `env:"POLL_INTERVAL,default=500ms"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT,default=15s"`
	LogLevel         string        `env:"LOG_LEVEL,default=info"`
}

// New loads the optional env file at envpath and reads the configuration from the environment
func New(ctx context.Context, envpath string) (*Config, error) {
	if envpath != "" {
		err := godotenv.Load(envpath)
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	err := envconfig.Process(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
