package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type HTTPServer struct {
	Port string `mapstructure:"port"`
}

type DbServer struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Pass     string `mapstructure:"pass"`
	Name     string `mapstructure:"name"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (config *DbServer) GetConnectionStr() string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=disable pool_max_conns=10",
		config.User, config.Pass, config.Host, config.Port, config.Name,
	)
}

type HTTPClient struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type Logging struct {
	Level string `mapstructure:"level"`
	// File enables rotating file output when set; empty means stdout only.
	File string `mapstructure:"file"`
}

type Oracle struct {
	CoinGeckoURL            string  `mapstructure:"coingecko_url"`
	BinanceURL              string  `mapstructure:"binance_url"`
	KrakenURL               string  `mapstructure:"kraken_url"`
	BinanceWSURL            string  `mapstructure:"binance_ws_url"`
	EnableStream            bool    `mapstructure:"enable_stream"`
	MaxQuoteAgeSeconds      int     `mapstructure:"max_quote_age_seconds"`
	MaxDeviation            float64 `mapstructure:"max_deviation"`
	MinSources              int     `mapstructure:"min_sources"`
	PerSourceTimeoutSeconds int     `mapstructure:"per_source_timeout_seconds"`
	CacheTTLSeconds         int     `mapstructure:"cache_ttl_seconds"`
}

type Asset struct {
	Decimals   uint32 `mapstructure:"decimals"`
	MinDeposit string `mapstructure:"min_deposit"`
	LTVBps     uint32 `mapstructure:"ltv_bps"`
}

type Liquidation struct {
	BonusBps            uint32   `mapstructure:"bonus_bps"`
	MinAmount           string   `mapstructure:"min_amount"`
	MaxAmount           string   `mapstructure:"max_amount"`
	Liquidators         []string `mapstructure:"liquidators"`
	ScanIntervalSeconds int      `mapstructure:"scan_interval_seconds"`
}

type Ledger struct {
	BaseURL         string `mapstructure:"base_url"`
	ProtocolAccount string `mapstructure:"protocol_account"`
}

type AppConfig struct {
	HTTPServer  HTTPServer       `mapstructure:"http_server"`
	DbServer    DbServer         `mapstructure:"db_server"`
	HTTPClient  HTTPClient       `mapstructure:"http_client"`
	Logging     Logging          `mapstructure:"logging"`
	Oracle      Oracle           `mapstructure:"oracle"`
	Assets      map[string]Asset `mapstructure:"assets"`
	Liquidation Liquidation      `mapstructure:"liquidation"`
	Ledger      Ledger           `mapstructure:"ledger"`
	Admins      []string         `mapstructure:"admins"`
}

func Init() (*AppConfig, error) {
	var cfg AppConfig

	if err := godotenv.Load(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	viper.SetConfigFile("config.yaml")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	viper.SetDefault("db_server.max_conns", 10)
	viper.SetDefault("http_client.timeout_seconds", 10)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("oracle.max_quote_age_seconds", 300)
	viper.SetDefault("oracle.max_deviation", 0.05)
	viper.SetDefault("oracle.min_sources", 2)
	viper.SetDefault("oracle.per_source_timeout_seconds", 5)
	viper.SetDefault("oracle.cache_ttl_seconds", 15)
	viper.SetDefault("liquidation.scan_interval_seconds", 30)

	// db server env vars
	_ = viper.BindEnv("db_server.host", "DB_HOST")
	_ = viper.BindEnv("db_server.port", "DB_PORT")
	_ = viper.BindEnv("db_server.user", "DB_USER")
	_ = viper.BindEnv("db_server.pass", "DB_PASS")
	_ = viper.BindEnv("db_server.name", "DB_NAME")
	_ = viper.BindEnv("db_server.max_conns", "DB_MAX_CONNS")

	// external services env vars
	_ = viper.BindEnv("ledger.base_url", "LEDGER_BASE_URL")
	_ = viper.BindEnv("ledger.protocol_account", "LEDGER_PROTOCOL_ACCOUNT")
	_ = viper.BindEnv("http_client.timeout_seconds", "HTTP_CLIENT_TIMEOUT_SECONDS")

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &cfg, nil
}
