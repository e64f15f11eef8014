package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the engine.
type Config struct {
	Mode string // backtest or live

	// Run parameters
	Capital      float64
	Instrument   string
	Bar          string // candle size, e.g. 1m, 5m, 1H
	Leverage     int
	MarginMode   string // cross or isolated
	ContractSize float64
	FillMode     string // backtest fill convention: close or open

	// Inputs
	CSVPath      string // backtest candle file
	ChainPath    string // YAML signal chain definition
	PreloadLimit int    // bars of history fetched before going live

	// OKX
	OKXAPIKey     string
	OKXSecretKey  string
	OKXPassphrase string
	OKXDemo       bool

	// Telemetry
	InfluxURL       string
	InfluxToken     string
	InfluxOrg       string
	InfluxBucket    string
	TelemetryDBPath string // sqlite fallback when no influx URL is set

	// Status API
	APIPort string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the engine still starts when .env is missing.
	_ = godotenv.Load()

	cfg := &Config{
		Mode:            strings.ToLower(getEnv("MODE", "backtest")),
		Capital:         getEnvFloat("CAPITAL", 1000),
		Instrument:      getEnv("INSTRUMENT", "BTC-USDT-SWAP"),
		Bar:             getEnv("BAR", "1m"),
		Leverage:        getEnvInt("LEVERAGE", 3),
		MarginMode:      strings.ToLower(getEnv("MARGIN_MODE", "cross")),
		ContractSize:    getEnvFloat("CONTRACT_SIZE", 0.01),
		FillMode:        strings.ToLower(getEnv("FILL_MODE", "close")),
		CSVPath:         getEnv("CSV_PATH", "./data/candles.csv"),
		ChainPath:       getEnv("CHAIN_PATH", "./config/chain.yaml"),
		PreloadLimit:    getEnvInt("PRELOAD_LIMIT", 300),
		OKXAPIKey:       os.Getenv("OKX_API_KEY"),
		OKXSecretKey:    os.Getenv("OKX_SECRET_KEY"),
		OKXPassphrase:   os.Getenv("OKX_PASSPHRASE"),
		OKXDemo:         getEnv("OKX_DEMO", "true") == "true",
		InfluxURL:       os.Getenv("INFLUX_URL"),
		InfluxToken:     os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:       getEnv("INFLUX_ORG", "tradeflow"),
		InfluxBucket:    getEnv("INFLUX_BUCKET", "tradeflow"),
		TelemetryDBPath: getEnv("TELEMETRY_DB_PATH", "./data/telemetry.db"),
		APIPort:         getEnv("API_PORT", "8080"),
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.Mode {
	case "backtest", "live":
	default:
		return fmt.Errorf("config: MODE %q must be backtest or live", c.Mode)
	}
	if c.Capital <= 0 {
		return fmt.Errorf("config: CAPITAL %v must be > 0", c.Capital)
	}
	if c.Mode == "live" && (c.OKXAPIKey == "" || c.OKXSecretKey == "" || c.OKXPassphrase == "") {
		return fmt.Errorf("config: live mode requires OKX_API_KEY, OKX_SECRET_KEY and OKX_PASSPHRASE")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
