package signal

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SignalConfig describes one entry of a signal chain in YAML. Only the
// parameters of the named type are read.
type SignalConfig struct {
	Type string `yaml:"type"`

	// Moving average generators.
	Short int `yaml:"short"`
	Long  int `yaml:"long"`
	Fast  int `yaml:"fast"`
	Slow  int `yaml:"slow"`

	// MACD.
	Signal int `yaml:"signal"`

	// Channel-based generators.
	Lookback int     `yaml:"lookback"`
	DipPct   float64 `yaml:"dip_pct"`
	RallyPct float64 `yaml:"rally_pct"`
	FullPct  float64 `yaml:"full_pct"`
	MaxScale float64 `yaml:"max_scale"`

	// Overlays.
	Threshold float64            `yaml:"threshold"`
	MaxDD     float64            `yaml:"max_dd"`
	ResumeDD  float64            `yaml:"resume_dd"`
	Window    int                `yaml:"window"`
	Bands     map[string]float64 `yaml:"bands"`
}

// ChainConfig is the top-level YAML structure. Signals are listed overlays
// first and base generator last, matching chain order.
type ChainConfig struct {
	Signals []SignalConfig `yaml:"signals"`
}

// LoadChain reads a chain definition from a YAML file and builds it.
func LoadChain(path string) (*Chain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file ChainConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse chain config %s: %w", path, err)
	}
	return BuildChain(file.Signals)
}

// BuildChain constructs each configured signal and assembles the chain.
func BuildChain(configs []SignalConfig) (*Chain, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("chain config has no signals")
	}
	signals := make([]Signal, 0, len(configs))
	for i, cfg := range configs {
		sig, err := buildSignal(cfg)
		if err != nil {
			return nil, fmt.Errorf("signal %d (%s): %w", i, cfg.Type, err)
		}
		signals = append(signals, sig)
	}
	return NewChain(signals...)
}

func buildSignal(cfg SignalConfig) (Signal, error) {
	switch cfg.Type {
	case "ma_cross":
		return NewMACross(cfg.Short, cfg.Long)
	case "double_ma":
		return NewDoubleMA(cfg.Fast, cfg.Slow)
	case "macd":
		return NewMACD(cfg.Fast, cfg.Slow, cfg.Signal)
	case "buy_dip":
		return NewBuyDip(cfg.Lookback, cfg.DipPct, cfg.RallyPct)
	case "dd_scale":
		return NewDDScale(cfg.Lookback, cfg.DipPct, cfg.RallyPct, cfg.FullPct, cfg.MaxScale)
	case "stop_loss":
		return NewStopLoss(cfg.Threshold)
	case "equity_guard":
		return NewEquityGuard(cfg.MaxDD, cfg.ResumeDD)
	case "dd_size":
		bands, err := parseBands(cfg.Bands)
		if err != nil {
			return nil, err
		}
		return NewDrawdownSize(bands, cfg.Window)
	default:
		return nil, fmt.Errorf("unknown signal type %q", cfg.Type)
	}
}

func parseBands(raw map[string]float64) ([]Band, error) {
	bands := make([]Band, 0, len(raw))
	for levelStr, scale := range raw {
		level, err := strconv.ParseFloat(levelStr, 64)
		if err != nil {
			return nil, fmt.Errorf("band level %q: %w", levelStr, err)
		}
		bands = append(bands, Band{Level: level, Scale: scale})
	}
	return bands, nil
}
