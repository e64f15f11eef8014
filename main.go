package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"tradeflow/internal/api"
	"tradeflow/internal/executor"
	"tradeflow/internal/market"
	"tradeflow/internal/signal"
	"tradeflow/internal/strategy"
	"tradeflow/internal/telemetry"
	"tradeflow/pkg/config"
	"tradeflow/pkg/okx"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	chain, err := signal.LoadChain(cfg.ChainPath)
	if err != nil {
		log.Fatalf("load signal chain: %v", err)
	}
	strat := strategy.New(chain)

	sessionID := uuid.New().String()[:8]
	log.Printf("session %s starting in %s mode on %s %s", sessionID, cfg.Mode, cfg.Instrument, cfg.Bar)

	writer, err := buildTelemetry(cfg)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.Mode {
	case "backtest":
		err = runBacktest(ctx, cfg, strat, writer, sessionID)
	case "live":
		err = runLive(ctx, cfg, strat, writer, sessionID)
	}
	if err != nil {
		log.Fatalf("run: %v", err)
	}
}

// buildTelemetry prefers an influx endpoint and falls back to the local
// sqlite sink; telemetry is optional and a missing config disables it.
func buildTelemetry(cfg *config.Config) (*telemetry.Writer, error) {
	if cfg.InfluxURL != "" {
		sink, err := telemetry.NewHTTPSink(telemetry.HTTPSinkConfig{
			URL:    cfg.InfluxURL,
			Token:  cfg.InfluxToken,
			Org:    cfg.InfluxOrg,
			Bucket: cfg.InfluxBucket,
		})
		if err != nil {
			return nil, err
		}
		return telemetry.NewWriter(sink, telemetry.WriterConfig{}), nil
	}
	if cfg.TelemetryDBPath != "" {
		sink, err := telemetry.NewSQLiteSink(cfg.TelemetryDBPath)
		if err != nil {
			return nil, err
		}
		return telemetry.NewWriter(sink, telemetry.WriterConfig{}), nil
	}
	return nil, nil
}

func runBacktest(ctx context.Context, cfg *config.Config, strat *strategy.Strategy, writer *telemetry.Writer, sessionID string) error {
	src, err := market.OpenCSV(cfg.CSVPath)
	if err != nil {
		return err
	}
	defer src.Close()

	exec, err := executor.NewBacktest(strat, executor.BacktestConfig{
		Capital:    cfg.Capital,
		Instrument: cfg.Instrument,
		FillMode:   executor.FillMode(cfg.FillMode),
		SessionID:  sessionID,
		Telemetry:  writer,
	})
	if err != nil {
		return err
	}
	defer exec.Close()

	start := time.Now()
	for {
		c, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := exec.Ack(ctx, c); err != nil {
			return err
		}
	}

	sum := exec.Summary()
	log.Printf("backtest done in %s: %s", time.Since(start).Round(time.Millisecond), sum)
	return nil
}

func runLive(ctx context.Context, cfg *config.Config, strat *strategy.Strategy, writer *telemetry.Writer, sessionID string) error {
	client := okx.NewClient(okx.Config{
		APIKey:     cfg.OKXAPIKey,
		SecretKey:  cfg.OKXSecretKey,
		Passphrase: cfg.OKXPassphrase,
		Demo:       cfg.OKXDemo,
	})

	exec, err := executor.NewLive(strat, client, executor.LiveConfig{
		Capital:      cfg.Capital,
		Instrument:   cfg.Instrument,
		Leverage:     cfg.Leverage,
		MarginMode:   cfg.MarginMode,
		ContractSize: cfg.ContractSize,
		SessionID:    sessionID,
		Telemetry:    writer,
	})
	if err != nil {
		return err
	}
	defer exec.Close()

	// Warm the signal chain on recent history before trading.
	if cfg.PreloadLimit > 0 {
		history, err := client.Candles(ctx, cfg.Instrument, cfg.Bar, cfg.PreloadLimit)
		if err != nil {
			return err
		}
		closes := make([]float64, len(history))
		for i, c := range history {
			closes[i] = c.Close
		}
		exec.Preload(closes)
	}

	candles, stopStream, err := okx.SubscribeCandles(ctx, okx.StreamConfig{
		Instrument: cfg.Instrument,
		Bar:        cfg.Bar,
		Demo:       cfg.OKXDemo,
	})
	if err != nil {
		return err
	}
	defer stopStream()

	server := api.NewServer(sessionID, cfg.Mode, cfg.Instrument)
	server.Start(":" + cfg.APIPort)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("api shutdown: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Printf("shutting down: %s", exec.Summary())
			return nil
		case c, ok := <-candles:
			if !ok {
				log.Printf("candle stream closed: %s", exec.Summary())
				return nil
			}
			execErr := exec.Ack(ctx, c)
			if execErr != nil {
				log.Printf("bar %s: %v", c.Timestamp.Format(time.RFC3339), execErr)
			}
			server.Update(exec.Summary(), strat.Current(), c.Timestamp, c.Close, execErr)
		}
	}
}
