package telemetry

// BacktestPoint records one bar's realized run state.
func BacktestPoint(session string, tsNS int64, close, position, equity, drawdown, sharpe float64) Point {
	return Point{
		Measurement: "backtest",
		Tags:        map[string]string{"session": session},
		Fields: map[string]any{
			"close":    close,
			"position": position,
			"equity":   equity,
			"drawdown": drawdown,
			"sharpe":   sharpe,
		},
		TimestampNS: tsNS,
	}
}

// TradePoint records one executed transition.
func TradePoint(session, instrument, action string, tsNS int64, price, size, equity float64) Point {
	return Point{
		Measurement: "trade",
		Tags: map[string]string{
			"session":    session,
			"instrument": instrument,
			"action":     action,
		},
		Fields: map[string]any{
			"price":  price,
			"size":   size,
			"equity": equity,
		},
		TimestampNS: tsNS,
	}
}
