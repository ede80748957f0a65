package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/chikanerick/asterdex-trading-bot/pkg/errors"
)

// Decimal wraps decimal.Decimal so exact values can be written in YAML
// without passing through binary floating point.
type Decimal struct {
	decimal.Decimal
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Decimal) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := decimal.NewFromString(value.Value)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid decimal value %q", value.Value)
	}

	d.Decimal = parsed

	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Decimal) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Range is an inclusive integer range, used for randomized durations in
// seconds.
type Range struct {
	Min int `yaml:"min" validate:"gte=0"`
	Max int `yaml:"max" validate:"gte=0"`
}

// Settings holds the trading parameters for the cycle runner.
type Settings struct {
	// BaseURL is the futures REST endpoint. AsterDex exposes a
	// Binance-futures-compatible API.
	BaseURL string `yaml:"base_url" validate:"required,url"`
	// Symbols are the tradable pairs; one is chosen at random per cycle.
	Symbols  []string `yaml:"symbols" validate:"required,min=1,dive,required"`
	Leverage int      `yaml:"leverage" validate:"required,gte=1,lte=125"`
	// BaseNotionalUSDT is the base position size per cycle before leverage
	// and jitter.
	BaseNotionalUSDT Decimal `yaml:"base_notional_usdt"`
	// QtyJitter is the fraction J such that the per-cycle size multiplier is
	// drawn uniformly from [1-J, 1+J].
	QtyJitter Decimal `yaml:"qty_jitter"`
	// HoldTimeRange bounds the randomized hold between open and close, in
	// seconds.
	HoldTimeRange Range `yaml:"hold_time_range"`
	// BetweenCyclesRange bounds the randomized pause after a cycle, in
	// seconds.
	BetweenCyclesRange Range `yaml:"between_cycles_range"`
	// MinNotionalUSDT is the minimum per-leg order value; smaller legs are
	// skipped without placing an order.
	MinNotionalUSDT Decimal `yaml:"min_notional_usdt"`
	// MaxAttempts bounds the place-and-confirm retries per leg.
	MaxAttempts int `yaml:"max_attempts" validate:"required,gte=1"`
	// RecvWindow is passed on signed requests, in milliseconds.
	RecvWindow int64 `yaml:"recv_window" validate:"gte=0"`
	// StatsPath is the SQLite file for cumulative fill statistics.
	StatsPath string `yaml:"stats_path"`
	LogLevel  string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultSettings returns the settings used when a field is absent from the
// settings file.
func DefaultSettings() Settings {
	return Settings{
		BaseURL:            "https://fapi.asterdex.com",
		Symbols:            []string{"BTCUSDT", "ETHUSDT"},
		Leverage:           10,
		BaseNotionalUSDT:   Decimal{decimal.RequireFromString("20")},
		QtyJitter:          Decimal{decimal.RequireFromString("0.05")},
		HoldTimeRange:      Range{Min: 30, Max: 110},
		BetweenCyclesRange: Range{Min: 30, Max: 200},
		MinNotionalUSDT:    Decimal{decimal.RequireFromString("5")},
		MaxAttempts:        5,
		RecvWindow:         10000,
		StatsPath:          "stats.db",
		LogLevel:           "info",
	}
}

// LoadSettings reads and validates a YAML settings file, applying defaults
// for absent fields. A missing file is a configuration error: trading with
// silently defaulted credentials or sizes is never acceptable.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read settings file %s", path)
	}

	settings := DefaultSettings()
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse settings file", err)
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}

	return settings, nil
}

// Validate validates the Settings struct.
func (s *Settings) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid settings", err)
	}

	if !s.BaseNotionalUSDT.IsPositive() {
		return errors.New(errors.ErrCodeInvalidConfiguration, "base_notional_usdt must be positive")
	}

	if s.QtyJitter.IsNegative() || s.QtyJitter.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "qty_jitter must be in [0, 1), got %s", s.QtyJitter)
	}

	if s.MinNotionalUSDT.IsNegative() {
		return errors.New(errors.ErrCodeInvalidConfiguration, "min_notional_usdt must not be negative")
	}

	for _, r := range []struct {
		name string
		r    Range
	}{
		{"hold_time_range", s.HoldTimeRange},
		{"between_cycles_range", s.BetweenCyclesRange},
	} {
		if r.r.Max < r.r.Min {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "%s: max %d < min %d", r.name, r.r.Max, r.r.Min)
		}
	}

	return nil
}
