package backtest

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"

	"github.com/quantbee/thresholdbt/internal/detector"
	"github.com/quantbee/thresholdbt/pkg/errors"
)

// Config is the full configuration surface of one simulation pass. All fields
// are optional in YAML; omitted fields keep their defaults.
type Config struct {
	InitialEquity    float64 `yaml:"initial_equity" json:"initial_equity" validate:"gt=0" jsonschema:"title=Initial Equity,description=Starting equity that trade returns compound onto,minimum=0"`
	FastSpan         int     `yaml:"fast_span" json:"fast_span" validate:"gte=1" jsonschema:"title=Fast Span,description=Span of the fast exponential average"`
	SlowSpan         int     `yaml:"slow_span" json:"slow_span" validate:"gte=1" jsonschema:"title=Slow Span,description=Span of the slow exponential average"`
	OscillatorPeriod int     `yaml:"oscillator_period" json:"oscillator_period" validate:"gte=1" jsonschema:"title=Oscillator Period,description=Wilder smoothing period of the oscillator"`
	LowThreshold     float64 `yaml:"low_threshold" json:"low_threshold" validate:"gte=0,lte=100" jsonschema:"title=Low Threshold,description=Oscillator value at or below which a BUY is signalled"`
	HighThreshold    float64 `yaml:"high_threshold" json:"high_threshold" validate:"gte=0,lte=100" jsonschema:"title=High Threshold,description=Oscillator value at or above which a SELL is signalled"`
	// StopFraction and RewardRatio are nullable: an absent stop fraction with
	// an absent reward ratio makes the detector emit soft signals only.
	StopFraction  optional.Option[float64] `yaml:"stop_fraction" json:"stop_fraction" jsonschema:"title=Stop Fraction,description=Fractional stop distance from the entry price"`
	RewardRatio   optional.Option[float64] `yaml:"reward_ratio" json:"reward_ratio" jsonschema:"title=Reward Ratio,description=Take-profit distance as a multiple of the stop distance"`
	MinWarmupBars int                      `yaml:"min_warmup_bars" json:"min_warmup_bars" validate:"gte=0" jsonschema:"title=Minimum Warmup Bars,description=Instruments with fewer bars are skipped with a warning"`
}

// DefaultConfig returns the configuration used when no overrides are given.
func DefaultConfig() Config {
	return Config{
		InitialEquity:    10000,
		FastSpan:         9,
		SlowSpan:         21,
		OscillatorPeriod: 14,
		LowThreshold:     detector.DefaultLowThreshold,
		HighThreshold:    detector.DefaultHighThreshold,
		StopFraction:     optional.Some(0.01),
		RewardRatio:      optional.Some(2.0),
		MinWarmupBars:    200,
	}
}

// UnmarshalYAML implements custom unmarshaling so that omitted fields fall
// back to defaults and nullable fields map onto options.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type rawConfig struct {
		InitialEquity    *float64 `yaml:"initial_equity"`
		FastSpan         *int     `yaml:"fast_span"`
		SlowSpan         *int     `yaml:"slow_span"`
		OscillatorPeriod *int     `yaml:"oscillator_period"`
		LowThreshold     *float64 `yaml:"low_threshold"`
		HighThreshold    *float64 `yaml:"high_threshold"`
		StopFraction     *float64 `yaml:"stop_fraction"`
		RewardRatio      *float64 `yaml:"reward_ratio"`
		MinWarmupBars    *int     `yaml:"min_warmup_bars"`
	}

	var raw rawConfig
	if err := unmarshal(&raw); err != nil {
		return err
	}

	*c = DefaultConfig()

	if raw.InitialEquity != nil {
		c.InitialEquity = *raw.InitialEquity
	}

	if raw.FastSpan != nil {
		c.FastSpan = *raw.FastSpan
	}

	if raw.SlowSpan != nil {
		c.SlowSpan = *raw.SlowSpan
	}

	if raw.OscillatorPeriod != nil {
		c.OscillatorPeriod = *raw.OscillatorPeriod
	}

	if raw.LowThreshold != nil {
		c.LowThreshold = *raw.LowThreshold
	}

	if raw.HighThreshold != nil {
		c.HighThreshold = *raw.HighThreshold
	}

	if raw.StopFraction != nil {
		c.StopFraction = optional.Some(*raw.StopFraction)
	}

	if raw.RewardRatio != nil {
		c.RewardRatio = optional.Some(*raw.RewardRatio)
	}

	if raw.MinWarmupBars != nil {
		c.MinWarmupBars = *raw.MinWarmupBars
	}

	return nil
}

// Validate checks structural constraints plus the cross-field rules the
// struct tags cannot express.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest config", err)
	}

	if c.HighThreshold <= c.LowThreshold {
		return errors.Newf(errors.ErrCodeInvalidThreshold,
			"high_threshold (%.2f) must be greater than low_threshold (%.2f)",
			c.HighThreshold, c.LowThreshold)
	}

	if c.StopFraction.IsSome() && c.StopFraction.Unwrap() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter,
			"stop_fraction must be positive, got %f", c.StopFraction.Unwrap())
	}

	if c.RewardRatio.IsSome() && c.RewardRatio.Unwrap() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter,
			"reward_ratio must be positive, got %f", c.RewardRatio.Unwrap())
	}

	return nil
}

// GenerateSchema generates a JSON schema for the Config.
func (c *Config) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if strings.Contains(t.String(), "optional.Option[float64]") {
				return &jsonschema.Schema{Type: "number"}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "backtest-config"
	schema.Description = "Configuration schema for the walk-forward backtest engine"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates a JSON schema string for the Config.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schema := c.GenerateSchema()

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
