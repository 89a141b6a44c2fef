package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// OddsPolicy holds the tunable curves used to price wagers and cash-out offers
type OddsPolicy struct {
	TimeDecay  TimeDecayPolicy  `mapstructure:"time_decay"`
	Volatility VolatilityPolicy `mapstructure:"volatility"`
	TimeSlots  TimeSlotPolicy   `mapstructure:"time_slots"`
	CashOut    CashOutPolicy    `mapstructure:"cash_out"`
	BaseOdds   BaseOddsPolicy   `mapstructure:"base_odds"`
}

// TimeDecayPolicy controls the early-placement bonus.
// The bonus is MaxBonus at FullBonusDays or more ahead of the target date and
// zero on the target date itself, interpolated as (days/FullBonusDays)^Exponent.
type TimeDecayPolicy struct {
	MaxBonus      float64 `mapstructure:"max_bonus"`
	FullBonusDays int     `mapstructure:"full_bonus_days"`
	Exponent      float64 `mapstructure:"exponent"`
}

// VolatilityPolicy maps a historical forecast accuracy score to a multiplier
type VolatilityPolicy struct {
	Weight          float64 `mapstructure:"weight"`
	NeutralAccuracy float64 `mapstructure:"neutral_accuracy"`
	MinMultiplier   float64 `mapstructure:"min_multiplier"`
	MaxMultiplier   float64 `mapstructure:"max_multiplier"`
	LookbackDays    int     `mapstructure:"lookback_days"`
}

// TimeSlotPolicy holds per-slot multipliers and the multi-slot combo bonus
type TimeSlotPolicy struct {
	Multipliers       map[string]float64 `mapstructure:"multipliers"`
	Categories        []string           `mapstructure:"categories"`
	ComboBonusPerSlot float64            `mapstructure:"combo_bonus_per_slot"`
}

// CashOutPolicy shapes the cash-out offer.
// At placement the offer is BaseFraction of the stake; it can grow toward MaxFraction
// of the potential win as the deadline nears.
type CashOutPolicy struct {
	BaseFraction     float64 `mapstructure:"base_fraction"`
	MaxFraction      float64 `mapstructure:"max_fraction"`
	UnfavorableDecay float64 `mapstructure:"unfavorable_decay"`
}

// BaseOddsPolicy bounds the base odds a caller may request for a leg
type BaseOddsPolicy struct {
	Max float64 `mapstructure:"max"`
}

// LoadOddsPolicy reads the odds policy from an optional file and environment variables.
// An empty path yields the defaults, still subject to SKYWAGER_ODDS_* overrides.
func LoadOddsPolicy(path string) (*OddsPolicy, error) {
	v := viper.New()

	setOddsDefaults(v)

	v.SetEnvPrefix("SKYWAGER_ODDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read odds policy file: %w", err)
		}
	}

	var policy OddsPolicy
	if err := v.Unmarshal(&policy); err != nil {
		return nil, fmt.Errorf("failed to unmarshal odds policy: %w", err)
	}

	policy.normalize()
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &policy, nil
}

// DefaultOddsPolicy returns the built-in policy
func DefaultOddsPolicy() *OddsPolicy {
	v := viper.New()
	setOddsDefaults(v)

	var policy OddsPolicy
	// Defaults are static and always decode
	_ = v.Unmarshal(&policy)
	policy.normalize()
	return &policy
}

func setOddsDefaults(v *viper.Viper) {
	v.SetDefault("time_decay.max_bonus", 0.20)
	v.SetDefault("time_decay.full_bonus_days", 7)
	v.SetDefault("time_decay.exponent", 1.0)

	v.SetDefault("volatility.weight", 0.5)
	v.SetDefault("volatility.neutral_accuracy", 0.5)
	v.SetDefault("volatility.min_multiplier", 0.9)
	v.SetDefault("volatility.max_multiplier", 1.5)
	v.SetDefault("volatility.lookback_days", 90)

	v.SetDefault("time_slots.multipliers", map[string]float64{
		"morning":   1.00,
		"noon":      1.05,
		"afternoon": 1.05,
		"evening":   1.10,
		"night":     1.15,
	})
	v.SetDefault("time_slots.categories", []string{"temperature", "wind", "humidity", "rain"})
	v.SetDefault("time_slots.combo_bonus_per_slot", 0.10)

	v.SetDefault("cash_out.base_fraction", 0.50)
	v.SetDefault("cash_out.max_fraction", 0.95)
	v.SetDefault("cash_out.unfavorable_decay", 0.5)

	v.SetDefault("base_odds.max", 20.0)
}

// normalize lowercases slot names and categories so lookups are case-insensitive
func (p *OddsPolicy) normalize() {
	multipliers := make(map[string]float64, len(p.TimeSlots.Multipliers))
	for slot, m := range p.TimeSlots.Multipliers {
		multipliers[strings.ToLower(strings.TrimSpace(slot))] = m
	}
	p.TimeSlots.Multipliers = multipliers

	for i, c := range p.TimeSlots.Categories {
		p.TimeSlots.Categories[i] = strings.ToLower(strings.TrimSpace(c))
	}
}

// Validate checks that all policy values are usable
func (p *OddsPolicy) Validate() error {
	if p.TimeDecay.MaxBonus < 0 {
		return fmt.Errorf("time_decay.max_bonus must not be negative")
	}
	if p.TimeDecay.FullBonusDays < 1 {
		return fmt.Errorf("time_decay.full_bonus_days must be at least 1")
	}
	if p.TimeDecay.Exponent <= 0 {
		return fmt.Errorf("time_decay.exponent must be positive")
	}

	if p.Volatility.NeutralAccuracy <= 0 || p.Volatility.NeutralAccuracy > 1 {
		return fmt.Errorf("volatility.neutral_accuracy must be in (0, 1]")
	}
	if p.Volatility.MinMultiplier <= 0 || p.Volatility.MinMultiplier > p.Volatility.MaxMultiplier {
		return fmt.Errorf("volatility multipliers must satisfy 0 < min <= max")
	}
	if p.Volatility.LookbackDays < 1 {
		return fmt.Errorf("volatility.lookback_days must be at least 1")
	}

	for slot, m := range p.TimeSlots.Multipliers {
		if m <= 0 {
			return fmt.Errorf("time_slots.multipliers.%s must be positive", slot)
		}
	}
	if p.TimeSlots.ComboBonusPerSlot < 0 {
		return fmt.Errorf("time_slots.combo_bonus_per_slot must not be negative")
	}

	if p.CashOut.BaseFraction < 0 || p.CashOut.BaseFraction > p.CashOut.MaxFraction {
		return fmt.Errorf("cash_out.base_fraction must be between 0 and cash_out.max_fraction")
	}
	if p.CashOut.MaxFraction >= 1 {
		return fmt.Errorf("cash_out.max_fraction must be below 1")
	}
	if p.CashOut.UnfavorableDecay < 0 || p.CashOut.UnfavorableDecay > 1 {
		return fmt.Errorf("cash_out.unfavorable_decay must be between 0 and 1")
	}

	if p.BaseOdds.Max <= 1 {
		return fmt.Errorf("base_odds.max must be above 1")
	}

	return nil
}

// SupportsTimeSlots reports whether a category can be measured at multiple times per day
func (p *OddsPolicy) SupportsTimeSlots(category string) bool {
	category = strings.ToLower(strings.TrimSpace(category))
	for _, c := range p.TimeSlots.Categories {
		if c == category {
			return true
		}
	}
	return false
}
