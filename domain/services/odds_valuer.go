package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"skywager/config"
	"skywager/domain/entities"

	"github.com/shopspring/decimal"
)

// LegQuoteInput describes one prediction to be priced
type LegQuoteInput struct {
	City     string
	Kind     string
	Value    string
	BaseOdds float64
	Slots    []string
	Accuracy float64 // historical hit rate for city/kind, 0..1
}

// PricedLeg is a leg with its dynamic odds and the factors that produced them
type PricedLeg struct {
	City           string   `json:"city"`
	Kind           string   `json:"kind"`
	Value          string   `json:"value"`
	Slots          []string `json:"slots,omitempty"`
	BaseOdds       float64  `json:"base_odds"`
	TimeDecay      float64  `json:"time_decay"`
	Volatility     float64  `json:"volatility"`
	SlotMultiplier float64  `json:"slot_multiplier"`
	Odds           float64  `json:"odds"`
}

// Quote is the priced form of a prospective wager
type Quote struct {
	Legs         []PricedLeg `json:"legs"`
	CombinedOdds float64     `json:"combined_odds"`
}

// OddsValuer prices wagers and values cash-out offers for pending ones.
// It is a pure function of its inputs and never touches persistence.
type OddsValuer struct {
	policy    *config.OddsPolicy
	evaluator *PredictionEvaluator
}

// NewOddsValuer creates a valuer over the given policy
func NewOddsValuer(policy *config.OddsPolicy) *OddsValuer {
	return &OddsValuer{
		policy:    policy,
		evaluator: NewPredictionEvaluator(),
	}
}

// Policy returns the active odds policy
func (v *OddsValuer) Policy() *config.OddsPolicy {
	return v.policy
}

// TimeDecayFactor returns 1 + the early-placement bonus.
// Whole calendar days ahead are counted, so same-day wagers get no bonus.
func (v *OddsValuer) TimeDecayFactor(placedAt, targetDate time.Time) float64 {
	placedDay := placedAt.UTC().Truncate(24 * time.Hour)
	targetDay := targetDate.UTC().Truncate(24 * time.Hour)
	days := targetDay.Sub(placedDay).Hours() / 24
	if days <= 0 {
		return 1
	}

	decay := v.policy.TimeDecay
	frac := math.Min(days/float64(decay.FullBonusDays), 1)
	return 1 + decay.MaxBonus*math.Pow(frac, decay.Exponent)
}

// VolatilityFactor maps a historical accuracy score to a multiplier.
// Accuracy below the neutral score raises odds, above it lowers them, within the policy clamp.
func (v *OddsValuer) VolatilityFactor(accuracy float64) float64 {
	vol := v.policy.Volatility
	accuracy = clamp(accuracy, 0, 1)
	f := 1 + vol.Weight*(vol.NeutralAccuracy-accuracy)/vol.NeutralAccuracy
	return clamp(f, vol.MinMultiplier, vol.MaxMultiplier)
}

// TimeSlotMultiplier returns the product of the selected slot multipliers plus the combo bonus
// of ComboBonusPerSlot for every slot beyond the first. No slots yields 1.
func (v *OddsValuer) TimeSlotMultiplier(category string, slots []string) (float64, error) {
	if len(slots) == 0 {
		return 1, nil
	}

	canonical, ok := NormalizeCategory(category)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	if !v.policy.SupportsTimeSlots(canonical) && !v.policy.SupportsTimeSlots(category) {
		return 0, fmt.Errorf("%w: %s", ErrTimeSlotUnsupported, category)
	}

	seen := make(map[string]bool, len(slots))
	product := decimal.NewFromInt(1)
	for _, slot := range slots {
		key := strings.ToLower(strings.TrimSpace(slot))
		m, ok := v.policy.TimeSlots.Multipliers[key]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownTimeSlot, slot)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		product = product.Mul(decimal.NewFromFloat(m))
	}

	bonus := decimal.NewFromFloat(v.policy.TimeSlots.ComboBonusPerSlot).Mul(decimal.NewFromInt(int64(len(seen) - 1)))
	return product.Mul(decimal.NewFromInt(1).Add(bonus)).InexactFloat64(), nil
}

// PriceLeg validates a prediction and returns its dynamic odds, rounded to two decimals
func (v *OddsValuer) PriceLeg(in LegQuoteInput, placedAt, targetDate time.Time) (PricedLeg, error) {
	if _, ok := NormalizeCategory(in.Kind); !ok {
		return PricedLeg{}, fmt.Errorf("%w: %s", ErrUnknownCategory, in.Kind)
	}
	if !IsBinaryPrediction(in.Kind, in.Value) {
		if _, ok := ParseRange(in.Value); !ok {
			return PricedLeg{}, fmt.Errorf("%w: %q", ErrInvalidPrediction, in.Value)
		}
	}
	if in.BaseOdds <= 0 || in.BaseOdds > v.policy.BaseOdds.Max {
		return PricedLeg{}, fmt.Errorf("%w: %.2f not in (0, %.2f]", ErrBaseOddsOutOfRange, in.BaseOdds, v.policy.BaseOdds.Max)
	}

	slotMultiplier, err := v.TimeSlotMultiplier(in.Kind, in.Slots)
	if err != nil {
		return PricedLeg{}, err
	}

	timeDecay := v.TimeDecayFactor(placedAt, targetDate)
	volatility := v.VolatilityFactor(in.Accuracy)

	odds := decimal.NewFromFloat(in.BaseOdds).
		Mul(decimal.NewFromFloat(timeDecay)).
		Mul(decimal.NewFromFloat(volatility)).
		Mul(decimal.NewFromFloat(slotMultiplier)).
		Round(2)

	return PricedLeg{
		City:           in.City,
		Kind:           in.Kind,
		Value:          in.Value,
		Slots:          in.Slots,
		BaseOdds:       in.BaseOdds,
		TimeDecay:      timeDecay,
		Volatility:     volatility,
		SlotMultiplier: slotMultiplier,
		Odds:           odds.InexactFloat64(),
	}, nil
}

// Quote prices every leg and multiplies their odds into the combined odds, uncapped
func (v *OddsValuer) Quote(legs []LegQuoteInput, placedAt, targetDate time.Time) (*Quote, error) {
	if len(legs) == 0 {
		return nil, fmt.Errorf("quote needs at least one leg")
	}

	quote := &Quote{Legs: make([]PricedLeg, len(legs))}
	odds := make([]float64, len(legs))
	for i, in := range legs {
		priced, err := v.PriceLeg(in, placedAt, targetDate)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i+1, err)
		}
		quote.Legs[i] = priced
		odds[i] = priced.Odds
	}
	quote.CombinedOdds = CombinedOdds(odds...)
	return quote, nil
}

// thresholdScale is the margin past a threshold at which a forecast fully supports or contradicts it
const thresholdScale = 2 * PointTolerance

// ForecastAlignment scores how strongly a forecast supports a prediction, from -1 (contradicts)
// to 1 (supports). A missing forecast is neutral.
func (v *OddsValuer) ForecastAlignment(kind, value string, forecast *entities.WeatherSnapshot) float64 {
	if forecast == nil {
		return 0
	}

	if IsBinaryPrediction(kind, value) {
		p := clamp(forecast.PrecipitationProbability, 0, 1)
		if p == 0 && IsRaining(forecast) {
			p = 1
		}
		if strings.EqualFold(strings.TrimSpace(value), "yes") {
			return 2*p - 1
		}
		return 1 - 2*p
	}

	observed, ok := v.evaluator.ObservedValue(kind, forecast)
	if !ok {
		return -1
	}
	r, ok := ParseRange(value)
	if !ok {
		return -1
	}

	if !r.Bounded() {
		// One-sided: support grows with the margin past the threshold
		margin := math.Abs(observed - r.Threshold())
		if r.Contains(observed) {
			return clamp(0.5+0.5*margin/thresholdScale, 0.5, 1)
		}
		return -math.Min(1, margin/thresholdScale)
	}

	scale := math.Max(r.HalfWidth(), 1)
	dist := math.Abs(observed - r.Center())
	if r.Contains(observed) {
		return clamp(1-0.5*dist/scale, 0.5, 1)
	}
	excess := dist - r.HalfWidth()
	return -math.Min(1, excess/scale)
}

// CashOutOffer values a pending wager.
// At placement the offer is BaseFraction of the stake, so an immediate cash-out never returns
// more than was staked. While the forecast supports the prediction the offer grows with elapsed
// time toward MaxFraction of the potential win; when it does not, the offer shrinks toward zero.
// For multi-leg wagers the least supported leg sets the alignment.
// forecasts is keyed by lowercased city.
func (v *OddsValuer) CashOutOffer(wager *entities.Settleable, forecasts map[string]*entities.WeatherSnapshot, now time.Time) entities.Valuation {
	potentialWin := WinPayout(wager.Stake, wager.Odds)
	valuation := entities.Valuation{
		Kind:         wager.Kind,
		WagerID:      wager.ID,
		PotentialWin: potentialWin,
	}

	valuation.ElapsedFraction = elapsedFraction(wager.CreatedAt, wager.DueAt(), now)

	alignment := 1.0
	for _, leg := range wager.Legs {
		forecast := forecasts[NormalizeCity(wager.LegCity(leg))]
		alignment = math.Min(alignment, v.ForecastAlignment(leg.Kind, leg.Value, forecast))
	}
	if len(wager.Legs) == 0 {
		alignment = 0
	}
	valuation.Alignment = alignment

	co := v.policy.CashOut
	elapsed := decimal.NewFromFloat(valuation.ElapsedFraction)
	base := decimal.NewFromInt(wager.Stake).Mul(decimal.NewFromFloat(co.BaseFraction))
	ceiling := decimal.NewFromInt(potentialWin).Mul(decimal.NewFromFloat(co.MaxFraction))

	var value decimal.Decimal
	if alignment >= 0 {
		value = base.Add(ceiling.Sub(base).Mul(elapsed).Mul(decimal.NewFromFloat(alignment)))
	} else {
		shrink := decimal.NewFromFloat(1 + alignment)
		decay := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(co.UnfavorableDecay).Mul(elapsed))
		value = base.Mul(shrink).Mul(decay)
	}
	if value.IsNegative() {
		value = decimal.Zero
	}
	if value.GreaterThan(ceiling) {
		value = ceiling
	}

	valuation.Offer = value.Floor().IntPart()
	if potentialWin > 0 {
		valuation.Fraction = float64(valuation.Offer) / float64(potentialWin)
	}

	valuation.Available = wager.IsPending() && now.Before(wager.DueAt()) && valuation.Offer > 0
	return valuation
}

// ParseTimeSlots splits a stored comma-separated slot list
func ParseTimeSlots(stored *string) []string {
	if stored == nil {
		return nil
	}
	var slots []string
	for _, s := range strings.Split(*stored, ",") {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			slots = append(slots, s)
		}
	}
	return slots
}

// FormatTimeSlots joins slots for storage, nil when there are none
func FormatTimeSlots(slots []string) *string {
	if len(slots) == 0 {
		return nil
	}
	normalized := make([]string, len(slots))
	for i, s := range slots {
		normalized[i] = strings.ToLower(strings.TrimSpace(s))
	}
	joined := strings.Join(normalized, ",")
	return &joined
}

func elapsedFraction(start, end, now time.Time) float64 {
	total := end.Sub(start)
	if total <= 0 {
		return 1
	}
	return clamp(float64(now.Sub(start))/float64(total), 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
