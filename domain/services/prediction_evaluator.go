package services

import (
	"math"
	"strings"

	"skywager/domain/entities"

	log "github.com/sirupsen/logrus"
)

// Prediction categories understood by the evaluator
const (
	CategoryRain        = "rain"
	CategoryRainfall    = "rainfall"
	CategoryTemperature = "temperature"
	CategoryWind        = "wind"
	CategoryHumidity    = "humidity"
	CategoryPressure    = "pressure"
	CategoryClouds      = "clouds"
	CategoryDewPoint    = "dew_point"
)

// msToKmh converts provider wind speed (m/s) to the km/h used in predictions
const msToKmh = 3.6

var categoryAliases = map[string]string{
	"rain":           CategoryRain,
	"rainfall":       CategoryRainfall,
	"precipitation":  CategoryRainfall,
	"temperature":    CategoryTemperature,
	"temp":           CategoryTemperature,
	"wind":           CategoryWind,
	"wind_speed":     CategoryWind,
	"humidity":       CategoryHumidity,
	"pressure":       CategoryPressure,
	"clouds":         CategoryClouds,
	"cloud":          CategoryClouds,
	"cloud_coverage": CategoryClouds,
	"dew_point":      CategoryDewPoint,
	"dewpoint":       CategoryDewPoint,
}

var rainTerms = []string{"rain", "drizzle", "shower", "thunderstorm"}

// NormalizeCategory maps a user-entered category to its canonical name.
// The second return value is false for unknown categories.
func NormalizeCategory(kind string) (string, bool) {
	k := strings.ToLower(strings.TrimSpace(kind))
	k = strings.ReplaceAll(k, " ", "_")
	k = strings.ReplaceAll(k, "-", "_")
	canonical, ok := categoryAliases[k]
	return canonical, ok
}

// IsRaining reports whether the condition text contains a rain-family term
func IsRaining(snapshot *entities.WeatherSnapshot) bool {
	if snapshot == nil {
		return false
	}
	text := snapshot.ConditionText()
	for _, term := range rainTerms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// PredictionEvaluator decides whether a prediction matches an observation.
// It never fails: malformed values and unknown categories evaluate to a loss.
type PredictionEvaluator struct{}

// NewPredictionEvaluator creates a new prediction evaluator
func NewPredictionEvaluator() *PredictionEvaluator {
	return &PredictionEvaluator{}
}

// Evaluate returns true if the predicted value matches the snapshot
func (e *PredictionEvaluator) Evaluate(kind, predictedValue string, snapshot *entities.WeatherSnapshot) bool {
	if snapshot == nil {
		log.WithField("kind", kind).Warn("Evaluating prediction without weather snapshot")
		return false
	}

	category, ok := NormalizeCategory(kind)
	if !ok {
		log.WithFields(log.Fields{
			"kind":  kind,
			"value": predictedValue,
		}).Warn("Unknown prediction category, evaluating as loss")
		return false
	}

	value := strings.ToLower(strings.TrimSpace(predictedValue))

	if IsRainCategory(category) && (value == "yes" || value == "no") {
		return IsRaining(snapshot) == (value == "yes")
	}

	observed, ok := e.ObservedValue(category, snapshot)
	if !ok {
		return false
	}

	r, ok := ParseRange(value)
	if !ok {
		log.WithFields(log.Fields{
			"kind":  kind,
			"value": predictedValue,
		}).Warn("Unparseable prediction value, evaluating as loss")
		return false
	}

	return r.Contains(observed)
}

// ObservedValue extracts the numeric value a category is judged against, in display units
func (e *PredictionEvaluator) ObservedValue(kind string, snapshot *entities.WeatherSnapshot) (float64, bool) {
	if snapshot == nil {
		return 0, false
	}

	category, ok := NormalizeCategory(kind)
	if !ok {
		return 0, false
	}

	var v float64
	switch category {
	case CategoryRain, CategoryRainfall:
		v = snapshot.Precipitation
	case CategoryTemperature:
		v = math.Round(snapshot.Temperature)
	case CategoryWind:
		v = snapshot.WindSpeed * msToKmh
	case CategoryHumidity:
		v = snapshot.Humidity
	case CategoryPressure:
		v = snapshot.Pressure
	case CategoryClouds:
		v = snapshot.Clouds
	case CategoryDewPoint:
		// Simple approximation, adequate within ~1°C above 50% humidity
		v = snapshot.Temperature - (100-snapshot.Humidity)/5
	default:
		return 0, false
	}

	if !finite(v) {
		return 0, false
	}
	return v, true
}

// IsBinaryPrediction reports whether the value is a yes/no rain prediction
func IsBinaryPrediction(kind, value string) bool {
	category, ok := NormalizeCategory(kind)
	if !ok || !IsRainCategory(category) {
		return false
	}
	v := strings.ToLower(strings.TrimSpace(value))
	return v == "yes" || v == "no"
}

// IsRainCategory reports whether a canonical category is judged on precipitation
func IsRainCategory(category string) bool {
	return category == CategoryRain || category == CategoryRainfall
}
