package entities

import "time"

// AccuracyLog records how a prediction compared with the observed value
type AccuracyLog struct {
	ID             int64        `db:"id"`
	City           string       `db:"city"`
	Category       string       `db:"category"`
	PredictedValue string       `db:"predicted_value"`
	ActualValue    float64      `db:"actual_value"`
	Hit            bool         `db:"hit"`
	RelatedID      *int64       `db:"related_id"`
	RelatedType    *RelatedType `db:"related_type"`
	ObservedAt     time.Time    `db:"observed_at"`
}

// AccuracyScore is the historical hit rate for a city/category pair
type AccuracyScore struct {
	City     string
	Category string
	Samples  int
	Hits     int
}

// HitRate returns hits/samples, or fallback when there is no history
func (s AccuracyScore) HitRate(fallback float64) float64 {
	if s.Samples == 0 {
		return fallback
	}
	return float64(s.Hits) / float64(s.Samples)
}
