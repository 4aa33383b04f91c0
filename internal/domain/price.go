package domain

import "time"

// PriceSample is one observation from the price feed. Only the latest and the
// previous sample are retained for delta display; samples are not persisted.
type PriceSample struct {
	Value      float64   `json:"value"`
	ObservedAt time.Time `json:"observed_at"`
}

// Delta returns the change from a previous sample, or 0 when prev is zero.
func (s PriceSample) Delta(prev PriceSample) float64 {
	if prev.Value == 0 {
		return 0
	}
	return s.Value - prev.Value
}
