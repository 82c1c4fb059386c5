package digits

import "time"

// DefaultHoldDuration is how long a hot-digit prediction stays on display.
const DefaultHoldDuration = 37 * time.Second

// Prediction is a hot digit that has been put on hold.
type Prediction struct {
	Digit      int       `json:"digit"`
	Percentage float64   `json:"percentage"`
	Markets    []string  `json:"markets,omitempty"`
	At         time.Time `json:"at"`
	Until      time.Time `json:"until"`
}

// PredictionHold keeps the top hot digit for a fixed period so that it is
// not replaced on every tick.
type PredictionHold struct {
	duration time.Duration
	current  *Prediction
}

// NewPredictionHold returns a hold of duration d. A non-positive d selects
// DefaultHoldDuration.
func NewPredictionHold(d time.Duration) *PredictionHold {
	if d <= 0 {
		d = DefaultHoldDuration
	}
	return &PredictionHold{duration: d}
}

// Current returns the held prediction if it has not expired at now.
func (h *PredictionHold) Current(now time.Time) (Prediction, bool) {
	if h.current == nil {
		return Prediction{}, false
	}
	if !now.Before(h.current.Until) {
		h.current = nil
		return Prediction{}, false
	}
	return *h.current, true
}

// Offer proposes the top digit of r. While a prediction is held it is
// returned unchanged with false. Otherwise the top digit, if any, becomes the
// new prediction and true is returned. Reports that are not ready leave the
// hold untouched.
func (h *PredictionHold) Offer(now time.Time, r HotDigitReport) (Prediction, bool) {
	if p, ok := h.Current(now); ok {
		return p, false
	}

	top, ok := r.Top()
	if !ok {
		return Prediction{}, false
	}

	p := Prediction{
		Digit:      top.Digit,
		Percentage: top.Percentage,
		At:         now,
		Until:      now.Add(h.duration),
	}
	for _, m := range top.Markets {
		p.Markets = append(p.Markets, m.Symbol)
	}
	h.current = &p
	return p, true
}

// Clear drops any held prediction.
func (h *PredictionHold) Clear() {
	h.current = nil
}
