package models

import "time"

// Decision is the binary output of the sentiment engine.
type Decision string

const (
	DecisionProceed Decision = "PROCEED"
	DecisionSkip    Decision = "SKIP"
)

// Component labels derived from threshold comparison.
const (
	LabelBullish    = "bullish"
	LabelNeutral    = "neutral"
	LabelBearish    = "bearish"
	LabelOverbought = "overbought"
	LabelOversold   = "oversold"
)

// Component names.
const (
	ComponentVIX       = "VIX"
	ComponentFutures   = "Futures"
	ComponentRSI       = "RSI"
	ComponentMA        = "MA"
	ComponentBollinger = "Bollinger"
)

// SentimentComponent is one scored input signal. Score is bounded to MaxScore
// so the aggregate stays within [0, 100].
type SentimentComponent struct {
	Name     string  `json:"name"`
	Raw      float64 `json:"raw"`
	Score    float64 `json:"score"`
	MaxScore float64 `json:"max_score"`
	Label    string  `json:"label"`
}

// Bullish reports whether the component reads as individually bullish.
// Used by the all-technicals gate.
func (c SentimentComponent) Bullish() bool { return c.Label == LabelBullish }

// SentimentResult is a computed decision with its auditable breakdown.
// Never mutated after creation; a new computation yields a new result.
type SentimentResult struct {
	Score      float64              `json:"score"`
	Decision   Decision             `json:"decision"`
	Components []SentimentComponent `json:"components"`
	ComputedAt time.Time            `json:"computed_at"`
	Provenance Provenance           `json:"provenance"`
}

// Component returns the named component and true, or false if absent.
func (r *SentimentResult) Component(name string) (SentimentComponent, bool) {
	for _, c := range r.Components {
		if c.Name == name {
			return c, true
		}
	}
	return SentimentComponent{}, false
}
