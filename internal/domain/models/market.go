package models

import "time"

// MarketSession indicates the trading session state attached to a quote.
type MarketSession string

const (
	SessionOpen   MarketSession = "open"
	SessionClosed MarketSession = "closed"
	SessionPre    MarketSession = "pre"
	SessionPost   MarketSession = "post"
)

// Provenance records where a served value came from.
type Provenance string

const (
	ProvenanceLive          Provenance = "live"
	ProvenanceCached        Provenance = "cached"
	ProvenanceStaleFallback Provenance = "stale-fallback"
)

// Degraded reports whether p is a worse provenance than q.
// Ordering: live < cached < stale-fallback.
func (p Provenance) Degraded(q Provenance) bool {
	rank := map[Provenance]int{ProvenanceLive: 0, ProvenanceCached: 1, ProvenanceStaleFallback: 2}
	return rank[p] > rank[q]
}

// Quote is a point-in-time snapshot for a ticker. Immutable once constructed;
// a fresh fetch replaces the whole value.
type Quote struct {
	Ticker    string        `json:"ticker"`
	Last      float64       `json:"last"`
	Bid       float64       `json:"bid"`
	Ask       float64       `json:"ask"`
	BidSize   int64         `json:"bid_size"`
	AskSize   int64         `json:"ask_size"`
	Volume    int64         `json:"volume"`
	PrevClose float64       `json:"prev_close"`
	Change    float64       `json:"change"`
	ChangePct float64       `json:"change_pct"`
	Timestamp time.Time     `json:"timestamp"`
	Session   MarketSession `json:"session"`
}

// OptionType is "call" or "put".
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// Greeks holds the optional per-contract sensitivities.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

// OptionContract is a single listed contract within a chain.
type OptionContract struct {
	Symbol       string     `json:"symbol"`
	Type         OptionType `json:"type"`
	Strike       float64    `json:"strike"`
	Expiration   string     `json:"expiration"` // 2006-01-02
	Bid          float64    `json:"bid"`
	Ask          float64    `json:"ask"`
	Mid          float64    `json:"mid"`
	Last         float64    `json:"last"`
	Volume       int64      `json:"volume"`
	OpenInterest int64      `json:"open_interest"`
	Greeks       *Greeks    `json:"greeks,omitempty"`
	ImpliedVol   float64    `json:"implied_volatility,omitempty"`
}

// OptionChain is the full contract set for one underlying and expiration.
type OptionChain struct {
	Underlying      string           `json:"underlying"`
	UnderlyingPrice float64          `json:"underlying_price"`
	Expiration      string           `json:"expiration"`
	Contracts       []OptionContract `json:"contracts"`
}

// Calls returns the call contracts in chain order.
func (c *OptionChain) Calls() []OptionContract { return c.byType(OptionCall) }

// Puts returns the put contracts in chain order.
func (c *OptionChain) Puts() []OptionContract { return c.byType(OptionPut) }

func (c *OptionChain) byType(t OptionType) []OptionContract {
	out := make([]OptionContract, 0, len(c.Contracts))
	for _, oc := range c.Contracts {
		if oc.Type == t {
			out = append(out, oc)
		}
	}
	return out
}

// HistoricalBar is one OHLCV record.
type HistoricalBar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	VWAP      float64   `json:"vwap,omitempty"`
}

// Series is a chronologically ordered bar sequence for one ticker.
type Series struct {
	Ticker   string          `json:"ticker"`
	Interval string          `json:"interval"`
	Bars     []HistoricalBar `json:"bars"`
}

// Closes extracts the close prices in bar order.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Last returns the final bar and true, or false on an empty series.
func (s *Series) Last() (HistoricalBar, bool) {
	if len(s.Bars) == 0 {
		return HistoricalBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}
