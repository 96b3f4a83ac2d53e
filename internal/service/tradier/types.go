package tradier

import (
	"fmt"
	"sort"
	"time"

	"MarketPulse/internal/domain/models"
)

// Wire DTOs for the provider's JSON envelopes. Parsing is explicit and typed:
// required fields and numeric ranges are checked at decode time so malformed
// payloads surface as ValidationError instead of partially-filled structs.

type quoteEnvelope struct {
	Quotes struct {
		Quote *quoteDTO `json:"quote"`
	} `json:"quotes"`
}

type quoteDTO struct {
	Symbol    string  `json:"symbol"`
	Last      float64 `json:"last"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	BidSize   int64   `json:"bidsize"`
	AskSize   int64   `json:"asksize"`
	Volume    int64   `json:"volume"`
	PrevClose float64 `json:"prevclose"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_percentage"`
	TradeDate int64   `json:"trade_date"` // ms epoch
}

func (d *quoteDTO) toDomain() (*models.Quote, error) {
	if d.Symbol == "" {
		return nil, fmt.Errorf("quote missing symbol")
	}
	if d.Last <= 0 {
		return nil, fmt.Errorf("quote %s: last price %f out of range", d.Symbol, d.Last)
	}
	if d.Bid < 0 || d.Ask < 0 {
		return nil, fmt.Errorf("quote %s: negative bid/ask", d.Symbol)
	}
	if d.Ask > 0 && d.Bid > d.Ask {
		return nil, fmt.Errorf("quote %s: bid %f above ask %f", d.Symbol, d.Bid, d.Ask)
	}
	ts := time.Unix(d.TradeDate/1000, (d.TradeDate%1000)*int64(time.Millisecond))
	return &models.Quote{
		Ticker:    d.Symbol,
		Last:      d.Last,
		Bid:       d.Bid,
		Ask:       d.Ask,
		BidSize:   d.BidSize,
		AskSize:   d.AskSize,
		Volume:    d.Volume,
		PrevClose: d.PrevClose,
		Change:    d.Change,
		ChangePct: d.ChangePct,
		Timestamp: ts,
		Session:   sessionFor(ts),
	}, nil
}

type chainEnvelope struct {
	Options struct {
		Option []chainOptionDTO `json:"option"`
	} `json:"options"`
}

type chainOptionDTO struct {
	Symbol       string  `json:"symbol"`
	OptionType   string  `json:"option_type"`
	Strike       float64 `json:"strike"`
	Expiration   string  `json:"expiration_date"`
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	Last         float64 `json:"last"`
	Volume       int64   `json:"volume"`
	OpenInterest int64   `json:"open_interest"`
	Greeks       *struct {
		Delta float64 `json:"delta"`
		Gamma float64 `json:"gamma"`
		Theta float64 `json:"theta"`
		Vega  float64 `json:"vega"`
		MidIV float64 `json:"mid_iv"`
	} `json:"greeks"`
}

func (d *chainOptionDTO) toDomain() (models.OptionContract, error) {
	var oc models.OptionContract
	if d.Symbol == "" {
		return oc, fmt.Errorf("contract missing symbol")
	}
	switch d.OptionType {
	case "call":
		oc.Type = models.OptionCall
	case "put":
		oc.Type = models.OptionPut
	default:
		return oc, fmt.Errorf("contract %s: bad option_type %q", d.Symbol, d.OptionType)
	}
	if d.Strike <= 0 {
		return oc, fmt.Errorf("contract %s: strike %f out of range", d.Symbol, d.Strike)
	}
	if _, err := time.Parse("2006-01-02", d.Expiration); err != nil {
		return oc, fmt.Errorf("contract %s: bad expiration %q", d.Symbol, d.Expiration)
	}
	if d.Bid < 0 || d.Ask < 0 {
		return oc, fmt.Errorf("contract %s: negative bid/ask", d.Symbol)
	}
	oc.Symbol = d.Symbol
	oc.Strike = d.Strike
	oc.Expiration = d.Expiration
	oc.Bid = d.Bid
	oc.Ask = d.Ask
	oc.Mid = (d.Bid + d.Ask) / 2
	oc.Last = d.Last
	oc.Volume = d.Volume
	oc.OpenInterest = d.OpenInterest
	if d.Greeks != nil {
		oc.Greeks = &models.Greeks{
			Delta: d.Greeks.Delta,
			Gamma: d.Greeks.Gamma,
			Theta: d.Greeks.Theta,
			Vega:  d.Greeks.Vega,
		}
		oc.ImpliedVol = d.Greeks.MidIV
	}
	return oc, nil
}

type historyEnvelope struct {
	History struct {
		Day []historyBarDTO `json:"day"`
	} `json:"history"`
}

type historyBarDTO struct {
	Date   string  `json:"date"` // 2006-01-02
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

func (d *historyBarDTO) toDomain() (models.HistoricalBar, error) {
	var b models.HistoricalBar
	ts, err := time.Parse("2006-01-02", d.Date)
	if err != nil {
		return b, fmt.Errorf("bar: bad date %q", d.Date)
	}
	if d.Open <= 0 || d.High <= 0 || d.Low <= 0 || d.Close <= 0 {
		return b, fmt.Errorf("bar %s: non-positive OHLC", d.Date)
	}
	if d.High < d.Low {
		return b, fmt.Errorf("bar %s: high %f below low %f", d.Date, d.High, d.Low)
	}
	b.Timestamp = ts
	b.Open = d.Open
	b.High = d.High
	b.Low = d.Low
	b.Close = d.Close
	b.Volume = d.Volume
	b.VWAP = (d.High + d.Low + d.Close) / 3
	return b, nil
}

func barsToSeries(ticker, interval string, dtos []historyBarDTO) (*models.Series, error) {
	bars := make([]models.HistoricalBar, 0, len(dtos))
	for i := range dtos {
		b, err := dtos[i].toDomain()
		if err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return &models.Series{Ticker: ticker, Interval: interval, Bars: bars}, nil
}

// sessionFor derives the market session from a trade timestamp in US/Eastern.
var eastern = mustLoadEastern()

func mustLoadEastern() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("ET", -5*3600)
	}
	return loc
}

func sessionFor(t time.Time) models.MarketSession {
	et := t.In(eastern)
	if et.Weekday() == time.Saturday || et.Weekday() == time.Sunday {
		return models.SessionClosed
	}
	mins := et.Hour()*60 + et.Minute()
	switch {
	case mins >= 570 && mins < 960: // 09:30-16:00
		return models.SessionOpen
	case mins >= 240 && mins < 570: // 04:00-09:30
		return models.SessionPre
	case mins >= 960 && mins < 1200: // 16:00-20:00
		return models.SessionPost
	default:
		return models.SessionClosed
	}
}
