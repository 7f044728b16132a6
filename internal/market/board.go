// Package market maintains the cross-symbol context that alert scoring
// reads: order book depth bias, the per-minute direction board with its
// sector and index aggregates, and the VIX state.
package market

import (
	"sync"
	"time"

	"alert-systemv1/internal/model"
)

// boardRetention is how many minutes of direction votes the board keeps.
const boardRetention = 3 * 60 // seconds

// IndexGroup is one weighted constituent of the market direction vote.
type IndexGroup struct {
	Name    string
	Symbols []string
	Weight  float64
}

// VIXThresholds bucket the VIX close into states.
type VIXThresholds struct {
	Low    float64 // below: LOW
	Normal float64 // below: NORMAL
	High   float64 // below: HIGH, at or above: EXTREME
}

// DefaultVIXThresholds returns the standard 12 / 15 / 18 buckets.
func DefaultVIXThresholds() VIXThresholds {
	return VIXThresholds{Low: 12, Normal: 15, High: 18}
}

// BoardConfig wires the board's membership and agreement gates.
type BoardConfig struct {
	SectorAgreePct float64 // fraction of reporting members, default 0.60
	IndexAgreePct  float64 // weighted bull/bear share, default 0.50
	SectorOf       map[string]string
	Groups         []IndexGroup
	VIX            VIXThresholds
}

// View is one consistent board read for a single alert evaluation.
type View struct {
	Sector     string
	SectorBias model.Bias
	IndexBias  model.Bias
	VIX        model.VIXState
	VIXValue   float64
}

// Board collects per-symbol direction votes each minute and derives the
// sector and index aggregates from whatever has been reported so far.
// Shards post after every battery update; scoring reads do a single
// map walk per call and never block on missing entries, which simply
// fall out of the tallies.
type Board struct {
	mu        sync.RWMutex
	cfg       BoardConfig
	votes     map[int64]map[string]int // minute unix -> symbol -> signed vote
	maxMinute int64

	vixValue float64 // rupees
	vixSeen  bool
	vixTS    time.Time
}

// NewBoard creates a Board. Zero agreement gates and VIX thresholds
// fall back to the defaults.
func NewBoard(cfg BoardConfig) *Board {
	if cfg.SectorAgreePct == 0 {
		cfg.SectorAgreePct = 0.60
	}
	if cfg.IndexAgreePct == 0 {
		cfg.IndexAgreePct = 0.50
	}
	if cfg.VIX == (VIXThresholds{}) {
		cfg.VIX = DefaultVIXThresholds()
	}
	if cfg.SectorOf == nil {
		cfg.SectorOf = map[string]string{}
	}
	return &Board{
		cfg:   cfg,
		votes: make(map[int64]map[string]int),
	}
}

// Post records one symbol's direction vote for a minute. Only the sign
// matters; callers pass the raw bull-minus-bear tally. Old minutes are
// pruned as newer ones arrive.
func (b *Board) Post(symbol string, minute time.Time, vote int) {
	m := minute.Unix()

	b.mu.Lock()
	defer b.mu.Unlock()

	row, ok := b.votes[m]
	if !ok {
		row = make(map[string]int)
		b.votes[m] = row
	}
	row[symbol] = vote

	if m > b.maxMinute {
		b.maxMinute = m
		for k := range b.votes {
			if k < b.maxMinute-boardRetention {
				delete(b.votes, k)
			}
		}
	}
}

// ObserveVIX tracks the VIX symbol's candle close. VIX candles are
// routed here instead of the analytics pipeline.
func (b *Board) ObserveVIX(c model.Candle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.vixValue = float64(c.Close) / 100.0
	b.vixSeen = true
	b.vixTS = c.TS
}

// VIXState buckets the last seen VIX close; UNKNOWN before any candle.
func (b *Board) VIXState() model.VIXState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.vixStateLocked()
}

func (b *Board) vixStateLocked() model.VIXState {
	if !b.vixSeen {
		return model.VIXUnknown
	}
	switch {
	case b.vixValue < b.cfg.VIX.Low:
		return model.VIXLow
	case b.vixValue < b.cfg.VIX.Normal:
		return model.VIXNormal
	case b.vixValue < b.cfg.VIX.High:
		return model.VIXHigh
	default:
		return model.VIXExtreme
	}
}

// VIXValue returns the last seen VIX close and whether one was seen.
func (b *Board) VIXValue() (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.vixValue, b.vixSeen
}

// SectorOf returns the configured sector for a symbol ("" if none).
func (b *Board) SectorOf(symbol string) string {
	return b.cfg.SectorOf[symbol]
}

// SectorBias aggregates the direction votes of a sector's reporting
// members for one minute: BULLISH or BEARISH when more than the
// agreement fraction lean the same way, NEUTRAL otherwise (including
// when nobody reported).
func (b *Board) SectorBias(sector string, minute time.Time) model.Bias {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sectorBiasLocked(sector, minute.Unix())
}

func (b *Board) sectorBiasLocked(sector string, m int64) model.Bias {
	if sector == "" {
		return model.BiasNeutral
	}
	row := b.votes[m]
	if len(row) == 0 {
		return model.BiasNeutral
	}

	var reporting, bulls, bears int
	for sym, vote := range row {
		if b.cfg.SectorOf[sym] != sector {
			continue
		}
		reporting++
		switch {
		case vote > 0:
			bulls++
		case vote < 0:
			bears++
		}
	}
	if reporting == 0 {
		return model.BiasNeutral
	}

	switch {
	case float64(bulls)/float64(reporting) > b.cfg.SectorAgreePct:
		return model.BiasBullish
	case float64(bears)/float64(reporting) > b.cfg.SectorAgreePct:
		return model.BiasBearish
	default:
		return model.BiasNeutral
	}
}

// IndexBias combines the configured index groups into one market
// direction for the minute. Each group contributes its weight times the
// bull (or bear) share of its reporting members; a group with nothing
// reported contributes zero, the weights are not renormalized. A
// weighted share above the agreement gate wins, otherwise MIXED.
func (b *Board) IndexBias(minute time.Time) model.Bias {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.indexBiasLocked(minute.Unix())
}

func (b *Board) indexBiasLocked(m int64) model.Bias {
	row := b.votes[m]
	if len(row) == 0 || len(b.cfg.Groups) == 0 {
		return model.BiasMixed
	}

	var bullShare, bearShare float64
	for _, g := range b.cfg.Groups {
		var reporting, bulls, bears int
		for _, sym := range g.Symbols {
			vote, ok := row[sym]
			if !ok {
				continue
			}
			reporting++
			switch {
			case vote > 0:
				bulls++
			case vote < 0:
				bears++
			}
		}
		if reporting == 0 {
			continue
		}
		bullShare += g.Weight * float64(bulls) / float64(reporting)
		bearShare += g.Weight * float64(bears) / float64(reporting)
	}

	switch {
	case bullShare > b.cfg.IndexAgreePct:
		return model.BiasBullish
	case bearShare > b.cfg.IndexAgreePct:
		return model.BiasBearish
	default:
		return model.BiasMixed
	}
}

// ViewFor assembles the full board context for one symbol and minute
// under a single read lock.
func (b *Board) ViewFor(symbol string, minute time.Time) View {
	b.mu.RLock()
	defer b.mu.RUnlock()

	m := minute.Unix()
	sector := b.cfg.SectorOf[symbol]
	return View{
		Sector:     sector,
		SectorBias: b.sectorBiasLocked(sector, m),
		IndexBias:  b.indexBiasLocked(m),
		VIX:        b.vixStateLocked(),
		VIXValue:   b.vixValue,
	}
}
