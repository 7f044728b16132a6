// Package scorer turns an assembled AlertContext into a graded alert.
//
// The direction hypothesis comes from the indicator vote tally; every
// evidence group then scores toward that hypothesis. Missing evidence
// contributes zero, it never fails an evaluation.
package scorer

import (
	"fmt"
	"sort"
	"time"

	"alert-systemv1/config"
	"alert-systemv1/internal/model"
)

// Scorer evaluates alert contexts against the configured weights and
// custom rules. It keeps no state between evaluations.
type Scorer struct {
	cfg   config.ScoringConfig
	rules []config.RuleDef
}

// New creates a Scorer from the scoring block and the custom rules.
func New(cfg config.ScoringConfig, rules []config.RuleDef) *Scorer {
	return &Scorer{cfg: cfg, rules: rules}
}

// Score evaluates one context. The second return is false when the
// confidence lands below the B threshold: a SKIP produces no alert
// record at all.
func (s *Scorer) Score(ctx model.AlertContext) (*model.Alert, bool) {
	snap := ctx.Snapshot
	dir := 0
	if snap != nil {
		switch {
		case snap.NetVote() > 0:
			dir = 1
		case snap.NetVote() < 0:
			dir = -1
		}
	}

	w := s.cfg.Weights
	var entries []model.RationaleEntry
	add := func(group string, points float64, side int, detail string) {
		if points <= 0 {
			return
		}
		entries = append(entries, model.RationaleEntry{
			Group: group, Points: points, Side: side, Detail: detail,
		})
	}

	// OI category + depth bias, toward the hypothesis
	oiAligned := (dir > 0 && ctx.OICategory.Bullish()) || (dir < 0 && ctx.OICategory.Bearish())
	depthAligned := (dir > 0 && ctx.DepthBias == model.DepthBuyerDominant) ||
		(dir < 0 && ctx.DepthBias == model.DepthSellerDominant)
	switch {
	case oiAligned && depthAligned:
		add("oi_depth", w.OIDepthBoth, dir,
			fmt.Sprintf("%s with %s book", ctx.OICategory, ctx.DepthBias))
	case oiAligned:
		add("oi_depth", w.OIDepthSingle, dir, string(ctx.OICategory))
	case depthAligned:
		add("oi_depth", w.OIDepthSingle, dir, fmt.Sprintf("%s book", ctx.DepthBias))
	}

	// Indicator vote majority
	if snap != nil && dir != 0 {
		majority := snap.BullVotes
		if dir < 0 {
			majority = snap.BearVotes
		}
		active := snap.BullVotes + snap.BearVotes
		word := "bullish"
		if dir < 0 {
			word = "bearish"
		}
		detail := fmt.Sprintf("%d of %d directional votes %s", majority, active, word)
		if float64(majority)/float64(active) >= s.cfg.StrongVotePct {
			add("votes", w.VotesStrong, dir, detail)
		} else {
			add("votes", w.VotesSimple, dir, detail)
		}
	}

	// Regime agreement
	if (dir > 0 && ctx.Regime == model.RegimeTrendingUp) ||
		(dir < 0 && ctx.Regime == model.RegimeTrendingDown) {
		add("regime", w.Regime, dir, fmt.Sprintf("%s agrees", ctx.Regime))
	}

	// VIX state
	switch ctx.VIX {
	case model.VIXLow, model.VIXNormal:
		add("vix", w.VIXCalm, 0, fmt.Sprintf("VIX %s", ctx.VIX))
	case model.VIXHigh:
		add("vix", w.VIXHigh, 0, "VIX HIGH")
	}

	// Sector bias; a symbol with no sector mapping contributes nothing
	if ctx.Sector != "" {
		sectorAligned := (dir > 0 && ctx.SectorBias == model.BiasBullish) ||
			(dir < 0 && ctx.SectorBias == model.BiasBearish)
		switch {
		case sectorAligned:
			add("sector", w.Sector, dir, fmt.Sprintf("%s %s", ctx.Sector, ctx.SectorBias))
		case ctx.SectorBias == model.BiasNeutral:
			add("sector", w.SectorNeutral, 0, fmt.Sprintf("%s NEUTRAL", ctx.Sector))
		}
	}

	// Index direction
	indexAligned := (dir > 0 && ctx.IndexBias == model.BiasBullish) ||
		(dir < 0 && ctx.IndexBias == model.BiasBearish)
	switch {
	case indexAligned:
		add("index", w.Index, dir, fmt.Sprintf("index %s", ctx.IndexBias))
	case ctx.IndexBias == model.BiasMixed:
		add("index", w.IndexMixed, 0, "index MIXED")
	}

	confidence := 0.0
	for _, e := range entries {
		confidence += e.Points
	}
	if confidence > 100 {
		confidence = 100
	}

	if confidence < s.cfg.GradeB {
		return nil, false
	}

	grade := model.GradeB
	switch {
	case confidence >= s.cfg.GradeAPlus:
		grade = model.GradeAPlus
	case confidence >= s.cfg.GradeA:
		grade = model.GradeA
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})

	// Custom rules append behind the weighted evidence.
	for _, r := range s.rules {
		if evalRule(r.When, ctx) {
			entries = append(entries, model.RationaleEntry{
				Group: "rule", Detail: r.Name,
			})
		}
	}

	alert := &model.Alert{
		Symbol:     ctx.Symbol,
		Exchange:   ctx.Exchange,
		TS:         ctx.TS,
		Confidence: confidence,
		Grade:      grade,
		Action:     s.action(dir, ctx),
		Rationale:  entries,
		OICategory: ctx.OICategory,
		Regime:     ctx.Regime,
		Close:      ctx.Close,
		CreatedAt:  time.Now().UTC(),
	}
	if alert.Dispatchable() {
		alert.Status = model.StatusPending
	} else {
		alert.Status = model.StatusHeld
	}
	return alert, true
}

// action maps the hypothesis and regime to an option-side action. Any
// conflict, extreme VIX, a vote tie, or a volatile or unknown regime
// all land on HOLD.
func (s *Scorer) action(dir int, ctx model.AlertContext) model.Action {
	if dir == 0 || ctx.VIX == model.VIXExtreme {
		return model.ActionHold
	}
	switch ctx.Regime {
	case model.RegimeTrendingUp:
		if dir > 0 {
			return model.ActionBuyCE
		}
	case model.RegimeTrendingDown:
		if dir < 0 {
			return model.ActionBuyPE
		}
	case model.RegimeRanging:
		if dir > 0 {
			return model.ActionSellPE
		}
		return model.ActionSellCE
	}
	return model.ActionHold
}
