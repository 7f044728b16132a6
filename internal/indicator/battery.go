package indicator

import (
	"fmt"
	"time"

	"alert-systemv1/internal/model"
)

// BatteryConfig carries the tunable parameters of a battery. Zero
// values fall back to the defaults below.
type BatteryConfig struct {
	CrossFast  int     // fast EMA period for the crossover detector
	CrossSlow  int     // slow EMA period for the crossover detector
	SpikeRatio float64 // volume spike threshold over mean(5)/mean(20)
	ADXTrend   float64 // ADX level that activates the trend vote
	ATRRatio   float64 // ATR/close ratio that activates the volatility vote

	KalmanProcessVar     float64
	KalmanMeasurementVar float64
}

// DefaultBatteryConfig returns the stock parameter set.
func DefaultBatteryConfig() BatteryConfig {
	return BatteryConfig{
		CrossFast:            9,
		CrossSlow:            21,
		SpikeRatio:           1.5,
		ADXTrend:             25,
		ATRRatio:             0.015,
		KalmanProcessVar:     1e-5,
		KalmanMeasurementVar: 1e-1,
	}
}

func (c BatteryConfig) withDefaults() BatteryConfig {
	def := DefaultBatteryConfig()
	if c.CrossFast <= 0 {
		c.CrossFast = def.CrossFast
	}
	if c.CrossSlow <= 0 {
		c.CrossSlow = def.CrossSlow
	}
	if c.SpikeRatio <= 0 {
		c.SpikeRatio = def.SpikeRatio
	}
	if c.ADXTrend <= 0 {
		c.ADXTrend = def.ADXTrend
	}
	if c.ATRRatio <= 0 {
		c.ATRRatio = def.ATRRatio
	}
	if c.KalmanProcessVar <= 0 {
		c.KalmanProcessVar = def.KalmanProcessVar
	}
	if c.KalmanMeasurementVar <= 0 {
		c.KalmanMeasurementVar = def.KalmanMeasurementVar
	}
	return c
}

// Battery is the full indicator set for one symbol. One sealed candle
// in, one model.Snapshot out. Not safe for concurrent use; each shard
// worker owns its batteries exclusively.
type Battery struct {
	symbol   string
	exchange string
	cfg      BatteryConfig

	ema9   *EMA
	ema21  *EMA
	ema50  *EMA
	ema200 *EMA
	xfast  *EMA // crossover pair, independent of the fixed EMAs
	xslow  *EMA
	smma7  *SMMA
	lsma25 *LSMA
	macd   *MACD
	rsi14  *RSI
	stoch  *Stoch
	cci20  *CCI
	mfi14  *MFI
	roc12  *ROC
	bb20   *Bollinger
	atr14  *ATR
	adx14  *ADX
	vwap   *VWAP
	obv    *OBV
	vol    *VolRatio
	kalman *Kalman
	cross  *Crossover
	pat    *Pattern

	// Recent closes in rupees, ring ordered by closeIdx. Drives the
	// volume vote direction (newest vs five candles back).
	closes     [5]float64
	closeIdx   int
	closeCount int

	lastTS time.Time
}

// NewBattery creates the battery for one symbol.
func NewBattery(symbol, exchange string, cfg BatteryConfig) *Battery {
	cfg = cfg.withDefaults()
	return &Battery{
		symbol:   symbol,
		exchange: exchange,
		cfg:      cfg,
		ema9:     NewEMA(9),
		ema21:    NewEMA(21),
		ema50:    NewEMA(50),
		ema200:   NewEMA(200),
		xfast:    NewEMA(cfg.CrossFast),
		xslow:    NewEMA(cfg.CrossSlow),
		smma7:    NewSMMA(7),
		lsma25:   NewLSMA(25),
		macd:     NewMACD(12, 26, 9),
		rsi14:    NewRSI(14),
		stoch:    NewStoch(14, 3),
		cci20:    NewCCI(20),
		mfi14:    NewMFI(14),
		roc12:    NewROC(12),
		bb20:     NewBollinger(20, 2.0),
		atr14:    NewATR(14),
		adx14:    NewADX(14),
		vwap:     NewVWAP(),
		obv:      NewOBV(),
		vol:      NewVolRatio(5, 20),
		kalman:   NewKalman(cfg.KalmanProcessVar, cfg.KalmanMeasurementVar),
		cross:    NewCrossover(),
		pat:      NewPattern(),
	}
}

// Symbol returns the symbol this battery tracks.
func (b *Battery) Symbol() string { return b.symbol }

// LastTS returns the timestamp of the last candle folded in.
func (b *Battery) LastTS() time.Time { return b.lastTS }

// Update folds one sealed candle into every indicator and returns the
// complete snapshot for that minute. Indicators whose window is not
// yet full report null values and abstain from voting.
func (b *Battery) Update(candle model.Candle) *model.Snapshot {
	price := float64(candle.Close) / 100.0

	b.ema9.Update(candle)
	b.ema21.Update(candle)
	b.ema50.Update(candle)
	b.ema200.Update(candle)
	b.xfast.Update(candle)
	b.xslow.Update(candle)
	b.smma7.Update(candle)
	b.lsma25.Update(candle)
	b.macd.Update(candle)
	b.rsi14.Update(candle)
	b.stoch.Update(candle)
	b.cci20.Update(candle)
	b.mfi14.Update(candle)
	b.roc12.Update(candle)
	b.bb20.Update(candle)
	b.atr14.Update(candle)
	b.adx14.Update(candle)
	b.vwap.Update(candle)
	b.obv.Update(candle)
	b.vol.Update(candle)
	b.kalman.Update(candle)
	b.pat.Update(candle)
	b.cross.Observe(b.xfast.Value(), b.xslow.Value(), b.xfast.Ready() && b.xslow.Ready())

	b.closes[b.closeIdx] = price
	b.closeIdx = (b.closeIdx + 1) % len(b.closes)
	if b.closeCount < len(b.closes) {
		b.closeCount++
	}
	b.lastTS = candle.TS

	snap := &model.Snapshot{
		Symbol:   candle.Symbol,
		Exchange: candle.Exchange,
		TS:       candle.TS,
		Close:    candle.Close,

		EMA9:   val(b.ema9),
		EMA21:  val(b.ema21),
		EMA50:  val(b.ema50),
		EMA200: val(b.ema200),
		SMMA7:  val(b.smma7),
		LSMA25: val(b.lsma25),
		XFast:  val(b.xfast),
		XSlow:  val(b.xslow),

		RSI14: val(b.rsi14),
		CCI20: val(b.cci20),
		MFI14: val(b.mfi14),
		ROC12: val(b.roc12),

		ATR14: val(b.atr14),
		ADX14: val(b.adx14),

		VWAP:     val(b.vwap),
		OBV:      val(b.obv),
		VolRatio: val(b.vol),

		Kalman: val(b.kalman),

		Cross:   b.cross.State(),
		Pattern: b.pat.Current(),

		Regime: model.RegimeUnknown,
	}

	if b.macd.Ready() {
		snap.MACD = model.V(b.macd.Value())
		snap.MACDSignal = model.V(b.macd.Signal())
		snap.MACDHist = model.V(b.macd.Hist())
	}
	if b.stoch.Ready() {
		snap.StochK = model.V(b.stoch.Value())
		snap.StochD = model.V(b.stoch.D())
	}
	if b.bb20.Ready() {
		snap.BBUpper = model.V(b.bb20.Upper())
		snap.BBMid = model.V(b.bb20.Value())
		snap.BBLower = model.V(b.bb20.Lower())
	}
	if b.adx14.DIReady() {
		snap.DIPlus = model.V(b.adx14.DIPlus())
		snap.DIMinus = model.V(b.adx14.DIMinus())
	}

	b.applyVotes(snap, price)
	return snap
}

// BatterySnapshot is the serialized state of one symbol's battery,
// written out by periodic checkpoints and consumed on warm restart.
type BatterySnapshot struct {
	Symbol   string                       `json:"symbol"`
	Exchange string                       `json:"exchange"`
	TS       time.Time                    `json:"ts"` // last candle folded in
	Inds     map[string]IndicatorSnapshot `json:"inds"`
	Closes   []float64                    `json:"closes,omitempty"` // oldest first
}

// Snapshot captures the full battery state.
func (b *Battery) Snapshot() BatterySnapshot {
	closes := make([]float64, b.closeCount)
	start := (b.closeIdx - b.closeCount + 2*len(b.closes)) % len(b.closes)
	for i := 0; i < b.closeCount; i++ {
		closes[i] = b.closes[(start+i)%len(b.closes)]
	}
	return BatterySnapshot{
		Symbol:   b.symbol,
		Exchange: b.exchange,
		TS:       b.lastTS,
		Closes:   closes,
		Inds: map[string]IndicatorSnapshot{
			"ema9":      b.ema9.Snapshot(),
			"ema21":     b.ema21.Snapshot(),
			"ema50":     b.ema50.Snapshot(),
			"ema200":    b.ema200.Snapshot(),
			"xfast":     b.xfast.Snapshot(),
			"xslow":     b.xslow.Snapshot(),
			"smma7":     b.smma7.Snapshot(),
			"lsma25":    b.lsma25.Snapshot(),
			"macd":      b.macd.Snapshot(),
			"rsi14":     b.rsi14.Snapshot(),
			"stoch":     b.stoch.Snapshot(),
			"cci20":     b.cci20.Snapshot(),
			"mfi14":     b.mfi14.Snapshot(),
			"roc12":     b.roc12.Snapshot(),
			"bb20":      b.bb20.Snapshot(),
			"atr14":     b.atr14.Snapshot(),
			"adx14":     b.adx14.Snapshot(),
			"vwap":      b.vwap.Snapshot(),
			"obv":       b.obv.Snapshot(),
			"vol_ratio": b.vol.Snapshot(),
			"kalman":    b.kalman.Snapshot(),
			"cross":     b.cross.Snapshot(),
			"pattern":   b.pat.Snapshot(),
		},
	}
}

// Restore loads a checkpoint into the battery. Slots absent from the
// checkpoint restart cold; a crossover EMA whose period no longer
// matches the configured pair is discarded rather than restored.
func (b *Battery) Restore(snap BatterySnapshot) error {
	b.lastTS = snap.TS
	b.closeCount = 0
	b.closeIdx = 0
	for _, c := range snap.Closes {
		b.closes[b.closeIdx] = c
		b.closeIdx = (b.closeIdx + 1) % len(b.closes)
		if b.closeCount < len(b.closes) {
			b.closeCount++
		}
	}

	slots := []struct {
		key  string
		ind  Snapshottable
		want int // expected period, 0 to skip the check
	}{
		{"ema9", b.ema9, 9},
		{"ema21", b.ema21, 21},
		{"ema50", b.ema50, 50},
		{"ema200", b.ema200, 200},
		{"xfast", b.xfast, b.cfg.CrossFast},
		{"xslow", b.xslow, b.cfg.CrossSlow},
		{"smma7", b.smma7, 7},
		{"lsma25", b.lsma25, 25},
		{"macd", b.macd, 0},
		{"rsi14", b.rsi14, 14},
		{"stoch", b.stoch, 14},
		{"cci20", b.cci20, 20},
		{"mfi14", b.mfi14, 14},
		{"roc12", b.roc12, 12},
		{"bb20", b.bb20, 20},
		{"atr14", b.atr14, 14},
		{"adx14", b.adx14, 14},
		{"vwap", b.vwap, 0},
		{"obv", b.obv, 0},
		{"vol_ratio", b.vol, 0},
		{"kalman", b.kalman, 0},
		{"cross", b.cross, 0},
		{"pattern", b.pat, 0},
	}
	for _, s := range slots {
		is, ok := snap.Inds[s.key]
		if !ok {
			continue
		}
		if s.want != 0 && is.Period != s.want {
			continue
		}
		if err := s.ind.RestoreFromSnapshot(is); err != nil {
			return fmt.Errorf("battery %s slot %s: %w", b.symbol, s.key, err)
		}
	}
	return nil
}
