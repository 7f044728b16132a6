package indicator

import (
	"math"
	"testing"

	"github.com/markcheno/go-talib"

	"alert-systemv1/internal/model"
)

// Oracle tests: the streaming indicators against go-talib's batch
// implementations over a deterministic random walk. Indicators that
// are pure window functions must agree everywhere; the recursively
// smoothed ones (EMA seeding differs at the margin) are compared on
// the tail, where any seed difference has decayed to nothing.

func oracleSeries(n int) []model.Candle {
	candles := make([]model.Candle, n)
	seed := int64(987654321)
	lcg := func() int64 {
		seed = (seed*1103515245 + 12345) & 0x7fffffff
		return seed
	}

	close_ := int64(50000) // 500 rupees
	for i := 0; i < n; i++ {
		open := close_
		close_ += lcg()%201 - 100
		if close_ < 1000 {
			close_ = 1000
		}
		hi, lo := open, close_
		if close_ > open {
			hi, lo = close_, open
		}
		candles[i] = model.Candle{
			Symbol: "ORACLE", Exchange: "NSE",
			Open:   open,
			High:   hi + lcg()%80,
			Low:    lo - lcg()%80,
			Close:  close_,
			Volume: 50 + lcg()%200,
		}
	}
	return candles
}

var oracleCandles = oracleSeries(300)

func oracleFloats() (closes, highs, lows, volumes []float64) {
	n := len(oracleCandles)
	closes = make([]float64, n)
	highs = make([]float64, n)
	lows = make([]float64, n)
	volumes = make([]float64, n)
	for i, c := range oracleCandles {
		closes[i] = float64(c.Close) / 100.0
		highs[i] = float64(c.High) / 100.0
		lows[i] = float64(c.Low) / 100.0
		volumes[i] = float64(c.Volume)
	}
	return
}

func assertTail(t *testing.T, label string, got, want []float64, from int, tol float64) {
	t.Helper()
	for i := from; i < len(want); i++ {
		if math.Abs(got[i]-want[i]) > tol {
			t.Errorf("%s[%d]: got %.8f, want %.8f", label, i, got[i], want[i])
		}
	}
}

func TestOracle_SMA(t *testing.T) {
	closes, _, _, _ := oracleFloats()
	want := talib.Sma(closes, 20)

	sma := NewSMA(20)
	got := make([]float64, len(oracleCandles))
	for i, c := range oracleCandles {
		sma.Update(c)
		got[i] = sma.Value()
	}
	assertTail(t, "SMA(20)", got, want, 19, 1e-8)
}

func TestOracle_EMA(t *testing.T) {
	closes, _, _, _ := oracleFloats()
	want := talib.Ema(closes, 21)

	ema := NewEMA(21)
	got := make([]float64, len(oracleCandles))
	for i, c := range oracleCandles {
		ema.Update(c)
		got[i] = ema.Value()
	}
	assertTail(t, "EMA(21)", got, want, 250, 1e-6)
}

func TestOracle_LSMA(t *testing.T) {
	closes, _, _, _ := oracleFloats()
	want := talib.LinearReg(closes, 25)

	lsma := NewLSMA(25)
	got := make([]float64, len(oracleCandles))
	for i, c := range oracleCandles {
		lsma.Update(c)
		got[i] = lsma.Value()
	}
	assertTail(t, "LSMA(25)", got, want, 24, 1e-6)
}

func TestOracle_RSI(t *testing.T) {
	closes, _, _, _ := oracleFloats()
	want := talib.Rsi(closes, 14)

	rsi := NewRSI(14)
	got := make([]float64, len(oracleCandles))
	for i, c := range oracleCandles {
		rsi.Update(c)
		got[i] = rsi.Value()
	}
	assertTail(t, "RSI(14)", got, want, 250, 1e-6)
}

func TestOracle_MACD(t *testing.T) {
	closes, _, _, _ := oracleFloats()
	wantLine, wantSignal, wantHist := talib.Macd(closes, 12, 26, 9)

	macd := NewMACD(12, 26, 9)
	gotLine := make([]float64, len(oracleCandles))
	gotSignal := make([]float64, len(oracleCandles))
	gotHist := make([]float64, len(oracleCandles))
	for i, c := range oracleCandles {
		macd.Update(c)
		gotLine[i] = macd.Value()
		gotSignal[i] = macd.Signal()
		gotHist[i] = macd.Hist()
	}
	assertTail(t, "MACD line", gotLine, wantLine, 250, 1e-6)
	assertTail(t, "MACD signal", gotSignal, wantSignal, 250, 1e-6)
	assertTail(t, "MACD hist", gotHist, wantHist, 250, 1e-6)
}

func TestOracle_StochF(t *testing.T) {
	closes, highs, lows, _ := oracleFloats()
	wantK, wantD := talib.StochF(highs, lows, closes, 14, 3, talib.SMA)

	st := NewStoch(14, 3)
	gotK := make([]float64, len(oracleCandles))
	gotD := make([]float64, len(oracleCandles))
	for i, c := range oracleCandles {
		st.Update(c)
		gotK[i] = st.Value()
		gotD[i] = st.D()
	}
	assertTail(t, "Stoch %K", gotK, wantK, 20, 1e-8)
	assertTail(t, "Stoch %D", gotD, wantD, 20, 1e-8)
}

func TestOracle_CCI(t *testing.T) {
	closes, highs, lows, _ := oracleFloats()
	want := talib.Cci(highs, lows, closes, 20)

	cci := NewCCI(20)
	got := make([]float64, len(oracleCandles))
	for i, c := range oracleCandles {
		cci.Update(c)
		got[i] = cci.Value()
	}
	assertTail(t, "CCI(20)", got, want, 19, 1e-6)
}

func TestOracle_MFI(t *testing.T) {
	closes, highs, lows, volumes := oracleFloats()
	want := talib.Mfi(highs, lows, closes, volumes, 14)

	mfi := NewMFI(14)
	got := make([]float64, len(oracleCandles))
	for i, c := range oracleCandles {
		mfi.Update(c)
		got[i] = mfi.Value()
	}
	assertTail(t, "MFI(14)", got, want, 14, 1e-6)
}

func TestOracle_ROC(t *testing.T) {
	closes, _, _, _ := oracleFloats()
	want := talib.Roc(closes, 12)

	roc := NewROC(12)
	got := make([]float64, len(oracleCandles))
	for i, c := range oracleCandles {
		roc.Update(c)
		got[i] = roc.Value()
	}
	assertTail(t, "ROC(12)", got, want, 12, 1e-8)
}

func TestOracle_BBands(t *testing.T) {
	closes, _, _, _ := oracleFloats()
	wantUpper, wantMid, wantLower := talib.BBands(closes, 20, 2.0, 2.0, talib.SMA)

	bb := NewBollinger(20, 2.0)
	gotUpper := make([]float64, len(oracleCandles))
	gotMid := make([]float64, len(oracleCandles))
	gotLower := make([]float64, len(oracleCandles))
	for i, c := range oracleCandles {
		bb.Update(c)
		gotUpper[i] = bb.Upper()
		gotMid[i] = bb.Value()
		gotLower[i] = bb.Lower()
	}
	assertTail(t, "BB upper", gotUpper, wantUpper, 19, 1e-6)
	assertTail(t, "BB mid", gotMid, wantMid, 19, 1e-6)
	assertTail(t, "BB lower", gotLower, wantLower, 19, 1e-6)
}

func TestOracle_ATR(t *testing.T) {
	closes, highs, lows, _ := oracleFloats()
	want := talib.Atr(highs, lows, closes, 14)

	atr := NewATR(14)
	got := make([]float64, len(oracleCandles))
	for i, c := range oracleCandles {
		atr.Update(c)
		got[i] = atr.Value()
	}
	assertTail(t, "ATR(14)", got, want, 250, 1e-6)
}

func TestOracle_ADX(t *testing.T) {
	closes, highs, lows, _ := oracleFloats()
	want := talib.Adx(highs, lows, closes, 14)

	adx := NewADX(14)
	got := make([]float64, len(oracleCandles))
	for i, c := range oracleCandles {
		adx.Update(c)
		got[i] = adx.Value()
	}
	assertTail(t, "ADX(14)", got, want, 250, 1e-6)
}

func TestOracle_OBV(t *testing.T) {
	closes, _, _, volumes := oracleFloats()
	want := talib.Obv(closes, volumes)

	// talib anchors OBV at the first candle's volume; the streaming
	// version anchors at zero. The two differ by that constant.
	offset := volumes[0]

	obv := NewOBV()
	for i, c := range oracleCandles {
		obv.Update(c)
		if i == 0 {
			continue
		}
		if math.Abs(obv.Value()+offset-want[i]) > 1e-8 {
			t.Fatalf("OBV[%d]: got %.2f (+%.0f anchor), want %.2f", i, obv.Value(), offset, want[i])
		}
	}
}
