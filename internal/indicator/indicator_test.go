package indicator

import (
	"math"
	"testing"
	"time"

	"barkeep/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func window(closes []float64) domain.SeriesWindow {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Symbol:    "TEST",
			Interval:  domain.Interval1Day,
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    100,
		}
	}
	return domain.NewSeriesWindow(bars)
}

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)
	want := []float64{math.NaN(), math.NaN(), 2, 3, 4}
	for i := range want {
		switch {
		case math.IsNaN(want[i]):
			if !math.IsNaN(got[i]) {
				t.Errorf("SMA[%d] = %v, want NaN (warm-up)", i, got[i])
			}
		case !almostEqual(got[i], want[i]):
			t.Errorf("SMA[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEMANoWarmupNaN(t *testing.T) {
	values := []float64{1, 2, 3}
	got := EMA(values, 3)
	if got[0] != 1 {
		t.Errorf("EMA seeded at %v, want values[0] = 1", got[0])
	}
	for i, v := range got {
		if math.IsNaN(v) {
			t.Errorf("EMA[%d] is NaN; EMA has no warm-up prefix", i)
		}
	}
	// alpha = 2/(3+1) = 0.5: ema[1] = 0.5*2 + 0.5*1 = 1.5
	if !almostEqual(got[1], 1.5) {
		t.Errorf("EMA[1] = %v, want 1.5", got[1])
	}
	if !almostEqual(got[2], 2.25) {
		t.Errorf("EMA[2] = %v, want 2.25", got[2])
	}
}

func TestRSIMonotonicRiseIsHundred(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = float64(i + 1)
	}
	got := RSI(values, 14)
	for i := 14; i < len(got); i++ {
		if got[i] != 100 {
			t.Errorf("RSI[%d] = %v, want exactly 100 on a strictly rising series", i, got[i])
		}
	}
	for i := 0; i < 14; i++ {
		if !math.IsNaN(got[i]) {
			t.Errorf("RSI[%d] = %v, want NaN during warm-up", i, got[i])
		}
	}
}

func TestMACDHistogramIsLineMinusSignal(t *testing.T) {
	values := []float64{10, 11, 9, 12, 13, 11, 14, 15, 13, 16, 17, 15, 18, 19}
	line, sig, hist := MACD(values, 3, 6, 4)
	for i := range values {
		if !almostEqual(hist[i], line[i]-sig[i]) {
			t.Errorf("hist[%d] = %v, want line-signal = %v", i, hist[i], line[i]-sig[i])
		}
	}
}

func TestBollingerSymmetry(t *testing.T) {
	values := []float64{10, 12, 11, 13, 15, 14, 16, 18, 17, 19, 21, 20}
	middle, upper, lower := Bollinger(values, 5, 2.0)
	for i := 4; i < len(values); i++ {
		if !almostEqual(upper[i]-middle[i], middle[i]-lower[i]) {
			t.Errorf("bands asymmetric at %d: upper-middle=%v middle-lower=%v",
				i, upper[i]-middle[i], middle[i]-lower[i])
		}
		if upper[i] < lower[i] {
			t.Errorf("upper < lower at %d", i)
		}
	}
	for i := 0; i < 4; i++ {
		if !math.IsNaN(upper[i]) || !math.IsNaN(lower[i]) {
			t.Errorf("bands defined at %d before warm-up", i)
		}
	}
}

func TestBollingerUsesSampleStdDev(t *testing.T) {
	// Window [1,2,3]: mean 2, sample stdev sqrt(((1)+(0)+(1))/2) = 1.
	_, upper, _ := Bollinger([]float64{1, 2, 3}, 3, 2.0)
	if !almostEqual(upper[2], 4) {
		t.Errorf("upper[2] = %v, want 2 + 2*1 = 4", upper[2])
	}
}

func TestATRFirstTrueRange(t *testing.T) {
	high := []float64{12, 13, 14}
	low := []float64{10, 11, 12}
	closes := []float64{11, 12, 13}
	got := ATR(high, low, closes, 1)
	if !almostEqual(got[0], 2) {
		t.Errorf("ATR[0] = %v, want high[0]-low[0] = 2", got[0])
	}
}

func TestATRUsesPreviousClose(t *testing.T) {
	// Gap up: TR[1] = |high[1]-close[0]| = |20-11| = 9 dominates high-low = 2.
	high := []float64{12, 20}
	low := []float64{10, 18}
	closes := []float64{11, 19}
	got := ATR(high, low, closes, 1)
	if !almostEqual(got[1], 9) {
		t.Errorf("ATR[1] = %v, want 9 (gap captured via previous close)", got[1])
	}
}

func TestAddAllOmitsTooLongPeriods(t *testing.T) {
	w := window([]float64{1, 2, 3, 4, 5})
	set := AddAll(w, DefaultConfig())

	if _, ok := set["sma_20"]; ok {
		t.Error("sma_20 present for a 5-bar window; should be omitted")
	}
	if _, ok := set["macd"]; ok {
		t.Error("macd present for a 5-bar window; should be omitted")
	}
	// EMA defines from index 0, but omission goes by minimum length and
	// EMA's minimum is its period.
	if _, ok := set["ema_12"]; ok {
		t.Error("ema_12 present for a 5-bar window; should be omitted")
	}
}

func TestAddAllColumnsAlign(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + math.Sin(float64(i)/5)*10
	}
	w := window(closes)
	set := AddAll(w, DefaultConfig())

	wantCols := []string{
		"sma_20", "sma_50", "ema_12", "ema_26", "rsi",
		"macd", "macd_signal", "macd_histogram",
		"bb_middle", "bb_upper", "bb_lower", "atr",
	}
	for _, col := range wantCols {
		vals, ok := set[col]
		if !ok {
			t.Errorf("missing column %q", col)
			continue
		}
		if len(vals) != len(closes) {
			t.Errorf("column %q has length %d, want %d", col, len(vals), len(closes))
		}
	}
	if _, ok := set["sma_200"]; ok {
		t.Error("sma_200 present for a 60-bar window")
	}

	// SMA(20) over 60 bars: 41 defined, 19 NaN.
	var defined int
	for _, v := range set["sma_20"] {
		if !math.IsNaN(v) {
			defined++
		}
	}
	if defined != 41 {
		t.Errorf("sma_20 defined count = %d, want 41", defined)
	}
}
