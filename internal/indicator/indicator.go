// Package indicator computes technical indicators over close/high/low
// series. Positions where an indicator is not yet defined (warm-up) carry
// NaN; every output slice has the same length as its input.
package indicator

import (
	"fmt"
	"log/slog"
	"math"

	"barkeep/internal/domain"
)

// Config selects which indicators AddAll computes and with what periods.
type Config struct {
	SMAPeriods []int

	EMAPeriods []int

	RSIPeriod int

	MACDFast   int
	MACDSlow   int
	MACDSignal int

	BollingerPeriod int
	BollingerStdDev float64

	ATRPeriod int
}

// DefaultConfig mirrors the common charting defaults.
func DefaultConfig() Config {
	return Config{
		SMAPeriods:      []int{20, 50, 200},
		EMAPeriods:      []int{12, 26},
		RSIPeriod:       14,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		BollingerPeriod: 20,
		BollingerStdDev: 2.0,
		ATRPeriod:       14,
	}
}

// Set maps indicator column names to their per-bar values. Columns are
// aligned with the series window they were computed from.
type Set map[string][]float64

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA returns the trailing simple moving average: out[i] is the mean of
// values[i-period+1..i], NaN for the first period-1 positions.
func SMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA returns the exponential moving average with alpha = 2/(period+1),
// seeded at values[0]. Defined from index 0: no NaN prefix.
func EMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI returns the relative strength index over trailing simple means of
// gains and losses. When the average loss is zero the value is exactly 100.
func RSI(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period+1 {
		return out
	}

	gains := make([]float64, len(values))
	losses := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}

	var gainSum, lossSum float64
	for i := 1; i < len(values); i++ {
		gainSum += gains[i]
		lossSum += losses[i]
		if i > period {
			gainSum -= gains[i-period]
			lossSum -= losses[i-period]
		}
		if i >= period {
			avgGain := gainSum / float64(period)
			avgLoss := lossSum / float64(period)
			if avgLoss == 0 {
				out[i] = 100
			} else {
				rs := avgGain / avgLoss
				out[i] = 100 - 100/(1+rs)
			}
		}
	}
	return out
}

// MACD returns the MACD line (fast EMA minus slow EMA), its signal line
// (EMA of the MACD line) and the histogram (line minus signal).
func MACD(values []float64, fast, slow, signal int) (line, sig, hist []float64) {
	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)

	line = make([]float64, len(values))
	for i := range values {
		line[i] = fastEMA[i] - slowEMA[i]
	}
	sig = EMA(line, signal)
	hist = make([]float64, len(values))
	for i := range values {
		hist[i] = line[i] - sig[i]
	}
	return line, sig, hist
}

// Bollinger returns the middle band (SMA), and upper/lower bands placed
// stdDev sample standard deviations (n-1 denominator) away. The bands are
// symmetric around the middle by construction.
func Bollinger(values []float64, period int, stdDev float64) (middle, upper, lower []float64) {
	middle = SMA(values, period)
	upper = nanSlice(len(values))
	lower = nanSlice(len(values))
	if period <= 1 || len(values) < period {
		return middle, upper, lower
	}

	for i := period - 1; i < len(values); i++ {
		m := middle[i]
		var ss float64
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - m
			ss += d * d
		}
		sd := math.Sqrt(ss / float64(period-1))
		upper[i] = m + stdDev*sd
		lower[i] = m - stdDev*sd
	}
	return middle, upper, lower
}

// ATR returns the average true range: the trailing simple mean of the true
// range, where TR[0] = high[0]-low[0] and TR[i] is the greatest of
// high-low, |high-prevClose|, |low-prevClose|.
func ATR(high, low, closes []float64, period int) []float64 {
	n := len(closes)
	out := nanSlice(n)
	if period <= 0 || n < period || len(high) != n || len(low) != n {
		return out
	}

	tr := make([]float64, n)
	for i := range tr {
		hl := high[i] - low[i]
		if i == 0 {
			tr[i] = hl
			continue
		}
		hc := math.Abs(high[i] - closes[i-1])
		lc := math.Abs(low[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	var sum float64
	for i, v := range tr {
		sum += v
		if i >= period {
			sum -= tr[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// AddAll computes every configured indicator over the window and returns
// the resulting column set. Indicators whose minimum series length exceeds
// the window are omitted entirely rather than returned as all-NaN columns.
// A panic inside one indicator drops that indicator only; the rest of the
// set still comes back.
func AddAll(window domain.SeriesWindow, cfg Config) Set {
	closes := window.Closes()
	n := len(closes)
	set := make(Set)

	compute := func(name string, minLen int, fn func()) {
		if n < minLen {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				slog.Warn("indicator computation failed, dropping column",
					"indicator", name, "panic", r)
				for col := range set {
					if col == name || hasPrefixCol(col, name) {
						delete(set, col)
					}
				}
			}
		}()
		fn()
	}

	for _, p := range cfg.SMAPeriods {
		name := colName("sma", p)
		compute(name, p, func() { set[name] = SMA(closes, p) })
	}
	for _, p := range cfg.EMAPeriods {
		name := colName("ema", p)
		compute(name, p, func() { set[name] = EMA(closes, p) })
	}
	if cfg.RSIPeriod > 0 {
		compute("rsi", cfg.RSIPeriod+1, func() { set["rsi"] = RSI(closes, cfg.RSIPeriod) })
	}
	if cfg.MACDSlow > 0 {
		compute("macd", cfg.MACDSlow, func() {
			line, sig, hist := MACD(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
			set["macd"] = line
			set["macd_signal"] = sig
			set["macd_histogram"] = hist
		})
	}
	if cfg.BollingerPeriod > 0 {
		compute("bb", cfg.BollingerPeriod, func() {
			middle, upper, lower := Bollinger(closes, cfg.BollingerPeriod, cfg.BollingerStdDev)
			set["bb_middle"] = middle
			set["bb_upper"] = upper
			set["bb_lower"] = lower
		})
	}
	if cfg.ATRPeriod > 0 {
		compute("atr", cfg.ATRPeriod, func() {
			set["atr"] = ATR(window.Highs(), window.Lows(), closes, cfg.ATRPeriod)
		})
	}

	return set
}

func colName(base string, period int) string {
	if period <= 0 {
		return base
	}
	return fmt.Sprintf("%s_%d", base, period)
}

// hasPrefixCol reports whether col belongs to the multi-column family name
// ("macd" owns macd_signal and macd_histogram, "bb" owns bb_*).
func hasPrefixCol(col, family string) bool {
	return len(col) > len(family)+1 && col[:len(family)+1] == family+"_"
}
