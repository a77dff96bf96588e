// Package indicators derives the chart indicators from OHLC when a dataset
// ships without them. Present values are never overwritten.
package indicators

import (
	"math"

	"ScreenerView/internal/domain/models"
	"ScreenerView/internal/services/parser"
)

// Config holds the look-back periods.
type Config struct {
	SMAPeriod    int     // SMA_22 / STD_22 / Bollinger
	BandWidth    float64 // Bollinger multiplier
	RSIPeriod    int
	Conversion   int // Ichimoku conversion line
	Base         int // Ichimoku base line
	SpanB        int // Ichimoku leading span B
	Displacement int
}

// DefaultConfig matches the columns of the published datasets.
func DefaultConfig() Config {
	return Config{
		SMAPeriod:    22,
		BandWidth:    2,
		RSIPeriod:    14,
		Conversion:   9,
		Base:         26,
		SpanB:        52,
		Displacement: 26,
	}
}

// Enricher returns a function usable as a partition enricher.
func Enricher(cfg Config) func([]models.Record) []models.Record {
	return func(series []models.Record) []models.Record { return Enrich(series, cfg) }
}

// Enrich fills absent indicators of one ticker's date-ascending series. The
// input records are not modified; each touched record gets a fresh map.
func Enrich(series []models.Record, cfg Config) []models.Record {
	n := len(series)
	if n == 0 {
		return series
	}
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, r := range series {
		closes[i], highs[i], lows[i] = r.Close, r.High, r.Low
	}

	sma := rollingMean(closes, cfg.SMAPeriod)
	std := rollingStd(closes, cfg.SMAPeriod)
	rsi := rsiSeries(closes, cfg.RSIPeriod)
	spanA, spanB := ichimoku(highs, lows, cfg)

	out := make([]models.Record, n)
	for i, r := range series {
		ind := make(map[string]models.Value, len(r.Indicators)+10)
		for k, v := range r.Indicators {
			ind[k] = v
		}
		fill := func(name string, v float64) {
			if cur, ok := ind[name]; ok && !cur.Blank() {
				return
			}
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				ind[name] = models.NumberValue(v)
			}
		}

		fill(parser.FieldSMA22, sma[i])
		fill(parser.FieldSTD22, std[i])
		fill(parser.FieldBBUpper, sma[i]+cfg.BandWidth*std[i])
		fill(parser.FieldBBLower, sma[i]-cfg.BandWidth*std[i])
		fill(parser.FieldRSI14, rsi[i])
		fill(parser.FieldSenkouA, spanA[i])
		fill(parser.FieldSenkouB, spanB[i])

		if cur, ok := ind[parser.FieldBBFlag]; !ok || cur.Blank() {
			if flag := bandFlag(r, ind); flag != "" {
				ind[parser.FieldBBFlag] = models.NewValue(flag)
			}
		}

		r.Indicators = ind
		out[i] = r
	}
	return out
}

// bandFlag is BBH when the candle body leaves the upper band and BBL when it
// leaves the lower band.
func bandFlag(r models.Record, ind map[string]models.Value) string {
	hi := math.Max(r.Open, r.Close)
	lo := math.Min(r.Open, r.Close)
	if up, ok := ind[parser.FieldBBUpper].Float(); ok && hi > up {
		return "BBH"
	}
	if down, ok := ind[parser.FieldBBLower].Float(); ok && lo < down {
		return "BBL"
	}
	return ""
}

func rollingMean(xs []float64, period int) []float64 {
	out := make([]float64, len(xs))
	sum := 0.0
	for i, x := range xs {
		sum += x
		if i >= period {
			sum -= xs[i-period]
		}
		out[i] = sum / float64(min(i+1, period))
	}
	return out
}

// rollingStd is the sample standard deviation; NaN with fewer than two values.
func rollingStd(xs []float64, period int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		start := max(0, i-period+1)
		w := xs[start : i+1]
		if len(w) < 2 {
			out[i] = math.NaN()
			continue
		}
		mean := 0.0
		for _, v := range w {
			mean += v
		}
		mean /= float64(len(w))
		variance := 0.0
		for _, v := range w {
			variance += (v - mean) * (v - mean)
		}
		out[i] = math.Sqrt(variance / float64(len(w)-1))
	}
	return out
}

// rsiSeries uses simple rolling means of gains and losses. The first delta
// counts as zero. RSI is 100 when there are gains but no losses and NaN when
// there is no movement at all.
func rsiSeries(closes []float64, period int) []float64 {
	n := len(closes)
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains[i] = d
		} else if d < 0 {
			losses[i] = -d
		}
	}
	avgGain := rollingMean(gains, period)
	avgLoss := rollingMean(losses, period)

	out := make([]float64, n)
	for i := range out {
		switch {
		case avgLoss[i] == 0 && avgGain[i] == 0:
			out[i] = math.NaN()
		case avgLoss[i] == 0:
			out[i] = 100
		default:
			rs := avgGain[i] / avgLoss[i]
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out
}

func ichimoku(highs, lows []float64, cfg Config) (spanA, spanB []float64) {
	n := len(highs)
	spanA = make([]float64, n)
	spanB = make([]float64, n)
	mid := func(i, period int) float64 {
		start := max(0, i-period+1)
		hi, lo := highs[start], lows[start]
		for j := start + 1; j <= i; j++ {
			hi = math.Max(hi, highs[j])
			lo = math.Min(lo, lows[j])
		}
		return (hi + lo) / 2
	}
	for i := 0; i < n; i++ {
		src := i - cfg.Displacement
		if src < 0 {
			spanA[i], spanB[i] = math.NaN(), math.NaN()
			continue
		}
		spanA[i] = (mid(src, cfg.Conversion) + mid(src, cfg.Base)) / 2
		spanB[i] = mid(src, cfg.SpanB)
	}
	return spanA, spanB
}
