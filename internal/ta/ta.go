// Package ta implements the indicator math for the technical snapshot. All
// functions evaluate at the end of the series and return NaN when there is
// not enough history.
package ta

import "math"

// SMA is the simple moving average of the last n closes.
func SMA(closes []float64, n int) float64 {
	if n <= 0 || len(closes) < n {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range closes[len(closes)-n:] {
		sum += v
	}
	return sum / float64(n)
}

// StdDev is the population standard deviation of the last n values.
func StdDev(vals []float64, n int) float64 {
	if n <= 0 || len(vals) < n {
		return math.NaN()
	}
	mean := SMA(vals, n)
	sum := 0.0
	for _, v := range vals[len(vals)-n:] {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

// RSI is the relative strength index over the given period, using simple
// averages of gains and losses.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return math.NaN()
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100.0
	}
	rs := gain / loss
	return 100.0 - 100.0/(1.0+rs)
}

// Bollinger returns the middle, upper and lower bands for an n-period SMA
// with k standard deviations.
func Bollinger(closes []float64, n int, k float64) (mid, upper, lower float64) {
	mid = SMA(closes, n)
	sd := StdDev(closes, n)
	return mid, mid + k*sd, mid - k*sd
}

// ATR is the average true range over the given period. The three slices must
// be the same length.
func ATR(highs, lows, closes []float64, period int) float64 {
	if period <= 0 || len(highs) != len(lows) || len(lows) != len(closes) || len(closes) < period+1 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		tr := highs[i] - lows[i]
		tr = math.Max(tr, math.Abs(highs[i]-closes[i-1]))
		tr = math.Max(tr, math.Abs(lows[i]-closes[i-1]))
		sum += tr
	}
	return sum / float64(period)
}

// PctChange is the percentage change from the close n bars back to the last
// close.
func PctChange(closes []float64, n int) float64 {
	if n <= 0 || len(closes) < n+1 {
		return math.NaN()
	}
	from := closes[len(closes)-1-n]
	if from == 0 {
		return math.NaN()
	}
	return (closes[len(closes)-1]/from - 1) * 100
}
