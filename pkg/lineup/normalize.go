package lineup

import (
	"math"
	"sort"
)

// Normalize converts values to z-scores using the sample standard deviation.
// A zero or undefined deviation is replaced by 1, so a constant input maps to
// all zeros and a single value maps to 0. NaN entries count as 0.
func Normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	filled := FillMissing(values, 0)
	mu := mean(filled)
	sd := sampleStdDev(filled, mu)
	if sd == 0 || math.IsNaN(sd) {
		sd = 1
	}

	for i, v := range filled {
		out[i] = (v - mu) / sd
	}
	return out
}

// FillMissing returns a copy of values with every NaN replaced by fill.
func FillMissing(values []float64, fill float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			v = fill
		}
		out[i] = v
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStdDev uses the n-1 denominator; fewer than two values yield NaN.
func sampleStdDev(values []float64, mu float64) float64 {
	n := len(values)
	if n < 2 {
		return math.NaN()
	}
	var ss float64
	for _, v := range values {
		d := v - mu
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// median ignores NaN entries and reports false when nothing is left.
func median(values []float64) (float64, bool) {
	known := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			known = append(known, v)
		}
	}
	if len(known) == 0 {
		return 0, false
	}
	sort.Float64s(known)
	mid := len(known) / 2
	if len(known)%2 == 1 {
		return known[mid], true
	}
	return (known[mid-1] + known[mid]) / 2, true
}

// blend returns a*z(x) + b*z(y) element-wise.
func blend(a float64, x []float64, b float64, y []float64) []float64 {
	zx := Normalize(x)
	zy := Normalize(y)
	out := make([]float64, len(zx))
	for i := range zx {
		out[i] = a*zx[i] + b*zy[i]
	}
	return out
}

// cloutSignal is 0.5*z(artist popularity) + 0.5*z(log1p(followers)).
func cloutSignal(artistPop, followers []float64) []float64 {
	logged := make([]float64, len(followers))
	for i, f := range FillMissing(followers, 0) {
		if f < 0 {
			f = 0
		}
		logged[i] = math.Log1p(f)
	}
	return blend(0.5, artistPop, 0.5, logged)
}

// recencySignal is -z(days since release) with unknown ages median-imputed.
// When no age is known at all the signal is zero for everyone.
func recencySignal(days []float64) []float64 {
	med, ok := median(days)
	if !ok {
		return make([]float64, len(days))
	}
	z := Normalize(FillMissing(days, med))
	for i := range z {
		z[i] = -z[i]
	}
	return z
}
