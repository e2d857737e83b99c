package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ZeroCrossingFrequency estimates the oscillation frequency of a sampled
// signal from linearly interpolated upward zero crossings. It returns 0 when
// fewer than two crossings exist.
func ZeroCrossingFrequency(times, signal []float64) float64 {
	var crossings []float64
	for i := 1; i < len(signal) && i < len(times); i++ {
		a, b := signal[i-1], signal[i]
		if a < 0 && b >= 0 {
			frac := -a / (b - a)
			crossings = append(crossings, times[i-1]+frac*(times[i]-times[i-1]))
		}
	}
	if len(crossings) < 2 {
		return 0
	}
	return float64(len(crossings)-1) / (crossings[len(crossings)-1] - crossings[0])
}

// EstimateT2 fits ln|peak| against time over the local maxima of |signal|
// and returns -1/slope. It returns +Inf for a non-decaying signal and 0 when
// there are too few peaks to fit.
func EstimateT2(times, signal []float64) float64 {
	var ts, logs []float64
	for i := 1; i+1 < len(signal) && i+1 < len(times); i++ {
		a, b, c := math.Abs(signal[i-1]), math.Abs(signal[i]), math.Abs(signal[i+1])
		if b > a && b >= c && b > 0 {
			ts = append(ts, times[i])
			logs = append(logs, math.Log(b))
		}
	}
	if len(ts) < 2 {
		return 0
	}

	_, slope := stat.LinearRegression(ts, logs, nil, false)
	if slope >= 0 {
		return math.Inf(1)
	}
	return -1 / slope
}
