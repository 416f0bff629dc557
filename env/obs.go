package env

import "math"

// Sanitize forces a raw feature vector into the declared observation
// contract: fixed length, no non-finite values, everything clipped to
// [low, high]. NaN collapses to 0, +Inf to high, -Inf to low, so an
// upstream numerical glitch can never leak out of the environment.
func Sanitize(features []float64, size int, low, high float64) []float64 {
	obs := make([]float64, size)
	for i := 0; i < size && i < len(features); i++ {
		v := features[i]
		switch {
		case math.IsNaN(v):
			v = 0
		case math.IsInf(v, 1):
			v = high
		case math.IsInf(v, -1):
			v = low
		}
		if v < low {
			v = low
		} else if v > high {
			v = high
		}
		obs[i] = v
	}
	return obs
}

// FirstLegal returns the lowest legal index, or -1 when the mask admits
// nothing. It is the stable fallback for out-of-contract actions.
func FirstLegal(mask []bool) int {
	for i, ok := range mask {
		if ok {
			return i
		}
	}
	return -1
}

func countLegal(mask []bool) int {
	n := 0
	for _, ok := range mask {
		if ok {
			n++
		}
	}
	return n
}
