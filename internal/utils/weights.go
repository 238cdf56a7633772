package utils

// SumWeights returns the sum of a weight vector.
func SumWeights(weights []float64) float64 {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	return sum
}

// SumWeightMap returns the sum of a symbol-keyed weight map.
func SumWeightMap(weights map[string]float64) float64 {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	return sum
}

// NormalizeWeights scales a weight vector in place so it sums to 1.
// A zero or negative sum leaves the vector unchanged and returns false.
func NormalizeWeights(weights []float64) bool {
	sum := SumWeights(weights)
	if sum <= 0 {
		return false
	}
	for i := range weights {
		weights[i] /= sum
	}
	return true
}
