package planners

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// softmax samples an index with probability proportional to exp(vals[i] / temperature)
func softmax(vals []float64, temperature float64, rng *rand.Rand) (int, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	largest := vals[0]
	for _, v := range vals {
		if v > largest {
			largest = v
		}
	}

	// Normalizing
	sum := float64(0)
	weights := make([]float64, len(vals))
	for i, v := range vals {
		weights[i] = math.Exp((v - largest) / temperature)
		sum += weights[i]
	}
	for i := range weights {
		weights[i] = weights[i] / sum
	}
	return sampleuv.NewWeighted(weights, rng).Take()
}

// argmax returns the index of the largest value, ties broken uniformly at random
func argmax(vals []float64, rng *rand.Rand) int {
	best := make([]int, 0, len(vals))
	bestVal := math.Inf(-1)
	for i, v := range vals {
		if v > bestVal {
			best = best[:0]
			bestVal = v
		}
		if v == bestVal {
			best = append(best, i)
		}
	}
	if len(best) == 1 {
		return best[0]
	}
	return best[rng.Intn(len(best))]
}
