package reads

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// MeanQScore computes the mean quality of a phred+33 quality string in the
// probability domain: per-base error probabilities are averaged and the
// mean converted back to a phred score. Returns 0 for an empty string.
func MeanQScore(qstring []byte) float64 {
	if len(qstring) == 0 {
		return 0
	}
	errs := make([]float64, len(qstring))
	for i, q := range qstring {
		errs[i] = math.Pow(10, -float64(int(q)-33)/10)
	}
	mean := stat.Mean(errs, nil)
	if mean <= 0 {
		return 0
	}
	return -10 * math.Log10(mean)
}
