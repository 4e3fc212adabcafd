package strategy

import (
	"fmt"
	"math"
)

// Score is the weighted score of one matrix: the sum of weight×rating over
// every factor, both halves pooled together. An empty matrix scores 0.
func Score(factors []Factor) float64 {
	total := 0.0
	for _, f := range factors {
		total += WeightedScore(f)
	}
	return total
}

func WeightedScore(f Factor) float64 {
	return f.Weight * float64(f.Rating)
}

// RoundScore rounds to two decimals for display. Stored scores keep full
// precision.
func RoundScore(v float64) float64 {
	return math.Round(v*100) / 100
}

func FormatScore(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

type MatrixSummary struct {
	Matrix    MatrixType        `json:"matrix"`
	Factors   []Factor          `json:"factors"`
	Score     float64           `json:"score"`
	WeightSum float64           `json:"weight_sum"`
	Warning   *WeightSumWarning `json:"-"`
}

func Summarize(matrix MatrixType, factors []Factor) MatrixSummary {
	s := MatrixSummary{
		Matrix:    matrix,
		Factors:   CloneFactors(factors),
		Score:     Score(factors),
		WeightSum: WeightSum(factors),
	}
	if s.Factors == nil {
		s.Factors = []Factor{}
	}
	if w, ok := CheckWeightSum(factors).(*WeightSumWarning); ok {
		s.Warning = w
	}
	return s
}

// ByCategory returns the factors of one category in collection order.
func ByCategory(factors []Factor, c Category) []Factor {
	var out []Factor
	for _, f := range factors {
		if f.Category == c {
			out = append(out, f)
		}
	}
	return out
}
