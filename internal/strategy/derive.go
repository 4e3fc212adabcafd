package strategy

import (
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultPositiveRating = 3
	DefaultNegativeRating = 2
)

type Derivation struct {
	IFE []Factor `json:"ife_factors"`
	EFE []Factor `json:"efe_factors"`
}

// Derive seeds the IFE and EFE matrices from a SWOT inventory. Weights are
// spread evenly across each matrix so both start with a weight sum of 1.0.
// Items with an unknown category are ignored. Calling Derive again produces
// a fresh seed; it knows nothing about edits made to an earlier one.
func Derive(items []SwotItem) Derivation {
	groups := make(map[Category][]SwotItem, len(Categories))
	for _, it := range items {
		if it.Category.Matrix() == "" {
			continue
		}
		groups[it.Category] = append(groups[it.Category], it)
	}
	return Derivation{
		IFE: seedMatrix(groups[CategoryStrength], groups[CategoryWeakness]),
		EFE: seedMatrix(groups[CategoryOpportunity], groups[CategoryThreat]),
	}
}

func seedMatrix(positive, negative []SwotItem) []Factor {
	n := len(positive) + len(negative)
	out := make([]Factor, 0, n)
	if n == 0 {
		return out
	}
	weight := 1.0 / float64(n)
	for _, it := range positive {
		out = append(out, seedFactor(it, weight, DefaultPositiveRating))
	}
	for _, it := range negative {
		out = append(out, seedFactor(it, weight, DefaultNegativeRating))
	}
	return out
}

func seedFactor(it SwotItem, weight float64, rating int) Factor {
	id := strings.TrimSpace(it.ID)
	if id == "" {
		id = uuid.NewString()
	}
	return Factor{
		ID:          id,
		Description: it.Description,
		Weight:      weight,
		Rating:      rating,
		Category:    it.Category,
	}
}
