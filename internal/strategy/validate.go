package strategy

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	MinWeight = 0.0
	MaxWeight = 1.0
	MinRating = 1
	MaxRating = 4

	// WeightSumTolerance is the absolute distance from 1.0 a weight sum may
	// drift before it is flagged.
	WeightSumTolerance = 0.01
)

// sumSlack absorbs binary representation error so that a sum of exactly
// 0.99 or 1.01 in decimal is not flagged.
const sumSlack = 1e-9

func ValidateWeight(candidate float64) (float64, error) {
	if math.IsNaN(candidate) || candidate < MinWeight || candidate > MaxWeight {
		return 0, ErrInvalidWeight
	}
	return candidate, nil
}

func ParseWeight(candidate string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(candidate), 64)
	if err != nil {
		return 0, ErrInvalidWeight
	}
	return ValidateWeight(v)
}

// ValidateRating accepts integral values in [1, 4]. The candidate is a
// float so that 2.5 coming from a form or JSON number is rejected instead of
// silently truncated.
func ValidateRating(candidate float64) (int, error) {
	if math.IsNaN(candidate) || candidate != math.Trunc(candidate) {
		return 0, ErrInvalidRating
	}
	if candidate < MinRating || candidate > MaxRating {
		return 0, ErrInvalidRating
	}
	return int(candidate), nil
}

func ParseRating(candidate string) (int, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(candidate), 64)
	if err != nil {
		return 0, ErrInvalidRating
	}
	return ValidateRating(v)
}

// CheckWeightSum returns a *WeightSumWarning when the weights of factors are
// not within WeightSumTolerance of 1.0. It never blocks a mutation.
func CheckWeightSum(factors []Factor) error {
	sum := WeightSum(factors)
	if math.Abs(sum-1.0) > WeightSumTolerance+sumSlack {
		return &WeightSumWarning{Sum: sum}
	}
	return nil
}

func WeightSum(factors []Factor) float64 {
	sum := 0.0
	for _, f := range factors {
		sum += f.Weight
	}
	return sum
}

func ValidateCategoryForMatrix(matrix MatrixType, category Category) error {
	if matrix != MatrixIFE && matrix != MatrixEFE {
		return ErrInvalidMatrix
	}
	if category.Matrix() != matrix {
		return newError(CodeInvalidCategory, fmt.Sprintf("category %q is not allowed in the %s matrix", category, matrix))
	}
	return nil
}

func ValidateDescription(description string) (string, error) {
	d := strings.TrimSpace(description)
	if d == "" {
		return "", ErrInvalidDescription
	}
	return d, nil
}

// ValidateFactor applies every per-field check a new factor must pass before
// it joins a matrix. The returned factor carries the normalized description.
func ValidateFactor(matrix MatrixType, f Factor) (Factor, error) {
	if err := ValidateCategoryForMatrix(matrix, f.Category); err != nil {
		return Factor{}, err
	}
	desc, err := ValidateDescription(f.Description)
	if err != nil {
		return Factor{}, err
	}
	if _, err := ValidateWeight(f.Weight); err != nil {
		return Factor{}, err
	}
	if _, err := ValidateRating(float64(f.Rating)); err != nil {
		return Factor{}, err
	}
	f.Description = desc
	return f, nil
}

// ValidateFactors validates a bulk replacement. Either every factor passes or
// the first failure is returned with its index; IDs must be unique.
func ValidateFactors(matrix MatrixType, factors []Factor) ([]Factor, error) {
	out := make([]Factor, 0, len(factors))
	seen := make(map[string]bool, len(factors))
	for i, f := range factors {
		v, err := ValidateFactor(matrix, f)
		if err != nil {
			return nil, fmt.Errorf("factor %d: %w", i, err)
		}
		if v.ID != "" {
			if seen[v.ID] {
				return nil, fmt.Errorf("factor %d: %w", i, newError(CodeDuplicateID, fmt.Sprintf("duplicate id %q", v.ID)))
			}
			seen[v.ID] = true
		}
		out = append(out, v)
	}
	return out, nil
}
