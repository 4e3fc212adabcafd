package strategy

import (
	"fmt"
	"strings"
)

type Category string

const (
	CategoryStrength    Category = "strength"
	CategoryWeakness    Category = "weakness"
	CategoryOpportunity Category = "opportunity"
	CategoryThreat      Category = "threat"
)

// Categories lists every category in SWOT order.
var Categories = []Category{CategoryStrength, CategoryWeakness, CategoryOpportunity, CategoryThreat}

func ParseCategory(v string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(v)))
	switch c {
	case CategoryStrength, CategoryWeakness, CategoryOpportunity, CategoryThreat:
		return c, nil
	}
	return "", newError(CodeInvalidCategory, fmt.Sprintf("unknown category %q", v))
}

// Matrix reports which evaluation matrix a category belongs to. Unknown
// categories belong to no matrix.
func (c Category) Matrix() MatrixType {
	switch c {
	case CategoryStrength, CategoryWeakness:
		return MatrixIFE
	case CategoryOpportunity, CategoryThreat:
		return MatrixEFE
	default:
		return ""
	}
}

// Positive is true for the favourable half of a matrix.
func (c Category) Positive() bool {
	return c == CategoryStrength || c == CategoryOpportunity
}

func (c Category) Label() string {
	switch c {
	case CategoryStrength:
		return "Strength"
	case CategoryWeakness:
		return "Weakness"
	case CategoryOpportunity:
		return "Opportunity"
	case CategoryThreat:
		return "Threat"
	default:
		return string(c)
	}
}

type MatrixType string

const (
	MatrixIFE MatrixType = "ife"
	MatrixEFE MatrixType = "efe"
)

func ParseMatrixType(v string) (MatrixType, error) {
	m := MatrixType(strings.ToLower(strings.TrimSpace(v)))
	switch m {
	case MatrixIFE, MatrixEFE:
		return m, nil
	}
	return "", newError(CodeInvalidMatrix, fmt.Sprintf("unknown matrix %q", v))
}

// Categories returns the admitted categories, positive half first.
func (m MatrixType) Categories() []Category {
	switch m {
	case MatrixIFE:
		return []Category{CategoryStrength, CategoryWeakness}
	case MatrixEFE:
		return []Category{CategoryOpportunity, CategoryThreat}
	default:
		return nil
	}
}

func (m MatrixType) Label() string {
	switch m {
	case MatrixIFE:
		return "Internal Factor Evaluation"
	case MatrixEFE:
		return "External Factor Evaluation"
	default:
		return string(m)
	}
}

// Factor is one weighted, rated line item of an IFE or EFE matrix.
type Factor struct {
	ID          string   `json:"id" yaml:"id"`
	Description string   `json:"description" yaml:"description"`
	Weight      float64  `json:"weight" yaml:"weight"`
	Rating      int      `json:"rating" yaml:"rating"`
	Category    Category `json:"category" yaml:"category"`
}

type SwotItem struct {
	ID           string   `json:"id" yaml:"id"`
	Description  string   `json:"description" yaml:"description"`
	Category     Category `json:"category" yaml:"category"`
	Significance string   `json:"significance,omitempty" yaml:"significance,omitempty"`
}

// CloneFactors returns a copy that shares no backing array with in.
func CloneFactors(in []Factor) []Factor {
	if in == nil {
		return nil
	}
	out := make([]Factor, len(in))
	copy(out, in)
	return out
}
