package project

import (
	"time"

	"github.com/joelkehle/strategy-workbench/internal/strategy"
)

// SchemaVersion is written into every saved project file.
const SchemaVersion = 1

type Profile struct {
	ID           string    `json:"id" yaml:"id" db:"id"`
	Name         string    `json:"name" yaml:"name" db:"name" validate:"required,max=200"`
	Industry     string    `json:"industry,omitempty" yaml:"industry,omitempty" db:"industry" validate:"max=200"`
	Description  string    `json:"description,omitempty" yaml:"description,omitempty" db:"description" validate:"max=5000"`
	Vision       string    `json:"vision,omitempty" yaml:"vision,omitempty" db:"vision" validate:"max=2000"`
	Mission      string    `json:"mission,omitempty" yaml:"mission,omitempty" db:"mission" validate:"max=2000"`
	CoreValues   string    `json:"core_values,omitempty" yaml:"core_values,omitempty" db:"core_values" validate:"max=2000"`
	TargetMarket string    `json:"target_market,omitempty" yaml:"target_market,omitempty" db:"target_market" validate:"max=2000"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at" db:"updated_at"`
}

// StrategyKind is the TOWS quadrant a strategy comes from.
type StrategyKind string

const (
	KindSO StrategyKind = "SO"
	KindST StrategyKind = "ST"
	KindWO StrategyKind = "WO"
	KindWT StrategyKind = "WT"
)

var StrategyKinds = []StrategyKind{KindSO, KindST, KindWO, KindWT}

func (k StrategyKind) Valid() bool {
	switch k {
	case KindSO, KindST, KindWO, KindWT:
		return true
	}
	return false
}

func (k StrategyKind) Label() string {
	switch k {
	case KindSO:
		return "Strengths–Opportunities"
	case KindST:
		return "Strengths–Threats"
	case KindWO:
		return "Weaknesses–Opportunities"
	case KindWT:
		return "Weaknesses–Threats"
	default:
		return string(k)
	}
}

type StrategySource string

const (
	SourceManual StrategySource = "manual"
	SourceAI     StrategySource = "ai"
)

type Strategy struct {
	ID          string         `json:"id" yaml:"id" db:"id"`
	ProfileID   string         `json:"profile_id" yaml:"profile_id" db:"profile_id"`
	Kind        StrategyKind   `json:"kind" yaml:"kind" db:"kind" validate:"required,oneof=SO ST WO WT"`
	Title       string         `json:"title" yaml:"title" db:"title" validate:"required,max=300"`
	Description string         `json:"description" yaml:"description" db:"description" validate:"max=10000"`
	Source      StrategySource `json:"source" yaml:"source" db:"source" validate:"omitempty,oneof=manual ai"`
	CreatedAt   time.Time      `json:"created_at" yaml:"created_at" db:"created_at"`
}

type Report struct {
	ID        string    `json:"id" db:"id"`
	ProfileID string    `json:"profile_id" db:"profile_id"`
	Title     string    `json:"title" db:"title"`
	Markdown  string    `json:"markdown" db:"markdown"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Phase tracks whether the SWOT inventory has been turned into matrices.
type Phase string

const (
	PhaseSwot   Phase = "swot"
	PhaseMatrix Phase = "matrix"
)

// Snapshot is everything a working session holds. It is what project files
// contain and what the relational store loads and saves as one unit.
type Snapshot struct {
	Version    int                 `json:"version" yaml:"version"`
	Profile    Profile             `json:"profile" yaml:"profile"`
	Phase      Phase               `json:"phase" yaml:"phase"`
	SwotItems  []strategy.SwotItem `json:"swot_items" yaml:"swot_items"`
	IFE        []strategy.Factor   `json:"ife_factors" yaml:"ife_factors"`
	EFE        []strategy.Factor   `json:"efe_factors" yaml:"efe_factors"`
	Strategies []Strategy          `json:"strategies" yaml:"strategies"`
	SavedAt    time.Time           `json:"saved_at" yaml:"saved_at"`
}

// Factors returns the collection for one matrix.
func (s Snapshot) Factors(m strategy.MatrixType) []strategy.Factor {
	if m == strategy.MatrixEFE {
		return s.EFE
	}
	return s.IFE
}
