package strategy

import "math"

type Band string

const (
	BandLow    Band = "low"
	BandMedium Band = "medium"
	BandHigh   Band = "high"
)

const (
	highThreshold   = 3.0
	mediumThreshold = 2.0
)

// BandFor places a score on one IE axis. Boundaries resolve upward: 2.0 is
// medium and 3.0 is high.
func BandFor(score float64) Band {
	switch {
	case score >= highThreshold:
		return BandHigh
	case score >= mediumThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

type CellID string

const (
	CellI    CellID = "I"
	CellII   CellID = "II"
	CellIII  CellID = "III"
	CellIV   CellID = "IV"
	CellV    CellID = "V"
	CellVI   CellID = "VI"
	CellVII  CellID = "VII"
	CellVIII CellID = "VIII"
	CellIX   CellID = "IX"
)

type Posture string

const (
	PostureGrowAndBuild    Posture = "Grow and Build"
	PostureHoldAndMaintain Posture = "Hold and Maintain"
	PostureHarvestOrExit   Posture = "Harvest or Exit"
)

func (p Posture) Description() string {
	switch p {
	case PostureGrowAndBuild:
		return "Invest to grow: intensive strategies (market penetration, market development, product development) or integrative strategies."
	case PostureHoldAndMaintain:
		return "Protect the current position: market penetration and product development."
	case PostureHarvestOrExit:
		return "Retrench: harvest remaining value, divest, or reposition the business."
	default:
		return ""
	}
}

type PositionStatus string

const (
	PositionDetermined   PositionStatus = "determined"
	PositionUndetermined PositionStatus = "undetermined"
)

// Position is the IE classification of an (IFE, EFE) score pair. Cell and
// Posture are only meaningful when Status is PositionDetermined.
type Position struct {
	Status       PositionStatus `json:"status"`
	Cell         CellID         `json:"cell,omitempty"`
	Posture      Posture        `json:"posture,omitempty"`
	InternalBand Band           `json:"internal_band,omitempty"`
	ExternalBand Band           `json:"external_band,omitempty"`
}

func (p Position) Determined() bool {
	return p.Status == PositionDetermined
}

type bandPair struct {
	internal Band
	external Band
}

var cellTable = map[bandPair]CellID{
	{BandHigh, BandHigh}:     CellI,
	{BandMedium, BandHigh}:   CellII,
	{BandLow, BandHigh}:      CellIII,
	{BandHigh, BandMedium}:   CellIV,
	{BandMedium, BandMedium}: CellV,
	{BandLow, BandMedium}:    CellVI,
	{BandHigh, BandLow}:      CellVII,
	{BandMedium, BandLow}:    CellVIII,
	{BandLow, BandLow}:       CellIX,
}

func PostureFor(cell CellID) Posture {
	switch cell {
	case CellI, CellII, CellIV:
		return PostureGrowAndBuild
	case CellV:
		return PostureHoldAndMaintain
	case CellIII, CellVI, CellVII, CellVIII, CellIX:
		return PostureHarvestOrExit
	default:
		return ""
	}
}

// Classify maps an (IFE, EFE) score pair onto the IE grid. A zero score means
// that matrix has not been evaluated yet, so the position is undetermined
// rather than forced into the low band.
func Classify(ifeScore, efeScore float64) Position {
	if ifeScore == 0 || efeScore == 0 || math.IsNaN(ifeScore) || math.IsNaN(efeScore) {
		return Position{Status: PositionUndetermined}
	}
	pair := bandPair{internal: BandFor(ifeScore), external: BandFor(efeScore)}
	cell := cellTable[pair]
	return Position{
		Status:       PositionDetermined,
		Cell:         cell,
		Posture:      PostureFor(cell),
		InternalBand: pair.internal,
		ExternalBand: pair.external,
	}
}

// Grid is the IE matrix layout: rows run from high to low external score,
// columns from high to low internal score.
func Grid() [3][3]CellID {
	return [3][3]CellID{
		{CellI, CellII, CellIII},
		{CellIV, CellV, CellVI},
		{CellVII, CellVIII, CellIX},
	}
}

// BandRange is the legend text for an axis band.
func BandRange(b Band) string {
	switch b {
	case BandHigh:
		return "3.0–4.0"
	case BandMedium:
		return "2.0–2.99"
	case BandLow:
		return "1.0–1.99"
	default:
		return ""
	}
}
