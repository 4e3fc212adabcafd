package strategy

import "testing"

func TestBandForBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  Band
	}{
		{1.0, BandLow},
		{1.99, BandLow},
		{2.0, BandMedium},
		{2.99, BandMedium},
		{3.0, BandHigh},
		{4.0, BandHigh},
	}
	for _, tc := range cases {
		if got := BandFor(tc.score); got != tc.want {
			t.Fatalf("BandFor(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestClassifyCellTable(t *testing.T) {
	cases := []struct {
		ife, efe float64
		cell     CellID
		posture  Posture
	}{
		{3.5, 3.5, CellI, PostureGrowAndBuild},
		{2.5, 3.0, CellII, PostureGrowAndBuild},
		{1.5, 3.9, CellIII, PostureHarvestOrExit},
		{3.0, 2.5, CellIV, PostureGrowAndBuild},
		{2.0, 2.0, CellV, PostureHoldAndMaintain},
		{1.2, 2.7, CellVI, PostureHarvestOrExit},
		{3.8, 1.5, CellVII, PostureHarvestOrExit},
		{2.2, 1.0, CellVIII, PostureHarvestOrExit},
		{1.0, 1.0, CellIX, PostureHarvestOrExit},
	}
	for _, tc := range cases {
		got := Classify(tc.ife, tc.efe)
		if !got.Determined() {
			t.Fatalf("Classify(%v,%v) undetermined", tc.ife, tc.efe)
		}
		if got.Cell != tc.cell || got.Posture != tc.posture {
			t.Fatalf("Classify(%v,%v) = %s/%s, want %s/%s", tc.ife, tc.efe, got.Cell, got.Posture, tc.cell, tc.posture)
		}
	}
}

func TestClassifyScenarioA(t *testing.T) {
	ife := Score([]Factor{
		{Weight: 0.6, Rating: 4, Category: CategoryStrength},
		{Weight: 0.4, Rating: 2, Category: CategoryWeakness},
	})
	for _, efe := range []float64{3, 3.4, 4} {
		got := Classify(ife, efe)
		if got.Cell != CellI || got.Posture != PostureGrowAndBuild {
			t.Fatalf("Classify(%v,%v) = %+v", ife, efe, got)
		}
	}
}

func TestClassifyZeroIsUndetermined(t *testing.T) {
	for _, tc := range [][2]float64{{0, 3.5}, {3.5, 0}, {0, 0}} {
		got := Classify(tc[0], tc[1])
		if got.Determined() || got.Status != PositionUndetermined {
			t.Fatalf("Classify(%v,%v) should be undetermined, got %+v", tc[0], tc[1], got)
		}
		if got.Cell != "" || got.Posture != "" {
			t.Fatalf("undetermined position must not carry a cell: %+v", got)
		}
	}
}

func TestPostureGroupingMatchesGrid(t *testing.T) {
	want := map[CellID]Posture{
		CellI: PostureGrowAndBuild, CellII: PostureGrowAndBuild, CellIV: PostureGrowAndBuild,
		CellV:   PostureHoldAndMaintain,
		CellIII: PostureHarvestOrExit, CellVI: PostureHarvestOrExit, CellVII: PostureHarvestOrExit,
		CellVIII: PostureHarvestOrExit, CellIX: PostureHarvestOrExit,
	}
	seen := map[CellID]bool{}
	for _, row := range Grid() {
		for _, cell := range row {
			seen[cell] = true
			if PostureFor(cell) != want[cell] {
				t.Fatalf("cell %s posture %s, want %s", cell, PostureFor(cell), want[cell])
			}
		}
	}
	if len(seen) != 9 {
		t.Fatalf("grid should hold 9 distinct cells, got %d", len(seen))
	}
}

func TestClassifyEveryCellReachable(t *testing.T) {
	samples := []float64{1.0, 1.5, 2.0, 2.5, 3.0, 4.0}
	seen := map[CellID]bool{}
	for _, ife := range samples {
		for _, efe := range samples {
			p := Classify(ife, efe)
			if p.Posture != PostureFor(p.Cell) {
				t.Fatalf("posture mismatch for %+v", p)
			}
			seen[p.Cell] = true
		}
	}
	if len(seen) != 9 {
		t.Fatalf("expected all 9 cells reachable, got %v", seen)
	}
}
