package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/strategy-workbench/internal/strategy"
)

func summaries() (strategy.MatrixSummary, strategy.MatrixSummary) {
	ife := strategy.Summarize(strategy.MatrixIFE, []strategy.Factor{
		{ID: "w1", Description: "Debt", Weight: 0.4, Rating: 2, Category: strategy.CategoryWeakness},
		{ID: "s1", Description: "Brand, trusted", Weight: 0.6, Rating: 4, Category: strategy.CategoryStrength},
	})
	efe := strategy.Summarize(strategy.MatrixEFE, []strategy.Factor{
		{ID: "o1", Description: "Exports", Weight: 0.123456, Rating: 3, Category: strategy.CategoryOpportunity},
	})
	return ife, efe
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
	assert.Equal(t, "application/vnd.apache.parquet", FormatParquet.ContentType())
}

func TestRowsKeepCollectionOrder(t *testing.T) {
	ife, efe := summaries()
	rows := Rows("p-1", ife, efe)
	require.Len(t, rows, 3)
	assert.Equal(t, "w1", rows[0].FactorID)
	assert.Equal(t, "efe", rows[2].Matrix)
	assert.InDelta(t, 2.4, rows[1].WeightedScore, 1e-9)
}

func TestWriteCSV(t *testing.T) {
	ife, efe := summaries()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, "p-1", ife, efe))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, []string{"matrix", "factor_id", "category", "description", "weight", "rating", "weighted_score"}, records[0])
	assert.Equal(t, []string{"ife", "s1", "strength", "Brand, trusted", "0.6", "4", "2.40"}, records[2])
	assert.Equal(t, "0.123456", records[3][4], "weights keep full precision")
	assert.Equal(t, []string{"ife", "", "total", "", "1", "", "3.20"}, records[4])
	assert.Equal(t, "0.37", records[5][6])
}

func TestWriteParquetRoundTrip(t *testing.T) {
	ife, efe := summaries()
	rows := Rows("p-1", ife, efe)
	var buf bytes.Buffer
	require.NoError(t, WriteParquet(&buf, rows))

	reader := parquet.NewGenericReader[FactorRow](bytes.NewReader(buf.Bytes()))
	defer reader.Close()
	got := make([]FactorRow, reader.NumRows())
	n, err := reader.Read(got)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	require.Equal(t, len(rows), n)
	assert.Equal(t, rows, got)
}

func TestWriteJSONIncludesPositionAndWarnings(t *testing.T) {
	ife, efe := summaries()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, "p-1", ife, efe))

	var got Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "p-1", got.ProfileID)
	assert.Equal(t, strategy.CellVII, got.Position.Cell)
	require.Len(t, got.Warnings, 1)
	assert.Contains(t, got.Warnings[0], "EFE: Weights sum to 0.12")
}

func TestWriteTable(t *testing.T) {
	ife, efe := summaries()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatTable, "p-1", ife, efe))
	out := buf.String()
	assert.Contains(t, out, "Internal Factor Evaluation")
	assert.Contains(t, out, "3.20")
	assert.Contains(t, out, "warning: Weights sum to 0.12, expected 1.00")
}
