// Package export writes scored factor tables as CSV, Parquet, JSON or
// terminal tables.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/parquet-go/parquet-go"

	"github.com/joelkehle/strategy-workbench/internal/strategy"
)

type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatJSON    Format = "json"
	FormatTable   Format = "table"
)

func ParseFormat(v string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(v))); f {
	case FormatCSV, FormatParquet, FormatJSON, FormatTable:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want csv, parquet, json or table)", v)
	}
}

// ContentType is the HTTP media type for a format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatParquet:
		return "application/vnd.apache.parquet"
	case FormatJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// FactorRow is one factor flattened for tabular export.
type FactorRow struct {
	ProfileID     string  `parquet:"profile_id,snappy" json:"profile_id"`
	Matrix        string  `parquet:"matrix,snappy" json:"matrix"`
	FactorID      string  `parquet:"factor_id,snappy" json:"factor_id"`
	Category      string  `parquet:"category,snappy" json:"category"`
	Description   string  `parquet:"description,snappy" json:"description"`
	Weight        float64 `parquet:"weight,snappy" json:"weight"`
	Rating        int32   `parquet:"rating,snappy" json:"rating"`
	WeightedScore float64 `parquet:"weighted_score,snappy" json:"weighted_score"`
}

// Rows flattens both matrices, IFE first, in collection order.
func Rows(profileID string, matrices ...strategy.MatrixSummary) []FactorRow {
	var out []FactorRow
	for _, m := range matrices {
		for _, f := range m.Factors {
			out = append(out, FactorRow{
				ProfileID:     profileID,
				Matrix:        string(m.Matrix),
				FactorID:      f.ID,
				Category:      string(f.Category),
				Description:   f.Description,
				Weight:        f.Weight,
				Rating:        int32(f.Rating),
				WeightedScore: strategy.WeightedScore(f),
			})
		}
	}
	return out
}

// Report is the JSON export shape.
type Report struct {
	ProfileID string                 `json:"profile_id"`
	IFE       strategy.MatrixSummary `json:"ife"`
	EFE       strategy.MatrixSummary `json:"efe"`
	Position  strategy.Position      `json:"position"`
	Warnings  []string               `json:"warnings"`
}

func Write(w io.Writer, format Format, profileID string, ife, efe strategy.MatrixSummary) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, Rows(profileID, ife, efe), ife, efe)
	case FormatParquet:
		return WriteParquet(w, Rows(profileID, ife, efe))
	case FormatJSON:
		r := Report{
			ProfileID: profileID,
			IFE:       ife,
			EFE:       efe,
			Position:  strategy.Classify(ife.Score, efe.Score),
			Warnings:  []string{},
		}
		for _, m := range []strategy.MatrixSummary{ife, efe} {
			if m.Warning != nil {
				r.Warnings = append(r.Warnings, strings.ToUpper(string(m.Matrix))+": "+m.Warning.Error())
			}
		}
		return WriteJSON(w, r)
	case FormatTable:
		for _, m := range []strategy.MatrixSummary{ife, efe} {
			if _, err := fmt.Fprintf(w, "%s\n", m.Matrix.Label()); err != nil {
				return err
			}
			if err := WriteTable(w, m); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteCSV writes one line per factor followed by one total line per matrix.
// Weights keep full precision; scores are rounded to two decimals.
func WriteCSV(w io.Writer, rows []FactorRow, totals ...strategy.MatrixSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"matrix", "factor_id", "category", "description", "weight", "rating", "weighted_score"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Matrix,
			r.FactorID,
			r.Category,
			r.Description,
			strconv.FormatFloat(r.Weight, 'f', -1, 64),
			strconv.Itoa(int(r.Rating)),
			strategy.FormatScore(r.WeightedScore),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	for _, t := range totals {
		rec := []string{string(t.Matrix), "", "total", "", strconv.FormatFloat(t.WeightSum, 'f', -1, 64), "", strategy.FormatScore(t.Score)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteParquet(w io.Writer, rows []FactorRow) error {
	writer := parquet.NewGenericWriter[FactorRow](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteTable renders one matrix as a terminal table with a total footer.
func WriteTable(w io.Writer, m strategy.MatrixSummary) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Factor", "Category", "Weight", "Rating", "Weighted"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	data := make([][]string, 0, len(m.Factors)+1)
	for _, c := range m.Matrix.Categories() {
		for _, f := range strategy.ByCategory(m.Factors, c) {
			data = append(data, []string{
				f.Description,
				c.Label(),
				fmt.Sprintf("%.2f", f.Weight),
				strconv.Itoa(f.Rating),
				strategy.FormatScore(strategy.WeightedScore(f)),
			})
		}
	}
	data = append(data, []string{"Total", "", fmt.Sprintf("%.2f", m.WeightSum), "", strategy.FormatScore(m.Score)})
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if m.Warning != nil {
		if _, err := fmt.Fprintf(w, "warning: %s\n", m.Warning.Error()); err != nil {
			return err
		}
	}
	return nil
}
