package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/joelkehle/strategy-workbench/internal/project"
	"github.com/joelkehle/strategy-workbench/internal/strategy"
)

type Input struct {
	Profile    project.Profile
	SwotItems  []strategy.SwotItem
	IFE        []strategy.Factor
	EFE        []strategy.Factor
	Strategies []project.Strategy
	Title      string
	Now        time.Time
}

func InputFromSnapshot(snap project.Snapshot) Input {
	return Input{
		Profile:    snap.Profile,
		SwotItems:  snap.SwotItems,
		IFE:        snap.IFE,
		EFE:        snap.EFE,
		Strategies: snap.Strategies,
	}
}

// Document is a rendered report plus the figures it was built from.
type Document struct {
	Title    string                 `json:"title"`
	Markdown string                 `json:"markdown"`
	IFE      strategy.MatrixSummary `json:"ife"`
	EFE      strategy.MatrixSummary `json:"efe"`
	Position strategy.Position      `json:"position"`
}

func Build(in Input) Document {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "Strategic Analysis: " + sanitize(in.Profile.Name)
	}
	doc := Document{
		Title: title,
		IFE:   strategy.Summarize(strategy.MatrixIFE, in.IFE),
		EFE:   strategy.Summarize(strategy.MatrixEFE, in.EFE),
	}
	doc.Position = strategy.Classify(doc.IFE.Score, doc.EFE.Score)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", sanitize(title))
	fmt.Fprintf(&b, "- Company: %s\n", sanitize(in.Profile.Name))
	if in.Profile.Industry != "" {
		fmt.Fprintf(&b, "- Industry: %s\n", sanitize(in.Profile.Industry))
	}
	fmt.Fprintf(&b, "- Date: %s\n\n", now.Format("January 2, 2006"))

	writeProfile(&b, in.Profile)
	writeSwot(&b, in.SwotItems)
	writeMatrix(&b, doc.IFE)
	writeMatrix(&b, doc.EFE)
	writePosition(&b, doc.IFE.Score, doc.EFE.Score, doc.Position)
	writeStrategies(&b, in.Strategies)

	doc.Markdown = b.String()
	return doc
}

func writeProfile(b *strings.Builder, p project.Profile) {
	rows := [][2]string{
		{"Description", p.Description},
		{"Vision", p.Vision},
		{"Mission", p.Mission},
		{"Core Values", p.CoreValues},
		{"Target Market", p.TargetMarket},
	}
	var filled [][2]string
	for _, r := range rows {
		if strings.TrimSpace(r[1]) != "" {
			filled = append(filled, r)
		}
	}
	if len(filled) == 0 {
		return
	}
	fmt.Fprintf(b, "## Company Profile\n\n")
	for _, r := range filled {
		fmt.Fprintf(b, "**%s:** %s\n\n", r[0], sanitize(r[1]))
	}
}

func writeSwot(b *strings.Builder, items []strategy.SwotItem) {
	fmt.Fprintf(b, "## SWOT Analysis\n\n")
	if len(items) == 0 {
		fmt.Fprintf(b, "_No SWOT items recorded._\n\n")
		return
	}
	for _, c := range strategy.Categories {
		var group []strategy.SwotItem
		for _, it := range items {
			if it.Category == c {
				group = append(group, it)
			}
		}
		fmt.Fprintf(b, "### %s\n\n", pluralLabel(c))
		if len(group) == 0 {
			fmt.Fprintf(b, "_None recorded._\n\n")
			continue
		}
		for _, it := range group {
			if it.Significance != "" {
				fmt.Fprintf(b, "- %s (%s)\n", sanitize(it.Description), sanitize(it.Significance))
			} else {
				fmt.Fprintf(b, "- %s\n", sanitize(it.Description))
			}
		}
		b.WriteString("\n")
	}
}

func writeMatrix(b *strings.Builder, s strategy.MatrixSummary) {
	fmt.Fprintf(b, "## %s\n\n", s.Matrix.Label())
	if len(s.Factors) == 0 {
		fmt.Fprintf(b, "_No factors entered yet._\n\n")
	} else {
		fmt.Fprintf(b, "| Factor | Category | Weight | Rating | Weighted Score |\n")
		fmt.Fprintf(b, "|--------|----------|-------:|-------:|---------------:|\n")
		for _, c := range s.Matrix.Categories() {
			for _, f := range strategy.ByCategory(s.Factors, c) {
				fmt.Fprintf(b, "| %s | %s | %.2f | %d | %s |\n",
					sanitizeCell(f.Description), c.Label(), f.Weight, f.Rating, strategy.FormatScore(strategy.WeightedScore(f)))
			}
		}
		fmt.Fprintf(b, "| **Total** | | **%.2f** | | **%s** |\n\n", s.WeightSum, strategy.FormatScore(s.Score))
	}
	if s.Warning != nil {
		fmt.Fprintf(b, "> Note: %s. Scores are not comparable until the weights are balanced.\n\n", s.Warning.Error())
	}
}

func writePosition(b *strings.Builder, ife, efe float64, pos strategy.Position) {
	fmt.Fprintf(b, "## Internal-External Matrix\n\n")
	if !pos.Determined() {
		fmt.Fprintf(b, "IE position: not yet available. Both the IFE and EFE matrices need scored factors.\n\n")
		return
	}
	fmt.Fprintf(b, "- IFE score: %s (%s)\n", strategy.FormatScore(ife), pos.InternalBand)
	fmt.Fprintf(b, "- EFE score: %s (%s)\n", strategy.FormatScore(efe), pos.ExternalBand)
	fmt.Fprintf(b, "- Cell: **%s**\n", pos.Cell)
	fmt.Fprintf(b, "- Posture: **%s**. %s\n\n", pos.Posture, pos.Posture.Description())

	bands := []strategy.Band{strategy.BandHigh, strategy.BandMedium, strategy.BandLow}
	fmt.Fprintf(b, "| EFE \\ IFE |")
	for _, band := range bands {
		fmt.Fprintf(b, " %s (%s) |", titleCase(string(band)), strategy.BandRange(band))
	}
	fmt.Fprintf(b, "\n|---|---|---|---|\n")
	for i, row := range strategy.Grid() {
		fmt.Fprintf(b, "| %s (%s) |", titleCase(string(bands[i])), strategy.BandRange(bands[i]))
		for _, cell := range row {
			if cell == pos.Cell {
				fmt.Fprintf(b, " **[%s]** |", cell)
			} else {
				fmt.Fprintf(b, " %s |", cell)
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func writeStrategies(b *strings.Builder, strategies []project.Strategy) {
	if len(strategies) == 0 {
		return
	}
	fmt.Fprintf(b, "## Strategies\n\n")
	for _, kind := range project.StrategyKinds {
		var group []project.Strategy
		for _, s := range strategies {
			if s.Kind == kind {
				group = append(group, s)
			}
		}
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(b, "### %s (%s)\n\n", kind.Label(), kind)
		for _, s := range group {
			fmt.Fprintf(b, "- **%s**", sanitize(s.Title))
			if d := sanitize(s.Description); d != "" {
				fmt.Fprintf(b, ": %s", d)
			}
			if s.Source == project.SourceAI {
				b.WriteString(" _(AI-suggested)_")
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
}

func pluralLabel(c strategy.Category) string {
	switch c {
	case strategy.CategoryOpportunity:
		return "Opportunities"
	case strategy.CategoryWeakness:
		return "Weaknesses"
	default:
		return c.Label() + "s"
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

func sanitizeCell(s string) string {
	return strings.ReplaceAll(sanitize(s), "|", "\\|")
}
