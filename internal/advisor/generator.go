package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/joelkehle/strategy-workbench/internal/project"
	"github.com/joelkehle/strategy-workbench/internal/strategy"
)

// ErrPositionUndetermined is returned when either matrix has no score yet,
// so there is no posture to plan around.
var ErrPositionUndetermined = errors.New("IE position is undetermined; score both matrices first")

const tracerName = "github.com/joelkehle/strategy-workbench/internal/advisor"

type Input struct {
	Profile   project.Profile
	SwotItems []strategy.SwotItem
	IFE       []strategy.Factor
	EFE       []strategy.Factor
}

type Result struct {
	Headline   string             `json:"headline"`
	Position   strategy.Position  `json:"position"`
	Strategies []project.Strategy `json:"strategies"`
	Model      string             `json:"model"`
	Metrics    AttemptMetrics     `json:"metrics"`
}

type generatedStrategy struct {
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type generatedOutput struct {
	Headline   string              `json:"headline"`
	Strategies []generatedStrategy `json:"strategies"`
}

func (o *generatedOutput) validate() error {
	var problems []string
	if strings.TrimSpace(o.Headline) == "" {
		problems = append(problems, "headline is required")
	}
	if len(o.Strategies) == 0 {
		problems = append(problems, "at least one strategy is required")
	}
	for i, s := range o.Strategies {
		if !project.StrategyKind(strings.ToUpper(strings.TrimSpace(s.Kind))).Valid() {
			problems = append(problems, fmt.Sprintf("strategies[%d].kind must be one of SO, ST, WO, WT", i))
		}
		if strings.TrimSpace(s.Title) == "" {
			problems = append(problems, fmt.Sprintf("strategies[%d].title is required", i))
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type Generator struct {
	exec *Executor
}

func NewGenerator(caller LLMCaller) *Generator {
	return &Generator{exec: NewExecutor(caller)}
}

// Generate asks the model for TOWS strategies that fit the current IE
// posture. The returned strategies are not yet attached to a session.
func (g *Generator) Generate(ctx context.Context, in Input) (Result, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "advisor.Generate")
	defer span.End()

	ife, efe := strategy.Score(in.IFE), strategy.Score(in.EFE)
	pos := strategy.Classify(ife, efe)
	span.SetAttributes(
		attribute.String("profile.id", in.Profile.ID),
		attribute.Float64("ife.score", ife),
		attribute.Float64("efe.score", efe),
		attribute.String("ie.status", string(pos.Status)),
	)
	if !pos.Determined() {
		span.SetStatus(codes.Error, ErrPositionUndetermined.Error())
		return Result{}, ErrPositionUndetermined
	}
	span.SetAttributes(attribute.String("ie.cell", string(pos.Cell)), attribute.String("llm.model", g.exec.ModelName()))

	var out generatedOutput
	metrics, err := g.exec.Run(ctx, "tows", BuildPrompt(in, pos), &out, out.validate)
	span.SetAttributes(attribute.Int("llm.attempts", metrics.Attempts), attribute.Int("llm.content_retries", metrics.ContentRetries))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	res := Result{
		Headline: strings.TrimSpace(out.Headline),
		Position: pos,
		Model:    g.exec.ModelName(),
		Metrics:  metrics,
	}
	for _, s := range out.Strategies {
		res.Strategies = append(res.Strategies, project.Strategy{
			ProfileID:   in.Profile.ID,
			Kind:        project.StrategyKind(strings.ToUpper(strings.TrimSpace(s.Kind))),
			Title:       strings.TrimSpace(s.Title),
			Description: strings.TrimSpace(s.Description),
			Source:      project.SourceAI,
		})
	}
	return res, nil
}

// BuildPrompt renders the planning context the model works from.
func BuildPrompt(in Input, pos strategy.Position) string {
	var b strings.Builder
	p := in.Profile
	fmt.Fprintf(&b, "Company: %s\n", p.Name)
	writeField(&b, "Industry", p.Industry)
	writeField(&b, "Description", p.Description)
	writeField(&b, "Vision", p.Vision)
	writeField(&b, "Mission", p.Mission)
	writeField(&b, "Core values", p.CoreValues)
	writeField(&b, "Target market", p.TargetMarket)

	b.WriteString("\nSWOT inventory:\n")
	for _, c := range strategy.Categories {
		for _, it := range in.SwotItems {
			if it.Category == c {
				fmt.Fprintf(&b, "- [%s] %s\n", c.Label(), it.Description)
			}
		}
	}

	for _, m := range []struct {
		matrix  strategy.MatrixType
		factors []strategy.Factor
	}{{strategy.MatrixIFE, in.IFE}, {strategy.MatrixEFE, in.EFE}} {
		fmt.Fprintf(&b, "\n%s (weight x rating):\n", m.matrix.Label())
		for _, f := range m.factors {
			fmt.Fprintf(&b, "- %s: %s, weight %.2f, rating %d, weighted %.2f\n", f.Category.Label(), f.Description, f.Weight, f.Rating, strategy.WeightedScore(f))
		}
		fmt.Fprintf(&b, "Total weighted score: %s\n", strategy.FormatScore(strategy.Score(m.factors)))
	}

	fmt.Fprintf(&b, "\nIE matrix position: cell %s, posture %q.\n", pos.Cell, pos.Posture)
	fmt.Fprintf(&b, "Posture guidance: %s\n", pos.Posture.Description())

	b.WriteString(`
Propose TOWS strategies consistent with this posture. Use kind SO (use strengths to seize opportunities),
ST (use strengths to counter threats), WO (fix weaknesses by exploiting opportunities) or WT (minimize
weaknesses and avoid threats). Give two to three strategies per kind where the inventory supports it.

Schema:
{"headline": "one sentence summarizing the recommended strategic direction",
 "strategies": [{"kind": "SO|ST|WO|WT", "title": "short imperative title", "description": "two to four sentences"}]}`)
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if v := strings.TrimSpace(value); v != "" {
		fmt.Fprintf(b, "%s: %s\n", label, v)
	}
}
