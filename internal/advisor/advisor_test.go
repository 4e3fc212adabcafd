package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/joelkehle/strategy-workbench/internal/project"
	"github.com/joelkehle/strategy-workbench/internal/strategy"
)

type scriptedCaller struct {
	responses []string
	errs      []error
	prompts   []string
}

func (c *scriptedCaller) GenerateJSON(_ context.Context, prompt string) (string, error) {
	i := len(c.prompts)
	c.prompts = append(c.prompts, prompt)
	var err error
	if i < len(c.errs) {
		err = c.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(c.responses) {
		return c.responses[i], nil
	}
	return "", nil
}

func (c *scriptedCaller) ModelName() string { return "test-model" }

func newTestGenerator(c LLMCaller) *Generator {
	g := NewGenerator(c)
	g.exec.backoff = func(int) time.Duration { return 0 }
	return g
}

func scoredInput() Input {
	return Input{
		Profile: project.Profile{ID: "p-1", Name: "Acme", Industry: "Robotics"},
		SwotItems: []strategy.SwotItem{
			{ID: "s1", Description: "Brand", Category: strategy.CategoryStrength},
			{ID: "t1", Description: "Tariffs", Category: strategy.CategoryThreat},
		},
		IFE: []strategy.Factor{{ID: "s1", Description: "Brand", Weight: 1, Rating: 4, Category: strategy.CategoryStrength}},
		EFE: []strategy.Factor{{ID: "t1", Description: "Tariffs", Weight: 1, Rating: 3, Category: strategy.CategoryThreat}},
	}
}

const validResponse = "```json\n" + `{"headline":"Grow through brand-led exports","strategies":[{"kind":"so","title":"Export the brand","description":"Open two markets."},{"kind":"ST","title":"Local assembly","description":"Avoid tariffs."}]}` + "\n```"

func TestGenerateReturnsStrategies(t *testing.T) {
	c := &scriptedCaller{responses: []string{validResponse}}
	res, err := newTestGenerator(c).Generate(context.Background(), scoredInput())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Position.Cell != strategy.CellI || res.Position.Posture != strategy.PostureGrowAndBuild {
		t.Fatalf("unexpected position %+v", res.Position)
	}
	if len(res.Strategies) != 2 || res.Strategies[0].Kind != project.KindSO || res.Strategies[0].Source != project.SourceAI {
		t.Fatalf("unexpected strategies %+v", res.Strategies)
	}
	if res.Strategies[1].ProfileID != "p-1" || res.Model != "test-model" {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.Contains(c.prompts[0], `posture "Grow and Build"`) || !strings.Contains(c.prompts[0], "Total weighted score: 4.00") {
		t.Fatalf("prompt missing posture context:\n%s", c.prompts[0])
	}
}

func TestGenerateUndeterminedPosition(t *testing.T) {
	c := &scriptedCaller{}
	in := scoredInput()
	in.EFE = nil
	_, err := newTestGenerator(c).Generate(context.Background(), in)
	if !errors.Is(err, ErrPositionUndetermined) {
		t.Fatalf("expected ErrPositionUndetermined, got %v", err)
	}
	if len(c.prompts) != 0 {
		t.Fatal("model must not be called without a position")
	}
}

func TestGenerateRetriesInvalidContent(t *testing.T) {
	c := &scriptedCaller{responses: []string{
		"",
		"not json",
		validResponse,
	}}
	res, err := newTestGenerator(c).Generate(context.Background(), scoredInput())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Metrics.Attempts != 3 || res.Metrics.ContentRetries != 2 {
		t.Fatalf("unexpected metrics %+v", res.Metrics)
	}
	if !strings.Contains(c.prompts[2], "not valid JSON") {
		t.Fatalf("feedback not appended: %s", c.prompts[2])
	}
}

func TestGenerateValidationFeedback(t *testing.T) {
	c := &scriptedCaller{responses: []string{
		`{"headline":"x","strategies":[{"kind":"XY","title":""}]}`,
		`{"headline":"x","strategies":[{"kind":"XY","title":""}]}`,
		`{"headline":"x","strategies":[{"kind":"XY","title":""}]}`,
	}}
	_, err := newTestGenerator(c).Generate(context.Background(), scoredInput())
	if err == nil || !strings.Contains(err.Error(), "failed validation") {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if !strings.Contains(c.prompts[1], "kind must be one of SO, ST, WO, WT") {
		t.Fatalf("validation feedback missing: %s", c.prompts[1])
	}
}

func TestRetryDoesNotInheritRejectedFields(t *testing.T) {
	c := &scriptedCaller{responses: []string{
		`{"headline":"From attempt one","strategies":[{"kind":"ZZ","title":"Bad kind"}]}`,
		`{"strategies":[{"kind":"SO","title":"Expand"}]}`,
		`{"headline":"From attempt three","strategies":[{"kind":"SO","title":"Expand"}]}`,
	}}
	res, err := newTestGenerator(c).Generate(context.Background(), scoredInput())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Headline != "From attempt three" || res.Metrics.Attempts != 3 {
		t.Fatalf("stale fields accepted: headline=%q metrics=%+v", res.Headline, res.Metrics)
	}
	if !strings.Contains(c.prompts[2], "headline is required") {
		t.Fatalf("second attempt should fail on the missing headline: %s", c.prompts[2])
	}
}

func TestExecutorRetriesTransientTransport(t *testing.T) {
	c := &scriptedCaller{
		errs:      []error{errors.New("status code: 529 overloaded"), errors.New("status code: 429 slow down")},
		responses: []string{"", "", validResponse},
	}
	res, err := newTestGenerator(c).Generate(context.Background(), scoredInput())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Metrics.Attempts != 3 || res.Metrics.ContentRetries != 0 {
		t.Fatalf("unexpected metrics %+v", res.Metrics)
	}
}

func TestExecutorDoesNotRetryClientErrors(t *testing.T) {
	c := &scriptedCaller{errs: []error{errors.New("status code: 401 unauthorized")}}
	_, err := newTestGenerator(c).Generate(context.Background(), scoredInput())
	if err == nil || len(c.prompts) != 1 {
		t.Fatalf("expected one failed attempt, got %d prompts, err %v", len(c.prompts), err)
	}
}

func TestClassifyTransportError(t *testing.T) {
	cases := map[string]failureClass{
		"failed after 5 retries while waiting 4 seconds": failureServer,
		"status code: 400 bad request":                   failureClient,
		"status=500 upstream error":                      failureServer,
		"status 429":                                     failureRateLimit,
		"rate limit exceeded":                            failureRateLimit,
	}
	for msg, want := range cases {
		if got := classifyTransportError(errors.New(msg)); got != want {
			t.Fatalf("classify(%q) = %d, want %d", msg, got, want)
		}
	}
	if classifyTransportError(context.DeadlineExceeded) != failureTimeout {
		t.Fatal("deadline should be a timeout")
	}
}

func TestStripCodeFences(t *testing.T) {
	if got := stripCodeFences("```json\n{\"a\":1}\n```"); got != `{"a":1}` {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestGenerateRecordsSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	c := &scriptedCaller{responses: []string{validResponse}}
	if _, err := newTestGenerator(c).Generate(context.Background(), scoredInput()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	spans := rec.Ended()
	if len(spans) != 1 || spans[0].Name() != "advisor.Generate" {
		t.Fatalf("unexpected spans %v", spans)
	}
	found := false
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "ie.cell" && kv.Value.AsString() == "I" {
			found = true
		}
	}
	if !found {
		t.Fatalf("ie.cell attribute missing: %v", spans[0].Attributes())
	}
}

type fakeMessages struct {
	params anthropic.MessageNewParams
}

func (f *fakeMessages) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.params = params
	return &anthropic.Message{Content: []anthropic.ContentBlockUnion{{Type: "text", Text: `{"ok":true}`}}}, nil
}

func TestAnthropicCallerUsesModel(t *testing.T) {
	fm := &fakeMessages{}
	c := NewAnthropicCallerWith(fm, "")
	out, err := c.GenerateJSON(context.Background(), "hello")
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if out != `{"ok":true}` || string(fm.params.Model) != DefaultModel {
		t.Fatalf("unexpected call: %q model %q", out, fm.params.Model)
	}
	if _, err := NewAnthropicCaller(" ", ""); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
