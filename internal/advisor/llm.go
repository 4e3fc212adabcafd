package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const DefaultModel = "claude-sonnet-4-5"

const systemPrompt = "You are a strategic-planning consultant applying the SWOT, IFE/EFE and Internal-External matrix framework. Respond with strict JSON only."

const maxAttempts = 3

// ErrUnavailable means no LLM backend is configured.
var ErrUnavailable = errors.New("strategy generation is not configured")

var statusCodeRe = regexp.MustCompile(`(?:status(?:\s+code)?[:=\s]+)(\d{3})`)

type failureClass int

const (
	failureNone failureClass = iota
	failureTimeout
	failureRateLimit
	failureServer
	failureClient
)

func (c failureClass) String() string {
	switch c {
	case failureTimeout:
		return "timeout"
	case failureRateLimit:
		return "rate_limit"
	case failureServer:
		return "server"
	case failureClient:
		return "client"
	default:
		return "none"
	}
}

func (c failureClass) retryable() bool {
	return c == failureTimeout || c == failureRateLimit || c == failureServer
}

type LLMCaller interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	ModelName() string
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicCaller struct {
	messages AnthropicMessager
	model    string
}

func NewAnthropicCaller(apiKey, model string) (*AnthropicCaller, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: anthropic api key is empty", ErrUnavailable)
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return NewAnthropicCallerWith(&c.Messages, model), nil
}

func NewAnthropicCallerWith(messages AnthropicMessager, model string) *AnthropicCaller {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &AnthropicCaller{messages: messages, model: model}
}

func (a *AnthropicCaller) ModelName() string { return a.model }

func (a *AnthropicCaller) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   4096,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0.4),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

type AttemptMetrics struct {
	Attempts       int `json:"attempts"`
	ContentRetries int `json:"content_retries"`
}

// Executor runs a prompt until the response decodes and validates, retrying
// transient transport failures and malformed content.
type Executor struct {
	caller  LLMCaller
	backoff func(attempt int) time.Duration
}

func NewExecutor(caller LLMCaller) *Executor {
	return &Executor{caller: caller, backoff: backoffDelay}
}

func (e *Executor) ModelName() string {
	if e == nil || e.caller == nil {
		return DefaultModel
	}
	return e.caller.ModelName()
}

// rejectedResponse is a reply that arrived but could not be used. The hint
// goes back to the model with the next attempt.
type rejectedResponse struct {
	hint string
	err  error
}

func (r *rejectedResponse) Error() string { return r.err.Error() }
func (r *rejectedResponse) Unwrap() error { return r.err }

func (e *Executor) Run(ctx context.Context, stage, prompt string, out any, validate func() error) (AttemptMetrics, error) {
	var (
		metrics  AttemptMetrics
		hint     string
		rejected *rejectedResponse
	)
	for metrics.Attempts < maxAttempts {
		metrics.Attempts++
		last := metrics.Attempts == maxAttempts
		began := time.Now()

		raw, err := e.caller.GenerateJSON(ctx, withInstructions(prompt, hint))
		if err != nil {
			class := classifyTransportError(err)
			log.Printf("advisor call failed stage=%s attempt=%d class=%s elapsed_ms=%d err=%q",
				stage, metrics.Attempts, class, time.Since(began).Milliseconds(), err.Error())
			if last || !class.retryable() {
				return metrics, fmt.Errorf("%s transport failure: %w", stage, err)
			}
			if err := wait(ctx, e.backoff(metrics.Attempts)); err != nil {
				return metrics, err
			}
			continue
		}

		rejected = decodeResponse(raw, out, validate)
		if rejected == nil {
			log.Printf("advisor response accepted stage=%s attempt=%d elapsed_ms=%d chars=%d",
				stage, metrics.Attempts, time.Since(began).Milliseconds(), len(raw))
			return metrics, nil
		}
		log.Printf("advisor response rejected stage=%s attempt=%d err=%q", stage, metrics.Attempts, rejected.Error())
		if !last {
			metrics.ContentRetries++
			hint = rejected.hint
		}
	}
	if rejected == nil {
		return metrics, fmt.Errorf("%s failed after %d attempts", stage, metrics.Attempts)
	}
	return metrics, fmt.Errorf("%s %w", stage, rejected)
}

func withInstructions(prompt, hint string) string {
	full := prompt + "\n\nRespond with only valid JSON matching the schema."
	if hint != "" {
		full += "\n\n" + hint
	}
	return full
}

func decodeResponse(raw string, out any, validate func() error) *rejectedResponse {
	body := stripCodeFences(raw)
	if body == "" {
		return &rejectedResponse{
			hint: "Your previous response was empty. Return valid JSON only.",
			err:  errors.New("failed: empty response"),
		}
	}
	resetTarget(out)
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return &rejectedResponse{
			hint: "Your previous response was not valid JSON. Return valid JSON only.",
			err:  fmt.Errorf("failed json parse: %w", err),
		}
	}
	if err := validate(); err != nil {
		return &rejectedResponse{
			hint: fmt.Sprintf("Your response failed validation: %s. Fix and return valid JSON only.", err),
			err:  fmt.Errorf("failed validation: %w", err),
		}
	}
	return nil
}

// resetTarget zeroes the value behind out so fields left by a rejected
// attempt cannot satisfy validation on the next one.
func resetTarget(out any) {
	if v := reflect.ValueOf(out); v.Kind() == reflect.Pointer && !v.IsNil() {
		v.Elem().SetZero()
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stripCodeFences unwraps a ```json fenced block.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "```"), "json")
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func classifyTransportError(err error) failureClass {
	var (
		netErr net.Error
		apiErr *anthropic.Error
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return failureTimeout
	case errors.As(err, &apiErr):
		return classifyStatus(apiErr.StatusCode)
	}
	msg := strings.ToLower(err.Error())
	if m := statusCodeRe.FindStringSubmatch(msg); len(m) == 2 {
		code, _ := strconv.Atoi(m[1])
		return classifyStatus(code)
	}
	if strings.Contains(msg, "rate limit") {
		return failureRateLimit
	}
	return failureServer
}

func classifyStatus(code int) failureClass {
	switch {
	case code == http.StatusTooManyRequests:
		return failureRateLimit
	case code >= 400 && code < 500:
		return failureClient
	default:
		return failureServer
	}
}

// backoffDelay waits one second after the first failure and two after any
// later one.
func backoffDelay(attempt int) time.Duration {
	return time.Duration(min(attempt, 2)) * time.Second
}
