package report

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/joelkehle/strategy-workbench/internal/strategy"
)

//go:embed assets/report.css
var defaultCSS string

// ErrRendererUnavailable means no headless Chromium could be found.
var ErrRendererUnavailable = errors.New("pdf renderer unavailable: no chromium binary found")

// Renderer turns a report document into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, doc Document) ([]byte, error)
}

type ChromiumRenderer struct {
	chromePath string
	css        string
	timeout    time.Duration
}

// NewChromiumRenderer uses chromePath when set, otherwise the first Chromium
// found in the usual install locations. styleCSS overrides the built-in
// stylesheet when non-empty.
func NewChromiumRenderer(chromePath, styleCSS string) *ChromiumRenderer {
	if strings.TrimSpace(chromePath) == "" {
		chromePath = detectChromePath()
	}
	if strings.TrimSpace(styleCSS) == "" {
		styleCSS = defaultCSS
	}
	return &ChromiumRenderer{chromePath: chromePath, css: styleCSS, timeout: 30 * time.Second}
}

func (r *ChromiumRenderer) Available() bool {
	return r.chromePath != ""
}

func (r *ChromiumRenderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	if !r.Available() {
		return nil, ErrRendererUnavailable
	}
	pageHTML, err := BuildHTML(doc, r.css)
	if err != nil {
		return nil, err
	}

	ctx, cancelTimeout := context.WithTimeout(ctx, r.timeout)
	defer cancelTimeout()
	ctx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	defer cancelAlloc()
	ctx, cancelBrowser := chromedp.NewContext(ctx)
	defer cancelBrowser()

	var out []byte
	source := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(pageHTML))
	err = chromedp.Run(ctx,
		chromedp.Navigate(source),
		chromedp.WaitReady("body", chromedp.ByQuery),
		a4.print(&out),
	)
	if err != nil {
		return nil, fmt.Errorf("render pdf %q: %w", doc.Title, err)
	}
	return out, nil
}

func (r *ChromiumRenderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := make([]chromedp.ExecAllocatorOption, 0, len(chromedp.DefaultExecAllocatorOptions)+4)
	opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)
	return append(opts,
		chromedp.ExecPath(r.chromePath),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
}

// pageLayout holds paper and margin sizes in inches.
type pageLayout struct {
	width, height            float64
	top, bottom, left, right float64
}

var a4 = pageLayout{width: 8.27, height: 11.69, top: 0.5, bottom: 0.75, left: 0.45, right: 0.45}

const pageFooter = `<div style="width:100%;text-align:center;font-size:9px;color:#666;">` +
	`Page <span class="pageNumber"></span> / <span class="totalPages"></span></div>`

func (l pageLayout) print(dst *[]byte) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		buf, _, err := page.PrintToPDF().
			WithPaperWidth(l.width).
			WithPaperHeight(l.height).
			WithMarginTop(l.top).
			WithMarginBottom(l.bottom).
			WithMarginLeft(l.left).
			WithMarginRight(l.right).
			WithPrintBackground(true).
			WithDisplayHeaderFooter(true).
			WithHeaderTemplate("<span></span>").
			WithFooterTemplate(pageFooter).
			Do(ctx)
		*dst = buf
		return err
	})
}

// BuildHTML converts the report Markdown into a standalone print page.
func BuildHTML(doc Document, css string) (string, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(doc.Markdown), &body); err != nil {
		return "", fmt.Errorf("convert report markdown: %w", err)
	}
	title := html.EscapeString(doc.Title)
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + title + "</title>" +
		"<style>" + css + "</style></head><body>" +
		"<div class='pdf-wrap'><div class='report-header'>" +
		"<div class='report-meta'><strong>IFE:</strong> " + strategy.FormatScore(doc.IFE.Score) +
		" &middot; <strong>EFE:</strong> " + strategy.FormatScore(doc.EFE.Score) + "</div>" +
		postureBadge(doc.Position) +
		"</div><div class='report-html'>" + markPageBreaks(body.String()) + "</div></div>" +
		"</body></html>", nil
}

func postureBadge(pos strategy.Position) string {
	if !pos.Determined() {
		return "<span class='report-badge posture-none'>IE position not yet available</span>"
	}
	class := "posture-harvest"
	switch pos.Posture {
	case strategy.PostureGrowAndBuild:
		class = "posture-grow"
	case strategy.PostureHoldAndMaintain:
		class = "posture-hold"
	}
	return "<span class='report-badge " + class + "'>Cell " + html.EscapeString(string(pos.Cell)) +
		": " + html.EscapeString(string(pos.Posture)) + "</span>"
}

var strategiesHeadingRe = regexp.MustCompile(`(?i)<h2([^>]*)>\s*Strategies\s*</h2>`)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// markPageBreaks starts the strategies section on a fresh page.
func markPageBreaks(body string) string {
	return strategiesHeadingRe.ReplaceAllString(body, `<h2$1 data-page-break-before="true">Strategies</h2>`)
}

// detectChromePath looks for a Chromium build on PATH, then in the macOS
// application bundle.
func detectChromePath() string {
	for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	const macChrome = "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"
	if info, err := os.Stat(macChrome); err == nil && !info.IsDir() {
		return macChrome
	}
	return ""
}
