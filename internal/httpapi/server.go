// Package httpapi exposes strategy sessions over a JSON HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joelkehle/strategy-workbench/internal/advisor"
	"github.com/joelkehle/strategy-workbench/internal/project"
	"github.com/joelkehle/strategy-workbench/internal/report"
	"github.com/joelkehle/strategy-workbench/internal/session"
)

const maxBodyBytes = 4 << 20

// Catalog covers the stored records that live outside a session: the profile
// index and generated reports.
type Catalog interface {
	ListProfiles(ctx context.Context) ([]project.Profile, error)
	DeleteProfile(ctx context.Context, id string) error
	CreateReport(ctx context.Context, r project.Report) error
	GetReport(ctx context.Context, profileID, id string) (project.Report, error)
	ListReports(ctx context.Context, profileID string) ([]project.Report, error)
}

type StrategyGenerator interface {
	Generate(ctx context.Context, in advisor.Input) (advisor.Result, error)
}

type Options struct {
	Sessions *session.Manager
	Catalog  Catalog
	// Generator and Renderer are optional; without them the matching
	// endpoints answer 503.
	Generator StrategyGenerator
	Renderer  report.Renderer
	Now       func() time.Time
}

type Server struct {
	sessions  *session.Manager
	catalog   Catalog
	generator StrategyGenerator
	renderer  report.Renderer
	now       func() time.Time
}

func NewServer(opts Options) http.Handler {
	s := &Server{
		sessions:  opts.Sessions,
		catalog:   opts.Catalog,
		generator: opts.Generator,
		renderer:  opts.Renderer,
		now:       opts.Now,
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)

	mux.HandleFunc("GET /v1/profiles", s.handleListProfiles)
	mux.HandleFunc("POST /v1/profiles", s.handleCreateProfile)
	mux.HandleFunc("GET /v1/profiles/{id}", s.handleGetProfile)
	mux.HandleFunc("PUT /v1/profiles/{id}", s.handleUpdateProfile)
	mux.HandleFunc("DELETE /v1/profiles/{id}", s.handleDeleteProfile)

	mux.HandleFunc("GET /v1/profiles/{id}/swot", s.handleListSwot)
	mux.HandleFunc("POST /v1/profiles/{id}/swot", s.handleAddSwot)
	mux.HandleFunc("PUT /v1/profiles/{id}/swot/{item}", s.handleUpdateSwot)
	mux.HandleFunc("DELETE /v1/profiles/{id}/swot/{item}", s.handleRemoveSwot)

	mux.HandleFunc("POST /v1/profiles/{id}/matrix/begin", s.handleBeginMatrix)
	mux.HandleFunc("POST /v1/profiles/{id}/matrix/rederive", s.handleRederive)
	mux.HandleFunc("GET /v1/profiles/{id}/matrices/{matrix}", s.handleGetMatrix)
	mux.HandleFunc("POST /v1/profiles/{id}/matrices/{matrix}/factors", s.handleAddFactor)
	mux.HandleFunc("PUT /v1/profiles/{id}/matrices/{matrix}/factors", s.handleReplaceFactors)
	mux.HandleFunc("PATCH /v1/profiles/{id}/matrices/{matrix}/factors/{factor}", s.handleEditFactor)
	mux.HandleFunc("DELETE /v1/profiles/{id}/matrices/{matrix}/factors/{factor}", s.handleRemoveFactor)
	mux.HandleFunc("GET /v1/profiles/{id}/analysis", s.handleAnalysis)

	mux.HandleFunc("GET /v1/profiles/{id}/strategies", s.handleListStrategies)
	mux.HandleFunc("POST /v1/profiles/{id}/strategies", s.handleAddStrategy)
	mux.HandleFunc("POST /v1/profiles/{id}/strategies/generate", s.handleGenerateStrategies)
	mux.HandleFunc("DELETE /v1/profiles/{id}/strategies/{strategy}", s.handleRemoveStrategy)

	mux.HandleFunc("GET /v1/profiles/{id}/reports", s.handleListReports)
	mux.HandleFunc("POST /v1/profiles/{id}/reports", s.handleCreateReport)
	mux.HandleFunc("GET /v1/profiles/{id}/reports/{report}", s.handleGetReport)
	mux.HandleFunc("GET /v1/profiles/{id}/report/pdf", s.handleReportPDF)

	mux.HandleFunc("GET /v1/profiles/{id}/export/{format}", s.handleExport)
	mux.HandleFunc("GET /v1/profiles/{id}/project", s.handleDownloadProject)
	mux.HandleFunc("PUT /v1/profiles/{id}/project", s.handleRestoreProject)
	mux.HandleFunc("POST /v1/projects", s.handleImportProject)
	return otelhttp.NewHandler(mux, "strategist", otelhttp.WithSpanNameFormatter(spanName))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"generator":    s.generator != nil,
		"pdf_renderer": s.renderer != nil,
	})
}

// spanName names request spans by route pattern so IDs stay out of span names.
func spanName(_ string, r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return r.Method + " unmatched"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	blob, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(blob))) == 0 {
		blob = []byte("{}")
	}
	return blob, nil
}

func decodeJSON(r *http.Request, dst any) error {
	blob, err := readBody(r)
	if err != nil {
		return invalidf("read body: %v", err)
	}
	if err := json.Unmarshal(blob, dst); err != nil {
		return invalidf("invalid json: %v", err)
	}
	return nil
}

func (s *Server) session(r *http.Request) (*session.Session, error) {
	return s.sessions.Get(r.Context(), r.PathValue("id"))
}

func (s *Server) update(r *http.Request, fn func(*session.Session) error) (*session.Session, error) {
	return s.sessions.Update(r.Context(), r.PathValue("id"), fn)
}

func sanitizeFilename(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "project"
	}
	v = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, v)
	if v == "" {
		return "project"
	}
	return v
}
