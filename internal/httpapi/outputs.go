package httpapi

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/joelkehle/strategy-workbench/internal/advisor"
	"github.com/joelkehle/strategy-workbench/internal/export"
	"github.com/joelkehle/strategy-workbench/internal/project"
	"github.com/joelkehle/strategy-workbench/internal/report"
	"github.com/joelkehle/strategy-workbench/internal/session"
	"github.com/joelkehle/strategy-workbench/internal/strategy"
)

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "strategies": sess.Strategies()})
}

func (s *Server) handleAddStrategy(w http.ResponseWriter, r *http.Request) {
	var st project.Strategy
	if err := decodeJSON(r, &st); err != nil {
		writeError(w, r, err)
		return
	}
	st.Kind = project.StrategyKind(strings.ToUpper(strings.TrimSpace(string(st.Kind))))
	var added []project.Strategy
	_, err := s.update(r, func(sess *session.Session) error {
		var err error
		added, err = sess.AddStrategies(st)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "strategy": added[0]})
}

func (s *Server) handleRemoveStrategy(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("strategy")
	_, err := s.update(r, func(sess *session.Session) error {
		return sess.RemoveStrategy(id)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleGenerateStrategies drafts TOWS strategies for the current IE
// posture. They are attached to the profile only when save is true.
func (s *Server) handleGenerateStrategies(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Save bool `json:"save"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if s.generator == nil {
		writeError(w, r, advisor.ErrUnavailable)
		return
	}
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap := sess.Snapshot()
	res, err := s.generator.Generate(r.Context(), advisor.Input{
		Profile:   snap.Profile,
		SwotItems: snap.SwotItems,
		IFE:       snap.IFE,
		EFE:       snap.EFE,
	})
	if err != nil {
		log.Printf("strategy generation failed profile=%s err=%v", snap.Profile.ID, err)
		writeError(w, r, err)
		return
	}
	if body.Save {
		_, err := s.update(r, func(sess *session.Session) error {
			saved, err := sess.AddStrategies(res.Strategies...)
			if err == nil {
				res.Strategies = saved
			}
			return err
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"headline":   res.Headline,
		"position":   res.Position,
		"strategies": res.Strategies,
		"model":      res.Model,
		"saved":      body.Save,
	})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if _, err := s.session(r); err != nil {
		writeError(w, r, err)
		return
	}
	reports, err := s.catalog.ListReports(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if reports == nil {
		reports = []project.Report{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "reports": reports})
}

func (s *Server) buildReport(r *http.Request, title string) (report.Document, project.Snapshot, error) {
	sess, err := s.session(r)
	if err != nil {
		return report.Document{}, project.Snapshot{}, err
	}
	snap := sess.Snapshot()
	in := report.InputFromSnapshot(snap)
	in.Title = title
	in.Now = s.now()
	return report.Build(in), snap, nil
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	doc, snap, err := s.buildReport(r, body.Title)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec := project.Report{
		ID:        uuid.NewString(),
		ProfileID: snap.Profile.ID,
		Title:     doc.Title,
		Markdown:  doc.Markdown,
		CreatedAt: s.now(),
	}
	if err := s.catalog.CreateReport(r.Context(), rec); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "report": rec, "position": doc.Position})
}

// handleGetReport answers JSON, or the raw Markdown with ?format=md.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	rec, err := s.catalog.GetReport(r.Context(), r.PathValue("id"), r.PathValue("report"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if f := r.URL.Query().Get("format"); f == "md" || f == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(rec.Markdown))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "report": rec})
}

// handleReportPDF renders the current state of the profile, not a stored
// report, so the header scores always match the body.
func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	if s.renderer == nil {
		writeError(w, r, report.ErrRendererUnavailable)
		return
	}
	doc, snap, err := s.buildReport(r, r.URL.Query().Get("title"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	pdf, err := s.renderer.Render(r.Context(), doc)
	if err != nil {
		log.Printf("render report pdf failed profile=%s err=%v", snap.Profile.ID, err)
		writeError(w, r, err)
		return
	}
	filename := sanitizeFilename(snap.Profile.Name) + "-strategy.pdf"
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.PathValue("format"))
	if err != nil {
		writeError(w, r, invalid(err))
		return
	}
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap := sess.Snapshot()
	ife := strategy.Summarize(strategy.MatrixIFE, snap.IFE)
	efe := strategy.Summarize(strategy.MatrixEFE, snap.EFE)

	var buf bytes.Buffer
	if err := export.Write(&buf, format, snap.Profile.ID, ife, efe); err != nil {
		writeError(w, r, err)
		return
	}
	ext := string(format)
	if format == export.FormatTable {
		ext = "txt"
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sanitizeFilename(snap.Profile.Name)+"-factors."+ext))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func projectFormat(r *http.Request) project.Format {
	if f := strings.ToLower(r.URL.Query().Get("format")); f == "yaml" || f == "yml" {
		return project.FormatYAML
	}
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		return project.FormatYAML
	}
	return project.FormatJSON
}

func (s *Server) handleDownloadProject(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap := sess.Snapshot()
	snap.SavedAt = s.now()
	format := projectFormat(r)
	blob, err := project.Encode(snap, format)
	if err != nil {
		writeError(w, r, err)
		return
	}
	contentType := "application/json"
	if format == project.FormatYAML {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sanitizeFilename(snap.Profile.Name)+"."+string(format)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}

func (s *Server) decodeProject(r *http.Request) (project.Snapshot, error) {
	blob, err := readBody(r)
	if err != nil {
		return project.Snapshot{}, invalidf("read body: %v", err)
	}
	snap, err := project.Decode(blob, projectFormat(r))
	if err != nil {
		return project.Snapshot{}, invalid(err)
	}
	if err := project.ValidateSnapshot(snap); err != nil {
		return project.Snapshot{}, invalid(err)
	}
	return snap, nil
}

// handleRestoreProject loads a project file into an existing profile,
// replacing everything but the profile ID.
func (s *Server) handleRestoreProject(w http.ResponseWriter, r *http.Request) {
	snap, err := s.decodeProject(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.update(r, func(sess *session.Session) error {
		return sess.Restore(snap)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "profile": sess.Profile(), "analysis": sess.Analysis()})
}

// handleImportProject creates a new profile from a project file.
func (s *Server) handleImportProject(w http.ResponseWriter, r *http.Request) {
	snap, err := s.decodeProject(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap.Profile.ID = ""
	sess, err := s.sessions.Import(r.Context(), snap)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "profile": sess.Profile(), "analysis": sess.Analysis()})
}
