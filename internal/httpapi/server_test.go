package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joelkehle/strategy-workbench/internal/advisor"
	"github.com/joelkehle/strategy-workbench/internal/project"
	"github.com/joelkehle/strategy-workbench/internal/report"
	"github.com/joelkehle/strategy-workbench/internal/session"
	"github.com/joelkehle/strategy-workbench/internal/store"
	"github.com/joelkehle/strategy-workbench/internal/strategy"
)

type fakeCaller struct {
	response string
	prompts  []string
}

func (f *fakeCaller) GenerateJSON(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, nil
}

func (f *fakeCaller) ModelName() string { return "fake-model" }

type fakeRenderer struct {
	docs []report.Document
}

func (f *fakeRenderer) Render(_ context.Context, doc report.Document) ([]byte, error) {
	f.docs = append(f.docs, doc)
	return []byte("%PDF-1.7 fake"), nil
}

type fixture struct {
	t       *testing.T
	store   *store.Store
	handler http.Handler
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	st, err := store.Open(store.BackendSQLite, filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	opts.Sessions = session.NewManager(st)
	opts.Catalog = st
	opts.Now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }
	return &fixture{t: t, store: st, handler: NewServer(opts)}
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		blob, err := json.Marshal(v)
		if err != nil {
			f.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(blob)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

type errorEnvelope struct {
	OK    bool `json:"ok"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Factor strategy.Factor `json:"factor"`
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) errorEnvelope {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rr.Code, rr.Body.String())
	}
	var env errorEnvelope
	decode(t, rr, &env)
	if env.OK || env.Error.Code != code {
		t.Fatalf("expected error code %q, got %+v", code, env)
	}
	return env
}

// seedProfile creates a profile with one SWOT item per category and returns
// its ID.
func (f *fixture) seedProfile() string {
	f.t.Helper()
	rr := f.do(http.MethodPost, "/v1/profiles", map[string]any{"name": "Acme", "industry": "Robotics"})
	if rr.Code != http.StatusCreated {
		f.t.Fatalf("create profile: %d %s", rr.Code, rr.Body.String())
	}
	var created struct {
		Profile project.Profile `json:"profile"`
	}
	decode(f.t, rr, &created)
	id := created.Profile.ID
	for _, it := range []map[string]string{
		{"id": "s1", "description": "Brand", "category": "strength"},
		{"id": "w1", "description": "Debt", "category": "weakness"},
		{"id": "o1", "description": "Exports", "category": "opportunity"},
		{"id": "t1", "description": "Tariffs", "category": "threat"},
	} {
		if rr := f.do(http.MethodPost, "/v1/profiles/"+id+"/swot", it); rr.Code != http.StatusCreated {
			f.t.Fatalf("add swot: %d %s", rr.Code, rr.Body.String())
		}
	}
	return id
}

func (f *fixture) analysis(id string) session.Analysis {
	f.t.Helper()
	rr := f.do(http.MethodGet, "/v1/profiles/"+id+"/analysis", nil)
	if rr.Code != http.StatusOK {
		f.t.Fatalf("analysis: %d %s", rr.Code, rr.Body.String())
	}
	var out struct {
		Analysis session.Analysis `json:"analysis"`
	}
	decode(f.t, rr, &out)
	return out.Analysis
}

func TestHealth(t *testing.T) {
	f := newFixture(t, Options{})
	rr := f.do(http.MethodGet, "/v1/health", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"generator":false`) {
		t.Fatalf("unexpected health: %d %s", rr.Code, rr.Body.String())
	}
}

func TestProfileLifecycle(t *testing.T) {
	f := newFixture(t, Options{})
	expectError(t, f.do(http.MethodPost, "/v1/profiles", map[string]any{"name": "  "}), http.StatusBadRequest, CodeValidation)
	expectError(t, f.do(http.MethodPost, "/v1/profiles", "{not json"), http.StatusBadRequest, CodeValidation)

	id := f.seedProfile()

	rr := f.do(http.MethodPut, "/v1/profiles/"+id, map[string]any{"name": "Acme Robotics", "vision": "Robots everywhere"})
	if rr.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rr.Code, rr.Body.String())
	}

	rr = f.do(http.MethodGet, "/v1/profiles", nil)
	var list struct {
		Profiles []project.Profile `json:"profiles"`
	}
	decode(t, rr, &list)
	if len(list.Profiles) != 1 || list.Profiles[0].Name != "Acme Robotics" || list.Profiles[0].ID != id {
		t.Fatalf("unexpected list %+v", list.Profiles)
	}

	rr = f.do(http.MethodGet, "/v1/profiles/"+id+"/swot", nil)
	var swot struct {
		Items []strategy.SwotItem `json:"swot_items"`
	}
	decode(t, rr, &swot)
	if len(swot.Items) != 4 {
		t.Fatalf("expected 4 swot items, got %d", len(swot.Items))
	}
	expectError(t, f.do(http.MethodPost, "/v1/profiles/"+id+"/swot", map[string]string{"description": "x", "category": "rumour"}), http.StatusBadRequest, strategy.CodeInvalidCategory)
	expectError(t, f.do(http.MethodPut, "/v1/profiles/"+id+"/swot/nope", map[string]string{"description": "x", "category": "threat"}), http.StatusNotFound, CodeNotFound)
	if rr := f.do(http.MethodDelete, "/v1/profiles/"+id+"/swot/t1", nil); rr.Code != http.StatusOK {
		t.Fatalf("remove swot: %d %s", rr.Code, rr.Body.String())
	}

	if rr := f.do(http.MethodDelete, "/v1/profiles/"+id, nil); rr.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", rr.Code, rr.Body.String())
	}
	expectError(t, f.do(http.MethodGet, "/v1/profiles/"+id, nil), http.StatusNotFound, CodeNotFound)
	expectError(t, f.do(http.MethodDelete, "/v1/profiles/"+id, nil), http.StatusNotFound, CodeNotFound)
}

func TestMatrixFlowScoresAndClassifies(t *testing.T) {
	f := newFixture(t, Options{})
	id := f.seedProfile()
	base := "/v1/profiles/" + id

	expectError(t, f.do(http.MethodPost, base+"/matrices/ife/factors", map[string]any{"description": "Early", "weight": 0.1, "rating": 3, "category": "strength"}), http.StatusConflict, CodeConflict)

	rr := f.do(http.MethodPost, base+"/matrix/begin", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("begin: %d %s", rr.Code, rr.Body.String())
	}
	expectError(t, f.do(http.MethodPost, base+"/matrix/begin", nil), http.StatusConflict, CodeConflict)

	a := f.analysis(id)
	if a.IFE.Score != 2.5 || a.EFE.Score != 2.5 || a.Position.Cell != strategy.CellV {
		t.Fatalf("unexpected seeded analysis %+v", a)
	}

	rr = f.do(http.MethodPatch, base+"/matrices/ife/factors/s1", map[string]any{"rating": 4})
	if rr.Code != http.StatusOK {
		t.Fatalf("patch rating: %d %s", rr.Code, rr.Body.String())
	}
	a = f.analysis(id)
	if a.IFE.Score != 3 || a.Position.Cell != strategy.CellIV || a.Position.Posture != strategy.PostureGrowAndBuild {
		t.Fatalf("expected cell IV after rating edit, got %+v", a.Position)
	}

	rr = f.do(http.MethodPatch, base+"/matrices/efe/factors/o1", map[string]any{"weight": "0.2"})
	if rr.Code != http.StatusOK {
		t.Fatalf("patch weight: %d %s", rr.Code, rr.Body.String())
	}
	a = f.analysis(id)
	if len(a.Warnings) != 1 || a.Warnings[0] != "EFE: Weights sum to 0.70, expected 1.00" {
		t.Fatalf("unexpected warnings %v", a.Warnings)
	}

	expectError(t, f.do(http.MethodPost, base+"/matrices/ife/factors", map[string]any{"description": "Exports", "weight": 0.1, "rating": 3, "category": "opportunity"}), http.StatusBadRequest, strategy.CodeInvalidCategory)
	expectError(t, f.do(http.MethodGet, base+"/matrices/swot", nil), http.StatusBadRequest, strategy.CodeInvalidMatrix)

	rr = f.do(http.MethodPost, base+"/matrices/ife/factors", map[string]any{"description": "Patents", "weight": 0.1, "rating": 4, "category": "strength"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("add factor: %d %s", rr.Code, rr.Body.String())
	}
	var added struct {
		Factor strategy.Factor `json:"factor"`
	}
	decode(t, rr, &added)
	if added.Factor.ID == "" {
		t.Fatal("added factor should get an id")
	}
	if rr := f.do(http.MethodDelete, base+"/matrices/ife/factors/"+added.Factor.ID, nil); rr.Code != http.StatusOK {
		t.Fatalf("remove factor: %d %s", rr.Code, rr.Body.String())
	}

	// A fresh manager over the same store sees the persisted edits.
	other := NewServer(Options{Sessions: session.NewManager(f.store), Catalog: f.store})
	req := httptest.NewRequest(http.MethodGet, base+"/analysis", nil)
	out := httptest.NewRecorder()
	other.ServeHTTP(out, req)
	var reloaded struct {
		Analysis session.Analysis `json:"analysis"`
	}
	decode(t, out, &reloaded)
	if reloaded.Analysis.IFE.Score != 3 || len(reloaded.Analysis.IFE.Factors) != 2 {
		t.Fatalf("edits not persisted: %+v", reloaded.Analysis.IFE)
	}
}

func TestRejectedEditReturnsUnchangedFactor(t *testing.T) {
	f := newFixture(t, Options{})
	id := f.seedProfile()
	base := "/v1/profiles/" + id
	f.do(http.MethodPost, base+"/matrix/begin", nil)

	env := expectError(t, f.do(http.MethodPatch, base+"/matrices/ife/factors/s1", map[string]any{"weight": 1.5}), http.StatusBadRequest, strategy.CodeInvalidWeight)
	if env.Factor.ID != "s1" || env.Factor.Weight != 0.5 {
		t.Fatalf("expected unchanged factor, got %+v", env.Factor)
	}
	if env.Error.Message != "Weight must be between 0.0 and 1.0" {
		t.Fatalf("unexpected message %q", env.Error.Message)
	}

	// The valid description must not land when the rating in the same edit is rejected.
	env = expectError(t, f.do(http.MethodPatch, base+"/matrices/ife/factors/w1", map[string]any{"description": "Heavy debt", "rating": 2.5}), http.StatusBadRequest, strategy.CodeInvalidRating)
	if env.Factor.Description != "Debt" || env.Factor.Rating != 2 {
		t.Fatalf("expected unchanged factor, got %+v", env.Factor)
	}
	expectError(t, f.do(http.MethodPatch, base+"/matrices/ife/factors/w1", map[string]any{"description": "   "}), http.StatusBadRequest, strategy.CodeInvalidDescription)
	expectError(t, f.do(http.MethodPatch, base+"/matrices/ife/factors/w1", map[string]any{}), http.StatusBadRequest, CodeValidation)
	expectError(t, f.do(http.MethodPatch, base+"/matrices/ife/factors/zz", map[string]any{"weight": 0.1}), http.StatusNotFound, CodeNotFound)

	a := f.analysis(id)
	if a.IFE.Score != 2.5 {
		t.Fatalf("rejected edits changed the score: %v", a.IFE.Score)
	}
}

func TestReplaceFactorsAllOrNothing(t *testing.T) {
	f := newFixture(t, Options{})
	id := f.seedProfile()
	base := "/v1/profiles/" + id
	f.do(http.MethodPost, base+"/matrix/begin", nil)

	bad := map[string]any{"factors": []map[string]any{
		{"id": "a", "description": "Talent", "weight": 0.6, "rating": 4, "category": "strength"},
		{"id": "b", "description": "Churn", "weight": 0.4, "rating": 2.5, "category": "weakness"},
	}}
	env := expectError(t, f.do(http.MethodPut, base+"/matrices/ife/factors", bad), http.StatusBadRequest, strategy.CodeInvalidRating)
	if !strings.Contains(env.Error.Message, "factor 1") {
		t.Fatalf("error should name the failing index: %q", env.Error.Message)
	}
	if a := f.analysis(id); len(a.IFE.Factors) != 2 || a.IFE.Factors[0].ID != "s1" {
		t.Fatalf("failed replace changed the matrix: %+v", a.IFE.Factors)
	}

	good := map[string]any{"factors": []map[string]any{
		{"id": "a", "description": "Talent", "weight": 0.6, "rating": 4, "category": "strength"},
		{"id": "b", "description": "Churn", "weight": 0.4, "rating": 1, "category": "weakness"},
	}}
	if rr := f.do(http.MethodPut, base+"/matrices/ife/factors", good); rr.Code != http.StatusOK {
		t.Fatalf("replace: %d %s", rr.Code, rr.Body.String())
	}
	if a := f.analysis(id); strategy.RoundScore(a.IFE.Score) != 2.8 {
		t.Fatalf("expected 2.8 after replace, got %v", a.IFE.Score)
	}
}

func TestGenerateStrategies(t *testing.T) {
	f := newFixture(t, Options{})
	id := f.seedProfile()
	base := "/v1/profiles/" + id
	expectError(t, f.do(http.MethodPost, base+"/strategies/generate", nil), http.StatusServiceUnavailable, CodeUnavailable)

	caller := &fakeCaller{response: `{"headline":"Hold the line","strategies":[{"kind":"so","title":"Export the brand","description":"Two markets."}]}`}
	f = newFixture(t, Options{Generator: advisor.NewGenerator(caller)})
	id = f.seedProfile()
	base = "/v1/profiles/" + id
	expectError(t, f.do(http.MethodPost, base+"/strategies/generate", nil), http.StatusConflict, CodeConflict)
	if len(caller.prompts) != 0 {
		t.Fatal("undetermined position must not reach the model")
	}

	f.do(http.MethodPost, base+"/matrix/begin", nil)
	rr := f.do(http.MethodPost, base+"/strategies/generate", map[string]any{"save": true})
	if rr.Code != http.StatusOK {
		t.Fatalf("generate: %d %s", rr.Code, rr.Body.String())
	}
	var out struct {
		Headline   string             `json:"headline"`
		Position   strategy.Position  `json:"position"`
		Strategies []project.Strategy `json:"strategies"`
	}
	decode(t, rr, &out)
	if out.Headline != "Hold the line" || out.Position.Cell != strategy.CellV {
		t.Fatalf("unexpected generation %+v", out)
	}
	if len(out.Strategies) != 1 || out.Strategies[0].ID == "" || out.Strategies[0].Source != project.SourceAI {
		t.Fatalf("strategies not saved: %+v", out.Strategies)
	}

	rr = f.do(http.MethodPost, base+"/strategies", map[string]any{"kind": "wt", "title": "Refinance"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("add strategy: %d %s", rr.Code, rr.Body.String())
	}
	expectError(t, f.do(http.MethodPost, base+"/strategies", map[string]any{"kind": "XX", "title": "Nope"}), http.StatusBadRequest, CodeValidation)

	rr = f.do(http.MethodGet, base+"/strategies", nil)
	var list struct {
		Strategies []project.Strategy `json:"strategies"`
	}
	decode(t, rr, &list)
	if len(list.Strategies) != 2 || list.Strategies[1].Source != project.SourceManual {
		t.Fatalf("unexpected strategies %+v", list.Strategies)
	}
	if rr := f.do(http.MethodDelete, base+"/strategies/"+list.Strategies[0].ID, nil); rr.Code != http.StatusOK {
		t.Fatalf("delete strategy: %d %s", rr.Code, rr.Body.String())
	}
}

func TestReportsAndExports(t *testing.T) {
	renderer := &fakeRenderer{}
	f := newFixture(t, Options{Renderer: renderer})
	id := f.seedProfile()
	base := "/v1/profiles/" + id
	f.do(http.MethodPost, base+"/matrix/begin", nil)

	rr := f.do(http.MethodPost, base+"/reports", map[string]any{"title": "Q4 plan"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create report: %d %s", rr.Code, rr.Body.String())
	}
	var created struct {
		Report project.Report `json:"report"`
	}
	decode(t, rr, &created)
	if created.Report.Title != "Q4 plan" || !strings.Contains(created.Report.Markdown, "- Cell: **V**") {
		t.Fatalf("unexpected report %+v", created.Report)
	}

	rr = f.do(http.MethodGet, base+"/reports/"+created.Report.ID+"?format=md", nil)
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Body.String(), "# Q4 plan") {
		t.Fatalf("markdown fetch: %d %q", rr.Code, rr.Body.String())
	}
	rr = f.do(http.MethodGet, base+"/reports", nil)
	if !strings.Contains(rr.Body.String(), created.Report.ID) {
		t.Fatalf("report missing from list: %s", rr.Body.String())
	}
	expectError(t, f.do(http.MethodGet, base+"/reports/missing", nil), http.StatusNotFound, CodeNotFound)

	rr = f.do(http.MethodGet, base+"/report/pdf", nil)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("pdf: %d %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "acme-strategy.pdf") {
		t.Fatalf("unexpected disposition %q", rr.Header().Get("Content-Disposition"))
	}
	if len(renderer.docs) != 1 || renderer.docs[0].Position.Cell != strategy.CellV {
		t.Fatalf("renderer got %+v", renderer.docs)
	}

	rr = f.do(http.MethodGet, base+"/export/csv", nil)
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Body.String(), "matrix,factor_id,category") {
		t.Fatalf("csv export: %d %q", rr.Code, rr.Body.String())
	}
	rr = f.do(http.MethodGet, base+"/export/parquet", nil)
	if rr.Code != http.StatusOK || !bytes.HasPrefix(rr.Body.Bytes(), []byte("PAR1")) {
		t.Fatalf("parquet export: %d", rr.Code)
	}
	expectError(t, f.do(http.MethodGet, base+"/export/xlsx", nil), http.StatusBadRequest, CodeValidation)

	noPDF := newFixture(t, Options{})
	pid := noPDF.seedProfile()
	expectError(t, noPDF.do(http.MethodGet, "/v1/profiles/"+pid+"/report/pdf", nil), http.StatusServiceUnavailable, CodeUnavailable)
}

func TestProjectDownloadRestoreAndImport(t *testing.T) {
	f := newFixture(t, Options{})
	id := f.seedProfile()
	base := "/v1/profiles/" + id
	f.do(http.MethodPost, base+"/matrix/begin", nil)
	f.do(http.MethodPatch, base+"/matrices/ife/factors/s1", map[string]any{"rating": 4})
	if rr := f.do(http.MethodPost, base+"/strategies", map[string]any{"kind": "so", "title": "Export the brand"}); rr.Code != http.StatusCreated {
		t.Fatalf("add strategy: %d %s", rr.Code, rr.Body.String())
	}

	rr := f.do(http.MethodGet, base+"/project?format=yaml", nil)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "application/yaml" {
		t.Fatalf("download: %d %s", rr.Code, rr.Body.String())
	}
	snap, err := project.Decode(rr.Body.Bytes(), project.FormatYAML)
	if err != nil {
		t.Fatalf("decode download: %v", err)
	}
	if snap.Profile.ID != id || len(snap.IFE) != 2 || snap.IFE[0].Rating != 4 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if len(snap.Strategies) != 1 {
		t.Fatalf("strategy missing from download: %+v", snap.Strategies)
	}
	exported := rr.Body.Bytes()
	seen := map[string]bool{snap.Strategies[0].ID: true}
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/projects?format=yaml", bytes.NewReader(exported))
		imported := httptest.NewRecorder()
		f.handler.ServeHTTP(imported, req)
		if imported.Code != http.StatusCreated {
			t.Fatalf("import %d: %d %s", i+1, imported.Code, imported.Body.String())
		}
		var out struct {
			Profile  project.Profile  `json:"profile"`
			Analysis session.Analysis `json:"analysis"`
		}
		decode(t, imported, &out)
		if out.Profile.ID == id || out.Analysis.Position.Cell != strategy.CellIV {
			t.Fatalf("import should create a new profile with the same analysis: %+v", out)
		}
		var listed struct {
			Strategies []project.Strategy `json:"strategies"`
		}
		decode(t, f.do(http.MethodGet, "/v1/profiles/"+out.Profile.ID+"/strategies", nil), &listed)
		if len(listed.Strategies) != 1 || seen[listed.Strategies[0].ID] {
			t.Fatalf("imported strategies must get fresh ids: %+v", listed.Strategies)
		}
		seen[listed.Strategies[0].ID] = true
	}

	dup := snap
	dup.SwotItems = append([]strategy.SwotItem{}, snap.SwotItems...)
	dup.SwotItems[1].ID = dup.SwotItems[0].ID
	blob, err := project.Encode(dup, project.FormatJSON)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	expectError(t, f.do(http.MethodPost, "/v1/projects", string(blob)), http.StatusBadRequest, strategy.CodeDuplicateID)

	blank := snap
	blank.SwotItems = append([]strategy.SwotItem{}, snap.SwotItems...)
	blank.SwotItems[0].ID, blank.SwotItems[1].ID = "", ""
	blob, _ = project.Encode(blank, project.FormatJSON)
	if rr := f.do(http.MethodPost, "/v1/projects", string(blob)); rr.Code != http.StatusCreated {
		t.Fatalf("import with blank swot ids: %d %s", rr.Code, rr.Body.String())
	}

	snap.IFE[0].Weight = 2
	blob, _ = project.Encode(snap, project.FormatJSON)
	expectError(t, f.do(http.MethodPut, base+"/project", string(blob)), http.StatusBadRequest, strategy.CodeInvalidWeight)
	if a := f.analysis(id); a.IFE.Score != 3 {
		t.Fatalf("rejected restore changed state: %v", a.IFE.Score)
	}

	snap.IFE[0].Weight = 0.5
	snap.IFE[0].Rating = 1
	blob, _ = project.Encode(snap, project.FormatJSON)
	if rr := f.do(http.MethodPut, base+"/project", string(blob)); rr.Code != http.StatusOK {
		t.Fatalf("restore: %d %s", rr.Code, rr.Body.String())
	}
	if a := f.analysis(id); a.IFE.Score != 1.5 || a.Position.Cell != strategy.CellVI {
		t.Fatalf("restore not applied: %+v", a)
	}
}
