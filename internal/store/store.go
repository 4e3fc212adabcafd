package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/strategy-workbench/internal/project"
	"github.com/joelkehle/strategy-workbench/internal/strategy"
)

type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendMySQL    Backend = "mysql"
)

func ParseBackend(v string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(v))); b {
	case BackendSQLite, BackendPostgres, BackendMySQL:
		return b, nil
	case "postgresql":
		return BackendPostgres, nil
	default:
		return "", fmt.Errorf("unsupported backend %q (want sqlite, postgres or mysql)", v)
	}
}

// ErrNotFound is project.ErrNotFound so sessions and handlers can match it
// without importing this package.
var ErrNotFound = project.ErrNotFound

// Store persists projects and reports in a relational database.
type Store struct {
	db      *sqlx.DB
	backend Backend
}

// Open migrates the schema to the latest version and connects.
func Open(backend Backend, dsn string) (*Store, error) {
	if err := Migrate(backend, dsn, -1); err != nil {
		return nil, err
	}
	driverName, openDSN, err := connection(backend, dsn, false)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(driverName, openDSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", backend, err)
	}
	if backend == BackendSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", backend, err)
	}
	return &Store{db: db, backend: backend}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Backend() Backend {
	return s.backend
}

type profileRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	Industry     string `db:"industry"`
	Description  string `db:"description"`
	Vision       string `db:"vision"`
	Mission      string `db:"mission"`
	CoreValues   string `db:"core_values"`
	TargetMarket string `db:"target_market"`
	Phase        string `db:"phase"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
}

func (r profileRow) profile() project.Profile {
	return project.Profile{
		ID:           r.ID,
		Name:         r.Name,
		Industry:     r.Industry,
		Description:  r.Description,
		Vision:       r.Vision,
		Mission:      r.Mission,
		CoreValues:   r.CoreValues,
		TargetMarket: r.TargetMarket,
		CreatedAt:    parseTime(r.CreatedAt),
		UpdatedAt:    parseTime(r.UpdatedAt),
	}
}

type swotRow struct {
	ID           string `db:"id"`
	Category     string `db:"category"`
	Description  string `db:"description"`
	Significance string `db:"significance"`
}

type factorRow struct {
	ID          string  `db:"id"`
	Matrix      string  `db:"matrix"`
	Description string  `db:"description"`
	Weight      float64 `db:"weight"`
	Rating      int     `db:"rating"`
	Category    string  `db:"category"`
}

type strategyRow struct {
	ID          string `db:"id"`
	ProfileID   string `db:"profile_id"`
	Kind        string `db:"kind"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Source      string `db:"source"`
	CreatedAt   string `db:"created_at"`
}

type reportRow struct {
	ID        string `db:"id"`
	ProfileID string `db:"profile_id"`
	Title     string `db:"title"`
	Markdown  string `db:"markdown"`
	CreatedAt string `db:"created_at"`
}

const profileColumns = "id, name, industry, description, vision, mission, core_values, target_market, phase, created_at, updated_at"

// inTx runs fn in one transaction and commits when it returns nil.
func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ListProfiles(ctx context.Context) ([]project.Profile, error) {
	var rows []profileRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT "+profileColumns+" FROM profiles ORDER BY created_at, id"); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	out := make([]project.Profile, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.profile())
	}
	return out, nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (project.Profile, error) {
	row, err := getProfile(ctx, s.db, id)
	if err != nil {
		return project.Profile{}, err
	}
	return row.profile(), nil
}

func getProfile(ctx context.Context, q sqlx.ExtContext, id string) (profileRow, error) {
	var row profileRow
	err := sqlx.GetContext(ctx, q, &row, q.Rebind("SELECT "+profileColumns+" FROM profiles WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return profileRow{}, fmt.Errorf("profile %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return profileRow{}, fmt.Errorf("load profile: %w", err)
	}
	return row, nil
}

// CreateProfile inserts a new profile in the SWOT phase.
func (s *Store) CreateProfile(ctx context.Context, p project.Profile) error {
	return insertProfile(ctx, s.db, p, project.PhaseSwot)
}

func insertProfile(ctx context.Context, q sqlx.ExtContext, p project.Profile, phase project.Phase) error {
	if p.ID == "" {
		return errors.New("create profile: id is required")
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	_, err := q.ExecContext(ctx, q.Rebind(
		"INSERT INTO profiles ("+profileColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"),
		p.ID, p.Name, p.Industry, p.Description, p.Vision, p.Mission, p.CoreValues, p.TargetMarket,
		string(phase), formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// UpdateProfile rewrites the descriptive fields of an existing profile. The
// phase is left alone.
func (s *Store) UpdateProfile(ctx context.Context, p project.Profile) error {
	return updateProfile(ctx, s.db, p, "")
}

// updateProfile also moves the phase when one is given.
func updateProfile(ctx context.Context, q sqlx.ExtContext, p project.Profile, phase project.Phase) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	query := "UPDATE profiles SET name = ?, industry = ?, description = ?, vision = ?, mission = ?, core_values = ?, target_market = ?, updated_at = ?"
	args := []any{p.Name, p.Industry, p.Description, p.Vision, p.Mission, p.CoreValues, p.TargetMarket, formatTime(p.UpdatedAt)}
	if phase != "" {
		query += ", phase = ?"
		args = append(args, string(phase))
	}
	res, err := q.ExecContext(ctx, q.Rebind(query+" WHERE id = ?"), append(args, p.ID)...)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("profile %q: %w", p.ID, ErrNotFound)
	}
	return nil
}

// DeleteProfile removes a profile and everything that belongs to it.
func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM profiles WHERE id = ?"), id)
		if err != nil {
			return fmt.Errorf("delete profile: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("profile %q: %w", id, ErrNotFound)
		}
		for _, table := range []string{"swot_items", "matrix_factors", "strategies", "reports"} {
			if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM "+table+" WHERE profile_id = ?"), id); err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}
		return nil
	})
}

// requireProfile turns a missing parent profile into ErrNotFound.
func requireProfile(ctx context.Context, q sqlx.ExtContext, id string) error {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, q.Rebind("SELECT COUNT(*) FROM profiles WHERE id = ?"), id); err != nil {
		return fmt.Errorf("check profile: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("profile %q: %w", id, ErrNotFound)
	}
	return nil
}

// nextPosition is one past the last position used in table for a profile.
func nextPosition(ctx context.Context, q sqlx.ExtContext, table, profileID string) (int, error) {
	var next int
	err := sqlx.GetContext(ctx, q, &next, q.Rebind("SELECT COALESCE(MAX(position) + 1, 0) FROM "+table+" WHERE profile_id = ?"), profileID)
	if err != nil {
		return 0, fmt.Errorf("next %s position: %w", table, err)
	}
	return next, nil
}

func (s *Store) ListSwotItems(ctx context.Context, profileID string) ([]strategy.SwotItem, error) {
	return listSwotItems(ctx, s.db, profileID)
}

func listSwotItems(ctx context.Context, q sqlx.ExtContext, profileID string) ([]strategy.SwotItem, error) {
	var rows []swotRow
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(
		"SELECT id, category, description, significance FROM swot_items WHERE profile_id = ? ORDER BY position"), profileID); err != nil {
		return nil, fmt.Errorf("load swot items: %w", err)
	}
	out := make([]strategy.SwotItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, strategy.SwotItem{
			ID:           r.ID,
			Category:     strategy.Category(r.Category),
			Description:  r.Description,
			Significance: r.Significance,
		})
	}
	return out, nil
}

// AddSwotItem appends one item to a profile's inventory.
func (s *Store) AddSwotItem(ctx context.Context, profileID string, it strategy.SwotItem) error {
	if it.ID == "" {
		return errors.New("add swot item: id is required")
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireProfile(ctx, tx, profileID); err != nil {
			return err
		}
		pos, err := nextPosition(ctx, tx, "swot_items", profileID)
		if err != nil {
			return err
		}
		return insertSwotItem(ctx, tx, profileID, pos, it)
	})
}

func insertSwotItem(ctx context.Context, q sqlx.ExtContext, profileID string, pos int, it strategy.SwotItem) error {
	_, err := q.ExecContext(ctx, q.Rebind(
		"INSERT INTO swot_items (profile_id, id, position, category, description, significance) VALUES (?, ?, ?, ?, ?, ?)"),
		profileID, it.ID, pos, string(it.Category), it.Description, it.Significance)
	if err != nil {
		return fmt.Errorf("save swot item %q: %w", it.ID, err)
	}
	return nil
}

func (s *Store) DeleteSwotItem(ctx context.Context, profileID, id string) error {
	return deleteRow(ctx, s.db, "swot_items", profileID, id)
}

func deleteRow(ctx context.Context, q sqlx.ExtContext, table, profileID, id string) error {
	res, err := q.ExecContext(ctx, q.Rebind("DELETE FROM "+table+" WHERE profile_id = ? AND id = ?"), profileID, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s %q: %w", table, id, ErrNotFound)
	}
	return nil
}

// ListFactors returns one matrix in collection order.
func (s *Store) ListFactors(ctx context.Context, profileID string, m strategy.MatrixType) ([]strategy.Factor, error) {
	return listFactors(ctx, s.db, profileID, m)
}

func listFactors(ctx context.Context, q sqlx.ExtContext, profileID string, m strategy.MatrixType) ([]strategy.Factor, error) {
	var rows []factorRow
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(
		"SELECT id, matrix, description, weight, rating, category FROM matrix_factors WHERE profile_id = ? AND matrix = ? ORDER BY position"),
		profileID, string(m)); err != nil {
		return nil, fmt.Errorf("load %s factors: %w", m, err)
	}
	out := make([]strategy.Factor, 0, len(rows))
	for _, r := range rows {
		out = append(out, strategy.Factor{
			ID:          r.ID,
			Description: r.Description,
			Weight:      r.Weight,
			Rating:      r.Rating,
			Category:    strategy.Category(r.Category),
		})
	}
	return out, nil
}

// ReplaceFactors swaps a whole matrix in one transaction. Nothing is written
// unless every factor passes validation and carries an ID.
func (s *Store) ReplaceFactors(ctx context.Context, profileID string, m strategy.MatrixType, factors []strategy.Factor) error {
	valid, err := strategy.ValidateFactors(m, factors)
	if err != nil {
		return err
	}
	for i, f := range valid {
		if f.ID == "" {
			return fmt.Errorf("factor %d: id is required", i)
		}
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireProfile(ctx, tx, profileID); err != nil {
			return err
		}
		return replaceFactors(ctx, tx, profileID, m, valid)
	})
}

func replaceFactors(ctx context.Context, q sqlx.ExtContext, profileID string, m strategy.MatrixType, factors []strategy.Factor) error {
	if _, err := q.ExecContext(ctx, q.Rebind("DELETE FROM matrix_factors WHERE profile_id = ? AND matrix = ?"), profileID, string(m)); err != nil {
		return fmt.Errorf("clear %s factors: %w", m, err)
	}
	insert := q.Rebind("INSERT INTO matrix_factors (profile_id, matrix, id, position, description, weight, rating, category) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	for i, f := range factors {
		if _, err := q.ExecContext(ctx, insert, profileID, string(m), f.ID, i, f.Description, f.Weight, f.Rating, string(f.Category)); err != nil {
			return fmt.Errorf("save %s factor %q: %w", m, f.ID, err)
		}
	}
	return nil
}

func (s *Store) ListStrategies(ctx context.Context, profileID string) ([]project.Strategy, error) {
	return listStrategies(ctx, s.db, profileID)
}

func listStrategies(ctx context.Context, q sqlx.ExtContext, profileID string) ([]project.Strategy, error) {
	var rows []strategyRow
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(
		"SELECT id, profile_id, kind, title, description, source, created_at FROM strategies WHERE profile_id = ? ORDER BY position"), profileID); err != nil {
		return nil, fmt.Errorf("load strategies: %w", err)
	}
	out := make([]project.Strategy, 0, len(rows))
	for _, r := range rows {
		out = append(out, project.Strategy{
			ID:          r.ID,
			ProfileID:   r.ProfileID,
			Kind:        project.StrategyKind(r.Kind),
			Title:       r.Title,
			Description: r.Description,
			Source:      project.StrategySource(r.Source),
			CreatedAt:   parseTime(r.CreatedAt),
		})
	}
	return out, nil
}

// AddStrategy appends a validated strategy to its profile.
func (s *Store) AddStrategy(ctx context.Context, st project.Strategy) error {
	if st.ID == "" || st.ProfileID == "" {
		return errors.New("add strategy: id and profile id are required")
	}
	if err := project.ValidateStrategy(st); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireProfile(ctx, tx, st.ProfileID); err != nil {
			return err
		}
		pos, err := nextPosition(ctx, tx, "strategies", st.ProfileID)
		if err != nil {
			return err
		}
		return insertStrategy(ctx, tx, pos, st)
	})
}

func insertStrategy(ctx context.Context, q sqlx.ExtContext, pos int, st project.Strategy) error {
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	if st.Source == "" {
		st.Source = project.SourceManual
	}
	_, err := q.ExecContext(ctx, q.Rebind(
		"INSERT INTO strategies (id, profile_id, kind, title, description, source, position, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"),
		st.ID, st.ProfileID, string(st.Kind), st.Title, st.Description, string(st.Source), pos, formatTime(st.CreatedAt))
	if err != nil {
		return fmt.Errorf("save strategy %q: %w", st.ID, err)
	}
	return nil
}

func (s *Store) DeleteStrategy(ctx context.Context, profileID, id string) error {
	return deleteRow(ctx, s.db, "strategies", profileID, id)
}

// LoadProject reads a whole project in collection order.
func (s *Store) LoadProject(ctx context.Context, profileID string) (project.Snapshot, error) {
	prow, err := getProfile(ctx, s.db, profileID)
	if err != nil {
		return project.Snapshot{}, err
	}
	snap := project.Snapshot{
		Version: project.SchemaVersion,
		Profile: prow.profile(),
		Phase:   project.Phase(prow.Phase),
	}
	if snap.SwotItems, err = listSwotItems(ctx, s.db, profileID); err != nil {
		return project.Snapshot{}, err
	}
	if snap.IFE, err = listFactors(ctx, s.db, profileID, strategy.MatrixIFE); err != nil {
		return project.Snapshot{}, err
	}
	if snap.EFE, err = listFactors(ctx, s.db, profileID, strategy.MatrixEFE); err != nil {
		return project.Snapshot{}, err
	}
	if snap.Strategies, err = listStrategies(ctx, s.db, profileID); err != nil {
		return project.Snapshot{}, err
	}
	return snap, nil
}

// SaveProject writes a whole project in one transaction, replacing the SWOT
// items, factors and strategies stored for the profile. Reports are kept.
func (s *Store) SaveProject(ctx context.Context, snap project.Snapshot) error {
	p := snap.Profile
	if p.ID == "" {
		return errors.New("save project: profile id is required")
	}
	phase := snap.Phase
	if phase == "" {
		phase = project.PhaseSwot
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		err := requireProfile(ctx, tx, p.ID)
		switch {
		case errors.Is(err, ErrNotFound):
			err = insertProfile(ctx, tx, p, phase)
		case err == nil:
			err = updateProfile(ctx, tx, p, phase)
		}
		if err != nil {
			return err
		}

		for _, table := range []string{"swot_items", "strategies"} {
			if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM "+table+" WHERE profile_id = ?"), p.ID); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		for i, it := range snap.SwotItems {
			if err := insertSwotItem(ctx, tx, p.ID, i, it); err != nil {
				return err
			}
		}
		for _, m := range []strategy.MatrixType{strategy.MatrixIFE, strategy.MatrixEFE} {
			if err := replaceFactors(ctx, tx, p.ID, m, snap.Factors(m)); err != nil {
				return err
			}
		}
		for i, st := range snap.Strategies {
			st.ProfileID = p.ID
			if err := insertStrategy(ctx, tx, i, st); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) CreateReport(ctx context.Context, r project.Report) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		"INSERT INTO reports (id, profile_id, title, markdown, created_at) VALUES (?, ?, ?, ?, ?)"),
		r.ID, r.ProfileID, r.Title, r.Markdown, formatTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

func (s *Store) GetReport(ctx context.Context, profileID, id string) (project.Report, error) {
	var row reportRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(
		"SELECT id, profile_id, title, markdown, created_at FROM reports WHERE profile_id = ? AND id = ?"), profileID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return project.Report{}, fmt.Errorf("report %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return project.Report{}, fmt.Errorf("get report: %w", err)
	}
	return row.report(), nil
}

// ListReports returns report metadata newest first. Markdown bodies are not
// loaded.
func (s *Store) ListReports(ctx context.Context, profileID string) ([]project.Report, error) {
	var rows []reportRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		"SELECT id, profile_id, title, '' AS markdown, created_at FROM reports WHERE profile_id = ? ORDER BY created_at DESC, id"), profileID); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	out := make([]project.Report, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.report())
	}
	return out, nil
}

func (r reportRow) report() project.Report {
	return project.Report{
		ID:        r.ID,
		ProfileID: r.ProfileID,
		Title:     r.Title,
		Markdown:  r.Markdown,
		CreatedAt: parseTime(r.CreatedAt),
	}
}

// timeLayout is fixed width so text timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
