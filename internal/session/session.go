package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joelkehle/strategy-workbench/internal/project"
	"github.com/joelkehle/strategy-workbench/internal/strategy"
)

var (
	ErrAlreadyDerived = errors.New("matrix analysis has already started; rederive explicitly to discard factor edits")
	ErrNotDerived     = errors.New("matrix analysis has not started")
)

// Session owns one profile's working data. Every mutation goes through a
// validating method and runs under the session lock.
type Session struct {
	mu         sync.Mutex
	profile    project.Profile
	phase      project.Phase
	swot       []strategy.SwotItem
	ife        []strategy.Factor
	efe        []strategy.Factor
	strategies []project.Strategy
}

func New(profile project.Profile) *Session {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = now
	}
	return &Session{profile: profile, phase: project.PhaseSwot}
}

// FromSnapshot builds a session from a previously saved snapshot without
// re-validating it.
func FromSnapshot(snap project.Snapshot) *Session {
	s := &Session{}
	s.restore(snap)
	return s
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile.ID
}

func (s *Session) Profile() project.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// UpdateProfile replaces the descriptive profile fields. ID and CreatedAt are
// kept.
func (s *Session) UpdateProfile(p project.Profile) (project.Profile, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := project.ValidateProfile(p); err != nil {
		return project.Profile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.profile.ID
	p.CreatedAt = s.profile.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.profile = p
	return p, nil
}

func (s *Session) Phase() project.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) SwotItems() []strategy.SwotItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]strategy.SwotItem{}, s.swot...)
}

func (s *Session) AddSwotItem(it strategy.SwotItem) (strategy.SwotItem, error) {
	it, err := normalizeSwotItem(it)
	if err != nil {
		return strategy.SwotItem{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if it.ID == "" {
		it.ID = uuid.NewString()
	} else if s.swotIndex(it.ID) >= 0 {
		return strategy.SwotItem{}, &strategy.Error{Code: strategy.CodeDuplicateID, Message: fmt.Sprintf("duplicate id %q", it.ID)}
	}
	s.swot = append(s.swot, it)
	return it, nil
}

// UpdateSwotItem edits an item in place. Factors already derived from it are
// left alone.
func (s *Session) UpdateSwotItem(it strategy.SwotItem) (strategy.SwotItem, error) {
	it, err := normalizeSwotItem(it)
	if err != nil {
		return strategy.SwotItem{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.swotIndex(it.ID)
	if i < 0 {
		return strategy.SwotItem{}, fmt.Errorf("swot item %q: %w", it.ID, project.ErrNotFound)
	}
	s.swot[i] = it
	return it, nil
}

func (s *Session) RemoveSwotItem(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.swotIndex(id)
	if i < 0 {
		return fmt.Errorf("swot item %q: %w", id, project.ErrNotFound)
	}
	s.swot = append(s.swot[:i], s.swot[i+1:]...)
	return nil
}

func normalizeSwotItem(it strategy.SwotItem) (strategy.SwotItem, error) {
	c, err := strategy.ParseCategory(string(it.Category))
	if err != nil {
		return strategy.SwotItem{}, err
	}
	desc, err := strategy.ValidateDescription(it.Description)
	if err != nil {
		return strategy.SwotItem{}, err
	}
	it.ID = strings.TrimSpace(it.ID)
	it.Category = c
	it.Description = desc
	it.Significance = strings.TrimSpace(it.Significance)
	return it, nil
}

func (s *Session) swotIndex(id string) int {
	for i, it := range s.swot {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// BeginMatrixAnalysis seeds both matrices from the SWOT inventory. It runs
// once; later calls fail with ErrAlreadyDerived so manual edits survive.
func (s *Session) BeginMatrixAnalysis() (strategy.Derivation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == project.PhaseMatrix {
		return strategy.Derivation{}, ErrAlreadyDerived
	}
	return s.derive(), nil
}

// RederiveFactors discards both matrices and seeds them again from the
// current SWOT inventory.
func (s *Session) RederiveFactors() strategy.Derivation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.derive()
}

func (s *Session) derive() strategy.Derivation {
	d := strategy.Derive(s.swot)
	s.ife = strategy.CloneFactors(d.IFE)
	s.efe = strategy.CloneFactors(d.EFE)
	s.phase = project.PhaseMatrix
	return d
}

func (s *Session) Factors(m strategy.MatrixType) []strategy.Factor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := strategy.CloneFactors(*s.matrix(m))
	if out == nil {
		out = []strategy.Factor{}
	}
	return out
}

func (s *Session) matrix(m strategy.MatrixType) *[]strategy.Factor {
	if m == strategy.MatrixEFE {
		return &s.efe
	}
	return &s.ife
}

func (s *Session) factorIndex(m strategy.MatrixType, id string) int {
	for i, f := range *s.matrix(m) {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) AddFactor(m strategy.MatrixType, f strategy.Factor) (strategy.Factor, error) {
	f, err := strategy.ValidateFactor(m, f)
	if err != nil {
		return strategy.Factor{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != project.PhaseMatrix {
		return strategy.Factor{}, ErrNotDerived
	}
	f.ID = strings.TrimSpace(f.ID)
	if f.ID == "" {
		f.ID = uuid.NewString()
	} else if s.factorIndex(m, f.ID) >= 0 {
		return strategy.Factor{}, &strategy.Error{Code: strategy.CodeDuplicateID, Message: fmt.Sprintf("duplicate id %q", f.ID)}
	}
	col := s.matrix(m)
	*col = append(*col, f)
	return f, nil
}

func (s *Session) RemoveFactor(m strategy.MatrixType, id string) error {
	if _, err := strategy.ParseMatrixType(string(m)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.factorIndex(m, id)
	if i < 0 {
		return fmt.Errorf("factor %q: %w", id, project.ErrNotFound)
	}
	col := s.matrix(m)
	*col = append((*col)[:i], (*col)[i+1:]...)
	return nil
}

// SetWeight applies a weight edit. On rejection the returned factor is the
// unchanged current value, alongside the validation error.
func (s *Session) SetWeight(m strategy.MatrixType, id, candidate string) (strategy.Factor, error) {
	return s.edit(m, id, func(f *strategy.Factor) error {
		w, err := strategy.ParseWeight(candidate)
		if err != nil {
			return err
		}
		f.Weight = w
		return nil
	})
}

func (s *Session) SetRating(m strategy.MatrixType, id, candidate string) (strategy.Factor, error) {
	return s.edit(m, id, func(f *strategy.Factor) error {
		r, err := strategy.ParseRating(candidate)
		if err != nil {
			return err
		}
		f.Rating = r
		return nil
	})
}

func (s *Session) SetDescription(m strategy.MatrixType, id, candidate string) (strategy.Factor, error) {
	return s.edit(m, id, func(f *strategy.Factor) error {
		d, err := strategy.ValidateDescription(candidate)
		if err != nil {
			return err
		}
		f.Description = d
		return nil
	})
}

func (s *Session) edit(m strategy.MatrixType, id string, apply func(*strategy.Factor) error) (strategy.Factor, error) {
	if _, err := strategy.ParseMatrixType(string(m)); err != nil {
		return strategy.Factor{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.factorIndex(m, id)
	if i < 0 {
		return strategy.Factor{}, fmt.Errorf("factor %q: %w", id, project.ErrNotFound)
	}
	col := *s.matrix(m)
	candidate := col[i]
	if err := apply(&candidate); err != nil {
		return col[i], err
	}
	col[i] = candidate
	return candidate, nil
}

// ReplaceFactors swaps a whole matrix. Nothing changes unless every factor
// passes validation.
func (s *Session) ReplaceFactors(m strategy.MatrixType, factors []strategy.Factor) ([]strategy.Factor, error) {
	valid, err := strategy.ValidateFactors(m, factors)
	if err != nil {
		return nil, err
	}
	for i := range valid {
		if valid[i].ID == "" {
			valid[i].ID = uuid.NewString()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.matrix(m) = valid
	s.phase = project.PhaseMatrix
	return strategy.CloneFactors(valid), nil
}

func (s *Session) Strategies() []project.Strategy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]project.Strategy{}, s.strategies...)
}

func (s *Session) AddStrategies(in ...project.Strategy) ([]project.Strategy, error) {
	out := make([]project.Strategy, 0, len(in))
	for _, st := range in {
		st.Title = strings.TrimSpace(st.Title)
		if st.Source == "" {
			st.Source = project.SourceManual
		}
		if err := project.ValidateStrategy(st); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = uuid.NewString()
		}
		out[i].ProfileID = s.profile.ID
		if out[i].CreatedAt.IsZero() {
			out[i].CreatedAt = now
		}
	}
	s.strategies = append(s.strategies, out...)
	return out, nil
}

func (s *Session) RemoveStrategy(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, st := range s.strategies {
		if st.ID == id {
			s.strategies = append(s.strategies[:i], s.strategies[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("strategy %q: %w", id, project.ErrNotFound)
}

// Analysis is the scored view of both matrices and the IE position.
type Analysis struct {
	IFE      strategy.MatrixSummary `json:"ife"`
	EFE      strategy.MatrixSummary `json:"efe"`
	Position strategy.Position      `json:"position"`
	Warnings []string               `json:"warnings"`
}

// Analysis recomputes everything from the current factors on every call.
func (s *Session) Analysis() Analysis {
	s.mu.Lock()
	ife := strategy.CloneFactors(s.ife)
	efe := strategy.CloneFactors(s.efe)
	s.mu.Unlock()
	return Analyze(ife, efe)
}

func Analyze(ife, efe []strategy.Factor) Analysis {
	a := Analysis{
		IFE:      strategy.Summarize(strategy.MatrixIFE, ife),
		EFE:      strategy.Summarize(strategy.MatrixEFE, efe),
		Warnings: []string{},
	}
	a.Position = strategy.Classify(a.IFE.Score, a.EFE.Score)
	if a.IFE.Warning != nil {
		a.Warnings = append(a.Warnings, "IFE: "+a.IFE.Warning.Error())
	}
	if a.EFE.Warning != nil {
		a.Warnings = append(a.Warnings, "EFE: "+a.EFE.Warning.Error())
	}
	return a
}

func (s *Session) Snapshot() project.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return project.Snapshot{
		Version:    project.SchemaVersion,
		Profile:    s.profile,
		Phase:      s.phase,
		SwotItems:  append([]strategy.SwotItem{}, s.swot...),
		IFE:        nonNil(s.ife),
		EFE:        nonNil(s.efe),
		Strategies: append([]project.Strategy{}, s.strategies...),
	}
}

// Restore replaces the whole session with a validated snapshot. The profile
// ID is kept so a project file can be loaded into an existing profile.
func (s *Session) Restore(snap project.Snapshot) error {
	if err := project.ValidateSnapshot(snap); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, created := s.profile.ID, s.profile.CreatedAt
	s.restore(snap)
	if id != "" {
		s.profile.ID = id
		s.profile.CreatedAt = created
		for i := range s.strategies {
			s.strategies[i].ProfileID = id
		}
	}
	return nil
}

func (s *Session) restore(snap project.Snapshot) {
	s.profile = snap.Profile
	s.phase = snap.Phase
	if s.phase == "" {
		s.phase = project.PhaseSwot
	}
	s.swot = append([]strategy.SwotItem{}, snap.SwotItems...)
	s.ife = strategy.CloneFactors(snap.IFE)
	s.efe = strategy.CloneFactors(snap.EFE)
	s.strategies = append([]project.Strategy{}, snap.Strategies...)

	// Hand-edited project files may leave IDs blank.
	for i := range s.swot {
		if s.swot[i].ID == "" {
			s.swot[i].ID = uuid.NewString()
		}
	}
	for _, col := range [][]strategy.Factor{s.ife, s.efe} {
		for i := range col {
			if col[i].ID == "" {
				col[i].ID = uuid.NewString()
			}
		}
	}
	for i := range s.strategies {
		if s.strategies[i].ID == "" {
			s.strategies[i].ID = uuid.NewString()
		}
	}
}

func nonNil(in []strategy.Factor) []strategy.Factor {
	out := strategy.CloneFactors(in)
	if out == nil {
		out = []strategy.Factor{}
	}
	return out
}
