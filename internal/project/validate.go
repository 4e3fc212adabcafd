package project

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/joelkehle/strategy-workbench/internal/strategy"
)

var validate = validator.New()

// ErrNotFound is returned by repositories and sessions for a missing record.
var ErrNotFound = errors.New("not found")

// ValidationError lists every failed field of a record.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid record: " + strings.Join(e.Fields, "; ")
}

func ValidateProfile(p Profile) error {
	p.Name = strings.TrimSpace(p.Name)
	return validateStruct(p)
}

func ValidateStrategy(s Strategy) error {
	s.Title = strings.TrimSpace(s.Title)
	return validateStruct(s)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return out
}

// ValidateSnapshot checks a snapshot loaded from outside the process before
// it replaces a session.
func ValidateSnapshot(s Snapshot) error {
	if s.Version > SchemaVersion {
		return fmt.Errorf("project version %d is newer than supported version %d", s.Version, SchemaVersion)
	}
	if err := ValidateProfile(s.Profile); err != nil {
		return err
	}
	switch s.Phase {
	case PhaseSwot, PhaseMatrix, "":
	default:
		return fmt.Errorf("unknown phase %q", s.Phase)
	}
	swotIDs := make(map[string]bool, len(s.SwotItems))
	for i, it := range s.SwotItems {
		if err := claimID(swotIDs, it.ID); err != nil {
			return fmt.Errorf("swot item %d: %w", i, err)
		}
		if _, err := strategy.ParseCategory(string(it.Category)); err != nil {
			return fmt.Errorf("swot item %d: %w", i, err)
		}
		if _, err := strategy.ValidateDescription(it.Description); err != nil {
			return fmt.Errorf("swot item %d: %w", i, err)
		}
	}
	if _, err := strategy.ValidateFactors(strategy.MatrixIFE, s.IFE); err != nil {
		return fmt.Errorf("ife: %w", err)
	}
	if _, err := strategy.ValidateFactors(strategy.MatrixEFE, s.EFE); err != nil {
		return fmt.Errorf("efe: %w", err)
	}
	strategyIDs := make(map[string]bool, len(s.Strategies))
	for i, st := range s.Strategies {
		if err := claimID(strategyIDs, st.ID); err != nil {
			return fmt.Errorf("strategy %d: %w", i, err)
		}
		if err := ValidateStrategy(st); err != nil {
			return fmt.Errorf("strategy %d: %w", i, err)
		}
	}
	return nil
}

// claimID records id in seen and rejects a repeat. Blank IDs are assigned
// when the snapshot is loaded, so they never collide here.
func claimID(seen map[string]bool, id string) error {
	if id == "" {
		return nil
	}
	if seen[id] {
		return &strategy.Error{Code: strategy.CodeDuplicateID, Message: fmt.Sprintf("duplicate id %q", id)}
	}
	seen[id] = true
	return nil
}
