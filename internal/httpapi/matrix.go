package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/joelkehle/strategy-workbench/internal/project"
	"github.com/joelkehle/strategy-workbench/internal/session"
	"github.com/joelkehle/strategy-workbench/internal/strategy"
)

// factorPayload takes the rating as a float so that 2.5 is rejected as an
// invalid rating rather than as malformed JSON.
type factorPayload struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
	Rating      float64 `json:"rating"`
	Category    string  `json:"category"`
}

func (p factorPayload) factor() (strategy.Factor, error) {
	rating, err := strategy.ValidateRating(p.Rating)
	if err != nil {
		return strategy.Factor{}, err
	}
	return strategy.Factor{
		ID:          p.ID,
		Description: p.Description,
		Weight:      p.Weight,
		Rating:      rating,
		Category:    strategy.Category(p.Category),
	}, nil
}

// candidate is a raw edit value. JSON numbers and strings are both kept as
// text and parsed by the validator.
type candidate struct {
	value string
}

func (c *candidate) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &c.value)
	}
	c.value = string(b)
	return nil
}

type factorEdit struct {
	Description *candidate `json:"description"`
	Weight      *candidate `json:"weight"`
	Rating      *candidate `json:"rating"`
}

func (e factorEdit) check() error {
	if e.Description == nil && e.Weight == nil && e.Rating == nil {
		return invalidf("nothing to change: send description, weight or rating")
	}
	if e.Description != nil {
		if _, err := strategy.ValidateDescription(e.Description.value); err != nil {
			return err
		}
	}
	if e.Weight != nil {
		if _, err := strategy.ParseWeight(e.Weight.value); err != nil {
			return err
		}
	}
	if e.Rating != nil {
		if _, err := strategy.ParseRating(e.Rating.value); err != nil {
			return err
		}
	}
	return nil
}

func matrixParam(r *http.Request) (strategy.MatrixType, error) {
	return strategy.ParseMatrixType(r.PathValue("matrix"))
}

func (s *Server) handleBeginMatrix(w http.ResponseWriter, r *http.Request) {
	var d strategy.Derivation
	sess, err := s.update(r, func(sess *session.Session) error {
		var err error
		d, err = sess.BeginMatrixAnalysis()
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "derivation": d, "analysis": sess.Analysis()})
}

func (s *Server) handleRederive(w http.ResponseWriter, r *http.Request) {
	var d strategy.Derivation
	sess, err := s.update(r, func(sess *session.Session) error {
		d = sess.RederiveFactors()
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "derivation": d, "analysis": sess.Analysis()})
}

func (s *Server) handleGetMatrix(w http.ResponseWriter, r *http.Request) {
	m, err := matrixParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary := strategy.Summarize(m, sess.Factors(m))
	var warning any
	if summary.Warning != nil {
		warning = summary.Warning.Error()
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "matrix": summary, "warning": warning})
}

func (s *Server) handleAddFactor(w http.ResponseWriter, r *http.Request) {
	m, err := matrixParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var p factorPayload
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	f, err := p.factor()
	if err != nil {
		writeError(w, r, err)
		return
	}
	var added strategy.Factor
	sess, err := s.update(r, func(sess *session.Session) error {
		var err error
		added, err = sess.AddFactor(m, f)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "factor": added, "analysis": sess.Analysis()})
}

func (s *Server) handleReplaceFactors(w http.ResponseWriter, r *http.Request) {
	m, err := matrixParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		Factors []factorPayload `json:"factors"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	factors := make([]strategy.Factor, 0, len(body.Factors))
	for i, p := range body.Factors {
		f, err := p.factor()
		if err != nil {
			writeError(w, r, fmt.Errorf("factor %d: %w", i, err))
			return
		}
		factors = append(factors, f)
	}
	var replaced []strategy.Factor
	sess, err := s.update(r, func(sess *session.Session) error {
		var err error
		replaced, err = sess.ReplaceFactors(m, factors)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "factors": replaced, "analysis": sess.Analysis()})
}

// handleEditFactor applies description, weight and rating edits together.
// All candidates are checked first so a rejected value leaves the factor
// untouched; the unchanged factor is returned with the error.
func (s *Server) handleEditFactor(w http.ResponseWriter, r *http.Request) {
	m, err := matrixParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id := r.PathValue("factor")
	var edit factorEdit
	if err := decodeJSON(r, &edit); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	current, ok := findFactor(sess.Factors(m), id)
	if !ok {
		writeError(w, r, fmt.Errorf("factor %q: %w", id, project.ErrNotFound))
		return
	}
	if err := edit.check(); err != nil {
		writeErrorWith(w, r, err, map[string]any{"factor": current})
		return
	}

	var updated strategy.Factor
	sess, err = s.update(r, func(sess *session.Session) error {
		var err error
		if edit.Description != nil {
			if updated, err = sess.SetDescription(m, id, edit.Description.value); err != nil {
				return err
			}
		}
		if edit.Weight != nil {
			if updated, err = sess.SetWeight(m, id, edit.Weight.value); err != nil {
				return err
			}
		}
		if edit.Rating != nil {
			if updated, err = sess.SetRating(m, id, edit.Rating.value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		writeErrorWith(w, r, err, map[string]any{"factor": current})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "factor": updated, "analysis": sess.Analysis()})
}

func (s *Server) handleRemoveFactor(w http.ResponseWriter, r *http.Request) {
	m, err := matrixParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id := r.PathValue("factor")
	sess, err := s.update(r, func(sess *session.Session) error {
		return sess.RemoveFactor(m, id)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "analysis": sess.Analysis()})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "analysis": sess.Analysis()})
}

func findFactor(factors []strategy.Factor, id string) (strategy.Factor, bool) {
	for _, f := range factors {
		if f.ID == id {
			return f, true
		}
	}
	return strategy.Factor{}, false
}
