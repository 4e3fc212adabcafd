package httpapi

import (
	"context"
	"net/http"

	"github.com/joelkehle/strategy-workbench/internal/project"
	"github.com/joelkehle/strategy-workbench/internal/session"
	"github.com/joelkehle/strategy-workbench/internal/strategy"
)

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.catalog.ListProfiles(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if profiles == nil {
		profiles = []project.Profile{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "profiles": profiles})
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var p project.Profile
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	p.ID = ""
	sess, err := s.sessions.Create(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "profile": sess.Profile(), "phase": sess.Phase()})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "profile": sess.Profile(), "phase": sess.Phase()})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var p project.Profile
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	var updated project.Profile
	_, err := s.update(r, func(sess *session.Session) error {
		var err error
		updated, err = sess.UpdateProfile(p)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "profile": updated})
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.sessions.Delete(r.Context(), id, func(ctx context.Context) error {
		return s.catalog.DeleteProfile(ctx, id)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleListSwot(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "swot_items": sess.SwotItems()})
}

func (s *Server) handleAddSwot(w http.ResponseWriter, r *http.Request) {
	var it strategy.SwotItem
	if err := decodeJSON(r, &it); err != nil {
		writeError(w, r, err)
		return
	}
	var added strategy.SwotItem
	_, err := s.update(r, func(sess *session.Session) error {
		var err error
		added, err = sess.AddSwotItem(it)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "swot_item": added})
}

func (s *Server) handleUpdateSwot(w http.ResponseWriter, r *http.Request) {
	var it strategy.SwotItem
	if err := decodeJSON(r, &it); err != nil {
		writeError(w, r, err)
		return
	}
	it.ID = r.PathValue("item")
	var updated strategy.SwotItem
	_, err := s.update(r, func(sess *session.Session) error {
		var err error
		updated, err = sess.UpdateSwotItem(it)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "swot_item": updated})
}

func (s *Server) handleRemoveSwot(w http.ResponseWriter, r *http.Request) {
	item := r.PathValue("item")
	_, err := s.update(r, func(sess *session.Session) error {
		return sess.RemoveSwotItem(item)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
