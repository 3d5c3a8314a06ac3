package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/casesync/internal/core"
)

type createPresetRequest struct {
	Name       string            `json:"name"`
	Mapping    core.FieldMapping `json:"mapping"`
	CSVHeaders []string          `json:"csvHeaders"`
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	if s.presets == nil {
		s.respondError(w, r, errNoPresets, 0)
		return
	}
	presets, err := s.presets.List(r.Context())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, presets)
}

// handleMatchPresets scores saved presets against ?headers=a,b,c.
func (s *Server) handleMatchPresets(w http.ResponseWriter, r *http.Request) {
	if s.presets == nil {
		s.respondError(w, r, errNoPresets, 0)
		return
	}
	matches, err := s.presets.Match(r.Context(), splitHeaders(r.URL.Query().Get("headers")))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, matches)
}

func (s *Server) handleCreatePreset(w http.ResponseWriter, r *http.Request) {
	if s.presets == nil {
		s.respondError(w, r, errNoPresets, 0)
		return
	}

	var req createPresetRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	preset, err := s.presets.Create(r.Context(), req.Name, req.Mapping, req.CSVHeaders)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSONStatus(w, http.StatusCreated, preset)
}

func (s *Server) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	if s.presets == nil {
		s.respondError(w, r, errNoPresets, 0)
		return
	}
	if err := s.presets.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
