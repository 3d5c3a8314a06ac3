package web

import (
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/casesync/internal/core"
	"github.com/JonMunkholm/casesync/internal/logging"
	"github.com/JonMunkholm/casesync/internal/web/templates"
)

// previewRows is the number of data rows echoed back after parsing.
const previewRows = 5

// fileResponse describes a stashed file.
type fileResponse struct {
	FileID          string            `json:"fileId"`
	FileName        string            `json:"fileName"`
	Headers         []string          `json:"headers"`
	Mapping         core.FieldMapping `json:"mapping"`
	MappingComplete bool              `json:"mappingComplete"`
	RowCount        int               `json:"rowCount"`
	Preview         []core.RawRow     `json:"preview"`
	ExpiresAt       time.Time         `json:"expiresAt"`
}

func (s *Server) toFileResponse(f *core.StashedFile) fileResponse {
	return fileResponse{
		FileID:          f.ID,
		FileName:        f.FileName,
		Headers:         f.Headers,
		Mapping:         f.Mapping,
		MappingComplete: f.Mapping.Complete(),
		RowCount:        len(f.Rows),
		Preview:         f.Rows[:min(previewRows, len(f.Rows))],
		ExpiresAt:       f.StoredAt.Add(s.fileTTL()),
	}
}

func (s *Server) fileTTL() time.Duration {
	if s.cfg.Upload.FileTTL > 0 {
		return s.cfg.Upload.FileTTL
	}
	return core.DefaultFileTTL
}

// parseUpload reads the multipart "file" field, parses it and stashes the rows.
// Optional form fields: encoding (WHATWG label) and delimiter.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (*core.StashedFile, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		return nil, errFileTooBig
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errNoFile
	}
	defer file.Close()

	delim, err := core.ParseDelimiter(r.FormValue("delimiter"))
	if err != nil {
		return nil, err
	}

	parsed, err := core.ParseCSV(file, core.ParseOptions{
		Delimiter: delim,
		Encoding:  r.FormValue("encoding"),
	})
	if err != nil {
		return nil, err
	}

	f := s.stash.Put(header.Filename, parsed)
	logging.FromContext(r.Context()).Info("file parsed",
		"file_id", f.ID,
		"file_name", f.FileName,
		"rows", len(f.Rows),
		"bytes", parsed.Bytes,
		"mapping_complete", f.Mapping.Complete(),
	)
	return f, nil
}

// handleParse parses an uploaded CSV and keeps it for processing.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSONStatus(w, http.StatusCreated, s.toFileResponse(f))
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.stash.Get(chi.URLParam(r, "fileID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, s.toFileResponse(f))
}

func (s *Server) handleDiscardFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "fileID")
	if _, err := s.stash.Get(id); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	s.stash.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, templates.UploadPage(nil))
}

// handleUploadForm is the browser version of handleParse. It answers with
// the mapping page.
func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	s.renderMapping(w, r, f, f.Mapping, nil, http.StatusOK)
}

// renderMapping shows the mapping page for f, preselecting mapping.
func (s *Server) renderMapping(w http.ResponseWriter, r *http.Request, f *core.StashedFile, mapping core.FieldMapping, alert templ.Component, status int) {
	view := templates.MappingView{
		FileID:   f.ID,
		FileName: f.FileName,
		Headers:  f.Headers,
		RowCount: len(f.Rows),
		Mapping:  mapping,
		Preview:  f.Rows[:min(previewRows, len(f.Rows))],
	}
	if s.presets != nil {
		matches, err := s.presets.Match(r.Context(), f.Headers)
		if err != nil {
			logging.FromContext(r.Context()).Warn("preset match failed", "error", err)
		}
		view.Matches = matches
	}
	s.renderPage(w, r, status, templates.MappingPage(view, alert))
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}
