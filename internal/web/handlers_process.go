package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/casesync/internal/core"
	"github.com/JonMunkholm/casesync/internal/web/templates"
)

// processCSVRequest is the body of POST /api/process-csv.
type processCSVRequest struct {
	Data      []map[string]any   `json:"data"`
	Mapping   *core.FieldMapping `json:"mapping"`
	AccountID string             `json:"accountId"`
	FileName  string             `json:"fileName"`
}

// handleProcessCSV runs the pipeline over rows sent in the body. The access
// token comes from "Authorization: Bearer".
func (s *Server) handleProcessCSV(w http.ResponseWriter, r *http.Request) {
	var req processCSVRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if req.Data == nil || req.Mapping == nil {
		s.respondError(w, r, core.ErrMissingData, http.StatusBadRequest)
		return
	}

	result, err := s.service.Process(withRequestMetadata(r.Context(), r), core.ProcessRequest{
		Rows:    toRawRows(req.Data),
		Mapping: *req.Mapping,
		Credential: core.Credential{
			AccessToken: bearerToken(r),
			AccountID:   req.AccountID,
		},
		FileName: req.FileName,
	})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, result)
}

// processFileRequest is the optional body of POST /api/files/{fileID}/process.
// Without a mapping the one detected at parse time is used.
type processFileRequest struct {
	Mapping   *core.FieldMapping `json:"mapping"`
	AccountID string             `json:"accountId"`
}

// handleProcessFile runs the pipeline over a stashed file.
func (s *Server) handleProcessFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.stash.Get(chi.URLParam(r, "fileID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	var req processFileRequest
	if err := s.decodeJSON(w, r, &req, true); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	mapping := f.Mapping
	if req.Mapping != nil {
		mapping = *req.Mapping
	}

	result, err := s.service.Process(withRequestMetadata(r.Context(), r), core.ProcessRequest{
		Rows:    f.Rows,
		Mapping: mapping,
		Credential: core.Credential{
			AccessToken: bearerToken(r),
			AccountID:   req.AccountID,
		},
		FileName: f.FileName,
	})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, result)
}

// handleProcessForm is the browser submit of the mapping page. A refresh
// token is exchanged first when no access token was entered.
func (s *Server) handleProcessForm(w http.ResponseWriter, r *http.Request) {
	f, err := s.stash.Get(chi.URLParam(r, "fileID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, errInvalidJSON, http.StatusBadRequest)
		return
	}

	mapping := core.FieldMapping{
		SKU:          r.PostForm.Get("sku"),
		CaseBarcode:  r.PostForm.Get("caseBarcode"),
		CaseQuantity: r.PostForm.Get("caseQuantity"),
	}

	token, err := s.formAccessToken(r.Context(), r)
	if err == nil {
		var result *core.ProcessingResult
		result, err = s.service.Process(withRequestMetadata(r.Context(), r), core.ProcessRequest{
			Rows:    f.Rows,
			Mapping: mapping,
			Credential: core.Credential{
				AccessToken: token,
				AccountID:   strings.TrimSpace(r.PostForm.Get("accountId")),
			},
			FileName: f.FileName,
		})
		if err == nil {
			s.renderPage(w, r, http.StatusOK, templates.ResultPage(f.FileName, result))
			return
		}
	}

	// Mapping and credential problems go back to the mapping page.
	status := statusFor(err)
	msg := core.MapError(err)
	logRequestError(r, err, status, msg.Code)
	s.renderMapping(w, r, f, mapping, templates.ErrorAlert(msg.Message, msg.Action, msg.Code), status)
}

func (s *Server) formAccessToken(ctx context.Context, r *http.Request) (string, error) {
	if tok := strings.TrimSpace(r.PostForm.Get("accessToken")); tok != "" {
		return tok, nil
	}
	rt := strings.TrimSpace(r.PostForm.Get("refreshToken"))
	if rt == "" {
		return "", core.ErrMissingCredential
	}
	tok, err := s.auth.RefreshToken(ctx, rt)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}
