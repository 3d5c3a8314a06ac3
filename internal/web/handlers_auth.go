package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/JonMunkholm/casesync/internal/core"
	"github.com/JonMunkholm/casesync/internal/shiphero"
)

type refreshRequest struct {
	RefreshToken string  `json:"refreshToken"`
	AccountID    *string `json:"accountId"`
}

// refreshResponse echoes accountId back unchanged, null when absent.
type refreshResponse struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	ExpiresIn    int        `json:"expiresIn"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	AccountID    *string    `json:"accountId"`
}

// handleRefreshToken proxies a refresh-token exchange so the browser never
// talks to the ShipHero auth endpoint directly.
func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := s.decodeJSON(w, r, &req, true); err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	tok, err := s.auth.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		var authErr *shiphero.AuthError
		if errors.As(err, &authErr) {
			// The upstream reason is shown as is, with the upstream status.
			status := statusFor(err)
			msg := core.MapError(err)
			logRequestError(r, err, status, msg.Code)
			writeJSONStatus(w, status, ErrorResponse{
				Error:   authErr.Reason,
				Message: msg.Message,
				Action:  msg.Action,
				Code:    msg.Code,
			})
			return
		}
		s.respondError(w, r, err, 0)
		return
	}

	resp := refreshResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    tok.ExpiresIn,
		AccountID:    req.AccountID,
	}
	if exp := tok.ExpiresAt(); !exp.IsZero() {
		resp.ExpiresAt = &exp
	}
	writeJSON(w, resp)
}
