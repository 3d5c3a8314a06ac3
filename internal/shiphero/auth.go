package shiphero

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingRefreshToken is returned before any network call when the
// refresh token is empty.
var ErrMissingRefreshToken = errors.New("refresh token is required")

// Token is the result of a refresh-token exchange.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"` // seconds

	issuedAt time.Time
}

// ExpiresAt returns when the access token expires. ExpiresIn is used when
// the upstream sent it; otherwise the token's exp claim is read without
// verifying the signature. The zero time means unknown.
func (t *Token) ExpiresAt() time.Time {
	if t.ExpiresIn > 0 {
		issued := t.issuedAt
		if issued.IsZero() {
			issued = time.Now()
		}
		return issued.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return tokenExpiry(t.AccessToken)
}

// tokenExpiry reads the exp claim of an unverified JWT.
func tokenExpiry(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// AuthError is a rejected refresh-token exchange. Reason is safe to show
// to the user; Status is the upstream HTTP status.
type AuthError struct {
	Status int
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("shiphero auth: %d: %s", e.Status, e.Reason)
}

// RefreshToken exchanges a refresh token for a new access token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	if refreshToken == "" {
		return nil, ErrMissingRefreshToken
	}

	payload, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &AuthError{Status: resp.StatusCode, Reason: authFailureReason(resp.StatusCode, body)}
	}

	tok := &Token{issuedAt: time.Now()}
	if err := json.NewDecoder(resp.Body).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return tok, nil
}

// maxReasonRunes caps the raw body quoted in a non-JSON failure reason.
const maxReasonRunes = 200

// authFailureReason picks error_description, then error, from a JSON body.
// Either field may be any non-empty JSON value; objects and arrays are
// quoted as compact JSON.
func authFailureReason(status int, body []byte) string {
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Sprintf("ShipHero API Error: %d - %s", status, truncateRunes(string(body), maxReasonRunes))
	}
	obj, _ := parsed.(map[string]any)
	for _, key := range []string{"error_description", "error"} {
		if reason, ok := reasonText(obj[key]); ok {
			return reason
		}
	}
	return "Authentication failed"
}

// reasonText renders a JSON value as a reason. Empty strings, zero, false
// and null carry no reason.
func reasonText(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, x != ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), x != 0
	case bool:
		return "true", x
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for j := range s {
		if i == n {
			return s[:j]
		}
		i++
	}
	return s
}
