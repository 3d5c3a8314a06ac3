package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/casesync/internal/core"
)

// jsonBodyFactor scales UPLOAD_MAX_FILE_SIZE for JSON bodies, which repeat
// every header name once per row.
const jsonBodyFactor = 4

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// bearerToken returns the access token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// decodeJSON decodes a size-limited JSON body into v. An empty body leaves v
// untouched when allowEmpty is set.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize*jsonBodyFactor)

	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return nil
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return errFileTooBig
	case allowEmpty && errors.Is(err, io.EOF):
		return nil
	default:
		return fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
}

// toRawRows converts decoded JSON rows to RawRows. Non-string cells are
// formatted, null becomes empty. A nil input stays nil.
func toRawRows(data []map[string]any) []core.RawRow {
	if data == nil {
		return nil
	}
	rows := make([]core.RawRow, len(data))
	for i, m := range data {
		row := make(core.RawRow, len(m))
		for k, v := range m {
			row[k] = cellString(v)
		}
		rows[i] = row
	}
	return rows
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// splitHeaders parses the comma-separated headers query parameter.
func splitHeaders(v string) []string {
	if strings.TrimSpace(v) == "" {
		return []string{}
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
