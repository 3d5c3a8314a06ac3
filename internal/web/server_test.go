package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/casesync/internal/config"
	"github.com/JonMunkholm/casesync/internal/core"
	"github.com/JonMunkholm/casesync/internal/metrics"
	"github.com/JonMunkholm/casesync/internal/shiphero"
)

const (
	goodAccessToken  = "good-access"
	goodRefreshToken = "good-refresh"
)

// newFakeShipHero serves the GraphQL and auth endpoints. Products with SKU
// "BAD" are rejected with a GraphQL error.
func newFakeShipHero(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+goodAccessToken {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"unauthorized"}`))
			return
		}
		var body struct {
			Variables struct {
				Data struct {
					SKU string `json:"sku"`
				} `json:"data"`
			} `json:"variables"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		if body.Variables.Data.SKU == "BAD" {
			w.Write([]byte(`{"errors":[{"message":"product not found","code":6}]}`))
			return
		}
		w.Write([]byte(`{"data":{"product_update":{"request_id":"r1"}}}`))
	})

	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		if body.RefreshToken != goodRefreshToken {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_grant","error_description":"Refresh token expired"}`))
			return
		}
		w.Write([]byte(`{"access_token":"` + goodAccessToken + `","refresh_token":"next-refresh","expires_in":2419200}`))
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

// memPresets is an in-memory core.PresetStore.
type memPresets struct {
	mu      sync.Mutex
	presets []core.MappingPreset
	nextID  int
}

func (m *memPresets) CreatePreset(ctx context.Context, p core.MappingPreset) (*core.MappingPreset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.presets {
		if existing.Name == p.Name {
			return nil, core.ErrPresetExists
		}
	}
	m.nextID++
	p.ID = "p" + string(rune('0'+m.nextID))
	p.CreatedAt = time.Now()
	m.presets = append(m.presets, p)
	return &p, nil
}

func (m *memPresets) ListPresets(ctx context.Context) ([]core.MappingPreset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.MappingPreset{}, m.presets...), nil
}

func (m *memPresets) DeletePreset(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.presets {
		if p.ID == id {
			m.presets = append(m.presets[:i], m.presets[i+1:]...)
			return nil
		}
	}
	return core.ErrPresetNotFound
}

// memHistory is a core.RunRecorder and RunHistory.
type memHistory struct {
	mu   sync.Mutex
	runs []core.RunRecord
}

func (h *memHistory) RecordRun(ctx context.Context, rec core.RunRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append([]core.RunRecord{rec}, h.runs...)
	return nil
}

func (h *memHistory) RecentRuns(ctx context.Context, limit int) ([]core.RunRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runs[:min(limit, len(h.runs))], nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0, RequestTimeout: 5 * time.Second},
		Upload: config.UploadConfig{MaxFileSize: 1 << 20, FileTTL: time.Minute},
	}
}

type testEnv struct {
	server  *Server
	history *memHistory
	stash   *core.FileStash
}

func newTestEnv(t *testing.T, cfg *config.Config, opts ...Option) *testEnv {
	t.Helper()
	sh := newFakeShipHero(t)
	client := shiphero.NewClient(
		shiphero.WithAPIURL(sh.URL+"/graphql"),
		shiphero.WithAuthURL(sh.URL+"/auth/refresh"),
	)

	history := &memHistory{}
	service := core.NewService(client,
		core.WithPacer(core.NoDelay{}),
		core.WithLimiter(core.NewProcessLimiter(2, time.Second)),
		core.WithRecorder(history),
	)
	stash := core.NewFileStash(time.Minute)

	opts = append([]Option{WithHistory(history), WithPresets(core.NewPresets(&memPresets{}))}, opts...)
	return &testEnv{
		server:  NewServer(cfg, service, client, stash, opts...),
		history: history,
		stash:   stash,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, target, fileName, content string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return v
}

var testMapping = map[string]string{"sku": "SKU", "caseBarcode": "Barcode", "caseQuantity": "Qty"}

func TestProcessCSV_Success(t *testing.T) {
	env := newTestEnv(t, testConfig())

	req := jsonRequest(http.MethodPost, "/api/process-csv", map[string]any{
		"data": []map[string]any{
			{"SKU": "A1", "Barcode": "111", "Qty": "6"},
			{"SKU": "BAD", "Barcode": "222", "Qty": 12},
			{"SKU": "", "Barcode": "333", "Qty": "1"},
		},
		"mapping":   testMapping,
		"accountId": "acct-1",
	})
	req.Header.Set("Authorization", "Bearer "+goodAccessToken)
	rec := env.do(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[core.ProcessingResult](t, rec)
	if got.SuccessCount != 1 || got.ErrorCount != 2 || got.TotalProcessed != 2 {
		t.Errorf("result = %+v, want 1 success, 2 errors, 2 processed", got)
	}
	wantErrs := []string{
		"Row 4: Missing required fields (SKU: empty, Case Barcode: 333, Case Quantity: 1)",
		"Row 3 (SKU: BAD): product not found",
	}
	if len(got.Errors) != len(wantErrs) {
		t.Fatalf("errors = %q, want %q", got.Errors, wantErrs)
	}
	for i := range wantErrs {
		if got.Errors[i] != wantErrs[i] {
			t.Errorf("errors[%d] = %q, want %q", i, got.Errors[i], wantErrs[i])
		}
	}

	if len(env.history.runs) != 1 || env.history.runs[0].AccountID != "acct-1" {
		t.Errorf("recorded runs = %+v, want one run for acct-1", env.history.runs)
	}
}

func TestProcessCSV_FatalErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		token      string
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing data",
			body:       map[string]any{"mapping": testMapping},
			token:      goodAccessToken,
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing required data or mapping",
		},
		{
			name:       "missing mapping",
			body:       map[string]any{"data": []map[string]any{}},
			token:      goodAccessToken,
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing required data or mapping",
		},
		{
			name:       "missing token",
			body:       map[string]any{"data": []map[string]any{{"SKU": "A"}}, "mapping": testMapping},
			wantStatus: http.StatusUnauthorized,
			wantError:  "No access token provided",
		},
		{
			name:       "no valid products",
			body:       map[string]any{"data": []map[string]any{{"SKU": "A", "Barcode": "1", "Qty": "0"}}, "mapping": testMapping},
			token:      goodAccessToken,
			wantStatus: http.StatusBadRequest,
			wantError:  "No valid products to process",
		},
		{
			name:       "incomplete mapping",
			body:       map[string]any{"data": []map[string]any{}, "mapping": map[string]string{"sku": "SKU"}},
			token:      goodAccessToken,
			wantStatus: http.StatusBadRequest,
			wantError:  "Not every column is mapped",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, testConfig())
			req := jsonRequest(http.MethodPost, "/api/process-csv", tt.body)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := env.do(req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			got := decodeBody[ErrorResponse](t, rec)
			if got.Error != tt.wantError {
				t.Errorf("error = %q, want %q", got.Error, tt.wantError)
			}
		})
	}
}

func TestProcessCSV_InvalidJSON(t *testing.T) {
	env := newTestEnv(t, testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/process-csv", strings.NewReader("{not json"))
	rec := env.do(req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestParseThenProcessFile(t *testing.T) {
	env := newTestEnv(t, testConfig())

	csv := "SKU,Case Barcode,Case Quantity\nA1,111,6\nA2,222,12\n"
	rec := env.do(multipartRequest(t, "/api/parse", "cases.csv", csv, nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("parse status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}
	parsed := decodeBody[fileResponse](t, rec)

	wantMapping := core.FieldMapping{SKU: "SKU", CaseBarcode: "Case Barcode", CaseQuantity: "Case Quantity"}
	if parsed.Mapping != wantMapping {
		t.Errorf("mapping = %+v, want %+v", parsed.Mapping, wantMapping)
	}
	if !parsed.MappingComplete || parsed.RowCount != 2 || len(parsed.Preview) != 2 {
		t.Errorf("parse response = %+v", parsed)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/files/"+parsed.FileID+"/process", nil)
	req.Header.Set("Authorization", "Bearer "+goodAccessToken)
	rec = env.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("process status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[core.ProcessingResult](t, rec)
	if got.SuccessCount != 2 || got.ErrorCount != 0 {
		t.Errorf("result = %+v, want 2 successes", got)
	}
	if env.history.runs[0].FileName != "cases.csv" {
		t.Errorf("recorded file name = %q, want cases.csv", env.history.runs[0].FileName)
	}

	rec = env.do(httptest.NewRequest(http.MethodDelete, "/api/files/"+parsed.FileID, nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("discard status = %d, want 204", rec.Code)
	}
	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/files/"+parsed.FileID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after discard status = %d, want 404", rec.Code)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name       string
		fileName   string
		content    string
		fields     map[string]string
		wantStatus int
		wantCode   string
	}{
		{"no file", "", "", nil, http.StatusBadRequest, "CSV004"},
		{"ragged row", "bad.csv", "a,b\n1,2,3\n", nil, http.StatusBadRequest, "CSV002"},
		{"unknown encoding", "x.csv", "a\n1\n", map[string]string{"encoding": "klingon"}, http.StatusBadRequest, "CSV001"},
		{"bad delimiter", "x.csv", "a\n1\n", map[string]string{"delimiter": "::"}, http.StatusBadRequest, "CSV002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, testConfig())
			rec := env.do(multipartRequest(t, "/api/parse", tt.fileName, tt.content, tt.fields))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := decodeBody[ErrorResponse](t, rec); got.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestParse_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 64
	env := newTestEnv(t, cfg)

	rec := env.do(multipartRequest(t, "/api/parse", "big.csv", strings.Repeat("a,b\n", 100), nil))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestProcessFile_UnknownID(t *testing.T) {
	env := newTestEnv(t, testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/files/nope/process", nil)
	req.Header.Set("Authorization", "Bearer "+goodAccessToken)

	rec := env.do(req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRefreshToken(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		check      func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:       "success echoes account",
			body:       map[string]any{"refreshToken": goodRefreshToken, "accountId": "acct-9"},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				got := decodeBody[refreshResponse](t, rec)
				if got.AccessToken != goodAccessToken || got.RefreshToken != "next-refresh" || got.ExpiresIn != 2419200 {
					t.Errorf("response = %+v", got)
				}
				if got.AccountID == nil || *got.AccountID != "acct-9" {
					t.Errorf("accountId = %v, want acct-9", got.AccountID)
				}
				if got.ExpiresAt == nil {
					t.Errorf("expiresAt missing")
				}
			},
		},
		{
			name:       "success without account",
			body:       map[string]any{"refreshToken": goodRefreshToken},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				if !strings.Contains(rec.Body.String(), `"accountId":null`) {
					t.Errorf("body = %s, want accountId null", rec.Body.String())
				}
			},
		},
		{
			name:       "upstream rejects",
			body:       map[string]any{"refreshToken": "stale"},
			wantStatus: http.StatusUnauthorized,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				got := decodeBody[ErrorResponse](t, rec)
				if got.Error != "Refresh token expired" {
					t.Errorf("error = %q, want upstream reason", got.Error)
				}
				if got.Code != "AUTH003" {
					t.Errorf("code = %q, want AUTH003", got.Code)
				}
			},
		},
		{
			name:       "missing token",
			body:       map[string]any{},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				if got := decodeBody[ErrorResponse](t, rec); got.Error != "Refresh token is required" {
					t.Errorf("error = %q, want %q", got.Error, "Refresh token is required")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, testConfig())
			rec := env.do(jsonRequest(http.MethodPost, "/api/shiphero/auth/refresh", tt.body))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			tt.check(t, rec)
		})
	}
}

func TestPresets(t *testing.T) {
	env := newTestEnv(t, testConfig())
	headers := []string{"SKU", "Barcode", "Qty"}

	create := func(name string) *httptest.ResponseRecorder {
		return env.do(jsonRequest(http.MethodPost, "/api/presets", map[string]any{
			"name":       name,
			"mapping":    testMapping,
			"csvHeaders": headers,
		}))
	}

	rec := create("warehouse export")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}
	preset := decodeBody[core.MappingPreset](t, rec)

	if rec := create("warehouse export"); rec.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rec.Code)
	}
	if rec := create("  "); rec.Code != http.StatusBadRequest {
		t.Errorf("unnamed status = %d, want 400", rec.Code)
	}

	q := url.Values{"headers": {"sku, barcode,qty,extra"}}
	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/presets/match?"+q.Encode(), nil))
	matches := decodeBody[[]core.PresetMatch](t, rec)
	if len(matches) != 1 || matches[0].MatchScore != 1 {
		t.Errorf("matches = %+v, want one full match", matches)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/presets/match?headers=other", nil))
	if got := decodeBody[[]core.PresetMatch](t, rec); len(got) != 0 {
		t.Errorf("unrelated matches = %+v, want none", got)
	}

	rec = env.do(httptest.NewRequest(http.MethodDelete, "/api/presets/"+preset.ID, nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
	rec = env.do(httptest.NewRequest(http.MethodDelete, "/api/presets/"+preset.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestOptionalRoutesUnavailable(t *testing.T) {
	sh := newFakeShipHero(t)
	client := shiphero.NewClient(shiphero.WithAPIURL(sh.URL + "/graphql"))
	srv := NewServer(testConfig(), core.NewService(client), client, core.NewFileStash(time.Minute))

	for _, path := range []string{"/api/history", "/api/presets"} {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s status = %d, want 503", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/limiter", nil))
	if got := decodeBody[limiterResponse](t, rec); got.Enabled {
		t.Errorf("limiter enabled = true, want false")
	}
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.history.RecordRun(context.Background(), core.RunRecord{ID: "r1", Status: core.RunCompleted, SuccessCount: 3, Duration: 1500 * time.Millisecond})
	env.history.RecordRun(context.Background(), core.RunRecord{ID: "r2", Status: core.RunRejected, Error: "no valid products to process"})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/history?limit=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	runs := decodeBody[[]runResponse](t, rec)
	if len(runs) != 1 || runs[0].ID != "r2" || runs[0].Status != "rejected" {
		t.Errorf("runs = %+v, want newest rejected run", runs)
	}
	if runs[0].Errors == nil {
		t.Errorf("errors = nil, want empty list")
	}
}

func TestLimiterAndHealth(t *testing.T) {
	env := newTestEnv(t, testConfig())

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/limiter", nil))
	got := decodeBody[limiterResponse](t, rec)
	if !got.Enabled || got.MaxConcurrent != 2 || got.Available != 2 {
		t.Errorf("limiter = %+v, want enabled with 2 free slots", got)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}
	if h := decodeBody[healthResponse](t, rec); h.Status != "ok" {
		t.Errorf("health = %+v", h)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return context.DeadlineExceeded }

func TestHealth_Degraded(t *testing.T) {
	env := newTestEnv(t, testConfig(), WithPinger(failingPinger{}))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHTMLFlow(t *testing.T) {
	env := newTestEnv(t, testConfig())

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `action="/upload"`) {
		t.Fatalf("upload page status = %d", rec.Code)
	}

	csv := "SKU,Barcode,Qty\nA1,111,6\n"
	rec = env.do(multipartRequest(t, "/upload", "cases.csv", csv, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if env.stash.Len() != 1 {
		t.Fatalf("stash len = %d, want 1", env.stash.Len())
	}

	var fileID string
	body := rec.Body.String()
	if i := strings.Index(body, `action="/files/`); i >= 0 {
		rest := body[i+len(`action="/files/`):]
		fileID = rest[:strings.Index(rest, "/")]
	}
	if fileID == "" {
		t.Fatalf("mapping page has no process form: %s", body)
	}

	submit := func(form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/files/"+fileID+"/process", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return env.do(req)
	}

	form := url.Values{"sku": {"SKU"}, "caseBarcode": {"Barcode"}, "caseQuantity": {"Qty"}}
	rec = submit(form)
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "AUTH001") {
		t.Errorf("no token: status = %d, want 401 with AUTH001", rec.Code)
	}

	form.Set("refreshToken", goodRefreshToken)
	rec = submit(form)
	if rec.Code != http.StatusOK {
		t.Fatalf("process status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "1 of 1 products updated, 0 errors") {
		t.Errorf("result page = %s", rec.Body.String())
	}
}

func TestHTMLUpload_HeaderOnlyShowsNoColumns(t *testing.T) {
	env := newTestEnv(t, testConfig())

	rec := env.do(multipartRequest(t, "/upload", "cases.csv", "SKU,Barcode,Qty\n", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "No columns found") {
		t.Errorf("body missing empty-headers notice: %s", body)
	}
	if strings.Contains(body, `action="/files/`) {
		t.Errorf("header-only file offered a process form: %s", body)
	}
}

func TestHTMLUpload_ErrorRendersPage(t *testing.T) {
	env := newTestEnv(t, testConfig())

	rec := env.do(multipartRequest(t, "/upload", "", "", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q, want html", ct)
	}
	if !strings.Contains(rec.Body.String(), "CSV004") {
		t.Errorf("body missing error code")
	}
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	env := newTestEnv(t, cfg)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/limiter", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("without key status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/limiter", nil)
	req.Header.Set("X-API-Key", "secret")
	if rec := env.do(req); rec.Code != http.StatusOK {
		t.Errorf("with key status = %d, want 200", rec.Code)
	}

	if rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 2}
	env := newTestEnv(t, cfg)
	t.Cleanup(func() { env.server.Shutdown(context.Background()) })

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code
	}
	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d status = %d, want %d", i+1, codes[i], want[i])
		}
	}
}

func TestMetricsRoute(t *testing.T) {
	env := newTestEnv(t, testConfig(), WithMetrics(metrics.New()))

	env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	rec := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `route="/healthz"`) {
		t.Errorf("metrics missing /healthz route label")
	}
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, testConfig())
	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy", "Cache-Control"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("header %s not set", h)
		}
	}
}
