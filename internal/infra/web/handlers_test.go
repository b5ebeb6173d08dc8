package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"catalog-console/internal/domain"
	"catalog-console/internal/domain/model"
	red "catalog-console/internal/infra/redis"
	"catalog-console/internal/usecase"
)

// --- Mock use cases (ports) ---

type mockGenUC struct {
	usecase.GenerationUseCase // Embed interface for forward compatibility
	stalled                   bool
	lastJob                   *model.GenerationJob
	ran                       chan usecase.RunParams
}

func (m *mockGenUC) Run(ctx context.Context, params usecase.RunParams) (*model.GenerationJob, error) {
	if m.ran != nil {
		m.ran <- params
	}
	return &model.GenerationJob{ID: "job-1"}, nil
}

func (m *mockGenUC) CheckStalled(ctx context.Context) (bool, error) { return m.stalled, nil }
func (m *mockGenUC) LastJob() *model.GenerationJob                  { return m.lastJob }

type mockDedupUC struct {
	usecase.DedupUseCase
	groups []model.DuplicateGroup
}

func (m *mockDedupUC) ScanStore(ctx context.Context) ([]model.DuplicateGroup, error) {
	return m.groups, nil
}

func (m *mockDedupUC) ScorePairs(items []*model.ContentItem) []model.SimilarityScore {
	return nil
}

type mockResolveUC struct {
	usecase.ResolveUseCase
	cleanup    usecase.CleanupResult
	resolveErr error
	resolved   *model.DuplicateGroup
}

func (m *mockResolveUC) BulkCleanup(ctx context.Context) (usecase.CleanupResult, error) {
	return m.cleanup, nil
}

func (m *mockResolveUC) ResolveGroup(ctx context.Context, group *model.DuplicateGroup, modelName string, rewrite bool) error {
	m.resolved = group
	if m.resolveErr != nil {
		group.State = model.GroupDetected
		return m.resolveErr
	}
	group.State = model.GroupResolved
	return nil
}

type allowAllLimiter struct {
	allow bool
	key   string
}

func (l *allowAllLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.key = key
	return l.allow, nil
}

const testAPIKey = "test-key"

func newTestServer(gen *mockGenUC, dedup *mockDedupUC, resolve *mockResolveUC, limiter LaunchLimiter) *http.ServeMux {
	logger := zerolog.Nop()
	srv := NewServer(gen, dedup, resolve, limiter, 10, testAPIKey, &logger)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	return mux
}

func doReq(mux *http.ServeMux, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	mux := newTestServer(&mockGenUC{}, &mockDedupUC{}, &mockResolveUC{}, nil)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"malformed", "not-a-bearer", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusForbidden},
		{"valid", "Bearer " + testAPIKey, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/duplicates", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestDuplicatesHandlerListsGroups(t *testing.T) {
	dedup := &mockDedupUC{groups: []model.DuplicateGroup{{
		Key:   "save money",
		State: model.GroupDetected,
		Members: []*model.ContentItem{
			{ID: "1", Title: "Save Money"},
			{ID: "2", Title: "save money!", IsDuplicate: true},
		},
	}}}
	mux := newTestServer(&mockGenUC{}, dedup, &mockResolveUC{}, nil)

	rec := doReq(mux, http.MethodGet, "/api/v1/duplicates", testAPIKey, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var views []duplicateGroupView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 1 || views[0].Key != "save money" || len(views[0].Members) != 2 {
		t.Errorf("views = %+v, want one group with two members", views)
	}
	if !views[0].Members[1].IsDuplicate {
		t.Error("persisted flag must survive into the view")
	}
}

func TestCleanupHandlerReportsCounts(t *testing.T) {
	resolve := &mockResolveUC{cleanup: usecase.CleanupResult{Groups: 2, Kept: 2, Deleted: 3}}
	mux := newTestServer(&mockGenUC{}, &mockDedupUC{}, resolve, nil)

	rec := doReq(mux, http.MethodPost, "/api/v1/duplicates/cleanup", testAPIKey, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got struct {
		Groups  int `json:"groups"`
		Deleted int `json:"deleted"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Groups != 2 || got.Deleted != 3 {
		t.Errorf("response = %+v, want groups 2 deleted 3", got)
	}

	if rec := doReq(mux, http.MethodGet, "/api/v1/duplicates/cleanup", testAPIKey, ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}
}

func TestRunHandlerAcceptsAndDetaches(t *testing.T) {
	gen := &mockGenUC{ran: make(chan usecase.RunParams, 1)}
	mux := newTestServer(gen, &mockDedupUC{}, &mockResolveUC{}, &allowAllLimiter{allow: true})

	rec := doReq(mux, http.MethodPost, "/api/v1/generation/run", testAPIKey,
		`{"category_ids":["cat-a","cat-b"],"count":5,"model":"test-model"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	select {
	case params := <-gen.ran:
		if len(params.CategoryIDs) != 2 || params.CountPerCategory != 5 {
			t.Errorf("run params = %+v", params)
		}
	case <-time.After(time.Second):
		t.Fatal("batch was never launched")
	}
}

func TestRunHandlerFailsPreconditionsSynchronously(t *testing.T) {
	gen := &mockGenUC{ran: make(chan usecase.RunParams, 1)}
	mux := newTestServer(gen, &mockDedupUC{}, &mockResolveUC{}, &allowAllLimiter{allow: true})

	if rec := doReq(mux, http.MethodPost, "/api/v1/generation/run", testAPIKey,
		`{"category_ids":[],"count":5}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty categories: status = %d, want 400", rec.Code)
	}
	if rec := doReq(mux, http.MethodPost, "/api/v1/generation/run", testAPIKey,
		`{"category_ids":["cat-a"],"count":0}`); rec.Code != http.StatusBadRequest {
		t.Errorf("zero count: status = %d, want 400", rec.Code)
	}
	select {
	case <-gen.ran:
		t.Error("precondition failure must not launch a batch")
	default:
	}
}

func TestRunHandlerLimiterKeyedByOperator(t *testing.T) {
	limiter := &allowAllLimiter{allow: true}
	gen := &mockGenUC{ran: make(chan usecase.RunParams, 1)}
	mux := newTestServer(gen, &mockDedupUC{}, &mockResolveUC{}, limiter)

	rec := doReq(mux, http.MethodPost, "/api/v1/generation/run", testAPIKey,
		`{"category_ids":["cat-a"],"count":1,"operator":"alice"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if want := red.LaunchKey("alice"); limiter.key != want {
		t.Errorf("limiter key = %q, want %q", limiter.key, want)
	}
	<-gen.ran
}

func TestResolveHandlerResolvesGroup(t *testing.T) {
	dedup := &mockDedupUC{groups: []model.DuplicateGroup{{
		Key:   "save money",
		State: model.GroupDetected,
		Members: []*model.ContentItem{
			{ID: "1", Title: "Save Money"},
			{ID: "2", Title: "save money!"},
		},
	}}}
	resolve := &mockResolveUC{}
	mux := newTestServer(&mockGenUC{}, dedup, resolve, nil)

	rec := doReq(mux, http.MethodPost, "/api/v1/duplicates/resolve", testAPIKey,
		`{"key":"save money","keep_id":"2","rewrite":true,"model":"test-model"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var got struct {
		Key    string `json:"key"`
		State  string `json:"state"`
		KeepID string `json:"keep_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.State != string(model.GroupResolved) || got.KeepID != "2" {
		t.Errorf("response = %+v, want resolved with keep_id 2", got)
	}
	if resolve.resolved == nil || resolve.resolved.KeepID != "2" {
		t.Error("chosen keep id must reach the use case")
	}
}

func TestResolveHandlerUnknownKey(t *testing.T) {
	mux := newTestServer(&mockGenUC{}, &mockDedupUC{}, &mockResolveUC{}, nil)

	rec := doReq(mux, http.MethodPost, "/api/v1/duplicates/resolve", testAPIKey,
		`{"key":"no such group"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if rec := doReq(mux, http.MethodPost, "/api/v1/duplicates/resolve", testAPIKey, `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing key: status = %d, want 400", rec.Code)
	}
}

func TestResolveHandlerReportsPartialResolution(t *testing.T) {
	dedup := &mockDedupUC{groups: []model.DuplicateGroup{{
		Key:     "save money",
		State:   model.GroupDetected,
		Members: []*model.ContentItem{{ID: "1"}, {ID: "2"}},
	}}}
	resolve := &mockResolveUC{resolveErr: domain.ErrPartialResolution}
	mux := newTestServer(&mockGenUC{}, dedup, resolve, nil)

	rec := doReq(mux, http.MethodPost, "/api/v1/duplicates/resolve", testAPIKey,
		`{"key":"save money"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var got struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.State != string(model.GroupDetected) {
		t.Errorf("state = %q, want the group dropped back to detected", got.State)
	}
}

func TestRunHandlerRateLimited(t *testing.T) {
	mux := newTestServer(&mockGenUC{}, &mockDedupUC{}, &mockResolveUC{}, &allowAllLimiter{allow: false})

	rec := doReq(mux, http.MethodPost, "/api/v1/generation/run", testAPIKey,
		`{"category_ids":["cat-a"],"count":1}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}

func TestStatusHandlerWarnsOnStalledMarker(t *testing.T) {
	gen := &mockGenUC{stalled: true, lastJob: &model.GenerationJob{ID: "job-9"}}
	mux := newTestServer(gen, &mockDedupUC{}, &mockResolveUC{}, nil)

	rec := doReq(mux, http.MethodGet, "/api/v1/generation/status", testAPIKey, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got struct {
		InProgress bool   `json:"in_progress"`
		Warning    string `json:"warning"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.InProgress || got.Warning == "" {
		t.Errorf("response = %+v, want in_progress with warning", got)
	}
}

func TestHealthEndpointUnauthenticated(t *testing.T) {
	mux := newTestServer(&mockGenUC{}, &mockDedupUC{}, &mockResolveUC{}, nil)
	if rec := doReq(mux, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200 without auth", rec.Code)
	}
}
