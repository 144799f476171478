package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"newsmonitor/internal/analysiscache"
	"newsmonitor/internal/analyzer"
	"newsmonitor/internal/config"
	"newsmonitor/internal/core"
	"newsmonitor/internal/ingest"
	"newsmonitor/internal/mediabias"
	"newsmonitor/internal/metrics"
	"newsmonitor/internal/monitor"
	"newsmonitor/internal/persistence"
	"newsmonitor/internal/prompts"
	"newsmonitor/internal/relevance"
	"newsmonitor/internal/scrape"
	"newsmonitor/internal/search"
	"newsmonitor/internal/tasks"
	"newsmonitor/internal/vectorstore"
)

// --- fake persistence.Database (trimmed to what the handlers touch) ---

type fakeArticleRepo struct {
	byURI map[string]*core.Article
}

func (r *fakeArticleRepo) Upsert(_ context.Context, a *core.Article) error {
	r.byURI[a.URI] = a
	return nil
}
func (r *fakeArticleRepo) Get(_ context.Context, uri string) (*core.Article, error) {
	if a, ok := r.byURI[uri]; ok {
		return a, nil
	}
	return nil, core.NewError("articles.Get", core.ErrKindNotFound, errNotFound)
}
func (r *fakeArticleRepo) List(context.Context, persistence.ListOptions) ([]core.Article, error) {
	out := make([]core.Article, 0, len(r.byURI))
	for _, a := range r.byURI {
		out = append(out, *a)
	}
	return out, nil
}
func (r *fakeArticleRepo) Delete(context.Context, string) error { return nil }
func (r *fakeArticleRepo) GetRecent(context.Context, time.Time, int) ([]core.Article, error) {
	return nil, nil
}
func (r *fakeArticleRepo) ListUningestedWithUnreadAlerts(context.Context, int) ([]core.Article, error) {
	return nil, nil
}

type fakeRawArticleRepo struct{}

func (fakeRawArticleRepo) Upsert(context.Context, *core.RawArticle) error { return nil }
func (fakeRawArticleRepo) Get(context.Context, string) (*core.RawArticle, error) {
	return nil, core.NewError("raw.Get", core.ErrKindNotFound, errNotFound)
}

type fakeKeywordGroupRepo struct{}

func (fakeKeywordGroupRepo) Create(context.Context, *core.KeywordGroup) error { return nil }
func (fakeKeywordGroupRepo) Get(context.Context, int64) (*core.KeywordGroup, error) {
	return nil, core.NewError("groups.Get", core.ErrKindNotFound, errNotFound)
}
func (fakeKeywordGroupRepo) List(context.Context) ([]core.KeywordGroup, error) { return nil, nil }

type fakeKeywordRepo struct {
	keywords []core.Keyword
}

func (r *fakeKeywordRepo) Create(context.Context, *core.Keyword) error { return nil }
func (r *fakeKeywordRepo) ListEnabled(_ context.Context, groupID int64) ([]core.Keyword, error) {
	var out []core.Keyword
	for _, k := range r.keywords {
		if groupID == 0 || k.GroupID == groupID {
			out = append(out, k)
		}
	}
	return out, nil
}
func (r *fakeKeywordRepo) UpdateLastChecked(context.Context, int64, time.Time) error { return nil }

type fakeAlertRepo struct {
	alerts []core.Alert
	marked map[int64]bool
}

func (r *fakeAlertRepo) Insert(context.Context, string, int64) (bool, error)   { return true, nil }
func (r *fakeAlertRepo) ListUnread(context.Context, int) ([]core.Alert, error) { return nil, nil }
func (r *fakeAlertRepo) List(_ context.Context, showRead bool) ([]core.Alert, error) {
	return r.alerts, nil
}
func (r *fakeAlertRepo) MarkRead(_ context.Context, id int64, read bool) error {
	if r.marked == nil {
		r.marked = map[int64]bool{}
	}
	r.marked[id] = read
	return nil
}
func (r *fakeAlertRepo) TrendCounts(context.Context, time.Time) (map[string]map[string]int, error) {
	return map[string]map[string]int{}, nil
}

type fakeMediaBiasRepo struct{}

func (fakeMediaBiasRepo) GetBySource(context.Context, string) (*core.MediaBiasSource, error) {
	return nil, core.NewError("mediabias.Get", core.ErrKindNotFound, errNotFound)
}
func (fakeMediaBiasRepo) Enable(context.Context, int64) error                 { return nil }
func (fakeMediaBiasRepo) Upsert(context.Context, *core.MediaBiasSource) error { return nil }
func (fakeMediaBiasRepo) Search(context.Context, string, int) ([]core.MediaBiasSource, error) {
	return nil, nil
}

type fakeSettingsRepo struct {
	settings core.KeywordMonitorSettings
	status   core.KeywordMonitorStatus
}

func (r *fakeSettingsRepo) GetMonitorSettings(context.Context) (*core.KeywordMonitorSettings, error) {
	s := r.settings
	return &s, nil
}
func (r *fakeSettingsRepo) SaveMonitorSettings(_ context.Context, s *core.KeywordMonitorSettings) error {
	r.settings = *s
	return nil
}
func (r *fakeSettingsRepo) GetMonitorStatus(context.Context) (*core.KeywordMonitorStatus, error) {
	s := r.status
	return &s, nil
}
func (r *fakeSettingsRepo) SaveMonitorStatus(_ context.Context, s *core.KeywordMonitorStatus) error {
	r.status = *s
	return nil
}
func (r *fakeSettingsRepo) IncrementRequestsToday(context.Context) (int, error) { return 1, nil }

type fakeDB struct {
	articles *fakeArticleRepo
	keywords *fakeKeywordRepo
	alerts   *fakeAlertRepo
	settings *fakeSettingsRepo
}

func (d *fakeDB) Articles() persistence.ArticleRepository           { return d.articles }
func (d *fakeDB) RawArticles() persistence.RawArticleRepository     { return fakeRawArticleRepo{} }
func (d *fakeDB) KeywordGroups() persistence.KeywordGroupRepository { return fakeKeywordGroupRepo{} }
func (d *fakeDB) Keywords() persistence.KeywordRepository           { return d.keywords }
func (d *fakeDB) Alerts() persistence.AlertRepository               { return d.alerts }
func (d *fakeDB) MediaBias() persistence.MediaBiasRepository        { return fakeMediaBiasRepo{} }
func (d *fakeDB) Settings() persistence.SettingsRepository          { return d.settings }
func (d *fakeDB) Ping(context.Context) error                        { return nil }
func (d *fakeDB) Close() error                                      { return nil }

var errNotFound = errors.New("not found")

func newTestCache(t *testing.T) (*analysiscache.Cache, error) {
	t.Helper()
	return analysiscache.New(t.TempDir(), time.Hour)
}

// --- fake search provider/resolver ---

type fakeResolver struct{ provider search.Provider }

func (r *fakeResolver) Resolve(string) (search.Provider, error) { return r.provider, nil }

type fakeProvider struct{ results []search.Result }

func (p *fakeProvider) Name() string { return "fake" }
func (p *fakeProvider) Search(context.Context, string, search.Config) ([]search.Result, error) {
	return p.results, nil
}

// --- fake LLM generator (shared by analyzer/relevance/quality) ---

type fakeGenerator struct{}

func (fakeGenerator) Generate(context.Context, []core.PromptMessage) (string, error) {
	return "", context.Canceled // forces graceful all-zero fallbacks, never panics
}
func (fakeGenerator) ModelName() string { return "fake-model" }

// --- fake vector store ---

type fakeVectorStore struct{}

func (fakeVectorStore) Upsert(context.Context, *core.Article, string) error { return nil }
func (fakeVectorStore) Search(context.Context, string, vectorstore.SearchQuery) ([]vectorstore.SearchResult, error) {
	return nil, nil
}
func (fakeVectorStore) Similar(context.Context, string, int) ([]vectorstore.SearchResult, error) {
	return nil, nil
}
func (fakeVectorStore) GetByMetadata(context.Context, map[string]any, int) ([]vectorstore.SearchResult, error) {
	return nil, nil
}
func (fakeVectorStore) Delete(context.Context, string) error { return nil }
func (fakeVectorStore) Project(context.Context, []string) (*vectorstore.ClusterProjection, error) {
	return nil, nil
}
func (fakeVectorStore) Stats(context.Context) (vectorstore.Stats, error) {
	return vectorstore.Stats{}, nil
}

func newTestServer(t *testing.T) (*Server, *fakeDB) {
	t.Helper()

	db := &fakeDB{
		articles: &fakeArticleRepo{byURI: map[string]*core.Article{}},
		keywords: &fakeKeywordRepo{keywords: []core.Keyword{{ID: 1, GroupID: 1, Keyword: "llm"}}},
		alerts:   &fakeAlertRepo{},
		settings: &fakeSettingsRepo{settings: core.DefaultKeywordMonitorSettings()},
	}

	mon := monitor.New(db, &fakeResolver{provider: &fakeProvider{}})

	promptRegistry := prompts.NewRegistry()
	cache, err := newTestCache(t)
	if err != nil {
		t.Fatalf("build analysis cache: %v", err)
	}

	az := analyzer.New(fakeGenerator{}, promptRegistry, cache)
	rel := relevance.New(fakeGenerator{}, promptRegistry)
	quality := ingest.NewQualityReview(fakeGenerator{}, promptRegistry)
	bias := mediabias.New(fakeMediaBiasRepo{})
	batcher := scrape.NewBatcher(nil, scrape.NewFetcher(nil))
	vectors := vectorstore.NewAsync(fakeVectorStore{}, 1)

	pipeline := ingest.New(db, bias, batcher, az, rel, quality, vectors)
	taskManager := tasks.New(2)
	reg := metrics.New()
	factory := &search.ProviderFactory{}

	cfg := config.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.ReadTimeout = 5 * time.Second
	cfg.Server.WriteTimeout = 5 * time.Second
	cfg.Monitor.ManualTriggerThreshold = 5

	srv := New(db, cfg, mon, pipeline, rel, taskManager, reg, factory)
	return srv, db
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandleGetSettingsRoundTrips(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/keyword-monitor/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandlePostSettingsRejectsBadJSON(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/keyword-monitor/settings", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleCheckNowInlineBelowThreshold(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/keyword-monitor/check-now", checkNowRequest{GroupID: 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, hasTaskID := resp["task_id"]; hasTaskID {
		t.Errorf("expected an inline result, not a deferred task, for a group below the threshold")
	}
}

func TestHandleCheckNowDefersAboveThreshold(t *testing.T) {
	srv, db := newTestServer(t)
	for i := 2; i <= 10; i++ {
		db.keywords.keywords = append(db.keywords.keywords, core.Keyword{ID: int64(i), GroupID: 1, Keyword: "x"})
	}

	rec := doRequest(t, srv, http.MethodPost, "/api/keyword-monitor/check-now", checkNowRequest{GroupID: 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := resp["task_id"]; !ok {
		t.Errorf("expected a deferred task_id once the group's keyword count exceeds the threshold")
	}
}

func TestHandleListAlertsAndMarkRead(t *testing.T) {
	srv, db := newTestServer(t)
	db.alerts.alerts = []core.Alert{{ID: 5}}

	rec := doRequest(t, srv, http.MethodGet, "/api/keyword-monitor/alerts", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/keyword-monitor/alerts/5/read", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !db.alerts.marked[5] {
		t.Errorf("expected alert 5 to be marked read")
	}
}

func TestHandleAutoIngestToggle(t *testing.T) {
	srv, db := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/auto-ingest/enable", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !db.settings.settings.AutoIngestEnabled {
		t.Errorf("expected auto_ingest_enabled to be set true")
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/auto-ingest/disable", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if db.settings.settings.AutoIngestEnabled {
		t.Errorf("expected auto_ingest_enabled to be set false")
	}
}

func TestHandleBulkSaveCreatesTask(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/background-tasks/bulk-save", bulkSaveRequest{
		Articles: []core.Article{{URI: "https://example.com/a"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	taskID, _ := resp["task_id"].(string)
	if taskID == "" {
		t.Fatalf("expected a task_id in the response")
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/background-tasks/task/"+taskID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching the task, got %d", rec.Code)
	}
}

func TestHandleGetTaskNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/background-tasks/task/does-not-exist", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
