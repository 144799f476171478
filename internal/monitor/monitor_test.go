package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"newsmonitor/internal/core"
	"newsmonitor/internal/persistence"
	"newsmonitor/internal/search"
)

// --- fake persistence.Database ---

type fakeArticleRepo struct {
	byURI map[string]*core.Article
}

func (r *fakeArticleRepo) Upsert(_ context.Context, a *core.Article) error {
	if r.byURI == nil {
		r.byURI = map[string]*core.Article{}
	}
	r.byURI[a.URI] = a
	return nil
}
func (r *fakeArticleRepo) Get(_ context.Context, uri string) (*core.Article, error) {
	if a, ok := r.byURI[uri]; ok {
		return a, nil
	}
	return nil, core.NewError("articles.Get", core.ErrKindNotFound, errors.New("not found"))
}
func (r *fakeArticleRepo) List(context.Context, persistence.ListOptions) ([]core.Article, error) {
	return nil, nil
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
	return nil, core.NewError("raw.Get", core.ErrKindNotFound, errors.New("not found"))
}

type fakeKeywordGroupRepo struct {
	groups map[int64]*core.KeywordGroup
}

func (r *fakeKeywordGroupRepo) Create(context.Context, *core.KeywordGroup) error { return nil }
func (r *fakeKeywordGroupRepo) Get(_ context.Context, id int64) (*core.KeywordGroup, error) {
	if g, ok := r.groups[id]; ok {
		return g, nil
	}
	return nil, core.NewError("groups.Get", core.ErrKindNotFound, errors.New("not found"))
}
func (r *fakeKeywordGroupRepo) List(context.Context) ([]core.KeywordGroup, error) { return nil, nil }

type fakeKeywordRepo struct {
	keywords         []core.Keyword
	lastCheckedCalls int
}

func (r *fakeKeywordRepo) Create(context.Context, *core.Keyword) error { return nil }
func (r *fakeKeywordRepo) ListEnabled(_ context.Context, groupID int64) ([]core.Keyword, error) {
	if groupID == 0 {
		return r.keywords, nil
	}
	var out []core.Keyword
	for _, k := range r.keywords {
		if k.GroupID == groupID {
			out = append(out, k)
		}
	}
	return out, nil
}
func (r *fakeKeywordRepo) UpdateLastChecked(context.Context, int64, time.Time) error {
	r.lastCheckedCalls++
	return nil
}

type fakeAlertRepo struct {
	inserted map[string]bool
}

func (r *fakeAlertRepo) Insert(_ context.Context, articleURI string, keywordID int64) (bool, error) {
	if r.inserted == nil {
		r.inserted = map[string]bool{}
	}
	key := articleURI
	if r.inserted[key] {
		return false, nil
	}
	r.inserted[key] = true
	return true, nil
}
func (r *fakeAlertRepo) ListUnread(context.Context, int) ([]core.Alert, error) { return nil, nil }
func (r *fakeAlertRepo) List(context.Context, bool) ([]core.Alert, error)      { return nil, nil }
func (r *fakeAlertRepo) MarkRead(context.Context, int64, bool) error           { return nil }
func (r *fakeAlertRepo) TrendCounts(context.Context, time.Time) (map[string]map[string]int, error) {
	return nil, nil
}

type fakeMediaBiasRepo struct{}

func (fakeMediaBiasRepo) GetBySource(context.Context, string) (*core.MediaBiasSource, error) {
	return nil, core.NewError("mediabias.Get", core.ErrKindNotFound, errors.New("not found"))
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
	groups   *fakeKeywordGroupRepo
	keywords *fakeKeywordRepo
	alerts   *fakeAlertRepo
	settings *fakeSettingsRepo
}

func (d *fakeDB) Articles() persistence.ArticleRepository           { return d.articles }
func (d *fakeDB) RawArticles() persistence.RawArticleRepository     { return fakeRawArticleRepo{} }
func (d *fakeDB) KeywordGroups() persistence.KeywordGroupRepository { return d.groups }
func (d *fakeDB) Keywords() persistence.KeywordRepository           { return d.keywords }
func (d *fakeDB) Alerts() persistence.AlertRepository               { return d.alerts }
func (d *fakeDB) MediaBias() persistence.MediaBiasRepository        { return fakeMediaBiasRepo{} }
func (d *fakeDB) Settings() persistence.SettingsRepository          { return d.settings }
func (d *fakeDB) Ping(context.Context) error                        { return nil }
func (d *fakeDB) Close() error                                      { return nil }

// --- fake resolver / provider ---

type fakeResolver struct {
	provider search.Provider
	err      error
}

func (r *fakeResolver) Resolve(string) (search.Provider, error) { return r.provider, r.err }

type fakeProvider struct {
	results []search.Result
	err     error
	calls   int
}

func (p *fakeProvider) Name() string { return "fake" }
func (p *fakeProvider) Search(context.Context, string, search.Config) ([]search.Result, error) {
	p.calls++
	return p.results, p.err
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		articles: &fakeArticleRepo{byURI: map[string]*core.Article{}},
		groups:   &fakeKeywordGroupRepo{groups: map[int64]*core.KeywordGroup{1: {ID: 1, Name: "g1", Topic: "AI"}}},
		keywords: &fakeKeywordRepo{keywords: []core.Keyword{{ID: 10, GroupID: 1, Keyword: "llm"}}},
		alerts:   &fakeAlertRepo{},
		settings: &fakeSettingsRepo{settings: core.KeywordMonitorSettings{Provider: "mock", PageSize: 5}},
	}
}

func TestTickInsertsNewArticleAndAlert(t *testing.T) {
	db := newFakeDB()
	provider := &fakeProvider{results: []search.Result{{URL: "https://example.com/a", Title: "A"}}}
	m := New(db, &fakeResolver{provider: provider})

	result, err := m.Tick(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ArticlesFound != 1 || result.AlertsInserted != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
	if _, ok := db.articles.byURI["https://example.com/a"]; !ok {
		t.Errorf("expected article to be inserted")
	}
	if db.keywords.lastCheckedCalls != 1 {
		t.Errorf("expected last_checked to be updated once")
	}
}

func TestTickInsertsAlertForKnownArticle(t *testing.T) {
	db := newFakeDB()
	db.articles.byURI["https://example.com/a"] = &core.Article{URI: "https://example.com/a"}
	provider := &fakeProvider{results: []search.Result{{URL: "https://example.com/a", Title: "A"}}}
	m := New(db, &fakeResolver{provider: provider})

	if _, err := m.Tick(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !db.alerts.inserted["https://example.com/a"] {
		t.Errorf("expected an alert to still be inserted for a known article")
	}
}

func TestTickAbortsOnProviderError(t *testing.T) {
	db := newFakeDB()
	db.keywords.keywords = append(db.keywords.keywords, core.Keyword{ID: 11, GroupID: 1, Keyword: "ai-safety"})
	provider := &fakeProvider{err: errors.New("rate limited")}
	m := New(db, &fakeResolver{provider: provider})

	result, err := m.Tick(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Aborted {
		t.Fatalf("expected the tick to report aborted")
	}
	if provider.calls != 1 {
		t.Errorf("expected the tick to abort after the first provider error, got %d calls", provider.calls)
	}
	if db.settings.status.LastError == "" {
		t.Errorf("expected last_error to be recorded on the status row")
	}
}

func TestTickScopesToGroupID(t *testing.T) {
	db := newFakeDB()
	db.groups.groups[2] = &core.KeywordGroup{ID: 2, Name: "g2", Topic: "Climate"}
	db.keywords.keywords = append(db.keywords.keywords, core.Keyword{ID: 20, GroupID: 2, Keyword: "carbon"})
	provider := &fakeProvider{results: []search.Result{{URL: "https://example.com/b"}}}
	m := New(db, &fakeResolver{provider: provider})

	result, err := m.Tick(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.KeywordsChecked != 1 {
		t.Errorf("expected only the group-2 keyword to be checked, got %d", result.KeywordsChecked)
	}
}

func TestTickProviderResolveFailure(t *testing.T) {
	db := newFakeDB()
	m := New(db, &fakeResolver{err: errors.New("unknown provider")})

	if _, err := m.Tick(context.Background(), 0); err == nil {
		t.Fatal("expected an error when the provider can't be resolved")
	}
}
