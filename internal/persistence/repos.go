package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"newsmonitor/internal/core"
)

// --- articles ---------------------------------------------------------

type postgresArticleRepo struct{ db *sql.DB }

const articleColumns = `uri, title, news_source, publication_date, submission_date, summary, topic, analyzed,
	category, sentiment, sentiment_explanation, future_signal, future_signal_explanation,
	time_to_impact, time_to_impact_explanation, driver_type, driver_type_explanation, tags,
	bias, factual_reporting, mbfc_credibility_rating, bias_source, bias_country, press_freedom, media_type, popularity,
	topic_alignment_score, keyword_relevance_score, confidence_score, overall_match_explanation,
	extracted_article_topics, extracted_article_keywords,
	auto_ingested, ingest_status, quality_score, quality_issues`

func (r *postgresArticleRepo) Upsert(ctx context.Context, a *core.Article) error {
	if a.URI == "" {
		return core.NewError("articles.Upsert", core.ErrKindValidation, errors.New("uri is required"))
	}
	if a.SubmissionDate.IsZero() {
		a.SubmissionDate = time.Now().UTC()
	}
	query := `INSERT INTO articles (` + articleColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,
		        $19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34,$35,$36)
		ON CONFLICT (uri) DO UPDATE SET
			title=EXCLUDED.title, news_source=EXCLUDED.news_source, publication_date=EXCLUDED.publication_date,
			summary=EXCLUDED.summary, topic=EXCLUDED.topic, analyzed=EXCLUDED.analyzed,
			category=EXCLUDED.category, sentiment=EXCLUDED.sentiment, sentiment_explanation=EXCLUDED.sentiment_explanation,
			future_signal=EXCLUDED.future_signal, future_signal_explanation=EXCLUDED.future_signal_explanation,
			time_to_impact=EXCLUDED.time_to_impact, time_to_impact_explanation=EXCLUDED.time_to_impact_explanation,
			driver_type=EXCLUDED.driver_type, driver_type_explanation=EXCLUDED.driver_type_explanation, tags=EXCLUDED.tags,
			bias=EXCLUDED.bias, factual_reporting=EXCLUDED.factual_reporting, mbfc_credibility_rating=EXCLUDED.mbfc_credibility_rating,
			bias_source=EXCLUDED.bias_source, bias_country=EXCLUDED.bias_country, press_freedom=EXCLUDED.press_freedom,
			media_type=EXCLUDED.media_type, popularity=EXCLUDED.popularity,
			topic_alignment_score=EXCLUDED.topic_alignment_score, keyword_relevance_score=EXCLUDED.keyword_relevance_score,
			confidence_score=EXCLUDED.confidence_score, overall_match_explanation=EXCLUDED.overall_match_explanation,
			extracted_article_topics=EXCLUDED.extracted_article_topics, extracted_article_keywords=EXCLUDED.extracted_article_keywords,
			auto_ingested=EXCLUDED.auto_ingested, ingest_status=EXCLUDED.ingest_status,
			quality_score=EXCLUDED.quality_score, quality_issues=EXCLUDED.quality_issues`

	_, err := r.db.ExecContext(ctx, query,
		a.URI, a.Title, a.NewsSource, a.PublicationDate, a.SubmissionDate, a.Summary, a.Topic, a.Analyzed,
		a.Category, a.Sentiment, a.SentimentExplanation, a.FutureSignal, a.FutureSignalExplanation,
		a.TimeToImpact, a.TimeToImpactExplanation, a.DriverType, a.DriverTypeExplanation, pq.Array(a.Tags),
		a.Bias, a.FactualReporting, a.MBFCCredibilityRating, a.BiasSource, a.BiasCountry, a.PressFreedom, a.MediaType, a.Popularity,
		a.TopicAlignmentScore, a.KeywordRelevanceScore, a.ConfidenceScore, a.OverallMatchExplanation,
		pq.Array(a.ExtractedArticleTopics), pq.Array(a.ExtractedArticleKeywords),
		a.AutoIngested, string(a.IngestStatus), a.QualityScore, pq.Array(a.QualityIssues),
	)
	if err != nil {
		return core.NewError("articles.Upsert", core.ErrKindInternal, err)
	}
	return nil
}

func (r *postgresArticleRepo) scanRow(row *sql.Row) (*core.Article, error) {
	var a core.Article
	var ingestStatus string
	err := row.Scan(
		&a.URI, &a.Title, &a.NewsSource, &a.PublicationDate, &a.SubmissionDate, &a.Summary, &a.Topic, &a.Analyzed,
		&a.Category, &a.Sentiment, &a.SentimentExplanation, &a.FutureSignal, &a.FutureSignalExplanation,
		&a.TimeToImpact, &a.TimeToImpactExplanation, &a.DriverType, &a.DriverTypeExplanation, pq.Array(&a.Tags),
		&a.Bias, &a.FactualReporting, &a.MBFCCredibilityRating, &a.BiasSource, &a.BiasCountry, &a.PressFreedom, &a.MediaType, &a.Popularity,
		&a.TopicAlignmentScore, &a.KeywordRelevanceScore, &a.ConfidenceScore, &a.OverallMatchExplanation,
		pq.Array(&a.ExtractedArticleTopics), pq.Array(&a.ExtractedArticleKeywords),
		&a.AutoIngested, &ingestStatus, &a.QualityScore, pq.Array(&a.QualityIssues),
	)
	if err != nil {
		return nil, err
	}
	a.IngestStatus = core.IngestStatus(ingestStatus)
	return &a, nil
}

func (r *postgresArticleRepo) Get(ctx context.Context, uri string) (*core.Article, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE uri=$1`, uri)
	a, err := r.scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewError("articles.Get", core.ErrKindNotFound, err)
	}
	if err != nil {
		return nil, core.NewError("articles.Get", core.ErrKindInternal, err)
	}
	return a, nil
}

func (r *postgresArticleRepo) Delete(ctx context.Context, uri string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE uri=$1`, uri)
	if err != nil {
		return core.NewError("articles.Delete", core.ErrKindInternal, err)
	}
	return nil
}

func (r *postgresArticleRepo) queryList(ctx context.Context, where string, args ...any) ([]core.Article, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+articleColumns+` FROM articles `+where, args...)
	if err != nil {
		return nil, core.NewError("articles.List", core.ErrKindInternal, err)
	}
	defer rows.Close()

	var out []core.Article
	for rows.Next() {
		var a core.Article
		var ingestStatus string
		if err := rows.Scan(
			&a.URI, &a.Title, &a.NewsSource, &a.PublicationDate, &a.SubmissionDate, &a.Summary, &a.Topic, &a.Analyzed,
			&a.Category, &a.Sentiment, &a.SentimentExplanation, &a.FutureSignal, &a.FutureSignalExplanation,
			&a.TimeToImpact, &a.TimeToImpactExplanation, &a.DriverType, &a.DriverTypeExplanation, pq.Array(&a.Tags),
			&a.Bias, &a.FactualReporting, &a.MBFCCredibilityRating, &a.BiasSource, &a.BiasCountry, &a.PressFreedom, &a.MediaType, &a.Popularity,
			&a.TopicAlignmentScore, &a.KeywordRelevanceScore, &a.ConfidenceScore, &a.OverallMatchExplanation,
			pq.Array(&a.ExtractedArticleTopics), pq.Array(&a.ExtractedArticleKeywords),
			&a.AutoIngested, &ingestStatus, &a.QualityScore, pq.Array(&a.QualityIssues),
		); err != nil {
			return nil, core.NewError("articles.List", core.ErrKindInternal, err)
		}
		a.IngestStatus = core.IngestStatus(ingestStatus)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *postgresArticleRepo) List(ctx context.Context, opts ListOptions) ([]core.Article, error) {
	where := "WHERE 1=1"
	args := []any{}
	if opts.Topic != "" {
		args = append(args, opts.Topic)
		where += fmt.Sprintf(" AND topic=$%d", len(args))
	}
	where += " ORDER BY submission_date DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		where += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		where += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return r.queryList(ctx, where, args...)
}

func (r *postgresArticleRepo) GetRecent(ctx context.Context, since time.Time, limit int) ([]core.Article, error) {
	return r.queryList(ctx, "WHERE submission_date >= $1 ORDER BY submission_date DESC LIMIT $2", since, limit)
}

// ListUningestedWithUnreadAlerts backs C11's "load up to N pending-alert
// articles" step: join articles against unread keyword_article_matches,
// excluding anything already auto-ingested.
func (r *postgresArticleRepo) ListUningestedWithUnreadAlerts(ctx context.Context, limit int) ([]core.Article, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT `+prefixColumns("a", articleColumns)+`
		FROM articles a
		JOIN keyword_article_matches m ON m.article_uri = a.uri
		WHERE m.is_read = false AND a.auto_ingested = false
		ORDER BY a.uri
		LIMIT $1`, limit)
	if err != nil {
		return nil, core.NewError("articles.ListUningestedWithUnreadAlerts", core.ErrKindInternal, err)
	}
	defer rows.Close()

	var out []core.Article
	for rows.Next() {
		var a core.Article
		var ingestStatus string
		if err := rows.Scan(
			&a.URI, &a.Title, &a.NewsSource, &a.PublicationDate, &a.SubmissionDate, &a.Summary, &a.Topic, &a.Analyzed,
			&a.Category, &a.Sentiment, &a.SentimentExplanation, &a.FutureSignal, &a.FutureSignalExplanation,
			&a.TimeToImpact, &a.TimeToImpactExplanation, &a.DriverType, &a.DriverTypeExplanation, pq.Array(&a.Tags),
			&a.Bias, &a.FactualReporting, &a.MBFCCredibilityRating, &a.BiasSource, &a.BiasCountry, &a.PressFreedom, &a.MediaType, &a.Popularity,
			&a.TopicAlignmentScore, &a.KeywordRelevanceScore, &a.ConfidenceScore, &a.OverallMatchExplanation,
			pq.Array(&a.ExtractedArticleTopics), pq.Array(&a.ExtractedArticleKeywords),
			&a.AutoIngested, &ingestStatus, &a.QualityScore, pq.Array(&a.QualityIssues),
		); err != nil {
			return nil, core.NewError("articles.ListUningestedWithUnreadAlerts", core.ErrKindInternal, err)
		}
		a.IngestStatus = core.IngestStatus(ingestStatus)
		out = append(out, a)
	}
	return out, rows.Err()
}

func prefixColumns(alias, cols string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// --- raw_articles -------------------------------------------------------

type postgresRawArticleRepo struct{ db *sql.DB }

func (r *postgresRawArticleRepo) Upsert(ctx context.Context, raw *core.RawArticle) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO raw_articles (uri, raw_markdown, topic) VALUES ($1,$2,$3)
		ON CONFLICT (uri) DO UPDATE SET raw_markdown=EXCLUDED.raw_markdown, topic=EXCLUDED.topic`,
		raw.URI, raw.RawMarkdown, raw.Topic)
	if err != nil {
		return core.NewError("rawArticles.Upsert", core.ErrKindInternal, err)
	}
	return nil
}

func (r *postgresRawArticleRepo) Get(ctx context.Context, uri string) (*core.RawArticle, error) {
	var raw core.RawArticle
	err := r.db.QueryRowContext(ctx, `SELECT uri, raw_markdown, topic FROM raw_articles WHERE uri=$1`, uri).
		Scan(&raw.URI, &raw.RawMarkdown, &raw.Topic)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewError("rawArticles.Get", core.ErrKindNotFound, err)
	}
	if err != nil {
		return nil, core.NewError("rawArticles.Get", core.ErrKindInternal, err)
	}
	return &raw, nil
}

// --- keyword_groups / monitored_keywords ---------------------------------

type postgresKeywordGroupRepo struct{ db *sql.DB }

func (r *postgresKeywordGroupRepo) Create(ctx context.Context, g *core.KeywordGroup) error {
	return r.db.QueryRowContext(ctx,
		`INSERT INTO keyword_groups (name, topic) VALUES ($1,$2) RETURNING id`,
		g.Name, g.Topic).Scan(&g.ID)
}

func (r *postgresKeywordGroupRepo) Get(ctx context.Context, id int64) (*core.KeywordGroup, error) {
	var g core.KeywordGroup
	err := r.db.QueryRowContext(ctx, `SELECT id, name, topic FROM keyword_groups WHERE id=$1`, id).
		Scan(&g.ID, &g.Name, &g.Topic)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewError("keywordGroups.Get", core.ErrKindNotFound, err)
	}
	if err != nil {
		return nil, core.NewError("keywordGroups.Get", core.ErrKindInternal, err)
	}
	return &g, nil
}

func (r *postgresKeywordGroupRepo) List(ctx context.Context) ([]core.KeywordGroup, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, topic FROM keyword_groups ORDER BY id`)
	if err != nil {
		return nil, core.NewError("keywordGroups.List", core.ErrKindInternal, err)
	}
	defer rows.Close()
	var out []core.KeywordGroup
	for rows.Next() {
		var g core.KeywordGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Topic); err != nil {
			return nil, core.NewError("keywordGroups.List", core.ErrKindInternal, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

type postgresKeywordRepo struct{ db *sql.DB }

func (r *postgresKeywordRepo) Create(ctx context.Context, k *core.Keyword) error {
	return r.db.QueryRowContext(ctx,
		`INSERT INTO monitored_keywords (group_id, keyword, last_checked) VALUES ($1,$2,$3) RETURNING id`,
		k.GroupID, k.Keyword, k.LastChecked).Scan(&k.ID)
}

// ListEnabled returns keywords ordered by ID (spec §5 ordering guarantee:
// "keywords are iterated in ID order"). groupID == 0 means all groups.
func (r *postgresKeywordRepo) ListEnabled(ctx context.Context, groupID int64) ([]core.Keyword, error) {
	query := `SELECT id, group_id, keyword, last_checked FROM monitored_keywords`
	args := []any{}
	if groupID > 0 {
		query += ` WHERE group_id = $1`
		args = append(args, groupID)
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.NewError("keywords.ListEnabled", core.ErrKindInternal, err)
	}
	defer rows.Close()
	var out []core.Keyword
	for rows.Next() {
		var k core.Keyword
		if err := rows.Scan(&k.ID, &k.GroupID, &k.Keyword, &k.LastChecked); err != nil {
			return nil, core.NewError("keywords.ListEnabled", core.ErrKindInternal, err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *postgresKeywordRepo) UpdateLastChecked(ctx context.Context, id int64, t time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE monitored_keywords SET last_checked=$1 WHERE id=$2`, t, id)
	if err != nil {
		return core.NewError("keywords.UpdateLastChecked", core.ErrKindInternal, err)
	}
	return nil
}

// --- keyword_article_matches ---------------------------------------------

type postgresAlertRepo struct{ db *sql.DB }

// Insert records (or no-ops on) a keyword/article match. The uniqueness
// constraint lives on (article_uri, keyword_ids); callers pass a single
// keyword ID per call, matching one row of spec §4.7's per-keyword loop.
func (r *postgresAlertRepo) Insert(ctx context.Context, articleURI string, keywordID int64) (bool, error) {
	keywordIDs := strconv.FormatInt(keywordID, 10)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO keyword_article_matches (article_uri, keyword_ids, is_read, detected_at)
		VALUES ($1, $2, false, $3)
		ON CONFLICT (article_uri, keyword_ids) DO NOTHING`,
		articleURI, keywordIDs, time.Now().UTC())
	if err != nil {
		return false, core.NewError("alerts.Insert", core.ErrKindInternal, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *postgresAlertRepo) scanAlerts(rows *sql.Rows) ([]core.Alert, error) {
	defer rows.Close()
	var out []core.Alert
	for rows.Next() {
		var a core.Alert
		if err := rows.Scan(&a.ID, &a.KeywordIDs, &a.ArticleURI, &a.IsRead, &a.DetectedAt); err != nil {
			return nil, core.NewError("alerts.List", core.ErrKindInternal, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *postgresAlertRepo) ListUnread(ctx context.Context, limit int) ([]core.Alert, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, keyword_ids, article_uri, is_read, detected_at
		FROM keyword_article_matches WHERE is_read=false ORDER BY detected_at LIMIT $1`, limit)
	if err != nil {
		return nil, core.NewError("alerts.ListUnread", core.ErrKindInternal, err)
	}
	return r.scanAlerts(rows)
}

func (r *postgresAlertRepo) List(ctx context.Context, showRead bool) ([]core.Alert, error) {
	query := `SELECT id, keyword_ids, article_uri, is_read, detected_at FROM keyword_article_matches`
	if !showRead {
		query += ` WHERE is_read=false`
	}
	query += ` ORDER BY detected_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, core.NewError("alerts.List", core.ErrKindInternal, err)
	}
	return r.scanAlerts(rows)
}

func (r *postgresAlertRepo) MarkRead(ctx context.Context, id int64, read bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE keyword_article_matches SET is_read=$1 WHERE id=$2`, read, id)
	if err != nil {
		return core.NewError("alerts.MarkRead", core.ErrKindInternal, err)
	}
	return nil
}

func (r *postgresAlertRepo) TrendCounts(ctx context.Context, since time.Time) (map[string]map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT g.name, date_trunc('day', m.detected_at)::date, count(*)
		FROM keyword_article_matches m
		JOIN articles a ON a.uri = m.article_uri
		JOIN keyword_groups g ON g.topic = a.topic
		WHERE m.detected_at >= $1
		GROUP BY g.name, date_trunc('day', m.detected_at)`, since)
	if err != nil {
		return nil, core.NewError("alerts.TrendCounts", core.ErrKindInternal, err)
	}
	defer rows.Close()

	out := map[string]map[string]int{}
	for rows.Next() {
		var group string
		var day time.Time
		var count int
		if err := rows.Scan(&group, &day, &count); err != nil {
			return nil, core.NewError("alerts.TrendCounts", core.ErrKindInternal, err)
		}
		if out[group] == nil {
			out[group] = map[string]int{}
		}
		out[group][day.Format("2006-01-02")] = count
	}
	return out, rows.Err()
}

// --- mediabias -------------------------------------------------------------

type postgresMediaBiasRepo struct{ db *sql.DB }

func (r *postgresMediaBiasRepo) GetBySource(ctx context.Context, domain string) (*core.MediaBiasSource, error) {
	var m core.MediaBiasSource
	err := r.db.QueryRowContext(ctx, `
		SELECT id, source, country, bias, factual_reporting, press_freedom, media_type, popularity, mbfc_credibility_rating, enabled
		FROM mediabias WHERE source=$1`, domain).Scan(
		&m.ID, &m.Source, &m.Country, &m.Bias, &m.FactualReporting, &m.PressFreedom, &m.MediaType, &m.Popularity, &m.MBFCCredibilityRating, &m.Enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewError("mediabias.GetBySource", core.ErrKindNotFound, err)
	}
	if err != nil {
		return nil, core.NewError("mediabias.GetBySource", core.ErrKindInternal, err)
	}
	return &m, nil
}

func (r *postgresMediaBiasRepo) Enable(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE mediabias SET enabled=true WHERE id=$1`, id)
	if err != nil {
		return core.NewError("mediabias.Enable", core.ErrKindInternal, err)
	}
	return nil
}

func (r *postgresMediaBiasRepo) Upsert(ctx context.Context, m *core.MediaBiasSource) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO mediabias (source, country, bias, factual_reporting, press_freedom, media_type, popularity, mbfc_credibility_rating, enabled)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (source) DO UPDATE SET
			country=EXCLUDED.country, bias=EXCLUDED.bias, factual_reporting=EXCLUDED.factual_reporting,
			press_freedom=EXCLUDED.press_freedom, media_type=EXCLUDED.media_type, popularity=EXCLUDED.popularity,
			mbfc_credibility_rating=EXCLUDED.mbfc_credibility_rating, enabled=EXCLUDED.enabled`,
		m.Source, m.Country, m.Bias, m.FactualReporting, m.PressFreedom, m.MediaType, m.Popularity, m.MBFCCredibilityRating, m.Enabled)
	if err != nil {
		return core.NewError("mediabias.Upsert", core.ErrKindInternal, err)
	}
	return nil
}

func (r *postgresMediaBiasRepo) Search(ctx context.Context, q string, limit int) ([]core.MediaBiasSource, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source, country, bias, factual_reporting, press_freedom, media_type, popularity, mbfc_credibility_rating, enabled
		FROM mediabias WHERE source ILIKE '%'||$1||'%' ORDER BY source LIMIT $2`, q, limit)
	if err != nil {
		return nil, core.NewError("mediabias.Search", core.ErrKindInternal, err)
	}
	defer rows.Close()
	var out []core.MediaBiasSource
	for rows.Next() {
		var m core.MediaBiasSource
		if err := rows.Scan(&m.ID, &m.Source, &m.Country, &m.Bias, &m.FactualReporting, &m.PressFreedom, &m.MediaType, &m.Popularity, &m.MBFCCredibilityRating, &m.Enabled); err != nil {
			return nil, core.NewError("mediabias.Search", core.ErrKindInternal, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- settings ---------------------------------------------------------------

type postgresSettingsRepo struct{ db *sql.DB }

func (r *postgresSettingsRepo) GetMonitorSettings(ctx context.Context) (*core.KeywordMonitorSettings, error) {
	s := core.DefaultKeywordMonitorSettings()
	err := r.db.QueryRowContext(ctx, `
		SELECT check_interval, interval_unit, search_fields, language, sort_by, page_size, daily_request_limit, provider,
		       auto_ingest_enabled, min_relevance_threshold, quality_control_enabled, auto_save_approved_only,
		       default_llm_model, llm_temperature, llm_max_tokens, batch_size, max_concurrent_batches
		FROM keyword_monitor_settings WHERE id=1`).Scan(
		&s.CheckInterval, &s.IntervalUnit, &s.SearchFields, &s.Language, &s.SortBy, &s.PageSize, &s.DailyRequestLimit, &s.Provider,
		&s.AutoIngestEnabled, &s.MinRelevanceThreshold, &s.QualityControlEnabled, &s.AutoSaveApprovedOnly,
		&s.DefaultLLMModel, &s.LLMTemperature, &s.LLMMaxTokens, &s.BatchSize, &s.MaxConcurrentBatches)
	if errors.Is(err, sql.ErrNoRows) {
		if saveErr := r.SaveMonitorSettings(ctx, &s); saveErr != nil {
			return nil, core.NewError("settings.GetMonitorSettings", core.ErrKindInternal, saveErr)
		}
		return &s, nil
	}
	if err != nil {
		return nil, core.NewError("settings.GetMonitorSettings", core.ErrKindInternal, err)
	}
	return &s, nil
}

func (r *postgresSettingsRepo) SaveMonitorSettings(ctx context.Context, s *core.KeywordMonitorSettings) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO keyword_monitor_settings (
			id, check_interval, interval_unit, search_fields, language, sort_by, page_size, daily_request_limit, provider,
			auto_ingest_enabled, min_relevance_threshold, quality_control_enabled, auto_save_approved_only,
			default_llm_model, llm_temperature, llm_max_tokens, batch_size, max_concurrent_batches)
		VALUES (1,$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (id) DO UPDATE SET
			check_interval=EXCLUDED.check_interval, interval_unit=EXCLUDED.interval_unit, search_fields=EXCLUDED.search_fields,
			language=EXCLUDED.language, sort_by=EXCLUDED.sort_by, page_size=EXCLUDED.page_size,
			daily_request_limit=EXCLUDED.daily_request_limit, provider=EXCLUDED.provider,
			auto_ingest_enabled=EXCLUDED.auto_ingest_enabled, min_relevance_threshold=EXCLUDED.min_relevance_threshold,
			quality_control_enabled=EXCLUDED.quality_control_enabled, auto_save_approved_only=EXCLUDED.auto_save_approved_only,
			default_llm_model=EXCLUDED.default_llm_model, llm_temperature=EXCLUDED.llm_temperature,
			llm_max_tokens=EXCLUDED.llm_max_tokens, batch_size=EXCLUDED.batch_size, max_concurrent_batches=EXCLUDED.max_concurrent_batches`,
		s.CheckInterval, s.IntervalUnit, s.SearchFields, s.Language, s.SortBy, s.PageSize, s.DailyRequestLimit, s.Provider,
		s.AutoIngestEnabled, s.MinRelevanceThreshold, s.QualityControlEnabled, s.AutoSaveApprovedOnly,
		s.DefaultLLMModel, s.LLMTemperature, s.LLMMaxTokens, s.BatchSize, s.MaxConcurrentBatches)
	if err != nil {
		return core.NewError("settings.SaveMonitorSettings", core.ErrKindInternal, err)
	}
	return nil
}

func (r *postgresSettingsRepo) GetMonitorStatus(ctx context.Context) (*core.KeywordMonitorStatus, error) {
	var s core.KeywordMonitorStatus
	err := r.db.QueryRowContext(ctx, `
		SELECT last_run_time, next_run_time, last_error, requests_today, last_reset_date
		FROM keyword_monitor_status WHERE id=1`).Scan(&s.LastRunTime, &s.NextRunTime, &s.LastError, &s.RequestsToday, &s.LastResetDate)
	if errors.Is(err, sql.ErrNoRows) {
		s.LastResetDate = time.Now().UTC().Format("2006-01-02")
		if saveErr := r.SaveMonitorStatus(ctx, &s); saveErr != nil {
			return nil, core.NewError("settings.GetMonitorStatus", core.ErrKindInternal, saveErr)
		}
		return &s, nil
	}
	if err != nil {
		return nil, core.NewError("settings.GetMonitorStatus", core.ErrKindInternal, err)
	}
	return &s, nil
}

func (r *postgresSettingsRepo) SaveMonitorStatus(ctx context.Context, s *core.KeywordMonitorStatus) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO keyword_monitor_status (id, last_run_time, next_run_time, last_error, requests_today, last_reset_date)
		VALUES (1,$1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET
			last_run_time=EXCLUDED.last_run_time, next_run_time=EXCLUDED.next_run_time, last_error=EXCLUDED.last_error,
			requests_today=EXCLUDED.requests_today, last_reset_date=EXCLUDED.last_reset_date`,
		s.LastRunTime, s.NextRunTime, s.LastError, s.RequestsToday, s.LastResetDate)
	if err != nil {
		return core.NewError("settings.SaveMonitorStatus", core.ErrKindInternal, err)
	}
	return nil
}

// IncrementRequestsToday is the single-row UPDATE spec §5 requires: the
// limit check and the increment happen under the same row read, with a
// reset to zero the first time a new UTC day is observed.
func (r *postgresSettingsRepo) IncrementRequestsToday(ctx context.Context) (int, error) {
	today := time.Now().UTC().Format("2006-01-02")
	var requestsToday int
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO keyword_monitor_status (id, requests_today, last_reset_date)
		VALUES (1, 1, $1)
		ON CONFLICT (id) DO UPDATE SET
			requests_today = CASE WHEN keyword_monitor_status.last_reset_date = $1
				THEN keyword_monitor_status.requests_today + 1 ELSE 1 END,
			last_reset_date = $1
		RETURNING requests_today`, today).Scan(&requestsToday)
	if err != nil {
		return 0, core.NewError("settings.IncrementRequestsToday", core.ErrKindInternal, err)
	}
	return requestsToday, nil
}
