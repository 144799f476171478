package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Postgres driver

	"newsmonitor/internal/logger"
)

// PostgresDB implements Database on top of database/sql + lib/pq,
// following the pool-sizing convention of the connection string builder
// this module is grounded on.
type PostgresDB struct {
	db *sql.DB

	articles      *postgresArticleRepo
	rawArticles   *postgresRawArticleRepo
	keywordGroups *postgresKeywordGroupRepo
	keywords      *postgresKeywordRepo
	alerts        *postgresAlertRepo
	mediaBias     *postgresMediaBiasRepo
	settings      *postgresSettingsRepo
}

// NewPostgresDB opens a pooled connection and wires up every repository.
func NewPostgresDB(connectionString string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("persistence: open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("persistence: ping postgres: %w", err)
	}

	p := &PostgresDB{db: db}
	p.articles = &postgresArticleRepo{db: db}
	p.rawArticles = &postgresRawArticleRepo{db: db}
	p.keywordGroups = &postgresKeywordGroupRepo{db: db}
	p.keywords = &postgresKeywordRepo{db: db}
	p.alerts = &postgresAlertRepo{db: db}
	p.mediaBias = &postgresMediaBiasRepo{db: db}
	p.settings = &postgresSettingsRepo{db: db}

	logger.Info("persistence: connected to postgres")
	return p, nil
}

func (p *PostgresDB) Articles() ArticleRepository           { return p.articles }
func (p *PostgresDB) RawArticles() RawArticleRepository     { return p.rawArticles }
func (p *PostgresDB) KeywordGroups() KeywordGroupRepository { return p.keywordGroups }
func (p *PostgresDB) Keywords() KeywordRepository           { return p.keywords }
func (p *PostgresDB) Alerts() AlertRepository               { return p.alerts }
func (p *PostgresDB) MediaBias() MediaBiasRepository        { return p.mediaBias }
func (p *PostgresDB) Settings() SettingsRepository          { return p.settings }

func (p *PostgresDB) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }
func (p *PostgresDB) Close() error                   { return p.db.Close() }

// DB exposes the underlying pool for collaborators that need raw SQL
// access the Database interface doesn't carry, namely vectorstore's
// pgvector-backed store.
func (p *PostgresDB) DB() *sql.DB { return p.db }
