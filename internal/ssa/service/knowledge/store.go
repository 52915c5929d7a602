// Package knowledge holds the knowledge base used by the documentation
// tools: an sqlite full-text index of help-center articles and a directory of
// plain documentation files.
package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3" // Register SQLite3 driver

	"github.com/kiosk404/sankhya-agent/pkg/logger"
)

const ModuleName = "knowledge"

const (
	tableArticles    = "articles"
	tableArticlesFTS = "articles_fts"
)

// Article is one indexed help-center article.
type Article struct {
	ID        int64  `json:"id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Store is the sqlite-backed article index.
type Store struct {
	db           *sql.DB
	path         string
	ftsAvailable bool
}

// Open opens (or creates) the index at path. FTS5 is optional: builds of the
// driver without it still answer searches through LIKE matching.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Exists reports whether an index file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (s *Store) Close() error { return s.db.Close() }

// FTSAvailable reports whether the FTS5 index could be created.
func (s *Store) FTSAvailable() bool { return s.ftsAvailable }

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS ` + tableArticles + ` (
		id INTEGER PRIMARY KEY,
		url TEXT,
		title TEXT,
		body TEXT,
		created_at TEXT,
		updated_at TEXT
	)`)
	if err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}

	ftsStmts := []string{
		`CREATE VIRTUAL TABLE IF NOT EXISTS ` + tableArticlesFTS + ` USING fts5(
			title,
			body,
			content='` + tableArticles + `',
			content_rowid='id'
		)`,
		`CREATE TRIGGER IF NOT EXISTS articles_ai AFTER INSERT ON articles BEGIN
			INSERT INTO articles_fts(rowid, title, body) VALUES (new.id, new.title, new.body);
		END`,
		`CREATE TRIGGER IF NOT EXISTS articles_ad AFTER DELETE ON articles BEGIN
			INSERT INTO articles_fts(articles_fts, rowid, title, body) VALUES('delete', old.id, old.title, old.body);
		END`,
		`CREATE TRIGGER IF NOT EXISTS articles_au AFTER UPDATE ON articles BEGIN
			INSERT INTO articles_fts(articles_fts, rowid, title, body) VALUES('delete', old.id, old.title, old.body);
			INSERT INTO articles_fts(rowid, title, body) VALUES (new.id, new.title, new.body);
		END`,
	}
	for _, stmt := range ftsStmts {
		if _, err := s.db.Exec(stmt); err != nil {
			logger.WarnX(ModuleName, "FTS5 unavailable, falling back to LIKE search: %v", err)
			return nil
		}
	}
	s.ftsAvailable = true
	return nil
}

// IndexResult counts what Index changed.
type IndexResult struct {
	New     int
	Updated int
	Skipped int
}

// Index upserts articles. An existing article is rewritten only when its
// updated_at changed.
func (s *Store) Index(ctx context.Context, articles []Article) (IndexResult, error) {
	var res IndexResult
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer tx.Rollback()

	for _, a := range articles {
		a.Body = CleanHTML(a.Body)
		var updatedAt sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT updated_at FROM articles WHERE id = ?`, a.ID).Scan(&updatedAt)
		switch {
		case err == sql.ErrNoRows:
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO articles (id, url, title, body, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
				a.ID, a.URL, a.Title, a.Body, a.CreatedAt, a.UpdatedAt); err != nil {
				return res, fmt.Errorf("insert article %d: %w", a.ID, err)
			}
			res.New++
		case err != nil:
			return res, fmt.Errorf("lookup article %d: %w", a.ID, err)
		case updatedAt.String != a.UpdatedAt:
			if _, err := tx.ExecContext(ctx,
				`UPDATE articles SET url = ?, title = ?, body = ?, updated_at = ? WHERE id = ?`,
				a.URL, a.Title, a.Body, a.UpdatedAt, a.ID); err != nil {
				return res, fmt.Errorf("update article %d: %w", a.ID, err)
			}
			res.Updated++
		default:
			res.Skipped++
		}
	}
	if err := tx.Commit(); err != nil {
		return res, err
	}
	logger.InfoX(ModuleName, "indexed articles: %d new, %d updated", res.New, res.Updated)
	return res, nil
}

var (
	htmlTag    = regexp.MustCompile(`<.*?>`)
	whitespace = regexp.MustCompile(`\s+`)
)

// CleanHTML strips tags and collapses whitespace.
func CleanHTML(s string) string {
	if s == "" {
		return ""
	}
	s = htmlTag.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// CleanQuery strips the gateway error prefixes and FTS syntax characters
// from a search query.
func CleanQuery(q string) string {
	r := strings.NewReplacer(
		"Erro Funcional Sankhya:", "",
		"HttpServiceBroker:", "",
		":", " ",
		"*", " ",
		`"`, " ",
	)
	return strings.TrimSpace(r.Replace(q))
}

// Search tries, in order: the exact phrase, all long words (AND), then a
// LIKE match on any keyword. The first strategy with hits wins.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Article, error) {
	if limit <= 0 {
		limit = 3
	}
	q := CleanQuery(query)
	if q == "" {
		return nil, nil
	}
	words := strings.Fields(q)

	if s.ftsAvailable {
		if rows, err := s.match(ctx, `"`+q+`"`, limit); err == nil && len(rows) > 0 {
			return rows, nil
		}
		long := filterWords(words, 4, 5)
		if len(long) > 0 {
			if rows, err := s.match(ctx, strings.Join(long, " AND "), limit); err == nil && len(rows) > 0 {
				return rows, nil
			}
		}
	}

	keywords := filterWords(words, 3, 3)
	if len(keywords) == 0 {
		return nil, nil
	}
	clauses := make([]string, 0, len(keywords)*2)
	args := make([]any, 0, len(keywords)*2+1)
	for _, kw := range keywords {
		clauses = append(clauses, "title LIKE ?", "body LIKE ?")
		args = append(args, "%"+kw+"%", "%"+kw+"%")
	}
	args = append(args, limit)
	return s.query(ctx, `SELECT id, url, title, body FROM articles WHERE `+strings.Join(clauses, " OR ")+` LIMIT ?`, args...)
}

func (s *Store) match(ctx context.Context, expr string, limit int) ([]Article, error) {
	return s.query(ctx, `SELECT a.id, a.url, a.title, a.body
		FROM articles_fts f
		JOIN articles a ON a.id = f.rowid
		WHERE articles_fts MATCH ?
		ORDER BY f.rank
		LIMIT ?`, expr, limit)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Article, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Article
	for rows.Next() {
		var a Article
		var url, title, body sql.NullString
		if err := rows.Scan(&a.ID, &url, &title, &body); err != nil {
			return nil, err
		}
		a.URL, a.Title, a.Body = url.String, title.String, body.String
		out = append(out, a)
	}
	return out, rows.Err()
}

func filterWords(words []string, minLen, limit int) []string {
	var out []string
	for _, w := range words {
		if len([]rune(w)) > minLen {
			out = append(out, w)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}
