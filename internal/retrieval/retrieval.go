// Package retrieval provides the document snippet collaborator: an
// ordered list of short reference texts relevant to the current user
// message. The core treats it as opaque; this implementation keeps
// snippets in the SQLite snippets table and matches on keywords.
package retrieval

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dgmulei/obi-slv2/internal/database"
)

// Provider returns an ordered sequence of snippets relevant to a query.
// The result may be empty; that is not an error.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// sqliteProvider matches query keywords against the snippets table.
type sqliteProvider struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewProvider creates a snippet provider backed by the snippets table.
func NewProvider(db *sqlx.DB, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &sqliteProvider{
		db:     db,
		logger: logger.With("component", "retrieval"),
	}
}

// Search ranks snippets by how many of the query's keywords they contain
// and returns up to limit of them, best match first. Queries with no
// usable keywords return an empty result.
func (p *sqliteProvider) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	keywords := extractKeywords(query)
	if len(keywords) == 0 {
		return nil, nil
	}

	// Score by keyword hits. LIKE with a lowered column keeps this inside
	// one query instead of scanning rows in Go.
	var scoreExprs []string
	args := make([]any, 0, len(keywords))
	for _, kw := range keywords {
		scoreExprs = append(scoreExprs, "(LOWER(content) LIKE ?)")
		args = append(args, "%"+kw+"%")
	}
	args = append(args, limit)

	q := fmt.Sprintf(`
        SELECT content
        FROM snippets
        WHERE %s > 0
        ORDER BY %s DESC, id ASC
        LIMIT ?;
    `, strings.Join(scoreExprs, " + "), strings.Join(scoreExprs, " + "))

	// The score expression appears twice, so the args do too.
	fullArgs := make([]any, 0, 2*len(keywords)+1)
	fullArgs = append(fullArgs, args[:len(keywords)]...)
	fullArgs = append(fullArgs, args...)

	var snippets []string
	if err := p.db.SelectContext(ctx, &snippets, q, fullArgs...); err != nil {
		p.logger.ErrorContext(ctx, "Snippet search failed", "error", err, "keywords", len(keywords))
		return nil, fmt.Errorf("failed to search snippets: %w", err)
	}

	p.logger.DebugContext(ctx, "Snippet search completed", "keywords", len(keywords), "results", len(snippets))
	return snippets, nil
}

// extractKeywords lowercases the query and keeps words of 4+ characters,
// a cheap stand-in for stopword removal.
func extractKeywords(query string) []string {
	var keywords []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if len(w) >= 4 {
			keywords = append(keywords, w)
		}
	}
	const maxKeywords = 8
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}

// LoadDocuments replaces the snippets table content with paragraphs from
// the .txt files under dir. Called once at startup; a missing or empty
// directory leaves the table empty and is not an error.
func LoadDocuments(ctx context.Context, db *sqlx.DB, dir string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "retrieval")

	if dir == "" {
		log.Info("No documents directory configured, snippet table left empty")
		return nil
	}
	if _, err := os.Stat(dir); err != nil {
		log.Warn("Documents directory not accessible, snippet table left empty", "path", dir, "error", err)
		return nil
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM snippets`); err != nil {
		return fmt.Errorf("failed to clear snippets table: %w", err)
	}

	now := time.Now().UTC()
	loaded := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".txt") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read document %s: %w", path, err)
		}

		for _, para := range strings.Split(string(data), "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			snippet := &database.Snippet{Source: d.Name(), Content: para, CreatedAt: now}
			if _, err := db.NamedExecContext(ctx, `
                INSERT INTO snippets (source, content, created_at)
                VALUES (:source, :content, :created_at);
            `, snippet); err != nil {
				return fmt.Errorf("failed to insert snippet from %s: %w", d.Name(), err)
			}
			loaded++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load documents from %s: %w", dir, err)
	}

	log.Info("Documents loaded into snippet table", "path", dir, "snippets", loaded)
	return nil
}
