// Package retrieval_test tests document loading and snippet search
// against an in-memory SQLite database.
package retrieval_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/dgmulei/obi-slv2/internal/database"
	"github.com/dgmulei/obi-slv2/internal/retrieval"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database failed: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err := database.ApplyMigrations(db.DB); err != nil {
		t.Fatalf("applying migrations failed: %v", err)
	}
	return db
}

func TestLoadDocumentsAndSearch(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	dir := t.TempDir()
	doc := "License renewal requires proof of residence.\n\n" +
		"Renewal fees vary by license class and are posted online.\n\n" +
		"Vision tests are required for applicants over seventy."
	if err := os.WriteFile(filepath.Join(dir, "renewal.txt"), []byte(doc), 0o600); err != nil {
		t.Fatalf("writing document failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored, wrong extension"), 0o600); err != nil {
		t.Fatalf("writing document failed: %v", err)
	}

	if err := retrieval.LoadDocuments(ctx, db, dir, nil); err != nil {
		t.Fatalf("LoadDocuments() unexpected error: %v", err)
	}

	provider := retrieval.NewProvider(db, nil)

	got, err := provider.Search(ctx, "what are the renewal fees?", 3)
	if err != nil {
		t.Fatalf("Search() unexpected error: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("Search() returned no snippets for a matching query")
	}
	if got[0] != "Renewal fees vary by license class and are posted online." {
		t.Errorf("best match = %q", got[0])
	}
}

func TestSearchNoMatches(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	provider := retrieval.NewProvider(db, nil)

	got, err := provider.Search(ctx, "completely unrelated quantum topics", 3)
	if err != nil {
		t.Fatalf("Search() unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Search() on empty table returned %d snippets", len(got))
	}
}

func TestSearchShortWordsIgnored(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	provider := retrieval.NewProvider(db, nil)

	// Only words shorter than four characters: no usable keywords.
	got, err := provider.Search(ctx, "is it ok to go", 3)
	if err != nil {
		t.Fatalf("Search() unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("Search() with no keywords returned %v", got)
	}
}

func TestSearchRespectsLimit(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	dir := t.TempDir()
	doc := "renewal step one\n\nrenewal step two\n\nrenewal step three"
	if err := os.WriteFile(filepath.Join(dir, "steps.txt"), []byte(doc), 0o600); err != nil {
		t.Fatalf("writing document failed: %v", err)
	}
	if err := retrieval.LoadDocuments(ctx, db, dir, nil); err != nil {
		t.Fatalf("LoadDocuments() unexpected error: %v", err)
	}

	provider := retrieval.NewProvider(db, nil)
	got, err := provider.Search(ctx, "renewal steps", 2)
	if err != nil {
		t.Fatalf("Search() unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Search() returned %d snippets, want 2", len(got))
	}

	got, err = provider.Search(ctx, "renewal steps", 0)
	if err != nil {
		t.Fatalf("Search() unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("Search() with zero limit returned %v", got)
	}
}

func TestLoadDocumentsMissingDirectory(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	if err := retrieval.LoadDocuments(ctx, db, filepath.Join(t.TempDir(), "absent"), nil); err != nil {
		t.Errorf("LoadDocuments() on missing directory should not error, got: %v", err)
	}
	if err := retrieval.LoadDocuments(ctx, db, "", nil); err != nil {
		t.Errorf("LoadDocuments() with empty path should not error, got: %v", err)
	}
}
