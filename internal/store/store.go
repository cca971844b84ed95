// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists digest artifacts and a run-history index. The core
// pipeline never touches it; the CLI hands it finished results.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-digest/pkg/types"
)

const dbFile = "history.db"

// Store writes digest artifacts to the output directory and records each
// run in a SQLite history database.
type Store struct {
	db        *sql.DB
	outputDir string
}

// SavedRun describes one persisted digest.
type SavedRun struct {
	ID           string    `json:"id" yaml:"id"`
	TargetDate   string    `json:"target_date" yaml:"target_date"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	PaperCount   int       `json:"paper_count" yaml:"paper_count"`
	MarkdownPath string    `json:"markdown_path" yaml:"markdown_path"`
	MetadataPath string    `json:"metadata_path" yaml:"metadata_path"`
}

// Open creates the output directory if needed and opens (or creates) the
// history database inside it.
func Open(cfg types.StoreConfig) (*Store, error) {
	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = "output"
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	dbPath := filepath.Join(outputDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	s := &Store{db: db, outputDir: outputDir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		target_date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		paper_count INTEGER NOT NULL,
		markdown_path TEXT NOT NULL,
		metadata_path TEXT NOT NULL
	)`)
	return err
}

// Save writes the digest as a Markdown artifact plus a YAML metadata file
// and records the run in the history index.
func (s *Store) Save(result *types.RecommendationResult, targetDate time.Time) (SavedRun, error) {
	run := SavedRun{
		ID:         uuid.NewString(),
		TargetDate: targetDate.Format("2006-01-02"),
		CreatedAt:  time.Now().UTC(),
		PaperCount: len(result.Papers),
	}

	base := fmt.Sprintf("digest-%s-%s", run.TargetDate, run.ID[:8])
	run.MarkdownPath = filepath.Join(s.outputDir, base+".md")
	run.MetadataPath = filepath.Join(s.outputDir, base+".yaml")

	if err := os.WriteFile(run.MarkdownPath, []byte(renderMarkdown(result, run.TargetDate)), 0o644); err != nil {
		return SavedRun{}, fmt.Errorf("writing markdown artifact: %w", err)
	}

	meta := struct {
		Run    SavedRun                    `yaml:"run"`
		Result *types.RecommendationResult `yaml:"result"`
	}{run, result}
	data, err := yaml.Marshal(meta)
	if err != nil {
		return SavedRun{}, fmt.Errorf("marshaling metadata: %w", err)
	}
	if err := os.WriteFile(run.MetadataPath, data, 0o644); err != nil {
		return SavedRun{}, fmt.Errorf("writing metadata artifact: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO runs (id, target_date, created_at, paper_count, markdown_path, metadata_path)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.TargetDate, run.CreatedAt.Format(time.RFC3339Nano), run.PaperCount,
		run.MarkdownPath, run.MetadataPath,
	)
	if err != nil {
		return SavedRun{}, fmt.Errorf("recording run: %w", err)
	}
	return run, nil
}

// History returns the most recent runs, newest first.
func (s *Store) History(limit int) ([]SavedRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, target_date, created_at, paper_count, markdown_path, metadata_path
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var runs []SavedRun
	for rows.Next() {
		var run SavedRun
		var createdAt string
		if err := rows.Scan(&run.ID, &run.TargetDate, &createdAt, &run.PaperCount,
			&run.MarkdownPath, &run.MetadataPath); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if t, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
			run.CreatedAt = t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// renderMarkdown lays the three report sections out as one document.
func renderMarkdown(result *types.RecommendationResult, targetDate string) string {
	doc := fmt.Sprintf("# Paper digest for %s\n\n## Summary\n\n%s\n\n## Detailed analysis\n\n%s\n",
		targetDate, result.Summary, result.DetailedAnalysis)
	if result.BriefAnalysis != "" {
		doc += fmt.Sprintf("\n## Also of interest\n\n%s\n", result.BriefAnalysis)
	}
	return doc
}
