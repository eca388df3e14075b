// Package storage persists deal analyses and run history in a local SQLite
// database.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NaNostyle/pc-component-mixer-ai/internal/market"
	_ "modernc.org/sqlite"
)

// RunRecord summarizes one completed pipeline run.
type RunRecord struct {
	Intent         string
	SpecJSON       string
	ListingCount   int
	AnnotatedCount int
	CostUSD        float64
	OutputPath     string
	CreatedAt      time.Time
}

// Store is the persistence interface used by the analysis cache and the run
// log. GetAnalysis returns (nil, nil) on a cache miss.
type Store interface {
	GetAnalysis(key string) (*market.DealAnalysis, error)
	SetAnalysis(key string, analysis *market.DealAnalysis) error
	SaveRun(run RunRecord) error
	Close() error
}

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// ensures the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_cache (
			listing_key TEXT PRIMARY KEY,
			payload     TEXT NOT NULL,
			created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS runs (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			intent          TEXT NOT NULL,
			spec_json       TEXT NOT NULL,
			listing_count   INTEGER NOT NULL,
			annotated_count INTEGER NOT NULL,
			cost_usd        REAL NOT NULL,
			output_path     TEXT NOT NULL,
			created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

// GetAnalysis looks up a cached analysis by listing key. A miss is not an
// error.
func (s *SQLiteStore) GetAnalysis(key string) (*market.DealAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRow(
		"SELECT payload FROM analysis_cache WHERE listing_key = ?", key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis cache: %w", err)
	}

	var analysis market.DealAnalysis
	if err := json.Unmarshal([]byte(payload), &analysis); err != nil {
		return nil, fmt.Errorf("failed to decode cached analysis: %w", err)
	}
	return &analysis, nil
}

// SetAnalysis stores or replaces the analysis for a listing key.
func (s *SQLiteStore) SetAnalysis(key string, analysis *market.DealAnalysis) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO analysis_cache (listing_key, payload) VALUES (?, ?)
		ON CONFLICT(listing_key) DO UPDATE SET payload = excluded.payload, created_at = CURRENT_TIMESTAMP
	`, key, string(payload))
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

// SaveRun appends a run summary to the run log.
func (s *SQLiteStore) SaveRun(run RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO runs (intent, spec_json, listing_count, annotated_count, cost_usd, output_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.Intent, run.SpecJSON, run.ListingCount, run.AnnotatedCount, run.CostUSD, run.OutputPath, createdAt)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
