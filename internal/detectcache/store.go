// Package detectcache persists raw detection results in SQLite so repeat
// runs over the same source (for example re-rendering with black fill
// instead of blur, or a different confidence threshold) skip the expensive
// DNN pass. Entries store pre-threshold candidates, which is what makes them
// reusable across runs with different filter settings.
package detectcache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"textmask/internal/regions"
)

// Store manages detection-result persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the cache database and applies the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	schema := `CREATE TABLE IF NOT EXISTS detections (
        fingerprint TEXT NOT NULL,
        model TEXT NOT NULL,
        frame_idx INTEGER NOT NULL,
        candidates_json TEXT NOT NULL,
        created_at TEXT NOT NULL,
        PRIMARY KEY (fingerprint, model, frame_idx)
    )`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ForSource binds the store to one source fingerprint and model identity.
// The returned cache satisfies the detection adapter's CandidateCache.
func (s *Store) ForSource(fingerprint, model string) *SourceCache {
	return &SourceCache{store: s, fingerprint: fingerprint, model: model}
}

// SourceCache reads and writes candidates for a single (source, model) pair.
type SourceCache struct {
	store       *Store
	fingerprint string
	model       string
}

type candidateRecord struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"w"`
	Height     int     `json:"h"`
	Confidence float64 `json:"conf"`
}

// Get returns the cached candidates for a frame, with ok=false on a miss.
func (c *SourceCache) Get(ctx context.Context, frameIdx int) ([]regions.Candidate, bool, error) {
	var payload string
	err := c.store.db.QueryRowContext(ctx,
		`SELECT candidates_json FROM detections WHERE fingerprint = ? AND model = ? AND frame_idx = ?`,
		c.fingerprint, c.model, frameIdx,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query detections: %w", err)
	}

	var records []candidateRecord
	if err := json.Unmarshal([]byte(payload), &records); err != nil {
		return nil, false, fmt.Errorf("decode detections: %w", err)
	}
	candidates := make([]regions.Candidate, 0, len(records))
	for _, rec := range records {
		candidates = append(candidates, regions.Candidate{
			Box:        image.Rect(rec.X, rec.Y, rec.X+rec.Width, rec.Y+rec.Height),
			Confidence: rec.Confidence,
		})
	}
	return candidates, true, nil
}

// Put stores the raw candidates for a frame, replacing any previous entry.
func (c *SourceCache) Put(ctx context.Context, frameIdx int, candidates []regions.Candidate) error {
	records := make([]candidateRecord, 0, len(candidates))
	for _, cand := range candidates {
		records = append(records, candidateRecord{
			X:          cand.Box.Min.X,
			Y:          cand.Box.Min.Y,
			Width:      cand.Box.Dx(),
			Height:     cand.Box.Dy(),
			Confidence: cand.Confidence,
		})
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode detections: %w", err)
	}

	_, err = c.store.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO detections (fingerprint, model, frame_idx, candidates_json, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		c.fingerprint, c.model, frameIdx, string(payload), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert detections: %w", err)
	}
	return nil
}

// Fingerprint derives a stable identity for a source file from its absolute
// path, size, and modification time. Content hashing is deliberately
// avoided; videos are large and any byte-level edit also changes mtime.
func Fingerprint(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve source path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d", abs, info.Size(), info.ModTime().UnixNano())))
	return fmt.Sprintf("%x", sum[:16]), nil
}
