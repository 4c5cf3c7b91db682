// Package vector provides the SQLite-backed, namespaced vector memory
// store with priority-aware search and capacity-bounded pruning.
package vector

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/picobot/picobot/internal/embedding"
	"github.com/picobot/picobot/internal/model"
)

// DefaultMaxMemories bounds rows per namespace before pruning.
const DefaultMaxMemories = 1000

// Store persists memory items in a single SQLite database file.
type Store struct {
	db          *sql.DB
	embedder    embedding.Embedder
	maxMemories int
	namespace   string
	entropy     *rand.Rand
}

// NewStore opens or creates the database at dbPath. defaultNamespace is
// used when operations pass an empty namespace; it must sanitize to a
// non-empty value.
func NewStore(dbPath string, embedder embedding.Embedder, maxMemories int, defaultNamespace string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	ns, err := validateNamespace(defaultNamespace)
	if err != nil {
		return nil, err
	}
	if maxMemories <= 0 {
		maxMemories = DefaultMaxMemories
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{
		db:          db,
		embedder:    embedder,
		maxMemories: maxMemories,
		namespace:   ns,
		entropy:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id           TEXT PRIMARY KEY,
		content      TEXT NOT NULL,
		embedding    BLOB NOT NULL,
		metadata     TEXT DEFAULT '{}',
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL,
		access_count INTEGER DEFAULT 0,
		priority     REAL DEFAULT 0.5,
		namespace    TEXT DEFAULT 'default'
	);
	CREATE INDEX IF NOT EXISTS idx_memories_updated ON memories(updated_at DESC);
	CREATE INDEX IF NOT EXISTS idx_memories_namespace ON memories(namespace);
	CREATE INDEX IF NOT EXISTS idx_memories_ns_priority ON memories(namespace, priority DESC, updated_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Add validates, embeds (unless a non-empty precomputed vector is given),
// inserts a new item, and prunes the namespace down to the configured
// maximum. Initial priority blends the importance hint with a base score.
func (s *Store) Add(ctx context.Context, content string, metadata map[string]any, namespace string, precomputed embedding.Vector) (*model.MemoryItem, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}
	ns, err := s.resolveNamespace(namespace)
	if err != nil {
		return nil, err
	}

	vec := precomputed
	if len(vec) == 0 {
		vec, err = s.embedder.Embed(ctx, content)
		if err != nil {
			return nil, fmt.Errorf("embed content: %w", err)
		}
	}

	now := time.Now().UTC()
	importance := model.MetadataFloat(metadata, "importance", 0.5)
	priority := clamp01(importance*0.4 + 0.3)

	metaJSON, err := marshalMetadata(metadata)
	if err != nil {
		return nil, err
	}
	id := s.newID()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO memories (id, content, embedding, metadata, created_at, updated_at, access_count, priority, namespace)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		id, content, vectorToBytes(vec), metaJSON,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano), priority, ns)
	if err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}

	if err := pruneNamespace(ctx, tx, ns, s.maxMemories); err != nil {
		return nil, fmt.Errorf("prune namespace: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &model.MemoryItem{
		ID:          id,
		Content:     content,
		Embedding:   vec,
		Metadata:    metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
		AccessCount: 0,
		Priority:    priority,
		Namespace:   ns,
	}, nil
}

// Update rewrites an existing item. Returns (nil, nil) when the id does
// not exist in the namespace. Content is re-embedded only when it changed
// and no precomputed vector was supplied. Priority is recomputed from
// importance, recency, and access frequency.
func (s *Store) Update(ctx context.Context, id, content string, metadata map[string]any, namespace string, precomputed embedding.Vector) (*model.MemoryItem, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}
	ns, err := s.resolveNamespace(namespace)
	if err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, id, ns)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	vec := precomputed
	if len(vec) == 0 {
		if content == existing.Content {
			vec = existing.Embedding
		} else {
			vec, err = s.embedder.Embed(ctx, content)
			if err != nil {
				return nil, fmt.Errorf("embed content: %w", err)
			}
		}
	}

	now := time.Now().UTC()
	importance := model.MetadataFloat(metadata, "importance", 0.5)
	ageDays := now.Sub(existing.CreatedAt).Seconds() / 86400.0
	recency := clamp01(1.0 - ageDays/30.0)
	accessScore := clamp01(math.Sqrt(float64(existing.AccessCount)) / 10.0)
	priority := clamp01(importance*0.4 + recency*0.3 + accessScore*0.3)

	metaJSON, err := marshalMetadata(metadata)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE memories SET content = ?, embedding = ?, metadata = ?, updated_at = ?, priority = ?
		 WHERE id = ? AND namespace = ?`,
		content, vectorToBytes(vec), metaJSON, now.Format(time.RFC3339Nano), priority, id, ns)
	if err != nil {
		return nil, fmt.Errorf("update memory: %w", err)
	}

	return &model.MemoryItem{
		ID:          id,
		Content:     content,
		Embedding:   vec,
		Metadata:    metadata,
		CreatedAt:   existing.CreatedAt,
		UpdatedAt:   now,
		AccessCount: existing.AccessCount,
		Priority:    priority,
		Namespace:   ns,
	}, nil
}

// Delete removes an item. Returns true iff a row was removed.
func (s *Store) Delete(ctx context.Context, id, namespace string) (bool, error) {
	ns, err := s.resolveNamespace(namespace)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ? AND namespace = ?`, id, ns)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Get fetches an item by id in-namespace, or nil when absent.
func (s *Store) Get(ctx context.Context, id, namespace string) (*model.MemoryItem, error) {
	ns, err := s.resolveNamespace(namespace)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, content, embedding, metadata, created_at, updated_at, access_count, priority, namespace
		 FROM memories WHERE id = ? AND namespace = ?`, id, ns)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) resolveNamespace(namespace string) (string, error) {
	if namespace == "" {
		return s.namespace, nil
	}
	return validateNamespace(namespace)
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("content cannot be empty")
	}
	if len(content) > model.MaxContentLength {
		return "", fmt.Errorf("content exceeds maximum length of %d", model.MaxContentLength)
	}
	return content, nil
}

func marshalMetadata(metadata map[string]any) (string, error) {
	if len(metadata) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(b), nil
}

// pruneNamespace deletes the lowest-priority, oldest-updated rows until
// the namespace is back at max rows. Exactly count-max rows are removed.
func pruneNamespace(ctx context.Context, tx *sql.Tx, namespace string, max int) error {
	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories WHERE namespace = ?`, namespace).Scan(&count); err != nil {
		return err
	}
	if count <= max {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		`DELETE FROM memories WHERE id IN (
			SELECT id FROM memories WHERE namespace = ?
			ORDER BY priority ASC, updated_at ASC LIMIT ?
		) AND namespace = ?`,
		namespace, count-max, namespace)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*model.MemoryItem, error) {
	var m model.MemoryItem
	var blob []byte
	var metaJSON, createdAt, updatedAt string

	err := row.Scan(&m.ID, &m.Content, &blob, &metaJSON, &createdAt, &updatedAt,
		&m.AccessCount, &m.Priority, &m.Namespace)
	if err != nil {
		return nil, err
	}

	m.Embedding = bytesToVector(blob)
	if metaJSON != "" {
		json.Unmarshal([]byte(metaJSON), &m.Metadata)
	}
	m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	m.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &m, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// vectorToBytes encodes a vector as little-endian float32s.
func vectorToBytes(vec embedding.Vector) []byte {
	out := make([]byte, 0, len(vec)*4)
	for _, v := range vec {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

func bytesToVector(b []byte) embedding.Vector {
	out := make(embedding.Vector, 0, len(b)/4)
	for i := 0; i+4 <= len(b); i += 4 {
		out = append(out, math.Float32frombits(binary.LittleEndian.Uint32(b[i:i+4])))
	}
	return out
}
