package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"jarvis/internal/logging"
)

// InMemoryPath opens a database that lives only as long as the store.
const InMemoryPath = ":memory:"

// SQLiteMemory is a MemoryStore backed by SQLite. Recall is keyword scoring
// over the most recent matching rows.
type SQLiteMemory struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	closed bool
	now    func() time.Time
}

// OpenSQLiteMemory opens or creates the database at path. Use InMemoryPath
// for a non-persistent store.
func OpenSQLiteMemory(path string) (*SQLiteMemory, error) {
	timer := logging.StartTimer(logging.CategoryStore, "OpenSQLiteMemory")
	defer timer.Stop()

	if path == "" {
		path = InMemoryPath
	}
	if path != InMemoryPath {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: an in-memory database is per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if path != InMemoryPath {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
		}
	}

	s := &SQLiteMemory{db: db, dbPath: path, now: time.Now}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("Memory store ready at %s", path)
	return s, nil
}

func (s *SQLiteMemory) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		session_id TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_kind ON memories(kind);
	CREATE INDEX IF NOT EXISTS idx_memories_session ON memories(session_id);
	CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Path returns the database location.
func (s *SQLiteMemory) Path() string { return s.dbPath }

// Close closes the database connection.
func (s *SQLiteMemory) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Append stores e, assigning an ID and timestamp when missing.
func (s *SQLiteMemory) Append(ctx context.Context, e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return e, ErrClosed
	}

	if strings.TrimSpace(e.Content) == "" {
		return e, fmt.Errorf("memory content is empty")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Kind == "" {
		e.Kind = KindNote
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	meta := "{}"
	if len(e.Metadata) > 0 {
		data, err := json.Marshal(e.Metadata)
		if err != nil {
			return e, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		meta = string(data)
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO memories (id, kind, session_id, user_id, content, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		e.ID, string(e.Kind), e.SessionID, e.UserID, e.Content, meta, e.CreatedAt.UnixNano(),
	)
	logging.Audit().MemoryStore(string(e.Kind), err)
	if err != nil {
		return e, fmt.Errorf("failed to store memory: %w", err)
	}
	return e, nil
}

// Query returns up to limit entries ranked by keyword overlap with text,
// newest first among equal scores.
func (s *SQLiteMemory) Query(ctx context.Context, text string, limit int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 3
	}

	keywords := Keywords(text)
	if len(keywords) == 0 {
		return nil, nil
	}

	var conditions []string
	var args []any
	for _, kw := range keywords {
		conditions = append(conditions, "LOWER(content) LIKE ?")
		args = append(args, "%"+kw+"%")
	}
	query := fmt.Sprintf(
		"SELECT id, kind, session_id, user_id, content, metadata, created_at FROM memories WHERE %s ORDER BY created_at DESC LIMIT 500",
		strings.Join(conditions, " OR "),
	)

	entries, err := s.scan(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(entries))
	for _, e := range entries {
		if score := Score(keywords, e.Content); score > 0 {
			hits = append(hits, Hit{Entry: e, Score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].CreatedAt.After(hits[j].CreatedAt)
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	logging.Audit().MemoryRecall(text, len(hits))
	return hits, nil
}

// List returns entries newest first.
func (s *SQLiteMemory) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	where, args := opts.where()
	query := "SELECT id, kind, session_id, user_id, content, metadata, created_at FROM memories" + where + " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	return s.scan(ctx, query, args...)
}

// Clear deletes entries matching opts and returns how many were removed.
func (s *SQLiteMemory) Clear(ctx context.Context, opts ListOptions) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	where, args := opts.where()
	res, err := s.db.ExecContext(ctx, "DELETE FROM memories"+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to clear memories: %w", err)
	}
	n, _ := res.RowsAffected()
	logging.Store("Cleared %d memories", n)
	return n, nil
}

// Stats returns entry counts per kind.
func (s *SQLiteMemory) Stats(ctx context.Context) (map[Kind]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM memories GROUP BY kind")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[Kind]int64)
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		stats[Kind(kind)] = n
	}
	return stats, rows.Err()
}

func (o ListOptions) where() (string, []any) {
	var conds []string
	var args []any
	if o.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, string(o.Kind))
	}
	if o.SessionID != "" {
		conds = append(conds, "session_id = ?")
		args = append(args, o.SessionID)
	}
	if o.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, o.UserID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *SQLiteMemory) scan(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var kind, meta string
		var created int64
		if err := rows.Scan(&e.ID, &kind, &e.SessionID, &e.UserID, &e.Content, &meta, &created); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		e.Kind = Kind(kind)
		e.CreatedAt = time.Unix(0, created)
		if meta != "" && meta != "{}" {
			if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
				logging.StoreWarn("Memory %s has unreadable metadata: %v", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
