package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/udpscope/internal/model"
)

// FileName is the name of the SQLite file created inside the data directory.
const FileName = "udpscope.db"

// DefaultListLimit is the number of sessions ListSessions returns when the
// caller passes a non-positive limit.
const DefaultListLimit = 20

var (
	// ErrSessionNotFound is returned when no session has the requested ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrDatabaseNotFound is returned by Open when the file is missing and
	// CreateIfNotExists is false.
	ErrDatabaseNotFound = errors.New("database not found")
)

// SessionDB stores aggregate summaries of listening sessions.
type SessionDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures SessionDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// Open opens or creates the session database inside dbDir.
func Open(dbDir string, opts Options) (*SessionDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a new file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &SessionDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return sdb, nil
}

// Path returns the location of the database file.
func (sdb *SessionDB) Path() string {
	return sdb.dbPath
}

// Close closes the database connection.
func (sdb *SessionDB) Close() error {
	return sdb.db.Close()
}

func (sdb *SessionDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		local_addr TEXT NOT NULL,
		started_at TEXT NOT NULL,
		ended_at TEXT NOT NULL,
		total_packets INTEGER NOT NULL DEFAULT 0,
		total_bytes INTEGER NOT NULL DEFAULT 0,
		last_packet_time TEXT,
		format_counts TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
	`

	_, err := sdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveSession inserts the summary, replacing any existing row with the same
// ID. An empty ID is replaced with a new one, which is returned.
func (sdb *SessionDB) SaveSession(ctx context.Context, s model.SessionSummary) (string, error) {
	if s.ID == "" {
		s.ID = NewSessionID()
	}

	countsJSON, err := json.Marshal(s.Statistics.FormatCounts)
	if err != nil {
		return "", fmt.Errorf("failed to serialize format counts: %w", err)
	}

	var lastPacket sql.NullString
	if s.Statistics.LastPacketTime != nil {
		lastPacket = sql.NullString{String: formatTimestamp(*s.Statistics.LastPacketTime), Valid: true}
	}

	query := `
	INSERT INTO sessions (id, local_addr, started_at, ended_at, total_packets, total_bytes, last_packet_time, format_counts)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		local_addr = excluded.local_addr,
		started_at = excluded.started_at,
		ended_at = excluded.ended_at,
		total_packets = excluded.total_packets,
		total_bytes = excluded.total_bytes,
		last_packet_time = excluded.last_packet_time,
		format_counts = excluded.format_counts
	`

	_, err = sdb.db.ExecContext(ctx, query,
		s.ID,
		s.LocalAddr,
		formatTimestamp(s.StartedAt),
		formatTimestamp(s.EndedAt),
		int64(s.Statistics.TotalPackets), //nolint:gosec // counters stay far below 2^63
		int64(s.Statistics.TotalBytes),   //nolint:gosec // counters stay far below 2^63
		lastPacket,
		string(countsJSON),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return s.ID, nil
}

// GetSession returns the session with the given ID.
func (sdb *SessionDB) GetSession(ctx context.Context, id string) (model.SessionSummary, error) {
	query := `
	SELECT id, local_addr, started_at, ended_at, total_packets, total_bytes, last_packet_time, format_counts
	FROM sessions
	WHERE id = ?
	`

	s, err := scanSession(sdb.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.SessionSummary{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return model.SessionSummary{}, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// ListSessions returns up to limit sessions, newest first.
func (sdb *SessionDB) ListSessions(ctx context.Context, limit int) ([]model.SessionSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
	SELECT id, local_addr, started_at, ended_at, total_packets, total_bytes, last_packet_time, format_counts
	FROM sessions
	ORDER BY started_at DESC
	LIMIT ?
	`

	rows, err := sdb.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []model.SessionSummary{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// CountSessions returns how many sessions are stored.
func (sdb *SessionDB) CountSessions(ctx context.Context) (int, error) {
	var n int
	if err := sdb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (model.SessionSummary, error) {
	var (
		s                   model.SessionSummary
		startedAt, endedAt  string
		packets, bytesTotal int64
		lastPacket          sql.NullString
		countsJSON          sql.NullString
	)

	if err := row.Scan(&s.ID, &s.LocalAddr, &startedAt, &endedAt, &packets, &bytesTotal, &lastPacket, &countsJSON); err != nil {
		return model.SessionSummary{}, err
	}

	s.StartedAt = parseTimestamp(startedAt)
	s.EndedAt = parseTimestamp(endedAt)
	s.Statistics.StartTime = s.StartedAt
	s.Statistics.TotalPackets = uint64(packets)  //nolint:gosec // written from uint64
	s.Statistics.TotalBytes = uint64(bytesTotal) //nolint:gosec // written from uint64

	if lastPacket.Valid {
		t := parseTimestamp(lastPacket.String)
		s.Statistics.LastPacketTime = &t
	}

	if countsJSON.Valid && countsJSON.String != "" && countsJSON.String != "null" {
		if err := json.Unmarshal([]byte(countsJSON.String), &s.Statistics.FormatCounts); err != nil {
			return model.SessionSummary{}, fmt.Errorf("failed to parse format counts: %w", err)
		}
	}

	return s, nil
}

// storedTimeLayout has a fixed width so that ORDER BY on the text column
// sorts chronologically.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timestampFormats lists the layouts accepted when reading timestamps back.
var timestampFormats = []string{
	storedTimeLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

// parseTimestamp returns the zero time if s matches no known layout.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
