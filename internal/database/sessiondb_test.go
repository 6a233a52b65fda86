package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/udpscope/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *SessionDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testSession(id string, started time.Time) model.SessionSummary {
	last := started.Add(90 * time.Second)
	return model.SessionSummary{
		ID:        id,
		LocalAddr: "0.0.0.0:8888",
		StartedAt: started,
		EndedAt:   started.Add(2 * time.Minute),
		Statistics: model.Statistics{
			TotalPackets:   3,
			TotalBytes:     42,
			StartTime:      started,
			LastPacketTime: &last,
			FormatCounts: map[model.Format]uint64{
				model.FormatText: 2,
				model.FormatJSON: 1,
			},
		},
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "missing")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Fatalf("expected ErrDatabaseNotFound, got %v", err)
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		if _, err := db1.SaveSession(context.Background(), testSession("persisted", started)); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		_ = db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db2.Close()

		if _, err := db2.GetSession(context.Background(), "persisted"); err != nil {
			t.Errorf("expected persisted session, got %v", err)
		}
	})
}

func TestSessionDBSaveAndGet(t *testing.T) {
	t.Parallel()

	t.Run("round trips all aggregate fields", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		want := testSession("abc", time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC))

		id, err := db.SaveSession(ctx, want)
		if err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if id != "abc" {
			t.Errorf("expected id abc, got %q", id)
		}

		got, err := db.GetSession(ctx, "abc")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("session mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("generates an ID when empty", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		id, err := db.SaveSession(context.Background(), testSession("", time.Now().UTC()))
		if err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if len(id) != 36 {
			t.Errorf("expected uuid, got %q", id)
		}
	})

	t.Run("saving the same ID replaces the row", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		s := testSession("same", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
		if _, err := db.SaveSession(ctx, s); err != nil {
			t.Fatal(err)
		}
		s.Statistics.TotalPackets = 10
		if _, err := db.SaveSession(ctx, s); err != nil {
			t.Fatal(err)
		}

		n, err := db.CountSessions(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("expected 1 session, got %d", n)
		}
		got, err := db.GetSession(ctx, "same")
		if err != nil {
			t.Fatal(err)
		}
		if got.Statistics.TotalPackets != 10 {
			t.Errorf("expected updated counters, got %d", got.Statistics.TotalPackets)
		}
	})

	t.Run("session without packets", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		empty := model.SessionSummary{
			ID:         "empty",
			LocalAddr:  "127.0.0.1:9999",
			StartedAt:  started,
			EndedAt:    started.Add(time.Second),
			Statistics: model.Statistics{StartTime: started},
		}
		if _, err := db.SaveSession(ctx, empty); err != nil {
			t.Fatal(err)
		}
		got, err := db.GetSession(ctx, "empty")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(empty, got); diff != "" {
			t.Errorf("session mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unknown ID", func(t *testing.T) {
		t.Parallel()

		_, err := setupTestDB(t).GetSession(context.Background(), "nope")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestSessionDBListSessions(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Insert out of order; sub-second offsets check that sorting is chronological.
	for i, offset := range []time.Duration{time.Second, 0, 1500 * time.Millisecond} {
		s := testSession(string(rune('a'+i)), base.Add(offset))
		if _, err := db.SaveSession(ctx, s); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
	}

	t.Run("newest first", func(t *testing.T) {
		t.Parallel()

		sessions, err := db.ListSessions(ctx, 0)
		if err != nil {
			t.Fatal(err)
		}
		var ids []string
		for _, s := range sessions {
			ids = append(ids, s.ID)
		}
		if diff := cmp.Diff([]string{"c", "a", "b"}, ids); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("limit", func(t *testing.T) {
		t.Parallel()

		sessions, err := db.ListSessions(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(sessions) != 1 || sessions[0].ID != "c" {
			t.Errorf("expected only newest session, got %+v", sessions)
		}
	})
}

func TestSessionDBListEmpty(t *testing.T) {
	t.Parallel()

	sessions, err := setupTestDB(t).ListSessions(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if sessions == nil || len(sessions) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", sessions)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"stored layout", "2026-03-01T12:00:00.500000000Z", time.Date(2026, 3, 1, 12, 0, 0, 500000000, time.UTC)},
		{"rfc3339", "2026-03-01T12:00:00Z", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		{"sqlite default", "2026-03-01 12:00:00", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		{"garbage", "yesterday", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := parseTimestamp(tt.input); !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
