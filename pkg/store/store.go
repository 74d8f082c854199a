// Package store persists conversation transcripts in SQLite or Postgres.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/vango-go/vocaiyze/pkg/core/conversation"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store records every message of every session.
type Store struct {
	db       *sql.DB
	postgres bool
	logger   *slog.Logger
}

// SessionSummary describes one stored session.
type SessionSummary struct {
	ID        string
	StartedAt time.Time
	Messages  int
	LastText  string
}

// Open connects to dsn and applies pending migrations. postgres:// and
// postgresql:// DSNs use pgx; anything else is a SQLite file path.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("store: empty dsn")
	}

	driver, dialect, postgres := "sqlite", goose.DialectSQLite3, false
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver, dialect, postgres = "pgx", goose.DialectPostgres, true
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if !postgres {
		// One writer; SQLite serializes anyway.
		db.SetMaxOpenConns(1)
	}

	if err := migrate(ctx, db, dialect, logger); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, postgres: postgres, logger: logger}, nil
}

func migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect, logger *slog.Logger) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		logger.Debug("migration applied", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends msg to the transcript of sessionID, creating the session
// on first use.
func (s *Store) Record(ctx context.Context, sessionID string, msg conversation.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	insertSession := "INSERT INTO sessions (id, started_at) VALUES (?, ?) ON CONFLICT (id) DO NOTHING"
	if _, err := tx.ExecContext(ctx, s.rebind(insertSession), sessionID, msg.Timestamp.UTC()); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	var seq int
	if err := tx.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM messages WHERE session_id = ?"), sessionID).Scan(&seq); err != nil {
		return fmt.Errorf("count messages: %w", err)
	}

	insertMessage := "INSERT INTO messages (session_id, seq, speaker, text, language, spoken_at) VALUES (?, ?, ?, ?, ?, ?)"
	if _, err := tx.ExecContext(ctx, s.rebind(insertMessage),
		sessionID, seq, msg.Speaker.String(), msg.Text, msg.Language, msg.Timestamp.UTC()); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return tx.Commit()
}

// Messages returns the transcript of sessionID, oldest first.
func (s *Store) Messages(ctx context.Context, sessionID string) ([]conversation.Message, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		"SELECT speaker, text, language, spoken_at FROM messages WHERE session_id = ? ORDER BY seq"), sessionID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []conversation.Message
	for rows.Next() {
		var speaker string
		var m conversation.Message
		if err := rows.Scan(&speaker, &m.Text, &m.Language, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if speaker == conversation.SpeakerOther.String() {
			m.Speaker = conversation.SpeakerOther
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

// ListSessions returns up to limit sessions, newest first. A limit of zero
// or less returns all of them.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	query := `SELECT s.id, s.started_at,
		(SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id),
		COALESCE((SELECT m.text FROM messages m WHERE m.session_id = s.id ORDER BY m.seq DESC LIMIT 1), '')
		FROM sessions s ORDER BY s.started_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(&sum.ID, &sum.StartedAt, &sum.Messages, &sum.LastText); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

// rebind rewrites ? placeholders as $n for Postgres.
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
