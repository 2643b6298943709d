package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"feedback-bot/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS reviews (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	username TEXT,
	review TEXT NOT NULL,
	answered INTEGER NOT NULL DEFAULT 0,
	admin_answer TEXT DEFAULT NULL
)`

// SQLiteReviews is a review store on a local SQLite file.
type SQLiteReviews struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// reviews table exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteReviews, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("repository: sqlite path must not be empty")
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path))
	if err != nil {
		return nil, fmt.Errorf("repository: open sqlite: %w", err)
	}
	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository: ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository: create schema: %w", err)
	}
	return &SQLiteReviews{db: db}, nil
}

func (s *SQLiteReviews) Close() error {
	return s.db.Close()
}

func (s *SQLiteReviews) Create(ctx context.Context, respondentID int64, handle, body string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO reviews (user_id, username, review) VALUES (?, ?, ?)",
		respondentID, nullString(handle), body,
	)
	if err != nil {
		return 0, fmt.Errorf("repository: Create: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("repository: Create last id: %w", err)
	}
	return id, nil
}

func (s *SQLiteReviews) Get(ctx context.Context, id int64) (domain.Review, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, username, review, answered, admin_answer FROM reviews WHERE id = ?", id)
	r, err := scanReview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Review{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Review{}, fmt.Errorf("repository: Get: %w", err)
	}
	return r, nil
}

func (s *SQLiteReviews) ListUnanswered(ctx context.Context) ([]domain.Review, error) {
	reviews, err := s.list(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("repository: ListUnanswered: %w", err)
	}
	return reviews, nil
}

func (s *SQLiteReviews) ListAnswered(ctx context.Context) ([]domain.Review, error) {
	reviews, err := s.list(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("repository: ListAnswered: %w", err)
	}
	return reviews, nil
}

func (s *SQLiteReviews) list(ctx context.Context, answered bool) ([]domain.Review, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, username, review, answered, admin_answer FROM reviews WHERE answered = ? ORDER BY id",
		boolInt(answered))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var reviews []domain.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (s *SQLiteReviews) MarkAnswered(ctx context.Context, id int64, reply string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE reviews SET answered = 1, admin_answer = ? WHERE id = ?", reply, id)
	if err != nil {
		return fmt.Errorf("repository: MarkAnswered: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: MarkAnswered rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("repository: MarkAnswered %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *SQLiteReviews) CountDistinctRespondents(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT user_id) FROM reviews").Scan(&n); err != nil {
		return 0, fmt.Errorf("repository: CountDistinctRespondents: %w", err)
	}
	return n, nil
}

func (s *SQLiteReviews) CountTotalReviews(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews").Scan(&n); err != nil {
		return 0, fmt.Errorf("repository: CountTotalReviews: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (domain.Review, error) {
	var (
		r        domain.Review
		handle   sql.NullString
		answered int
		reply    sql.NullString
	)
	if err := row.Scan(&r.ID, &r.RespondentID, &handle, &r.Body, &answered, &reply); err != nil {
		return domain.Review{}, err
	}
	r.RespondentHandle = handle.String
	r.Answered = answered != 0
	r.OperatorReply = reply.String
	return r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
