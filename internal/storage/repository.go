package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shosatojp/kakeibo-back/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the durable store behind credentials, sessions and the
// ledger. All statements are parameterized; constraint violations and no-row
// results are translated into the core error taxonomy at this boundary so no
// raw driver error reaches a service.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateUser inserts a new user and returns its id. A taken user name
// surfaces as core.ErrConflict.
func (r *SQLiteRepository) CreateUser(ctx context.Context, userName, passwordDigest string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (user_name, password_digest) VALUES (?, ?)`,
		userName, passwordDigest)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, core.ErrConflict
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user insert id: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", id, "user_name", userName)
	return id, nil
}

func (r *SQLiteRepository) GetUserByName(ctx context.Context, userName string) (*core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, user_name, password_digest FROM users WHERE user_name = ?`,
		userName).Scan(&u.ID, &u.UserName, &u.PasswordDigest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user by name: %w", err)
	}
	return &u, nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (*core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, user_name, password_digest FROM users WHERE user_id = ?`,
		id).Scan(&u.ID, &u.UserName, &u.PasswordDigest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user by id: %w", err)
	}
	return &u, nil
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, s core.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_on) VALUES (?, ?, ?)`,
		s.ID, s.UserID, s.CreatedOn.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrConflict
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession looks a session up by the (token, owner) pair.
func (r *SQLiteRepository) GetSession(ctx context.Context, sessionID string, userID int64) (*core.Session, error) {
	var (
		s  core.Session
		ms int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_on FROM sessions WHERE id = ? AND user_id = ?`,
		sessionID, userID).Scan(&s.ID, &s.UserID, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	s.CreatedOn = time.UnixMilli(ms).UTC()
	return &s, nil
}

// DeleteSession removes the (token, owner) row and reports how many rows went
// away. Deleting an absent session is not an error.
func (r *SQLiteRepository) DeleteSession(ctx context.Context, sessionID string, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = ? AND user_id = ?`,
		sessionID, userID)
	if err != nil {
		return 0, fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete session rows affected: %w", err)
	}
	return n, nil
}

// ReplaceSession atomically swaps oldID for next within one transaction. It
// returns core.ErrNotFound without inserting anything when the old token does
// not belong to the user.
func (r *SQLiteRepository) ReplaceSession(ctx context.Context, oldID string, userID int64, next core.Session) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rotate transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = ? AND user_id = ?`,
		oldID, userID)
	if err != nil {
		return fmt.Errorf("delete old session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rotate rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_on) VALUES (?, ?, ?)`,
		next.ID, next.UserID, next.CreatedOn.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert rotated session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rotate transaction: %w", err)
	}
	return nil
}

// DeleteSessionsBefore purges every session created before cutoff.
func (r *SQLiteRepository) DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE created_on < ?`,
		cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete stale sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("stale sessions rows affected: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CreateEntry(ctx context.Context, e core.Entry) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO entries (user_id, title, price, date, created_on, category, created_by, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Title, e.Price, e.Date.Millis(), e.CreatedOn.UnixMilli(),
		e.Category, e.CreatedBy, e.Description)
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("entry insert id: %w", err)
	}

	slog.InfoContext(ctx, "Entry saved",
		"id", id,
		"user_id", e.UserID,
		"price", e.Price,
		"category", e.Category)

	return id, nil
}

const entryColumns = `id, user_id, title, price, date, created_on, category, created_by, description`

func scanEntries(rows *sql.Rows) ([]core.Entry, error) {
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		var (
			e           core.Entry
			dateMs      int64
			createdMs   int64
			description sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Title, &e.Price, &dateMs,
			&createdMs, &e.Category, &e.CreatedBy, &description); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Date = core.DateFromMillis(dateMs)
		e.CreatedOn = time.UnixMilli(createdMs).UTC()
		e.Description = description.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListEntries returns the user's entries with date in the half-open window
// [start, end). No ordering is imposed beyond the store's natural order.
func (r *SQLiteRepository) ListEntries(ctx context.Context, userID int64, start, end time.Time) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE user_id = ? AND date >= ? AND date < ?`,
		userID, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	return scanEntries(rows)
}

func (r *SQLiteRepository) ListAllEntries(ctx context.Context, userID int64) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE user_id = ?`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("select all entries: %w", err)
	}
	return scanEntries(rows)
}

// DeleteEntry removes an entry by id alone, with no ownership check.
func (r *SQLiteRepository) DeleteEntry(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete entry rows affected: %w", err)
	}
	return n, nil
}

// DeleteEntryOwned removes an entry only when it belongs to userID.
func (r *SQLiteRepository) DeleteEntryOwned(ctx context.Context, id, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM entries WHERE id = ? AND user_id = ?`,
		id, userID)
	if err != nil {
		return 0, fmt.Errorf("delete owned entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete owned entry rows affected: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) DistinctCategories(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM entries WHERE user_id = ?`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// SumByCategory aggregates count and sum per category over [start, end).
// Categories with no entries in the window do not appear.
func (r *SQLiteRepository) SumByCategory(ctx context.Context, userID int64, start, end time.Time) ([]core.CategorySum, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, COUNT(*), SUM(price)
		 FROM entries
		 WHERE user_id = ? AND date >= ? AND date < ?
		 GROUP BY category`,
		userID, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("sum entries by category: %w", err)
	}
	defer rows.Close()

	var sums []core.CategorySum
	for rows.Next() {
		var cs core.CategorySum
		if err := rows.Scan(&cs.Category, &cs.Count, &cs.Sum); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		sums = append(sums, cs)
	}
	return sums, rows.Err()
}
