package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Totarae/shorttty/internal/model"
	_ "github.com/tursodatabase/libsql-client-go/libsql" // libSQL / Turso
	_ "modernc.org/sqlite"                               // локальный SQLite без cgo
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS urls (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	original_url TEXT NOT NULL,
	short_url    TEXT NOT NULL UNIQUE,
	custom_url   TEXT UNIQUE,
	title        TEXT NOT NULL DEFAULT '',
	qr           TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_urls_user_id ON urls (user_id);

CREATE TABLE IF NOT EXISTS clicks (
	id         TEXT PRIMARY KEY,
	url_id     TEXT NOT NULL REFERENCES urls (id),
	city       TEXT NOT NULL DEFAULT '',
	country    TEXT NOT NULL DEFAULT '',
	device     TEXT NOT NULL DEFAULT 'desktop',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_clicks_url_id ON clicks (url_id);
`

const sqlLinkColumns = `id, user_id, original_url, short_url, COALESCE(custom_url, ''), title, qr, created_at`

// SQLRepository хранит ссылки и клики в SQLite или libSQL (Turso).
type SQLRepository struct {
	db *sql.DB
}

// NewSQLRepository открывает базу и создаёт схему.
// DSN вида libsql:// или wss:// уходит в драйвер libsql, остальное в modernc sqlite.
func NewSQLRepository(ctx context.Context, dsn string) (*SQLRepository, error) {
	driverName := "sqlite"
	if strings.HasPrefix(dsn, "libsql://") || strings.HasPrefix(dsn, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driverName == "sqlite" {
		// SQLite не любит конкурентную запись через несколько соединений
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLRepository{db: db}, nil
}

// CreateLink сохраняет ссылку.
func (r *SQLRepository) CreateLink(ctx context.Context, link *model.Link) error {
	query := `INSERT INTO urls (id, user_id, original_url, short_url, custom_url, title, qr, created_at)
			  VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		link.ID, link.UserID, link.OriginalURL, link.ShortCode, link.CustomURL, link.Title, link.QR, link.CreatedAt.UTC())
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return fmt.Errorf("link code is taken: %w", model.ErrConflict)
		}
		return fmt.Errorf("database insert error: %w", err)
	}
	return nil
}

// GetLink возвращает ссылку владельца по id.
func (r *SQLRepository) GetLink(ctx context.Context, id, userID string) (*model.Link, error) {
	query := `SELECT ` + sqlLinkColumns + ` FROM urls WHERE id = ? AND user_id = ?`
	link, err := scanSQLLink(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		return nil, fmt.Errorf("link %q: %w", id, err)
	}
	return link, nil
}

// GetLinkByCode ищет ссылку по short code или алиасу.
func (r *SQLRepository) GetLinkByCode(ctx context.Context, code string) (*model.Link, error) {
	query := `SELECT ` + sqlLinkColumns + ` FROM urls WHERE short_url = ? OR custom_url = ? LIMIT 1`
	link, err := scanSQLLink(r.db.QueryRowContext(ctx, query, code, code))
	if err != nil {
		return nil, fmt.Errorf("code %q: %w", code, err)
	}
	return link, nil
}

// CodeExists проверяет, занят ли код.
func (r *SQLRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var n int
	query := `SELECT COUNT(*) FROM urls WHERE short_url = ? OR custom_url = ?`
	if err := r.db.QueryRowContext(ctx, query, code, code).Scan(&n); err != nil {
		return false, fmt.Errorf("database query error: %w", err)
	}
	return n > 0, nil
}

// ListLinks возвращает все ссылки пользователя, новые первыми.
func (r *SQLRepository) ListLinks(ctx context.Context, userID string) ([]*model.Link, error) {
	query := `SELECT ` + sqlLinkColumns + ` FROM urls WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query links by user: %w", err)
	}
	defer rows.Close()

	results := make([]*model.Link, 0)
	for rows.Next() {
		link, err := scanSQLLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate links: %w", err)
	}
	return results, nil
}

// DeleteLink удаляет ссылку владельца вместе с кликами в одной транзакции.
func (r *SQLRepository) DeleteLink(ctx context.Context, id, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM urls WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("link %q: %w", id, model.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM clicks WHERE url_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete clicks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// InsertClick сохраняет один переход.
func (r *SQLRepository) InsertClick(ctx context.Context, click *model.Click) error {
	query := `INSERT INTO clicks (id, url_id, city, country, device, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		click.ID, click.LinkID, click.City, click.Country, click.Device, click.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert click: %w", err)
	}
	return nil
}

// ListClicks возвращает клики ссылки, новые первыми.
func (r *SQLRepository) ListClicks(ctx context.Context, linkID string) ([]*model.Click, error) {
	return r.ListClicksForLinks(ctx, []string{linkID})
}

// ListClicksForLinks возвращает клики набора ссылок.
func (r *SQLRepository) ListClicksForLinks(ctx context.Context, linkIDs []string) ([]*model.Click, error) {
	results := make([]*model.Click, 0)
	if len(linkIDs) == 0 {
		return results, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(linkIDs)), ",")
	args := make([]any, 0, len(linkIDs))
	for _, id := range linkIDs {
		args = append(args, id)
	}

	query := `SELECT id, url_id, city, country, device, created_at FROM clicks
			  WHERE url_id IN (` + placeholders + `) ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query clicks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c := &model.Click{}
		if err := rows.Scan(&c.ID, &c.LinkID, &c.City, &c.Country, &c.Device, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clicks: %w", err)
	}
	return results, nil
}

// Ping проверяет доступность базы данных.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close закрывает соединение.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLLink(row rowScanner) (*model.Link, error) {
	link := &model.Link{}
	err := row.Scan(&link.ID, &link.UserID, &link.OriginalURL, &link.ShortCode,
		&link.CustomURL, &link.Title, &link.QR, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return link, nil
}
