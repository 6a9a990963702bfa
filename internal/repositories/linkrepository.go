package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Totarae/shorttty/internal/database"
	"github.com/Totarae/shorttty/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgErrCodeUniqueViolation = "23505"

const linkColumns = `id::text, user_id, original_url, short_url, COALESCE(custom_url, ''), title, qr, created_at`

// LinkRepository хранит ссылки и клики в PostgreSQL.
type LinkRepository struct {
	DB *database.DB
}

// NewLinkRepository создаёт новый экземпляр LinkRepository.
func NewLinkRepository(db *database.DB) *LinkRepository {
	return &LinkRepository{DB: db}
}

// CreateLink сохраняет ссылку. Занятый short_url или custom_url возвращает model.ErrConflict.
func (r *LinkRepository) CreateLink(ctx context.Context, link *model.Link) error {
	query := `INSERT INTO urls (id, user_id, original_url, short_url, custom_url, title, qr, created_at)
              VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)`

	_, err := r.DB.Pool.Exec(ctx, query,
		link.ID, link.UserID, link.OriginalURL, link.ShortCode, link.CustomURL, link.Title, link.QR, link.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrCodeUniqueViolation {
			return fmt.Errorf("link code is taken: %w", model.ErrConflict)
		}
		return fmt.Errorf("database insert error: %w", err)
	}
	return nil
}

// GetLink возвращает ссылку владельца по id.
func (r *LinkRepository) GetLink(ctx context.Context, id, userID string) (*model.Link, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("link %q: %w", id, model.ErrNotFound)
	}

	query := `SELECT ` + linkColumns + ` FROM urls WHERE id = $1 AND user_id = $2`
	link, err := scanLink(r.DB.Pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, fmt.Errorf("link %q: %w", id, err)
	}
	return link, nil
}

// GetLinkByCode ищет ссылку по short code или алиасу.
func (r *LinkRepository) GetLinkByCode(ctx context.Context, code string) (*model.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM urls WHERE short_url = $1 OR custom_url = $1 LIMIT 1`
	link, err := scanLink(r.DB.Pool.QueryRow(ctx, query, code))
	if err != nil {
		return nil, fmt.Errorf("code %q: %w", code, err)
	}
	return link, nil
}

// CodeExists проверяет, занят ли код как short code или как алиас.
func (r *LinkRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM urls WHERE short_url = $1 OR custom_url = $1)`
	if err := r.DB.Pool.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("database query error: %w", err)
	}
	return exists, nil
}

// ListLinks возвращает все ссылки пользователя, новые первыми.
func (r *LinkRepository) ListLinks(ctx context.Context, userID string) ([]*model.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM urls WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query links by user: %w", err)
	}
	defer rows.Close()

	results := make([]*model.Link, 0)
	for rows.Next() {
		link, err := scanLink(rows)
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

// DeleteLink удаляет ссылку владельца; клики удаляются каскадом.
func (r *LinkRepository) DeleteLink(ctx context.Context, id, userID string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("link %q: %w", id, model.ErrNotFound)
	}

	tag, err := r.DB.Pool.Exec(ctx, `DELETE FROM urls WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("link %q: %w", id, model.ErrNotFound)
	}
	return nil
}

// InsertClick сохраняет один переход.
func (r *LinkRepository) InsertClick(ctx context.Context, click *model.Click) error {
	query := `INSERT INTO clicks (id, url_id, city, country, device, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.DB.Pool.Exec(ctx, query,
		click.ID, click.LinkID, click.City, click.Country, click.Device, click.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert click: %w", err)
	}
	return nil
}

// ListClicks возвращает клики ссылки, новые первыми.
func (r *LinkRepository) ListClicks(ctx context.Context, linkID string) ([]*model.Click, error) {
	if _, err := uuid.Parse(linkID); err != nil {
		return []*model.Click{}, nil
	}
	return r.ListClicksForLinks(ctx, []string{linkID})
}

// ListClicksForLinks возвращает клики набора ссылок.
func (r *LinkRepository) ListClicksForLinks(ctx context.Context, linkIDs []string) ([]*model.Click, error) {
	results := make([]*model.Click, 0)
	if len(linkIDs) == 0 {
		return results, nil
	}

	query := `SELECT id::text, url_id::text, city, country, device, created_at
              FROM clicks WHERE url_id::text = ANY($1) ORDER BY created_at DESC`
	rows, err := r.DB.Pool.Query(ctx, query, linkIDs)
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
func (r *LinkRepository) Ping(ctx context.Context) error {
	return r.DB.Ping(ctx)
}

func scanLink(row pgx.Row) (*model.Link, error) {
	link := &model.Link{}
	err := row.Scan(&link.ID, &link.UserID, &link.OriginalURL, &link.ShortCode,
		&link.CustomURL, &link.Title, &link.QR, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return link, nil
}
