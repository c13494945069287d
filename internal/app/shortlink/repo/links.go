package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nalberthy/url-shorten/internal/app/shortlink"
)

const (
	readTimeout  = 1 * time.Second
	writeTimeout = 3 * time.Second

	pgUniqueViolation = "23505"
)

const linkColumns = `l.id, l.original_url, l.short_code, l.custom_code, l.is_public, l.is_active, l.click_count, l.user_id, l.created_at, l.updated_at`

type LinksRepo struct {
	db *pgxpool.Pool
}

func NewLinksRepo(db *pgxpool.Pool) *LinksRepo {
	return &LinksRepo{db: db}
}

// InsertLink 先逐个占用短码再插入短链，同一事务内完成。
// link_codes 的主键保证 short_code/custom_code 共用一个命名空间。
func (r *LinksRepo) InsertLink(ctx context.Context, link shortlink.Link) (shortlink.Link, error) {
	dbctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	tx, err := r.db.Begin(dbctx)
	if err != nil {
		slog.Error("insert link: begin tx failed", "err", err)
		return shortlink.Link{}, err
	}
	defer tx.Rollback(dbctx) // 提交后 rollback 无效，可忽略

	for _, code := range link.Codes() {
		if _, err := tx.Exec(dbctx, `INSERT INTO link_codes (code, link_id) VALUES ($1, $2)`, code, link.ID); err != nil {
			if isUniqueViolation(err) {
				return shortlink.Link{}, &shortlink.CodeConflictError{Code: code}
			}
			slog.Error("insert link: reserve code failed", "code", code, "err", err)
			return shortlink.Link{}, err
		}
	}

	_, err = tx.Exec(dbctx, `
INSERT INTO links (id, original_url, short_code, custom_code, is_public, is_active, click_count, user_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9)`,
		link.ID, link.OriginalURL, link.ShortCode, link.CustomCode, link.IsPublic, link.IsActive, link.UserID, link.CreatedAt, link.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "custom_code") && link.CustomCode != nil {
				return shortlink.Link{}, &shortlink.CodeConflictError{Code: *link.CustomCode}
			}
			return shortlink.Link{}, &shortlink.CodeConflictError{Code: link.ShortCode}
		}
		slog.Error("insert link failed", "err", err)
		return shortlink.Link{}, err
	}

	if err := tx.Commit(dbctx); err != nil {
		slog.Error("insert link: commit failed", "err", err)
		return shortlink.Link{}, err
	}

	return r.findByID(ctx, link.ID)
}

func (r *LinksRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	dbctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var exists bool
	if err := r.db.QueryRow(dbctx, `SELECT EXISTS(SELECT 1 FROM link_codes WHERE code=$1)`, code).Scan(&exists); err != nil {
		slog.Error("code exists query failed", "code", code, "err", err)
		return false, err
	}
	return exists, nil
}

func (r *LinksRepo) FindActiveLink(ctx context.Context, code string) (shortlink.Link, error) {
	dbctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	row := r.db.QueryRow(dbctx, `
SELECT `+linkColumns+`
FROM links l
WHERE l.id = (SELECT link_id FROM link_codes WHERE code=$1) AND l.is_active`, code)
	return scanLinkRow(row)
}

// ResolveLink 匹配与计数在同一条 UPDATE 里完成，并发解析不会丢计数。
func (r *LinksRepo) ResolveLink(ctx context.Context, code string) (shortlink.Link, error) {
	dbctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	row := r.db.QueryRow(dbctx, `
UPDATE links l SET click_count = l.click_count + 1
WHERE l.id = (SELECT link_id FROM link_codes WHERE code=$1) AND l.is_active
RETURNING `+linkColumns, code)
	return scanLinkRow(row)
}

func (r *LinksRepo) DeactivateLink(ctx context.Context, id string) error {
	dbctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	tag, err := r.db.Exec(dbctx, `UPDATE links SET is_active=false, updated_at=now() WHERE id=$1 AND is_active`, id)
	if err != nil {
		slog.Error("deactivate link failed", "id", id, "err", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return shortlink.ErrLinkNotFound
	}
	return nil
}

func (r *LinksRepo) ListLinks(ctx context.Context, filter shortlink.LinkFilter, offset, limit int) ([]shortlink.Link, error) {
	where, args := filterClause(filter)
	args = append(args, offset, limit)
	query := fmt.Sprintf(`
SELECT %s, u.id, u.name, u.email
FROM links l LEFT JOIN users u ON u.id = l.user_id
WHERE %s
ORDER BY l.created_at DESC, l.id DESC
OFFSET $%d LIMIT $%d`, linkColumns, where, len(args)-1, len(args))
	return r.queryLinksWithOwner(ctx, query, args...)
}

func (r *LinksRepo) TopLinks(ctx context.Context, filter shortlink.LinkFilter, limit int) ([]shortlink.Link, error) {
	where, args := filterClause(filter)
	args = append(args, limit)
	query := fmt.Sprintf(`
SELECT %s, u.id, u.name, u.email
FROM links l LEFT JOIN users u ON u.id = l.user_id
WHERE %s
ORDER BY l.click_count DESC, l.created_at DESC
LIMIT $%d`, linkColumns, where, len(args))
	return r.queryLinksWithOwner(ctx, query, args...)
}

func (r *LinksRepo) CountLinks(ctx context.Context, filter shortlink.LinkFilter) (int64, error) {
	dbctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	where, args := filterClause(filter)
	var n int64
	if err := r.db.QueryRow(dbctx, `SELECT COUNT(*) FROM links l WHERE `+where, args...).Scan(&n); err != nil {
		slog.Error("count links failed", "err", err)
		return 0, err
	}
	return n, nil
}

// SumClicks 空集合的 SUM 是 NULL，按 0 处理
func (r *LinksRepo) SumClicks(ctx context.Context, filter shortlink.LinkFilter) (int64, error) {
	dbctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	where, args := filterClause(filter)
	var n int64
	if err := r.db.QueryRow(dbctx, `SELECT COALESCE(SUM(l.click_count), 0) FROM links l WHERE `+where, args...).Scan(&n); err != nil {
		slog.Error("sum clicks failed", "err", err)
		return 0, err
	}
	return n, nil
}

func (r *LinksRepo) findByID(ctx context.Context, id string) (shortlink.Link, error) {
	dbctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	row := r.db.QueryRow(dbctx, `
SELECT `+linkColumns+`, u.id, u.name, u.email
FROM links l LEFT JOIN users u ON u.id = l.user_id
WHERE l.id=$1`, id)
	link, err := scanLinkWithOwner(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shortlink.Link{}, shortlink.ErrLinkNotFound
		}
		slog.Error("find link by id failed", "id", id, "err", err)
		return shortlink.Link{}, err
	}
	return link, nil
}

func (r *LinksRepo) queryLinksWithOwner(ctx context.Context, query string, args ...any) ([]shortlink.Link, error) {
	dbctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	rows, err := r.db.Query(dbctx, query, args...)
	if err != nil {
		slog.Error("query links failed", "err", err)
		return nil, err
	}
	defer rows.Close()

	links := make([]shortlink.Link, 0)
	for rows.Next() {
		link, err := scanLinkWithOwner(rows)
		if err != nil {
			slog.Error("scan link failed", "err", err)
			return nil, err
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		slog.Error("iterate links failed", "err", err)
		return nil, err
	}
	return links, nil
}

// filterClause 把可见范围翻译成 WHERE 条件，所有范围都只包含 active 短链。
func filterClause(f shortlink.LinkFilter) (string, []any) {
	switch f.Visibility {
	case shortlink.VisiblePublic:
		return `l.is_active AND l.is_public`, nil
	case shortlink.VisibleOwned:
		return `l.is_active AND l.user_id = $1`, []any{f.OwnerID}
	case shortlink.VisibleToCaller:
		return `l.is_active AND (l.is_public OR l.user_id = $1)`, []any{f.OwnerID}
	default:
		return `l.is_active`, nil
	}
}

func scanLink(row pgx.Row, extra ...any) (shortlink.Link, error) {
	var l shortlink.Link
	dest := []any{&l.ID, &l.OriginalURL, &l.ShortCode, &l.CustomCode, &l.IsPublic, &l.IsActive, &l.ClickCount, &l.UserID, &l.CreatedAt, &l.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return shortlink.Link{}, err
	}
	return l, nil
}

func scanLinkRow(row pgx.Row) (shortlink.Link, error) {
	l, err := scanLink(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shortlink.Link{}, shortlink.ErrLinkNotFound
		}
		slog.Error("scan link failed", "err", err)
		return shortlink.Link{}, err
	}
	return l, nil
}

func scanLinkWithOwner(row pgx.Row) (shortlink.Link, error) {
	var ownerID, ownerName, ownerEmail *string
	l, err := scanLink(row, &ownerID, &ownerName, &ownerEmail)
	if err != nil {
		return shortlink.Link{}, err
	}
	if ownerID != nil {
		l.Owner = &shortlink.Owner{ID: *ownerID, Name: deref(ownerName), Email: deref(ownerEmail)}
	}
	return l, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
