package repo

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nalberthy/url-shorten/internal/app/shortlink"
)

type ClicksRepo struct {
	db *pgxpool.Pool
}

func NewClicksRepo(db *pgxpool.Pool) *ClicksRepo {
	return &ClicksRepo{db: db}
}

// RecordClicks 用 COPY 批量写入点击明细
func (c *ClicksRepo) RecordClicks(ctx context.Context, events []shortlink.ClickEvent) error {
	if len(events) == 0 {
		return nil
	}
	dbctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	_, err := c.db.CopyFrom(dbctx,
		pgx.Identifier{"click_events"},
		[]string{"link_id", "code", "clicked_at", "ip", "user_agent", "referer"},
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			e := events[i]
			return []any{e.LinkID, e.Code, e.ClickedAt, e.IP, e.UserAgent, e.Referer}, nil
		}),
	)
	if err != nil {
		slog.Error("record clicks failed", "count", len(events), "err", err)
		return err
	}
	return nil
}

// ListClicks 按 id 倒序返回点击明细；before>0 时只返回 id<before 的记录（游标分页）
func (c *ClicksRepo) ListClicks(ctx context.Context, linkID string, before int64, limit int) ([]shortlink.ClickEvent, error) {
	dbctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	var rows pgx.Rows
	var err error
	if before <= 0 {
		rows, err = c.db.Query(dbctx, `SELECT id, link_id, code, clicked_at, ip, user_agent, referer FROM click_events WHERE link_id=$1 ORDER BY id DESC LIMIT $2`, linkID, limit)
	} else {
		rows, err = c.db.Query(dbctx, `SELECT id, link_id, code, clicked_at, ip, user_agent, referer FROM click_events WHERE link_id=$1 AND id<$2 ORDER BY id DESC LIMIT $3`, linkID, before, limit)
	}
	if err != nil {
		slog.Error("list clicks failed", "link_id", linkID, "err", err)
		return nil, err
	}
	defer rows.Close()

	clicks := make([]shortlink.ClickEvent, 0, limit)
	for rows.Next() {
		var e shortlink.ClickEvent
		if err := rows.Scan(&e.ID, &e.LinkID, &e.Code, &e.ClickedAt, &e.IP, &e.UserAgent, &e.Referer); err != nil {
			slog.Error("scan click failed", "err", err)
			return nil, err
		}
		clicks = append(clicks, e)
	}
	if err := rows.Err(); err != nil {
		slog.Error("iterate clicks failed", "err", err)
		return nil, err
	}
	return clicks, nil
}
