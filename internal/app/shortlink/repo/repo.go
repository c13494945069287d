// Package repo 是基于 PostgreSQL（pgx）的存储实现。
package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nalberthy/url-shorten/internal/app/shortlink"
)

// Store 把短链、用户、点击明细三个 repo 组合成一个完整的存储后端。
type Store struct {
	*LinksRepo
	*UsersRepo
	*ClicksRepo
	db *pgxpool.Pool
}

var _ shortlink.Store = (*Store)(nil)

func New(db *pgxpool.Pool) *Store {
	return &Store{
		LinksRepo:  NewLinksRepo(db),
		UsersRepo:  NewUsersRepo(db),
		ClicksRepo: NewClicksRepo(db),
		db:         db,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
