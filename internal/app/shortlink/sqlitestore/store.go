// Package sqlitestore 是基于 gorm + SQLite 的存储实现，适合单机部署。
package sqlitestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nalberthy/url-shorten/internal/app/shortlink"
)

const (
	readTimeout  = 1 * time.Second
	writeTimeout = 3 * time.Second
)

type Store struct {
	db *gorm.DB
}

var _ shortlink.Store = (*Store)(nil)

// Open 打开（或创建）SQLite 数据库并自动迁移表结构。path 可以是 ":memory:"。
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite 单写者；:memory: 下每个连接是独立的库
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&userModel{}, &linkModel{}, &linkCodeModel{}, &clickModel{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) InsertLink(ctx context.Context, link shortlink.Link) (shortlink.Link, error) {
	dbctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	m := toLinkModel(link)
	m.ClickCount = 0
	err := s.db.WithContext(dbctx).Transaction(func(tx *gorm.DB) error {
		for _, code := range link.Codes() {
			if err := tx.Create(&linkCodeModel{Code: code, LinkID: link.ID}).Error; err != nil {
				if isDuplicate(err) {
					return &shortlink.CodeConflictError{Code: code}
				}
				return err
			}
		}
		if err := tx.Create(&m).Error; err != nil {
			if isDuplicate(err) {
				return &shortlink.CodeConflictError{Code: link.ShortCode}
			}
			return err
		}
		return nil
	})
	if err != nil {
		var conflict *shortlink.CodeConflictError
		if !errors.As(err, &conflict) {
			slog.Error("sqlite insert link failed", "err", err)
		}
		return shortlink.Link{}, err
	}

	var saved linkModel
	if err := s.db.WithContext(ctx).Preload("User").First(&saved, "id = ?", link.ID).Error; err != nil {
		slog.Error("sqlite reload link failed", "err", err)
		return shortlink.Link{}, err
	}
	return saved.toDomain(), nil
}

func (s *Store) CodeExists(ctx context.Context, code string) (bool, error) {
	dbctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var n int64
	if err := s.db.WithContext(dbctx).Model(&linkCodeModel{}).Where("code = ?", code).Count(&n).Error; err != nil {
		slog.Error("sqlite code exists failed", "err", err)
		return false, err
	}
	return n > 0, nil
}

func (s *Store) FindActiveLink(ctx context.Context, code string) (shortlink.Link, error) {
	dbctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	return findActive(s.db.WithContext(dbctx), code)
}

// ResolveLink 计数用一条 UPDATE 完成，再在同一事务里读回
func (s *Store) ResolveLink(ctx context.Context, code string) (shortlink.Link, error) {
	dbctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	var link shortlink.Link
	err := s.db.WithContext(dbctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&linkModel{}).
			Where("id = (?) AND is_active = ?", tx.Model(&linkCodeModel{}).Select("link_id").Where("code = ?", code), true).
			UpdateColumn("click_count", gorm.Expr("click_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return shortlink.ErrLinkNotFound
		}
		var err error
		link, err = findActive(tx, code)
		return err
	})
	if err != nil {
		if !errors.Is(err, shortlink.ErrNotFound) {
			slog.Error("sqlite resolve link failed", "err", err)
		}
		return shortlink.Link{}, err
	}
	return link, nil
}

func (s *Store) DeactivateLink(ctx context.Context, id string) error {
	dbctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	res := s.db.WithContext(dbctx).Model(&linkModel{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		slog.Error("sqlite deactivate link failed", "err", res.Error)
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shortlink.ErrLinkNotFound
	}
	return nil
}

func (s *Store) ListLinks(ctx context.Context, filter shortlink.LinkFilter, offset, limit int) ([]shortlink.Link, error) {
	dbctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	var models []linkModel
	err := s.db.WithContext(dbctx).
		Scopes(visible(filter)).
		Preload("User").
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&models).Error
	if err != nil {
		slog.Error("sqlite list links failed", "err", err)
		return nil, err
	}
	return toDomainLinks(models), nil
}

func (s *Store) TopLinks(ctx context.Context, filter shortlink.LinkFilter, limit int) ([]shortlink.Link, error) {
	dbctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	var models []linkModel
	err := s.db.WithContext(dbctx).
		Scopes(visible(filter)).
		Preload("User").
		Order("click_count DESC, created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		slog.Error("sqlite top links failed", "err", err)
		return nil, err
	}
	return toDomainLinks(models), nil
}

func (s *Store) CountLinks(ctx context.Context, filter shortlink.LinkFilter) (int64, error) {
	dbctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var n int64
	if err := s.db.WithContext(dbctx).Model(&linkModel{}).Scopes(visible(filter)).Count(&n).Error; err != nil {
		slog.Error("sqlite count links failed", "err", err)
		return 0, err
	}
	return n, nil
}

func (s *Store) SumClicks(ctx context.Context, filter shortlink.LinkFilter) (int64, error) {
	dbctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var n int64
	err := s.db.WithContext(dbctx).Model(&linkModel{}).
		Scopes(visible(filter)).
		Select("COALESCE(SUM(click_count), 0)").
		Scan(&n).Error
	if err != nil {
		slog.Error("sqlite sum clicks failed", "err", err)
		return 0, err
	}
	return n, nil
}

func (s *Store) InsertUser(ctx context.Context, user shortlink.User) (shortlink.User, error) {
	dbctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	m := toUserModel(user)
	if err := s.db.WithContext(dbctx).Create(&m).Error; err != nil {
		if isDuplicate(err) {
			return shortlink.User{}, &shortlink.EmailConflictError{Email: user.Email}
		}
		slog.Error("sqlite insert user failed", "err", err)
		return shortlink.User{}, err
	}
	return m.toDomain(), nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (shortlink.User, error) {
	return s.findUser(ctx, "email = ?", email)
}

func (s *Store) FindUserByID(ctx context.Context, id string) (shortlink.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *Store) findUser(ctx context.Context, cond string, arg string) (shortlink.User, error) {
	dbctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var m userModel
	if err := s.db.WithContext(dbctx).Where(cond, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shortlink.User{}, shortlink.ErrUserNotFound
		}
		slog.Error("sqlite find user failed", "err", err)
		return shortlink.User{}, err
	}
	return m.toDomain(), nil
}

func (s *Store) RecordClicks(ctx context.Context, events []shortlink.ClickEvent) error {
	if len(events) == 0 {
		return nil
	}
	dbctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	models := make([]clickModel, 0, len(events))
	for _, e := range events {
		models = append(models, clickModel{
			LinkID:    e.LinkID,
			Code:      e.Code,
			ClickedAt: e.ClickedAt,
			IP:        e.IP,
			UserAgent: e.UserAgent,
			Referer:   e.Referer,
		})
	}
	if err := s.db.WithContext(dbctx).CreateInBatches(models, 100).Error; err != nil {
		slog.Error("sqlite record clicks failed", "count", len(events), "err", err)
		return err
	}
	return nil
}

func (s *Store) ListClicks(ctx context.Context, linkID string, before int64, limit int) ([]shortlink.ClickEvent, error) {
	dbctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	q := s.db.WithContext(dbctx).Where("link_id = ?", linkID)
	if before > 0 {
		q = q.Where("id < ?", before)
	}
	var models []clickModel
	if err := q.Order("id DESC").Limit(limit).Find(&models).Error; err != nil {
		slog.Error("sqlite list clicks failed", "err", err)
		return nil, err
	}
	out := make([]shortlink.ClickEvent, 0, len(models))
	for _, m := range models {
		out = append(out, m.toDomain())
	}
	return out, nil
}

func findActive(db *gorm.DB, code string) (shortlink.Link, error) {
	var m linkModel
	err := db.
		Where("id = (?) AND is_active = ?", db.Session(&gorm.Session{NewDB: true}).Model(&linkCodeModel{}).Select("link_id").Where("code = ?", code), true).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shortlink.Link{}, shortlink.ErrLinkNotFound
		}
		return shortlink.Link{}, err
	}
	return m.toDomain(), nil
}

// visible 把可见范围翻译成查询条件，所有范围都只包含 active 短链
func visible(f shortlink.LinkFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("links.is_active = ?", true)
		switch f.Visibility {
		case shortlink.VisiblePublic:
			db = db.Where("links.is_public = ?", true)
		case shortlink.VisibleOwned:
			db = db.Where("links.user_id = ?", f.OwnerID)
		case shortlink.VisibleToCaller:
			db = db.Where("(links.is_public = ? OR links.user_id = ?)", true, f.OwnerID)
		}
		return db
	}
}

func toDomainLinks(models []linkModel) []shortlink.Link {
	out := make([]shortlink.Link, 0, len(models))
	for _, m := range models {
		out = append(out, m.toDomain())
	}
	return out
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}
