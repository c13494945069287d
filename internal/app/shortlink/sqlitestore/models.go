package sqlitestore

import (
	"time"

	"github.com/nalberthy/url-shorten/internal/app/shortlink"
)

// bool 字段不加 default 标签：gorm 创建时会跳过零值字段，false 会被默认值覆盖

type userModel struct {
	ID           string `gorm:"primaryKey;size:36"`
	Name         string `gorm:"size:100;not null"`
	Email        string `gorm:"size:255;not null;uniqueIndex:idx_users_email"`
	PasswordHash string `gorm:"not null"`
	IsActive     bool   `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

type linkModel struct {
	ID          string     `gorm:"primaryKey;size:36"`
	OriginalURL string     `gorm:"not null"`
	ShortCode   string     `gorm:"size:20;not null;uniqueIndex:idx_links_short_code"`
	CustomCode  *string    `gorm:"size:20;uniqueIndex:idx_links_custom_code"`
	IsPublic    bool       `gorm:"not null"`
	IsActive    bool       `gorm:"not null;index"`
	ClickCount  int64      `gorm:"not null"`
	UserID      *string    `gorm:"size:36;index"`
	User        *userModel `gorm:"foreignKey:UserID"`
	CreatedAt   time.Time  `gorm:"index"`
	UpdatedAt   time.Time
}

func (linkModel) TableName() string { return "links" }

// linkCodeModel 让 short_code 和 custom_code 共用一个唯一命名空间
type linkCodeModel struct {
	Code   string `gorm:"primaryKey;size:20"`
	LinkID string `gorm:"size:36;not null;index"`
}

func (linkCodeModel) TableName() string { return "link_codes" }

type clickModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	LinkID    string    `gorm:"size:36;not null;index:idx_click_events_link"`
	Code      string    `gorm:"size:20;not null"`
	ClickedAt time.Time `gorm:"not null"`
	IP        string
	UserAgent string
	Referer   string
}

func (clickModel) TableName() string { return "click_events" }

func toLinkModel(l shortlink.Link) linkModel {
	return linkModel{
		ID:          l.ID,
		OriginalURL: l.OriginalURL,
		ShortCode:   l.ShortCode,
		CustomCode:  l.CustomCode,
		IsPublic:    l.IsPublic,
		IsActive:    l.IsActive,
		ClickCount:  l.ClickCount,
		UserID:      l.UserID,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func (m linkModel) toDomain() shortlink.Link {
	l := shortlink.Link{
		ID:          m.ID,
		OriginalURL: m.OriginalURL,
		ShortCode:   m.ShortCode,
		CustomCode:  m.CustomCode,
		IsPublic:    m.IsPublic,
		IsActive:    m.IsActive,
		ClickCount:  m.ClickCount,
		UserID:      m.UserID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.User != nil {
		l.Owner = &shortlink.Owner{ID: m.User.ID, Name: m.User.Name, Email: m.User.Email}
	}
	return l
}

func toUserModel(u shortlink.User) userModel {
	return userModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (m userModel) toDomain() shortlink.User {
	return shortlink.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func (m clickModel) toDomain() shortlink.ClickEvent {
	return shortlink.ClickEvent{
		ID:        m.ID,
		LinkID:    m.LinkID,
		Code:      m.Code,
		ClickedAt: m.ClickedAt,
		IP:        m.IP,
		UserAgent: m.UserAgent,
		Referer:   m.Referer,
	}
}
