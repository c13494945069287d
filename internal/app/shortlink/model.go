package shortlink

import "time"

// Link 是短链的领域对象。
//
// ShortCode 总是系统生成；CustomCode 可选。两者共用一个命名空间，
// 解析时同一个路径段会同时匹配这两个字段。
type Link struct {
	ID          string
	OriginalURL string
	ShortCode   string
	CustomCode  *string
	IsPublic    bool
	IsActive    bool
	ClickCount  int64
	UserID      *string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Owner 只在列表/排行查询里填充，匿名创建的短链为 nil
	Owner *Owner
}

// Code 返回对外展示的短码：有自定义码时优先用自定义码。
func (l Link) Code() string {
	if l.CustomCode != nil && *l.CustomCode != "" {
		return *l.CustomCode
	}
	return l.ShortCode
}

// Codes 返回该短链占用的全部短码。
func (l Link) Codes() []string {
	codes := []string{l.ShortCode}
	if l.CustomCode != nil && *l.CustomCode != "" {
		codes = append(codes, *l.CustomCode)
	}
	return codes
}

// OwnedBy 判断短链是否属于 userID；匿名短链不属于任何人。
func (l Link) OwnedBy(userID string) bool {
	return userID != "" && l.UserID != nil && *l.UserID == userID
}

type Owner struct {
	ID    string
	Name  string
	Email string
}

// LinkView 是返回给调用方的短链视图。
type LinkView struct {
	Link
	ShortURL string
	IsOwner  bool
}

type Pagination struct {
	Page  int
	Limit int
	Total int64
	Pages int
}

type LinkPage struct {
	Links      []LinkView
	Pagination Pagination
}

// Stats 是短链统计：按调用者范围或全局。
type Stats struct {
	TotalURLs   int64
	TotalClicks int64
	TopURLs     []LinkView
	// Scoped 为 true 表示只统计调用者自己的短链
	Scoped bool
}

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Account 是去掉密码哈希之后的用户视图。
type Account struct {
	ID        string
	Name      string
	Email     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u User) Account() Account {
	return Account{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type Usage struct {
	TotalURLs   int64
	TotalClicks int64
}

// ClickEvent 是一次跳转的明细记录，异步写入，不影响 click_count。
type ClickEvent struct {
	ID        int64     `json:"id,omitempty"`
	LinkID    string    `json:"link_id"`
	Code      string    `json:"code"`
	ClickedAt time.Time `json:"clicked_at"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Referer   string    `json:"referer"`
}

type ClickPage struct {
	Link       LinkView
	Clicks     []ClickEvent
	NextCursor *int64
}
