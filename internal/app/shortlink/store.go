package shortlink

import "context"

// Visibility 决定列表/统计查询覆盖哪些短链，所有范围都只包含 active 的短链。
type Visibility int

const (
	// VisibleAll 全部短链（全局统计）
	VisibleAll Visibility = iota
	// VisiblePublic 公开短链（匿名列表）
	VisiblePublic
	// VisibleOwned 属于 OwnerID 的短链
	VisibleOwned
	// VisibleToCaller 公开短链 + 属于 OwnerID 的短链
	VisibleToCaller
)

type LinkFilter struct {
	Visibility Visibility
	OwnerID    string
}

// LinkStore 是短链的持久化边界。
//
// 约定：
//   - InsertLink 在同一事务里占用 link 的全部短码；任一短码已被占用
//     （无论属于 shortCode 还是 customCode，无论是否 active）时返回 *CodeConflictError
//   - ResolveLink 用单条语句完成“匹配 active 短链 + click_count+1”
//   - DeactivateLink 只在短链仍 active 时生效，否则返回 ErrLinkNotFound
type LinkStore interface {
	InsertLink(ctx context.Context, link Link) (Link, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	FindActiveLink(ctx context.Context, code string) (Link, error)
	ResolveLink(ctx context.Context, code string) (Link, error)
	DeactivateLink(ctx context.Context, id string) error
	// ListLinks 按创建时间倒序分页，并填充 Owner
	ListLinks(ctx context.Context, filter LinkFilter, offset, limit int) ([]Link, error)
	CountLinks(ctx context.Context, filter LinkFilter) (int64, error)
	SumClicks(ctx context.Context, filter LinkFilter) (int64, error)
	// TopLinks 按点击数倒序，并填充 Owner
	TopLinks(ctx context.Context, filter LinkFilter, limit int) ([]Link, error)
}

// UserStore 是用户的持久化边界。邮箱唯一约束冲突返回 *EmailConflictError。
type UserStore interface {
	InsertUser(ctx context.Context, user User) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	FindUserByID(ctx context.Context, id string) (User, error)
}

// ClickStore 保存点击明细。before 为 0 表示从最新一条开始。
type ClickStore interface {
	RecordClicks(ctx context.Context, events []ClickEvent) error
	ListClicks(ctx context.Context, linkID string, before int64, limit int) ([]ClickEvent, error)
}

// Store 是一个完整的存储后端。
type Store interface {
	LinkStore
	UserStore
	ClickStore
	Ping(ctx context.Context) error
}
