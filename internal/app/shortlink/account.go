package shortlink

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PasswordHasher 是单向密码哈希。Compare 不匹配时返回非 nil。
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// AccountService 负责注册、认证、按 id 查询用户和用户用量统计。
type AccountService struct {
	users  UserStore
	links  LinkStore
	hasher PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(users UserStore, links LinkStore, hasher PasswordHasher) *AccountService {
	return &AccountService{
		users:  users,
		links:  links,
		hasher: hasher,
	}
}

func (s *AccountService) Register(ctx context.Context, name, email, password string) (Account, error) {
	ctx, span := tracer.Start(ctx, "AccountService.Register")
	defer span.End()

	email = NormalizeEmail(email)
	_, err := s.users.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		return Account{}, ErrEmailTaken
	case !errors.Is(err, ErrNotFound):
		return Account{}, spanError(span, err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return Account{}, spanError(span, err)
	}
	now := time.Now().UTC()
	user, err := s.users.InsertUser(ctx, User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		// 并发注册同一邮箱时由唯一约束兜底
		return Account{}, spanError(span, err)
	}
	return user.Account(), nil
}

// Authenticate 校验邮箱和密码。
// 邮箱不存在、密码错误、账号停用都返回同一个 ErrInvalidCredentials；
// 邮箱不存在时也跑一次哈希比较，响应时间不暴露账号是否存在。
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (Account, error) {
	ctx, span := tracer.Start(ctx, "AccountService.Authenticate")
	defer span.End()

	user, err := s.users.FindUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = s.hasher.Compare(s.dummy(), password)
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, spanError(span, err)
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return Account{}, ErrInvalidCredentials
	}
	return user.Account(), nil
}

func (s *AccountService) FindByID(ctx context.Context, id string) (Account, error) {
	user, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return Account{}, err
	}
	return user.Account(), nil
}

// UsageStats 统计用户 active 短链的数量和点击总数。
func (s *AccountService) UsageStats(ctx context.Context, userID string) (Usage, error) {
	filter := LinkFilter{Visibility: VisibleOwned, OwnerID: userID}
	total, err := s.links.CountLinks(ctx, filter)
	if err != nil {
		return Usage{}, err
	}
	clicks, err := s.links.SumClicks(ctx, filter)
	if err != nil {
		return Usage{}, err
	}
	return Usage{TotalURLs: total, TotalClicks: clicks}, nil
}

func (s *AccountService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("dummy-password-for-timing")
	})
	return s.dummyHash
}
