// Package memstore 是进程内存储，用于测试和 STORE_DRIVER=memory 的本地运行。
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nalberthy/url-shorten/internal/app/shortlink"
)

type Store struct {
	mu sync.RWMutex

	links  map[string]*shortlink.Link // id -> link
	codes  map[string]string          // code -> link id，含已删除短链的短码
	users  map[string]*shortlink.User // id -> user
	emails map[string]string          // email -> user id
	clicks []shortlink.ClickEvent
	seq    int64
}

var _ shortlink.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		links:  make(map[string]*shortlink.Link),
		codes:  make(map[string]string),
		users:  make(map[string]*shortlink.User),
		emails: make(map[string]string),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) InsertLink(_ context.Context, link shortlink.Link) (shortlink.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, code := range link.Codes() {
		if _, ok := s.codes[code]; ok {
			return shortlink.Link{}, &shortlink.CodeConflictError{Code: code}
		}
	}
	for _, code := range link.Codes() {
		s.codes[code] = link.ID
	}
	stored := link
	stored.Owner = nil
	s.links[link.ID] = &stored
	return s.withOwner(stored), nil
}

func (s *Store) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.codes[code]
	return ok, nil
}

func (s *Store) FindActiveLink(_ context.Context, code string) (shortlink.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l := s.activeByCode(code)
	if l == nil {
		return shortlink.Link{}, shortlink.ErrLinkNotFound
	}
	return *l, nil
}

func (s *Store) ResolveLink(_ context.Context, code string) (shortlink.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.activeByCode(code)
	if l == nil {
		return shortlink.Link{}, shortlink.ErrLinkNotFound
	}
	l.ClickCount++
	return *l, nil
}

func (s *Store) DeactivateLink(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok || !l.IsActive {
		return shortlink.ErrLinkNotFound
	}
	l.IsActive = false
	l.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) ListLinks(_ context.Context, filter shortlink.LinkFilter, offset, limit int) ([]shortlink.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.match(filter)
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return window(matched, offset, limit), nil
}

func (s *Store) CountLinks(_ context.Context, filter shortlink.LinkFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.match(filter))), nil
}

func (s *Store) SumClicks(_ context.Context, filter shortlink.LinkFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum int64
	for _, l := range s.match(filter) {
		sum += l.ClickCount
	}
	return sum, nil
}

func (s *Store) TopLinks(_ context.Context, filter shortlink.LinkFilter, limit int) ([]shortlink.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.match(filter)
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].ClickCount != matched[j].ClickCount {
			return matched[i].ClickCount > matched[j].ClickCount
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return window(matched, 0, limit), nil
}

func (s *Store) InsertUser(_ context.Context, user shortlink.User) (shortlink.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[user.Email]; ok {
		return shortlink.User{}, &shortlink.EmailConflictError{Email: user.Email}
	}
	stored := user
	s.users[user.ID] = &stored
	s.emails[user.Email] = user.ID
	return stored, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (shortlink.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return shortlink.User{}, shortlink.ErrUserNotFound
	}
	return *s.users[id], nil
}

func (s *Store) FindUserByID(_ context.Context, id string) (shortlink.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return shortlink.User{}, shortlink.ErrUserNotFound
	}
	return *u, nil
}

func (s *Store) RecordClicks(_ context.Context, events []shortlink.ClickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		s.seq++
		e.ID = s.seq
		s.clicks = append(s.clicks, e)
	}
	return nil
}

func (s *Store) ListClicks(_ context.Context, linkID string, before int64, limit int) ([]shortlink.ClickEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]shortlink.ClickEvent, 0, limit)
	for i := len(s.clicks) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.clicks[i]
		if e.LinkID != linkID {
			continue
		}
		if before > 0 && e.ID >= before {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// 调用方必须持有锁
func (s *Store) activeByCode(code string) *shortlink.Link {
	id, ok := s.codes[code]
	if !ok {
		return nil
	}
	l := s.links[id]
	if l == nil || !l.IsActive {
		return nil
	}
	return l
}

// 调用方必须持有锁
func (s *Store) match(filter shortlink.LinkFilter) []shortlink.Link {
	out := make([]shortlink.Link, 0)
	for _, l := range s.links {
		if !l.IsActive {
			continue
		}
		owned := filter.OwnerID != "" && l.OwnedBy(filter.OwnerID)
		switch filter.Visibility {
		case shortlink.VisiblePublic:
			if !l.IsPublic {
				continue
			}
		case shortlink.VisibleOwned:
			if !owned {
				continue
			}
		case shortlink.VisibleToCaller:
			if !l.IsPublic && !owned {
				continue
			}
		}
		out = append(out, s.withOwner(*l))
	}
	return out
}

// 调用方必须持有锁
func (s *Store) withOwner(l shortlink.Link) shortlink.Link {
	if l.UserID == nil {
		return l
	}
	if u, ok := s.users[*l.UserID]; ok {
		l.Owner = &shortlink.Owner{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	return l
}

func window(links []shortlink.Link, offset, limit int) []shortlink.Link {
	if offset < 0 || offset >= len(links) {
		return []shortlink.Link{}
	}
	end := offset + limit
	if end > len(links) {
		end = len(links)
	}
	return links[offset:end]
}
