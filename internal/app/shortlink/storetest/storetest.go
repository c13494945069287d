// Package storetest 是 shortlink.Store 的契约测试，各存储实现共用。
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nalberthy/url-shorten/internal/app/shortlink"
)

// Factory 每次返回一个空的存储
type Factory func(t *testing.T) shortlink.Store

// Run 执行全部契约用例
func Run(t *testing.T, newStore Factory) {
	t.Run("InsertLinkReservesAllCodes", func(t *testing.T) { testInsertLinkReservesAllCodes(t, newStore(t)) })
	t.Run("InsertLinkConflicts", func(t *testing.T) { testInsertLinkConflicts(t, newStore(t)) })
	t.Run("ResolveIncrementsAndMatchesBothCodes", func(t *testing.T) { testResolve(t, newStore(t)) })
	t.Run("ConcurrentResolveCountsEveryHit", func(t *testing.T) { testConcurrentResolve(t, newStore(t)) })
	t.Run("DeactivateKeepsCodesReserved", func(t *testing.T) { testDeactivate(t, newStore(t)) })
	t.Run("VisibilityFilters", func(t *testing.T) { testVisibility(t, newStore(t)) })
	t.Run("ListOrderAndWindow", func(t *testing.T) { testListOrder(t, newStore(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Clicks", func(t *testing.T) { testClicks(t, newStore(t)) })
}

func ctx(t *testing.T) context.Context {
	return t.Context()
}

func strp(s string) *string { return &s }

// NewLink 构造一个可以直接插入的短链
func NewLink(code string, owner *string, public bool, createdAt time.Time) shortlink.Link {
	return shortlink.Link{
		ID:          uuid.NewString(),
		OriginalURL: gofakeit.URL(),
		ShortCode:   code,
		IsPublic:    public,
		IsActive:    true,
		UserID:      owner,
		CreatedAt:   createdAt.UTC().Truncate(time.Millisecond),
		UpdatedAt:   createdAt.UTC().Truncate(time.Millisecond),
	}
}

// NewUser 构造一个可以直接插入的用户
func NewUser() shortlink.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return shortlink.User{
		ID:           uuid.NewString(),
		Name:         gofakeit.Name(),
		Email:        shortlink.NormalizeEmail(gofakeit.Email()),
		PasswordHash: "$2a$10$notarealhashnotarealhashnotarealhashnotarealhashnota",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func insertUser(t *testing.T, s shortlink.Store) shortlink.User {
	t.Helper()
	u, err := s.InsertUser(ctx(t), NewUser())
	require.NoError(t, err)
	return u
}

func testInsertLinkReservesAllCodes(t *testing.T, s shortlink.Store) {
	link := NewLink("abc123", nil, true, time.Now())
	link.CustomCode = strp("custom-1")

	saved, err := s.InsertLink(ctx(t), link)
	require.NoError(t, err)
	assert.Equal(t, link.ID, saved.ID)
	assert.Zero(t, saved.ClickCount)
	assert.True(t, saved.IsActive)

	for _, code := range []string{"abc123", "custom-1"} {
		ok, err := s.CodeExists(ctx(t), code)
		require.NoError(t, err)
		assert.True(t, ok, code)
	}
	ok, err := s.CodeExists(ctx(t), "zzz999")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testInsertLinkConflicts(t *testing.T, s shortlink.Store) {
	first := NewLink("abc123", nil, true, time.Now())
	first.CustomCode = strp("taken")
	_, err := s.InsertLink(ctx(t), first)
	require.NoError(t, err)

	// 生成码撞上别人的自定义码
	dup := NewLink("taken", nil, true, time.Now())
	_, err = s.InsertLink(ctx(t), dup)
	var conflict *shortlink.CodeConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "taken", conflict.Code)
	assert.ErrorIs(t, err, shortlink.ErrConflict)

	// 自定义码撞上别人的生成码；失败的插入不能留下半截短码
	dup2 := NewLink("fresh1", nil, true, time.Now())
	dup2.CustomCode = strp("abc123")
	_, err = s.InsertLink(ctx(t), dup2)
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "abc123", conflict.Code)

	ok, err := s.CodeExists(ctx(t), "fresh1")
	require.NoError(t, err)
	assert.False(t, ok, "rolled back insert must not reserve its short code")
}

func testResolve(t *testing.T, s shortlink.Store) {
	link := NewLink("abc123", nil, true, time.Now())
	link.CustomCode = strp("mine")
	_, err := s.InsertLink(ctx(t), link)
	require.NoError(t, err)

	got, err := s.ResolveLink(ctx(t), "abc123")
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.ClickCount)
	assert.Equal(t, link.OriginalURL, got.OriginalURL)

	got, err = s.ResolveLink(ctx(t), "mine")
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.ClickCount)

	_, err = s.ResolveLink(ctx(t), "nope")
	assert.ErrorIs(t, err, shortlink.ErrNotFound)

	found, err := s.FindActiveLink(ctx(t), "mine")
	require.NoError(t, err)
	assert.EqualValues(t, 2, found.ClickCount, "find must not increment")
}

func testConcurrentResolve(t *testing.T, s shortlink.Store) {
	link := NewLink("hot123", nil, true, time.Now())
	_, err := s.InsertLink(ctx(t), link)
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ResolveLink(context.Background(), "hot123"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.FindActiveLink(ctx(t), "hot123")
	require.NoError(t, err)
	assert.EqualValues(t, n, got.ClickCount)
}

func testDeactivate(t *testing.T, s shortlink.Store) {
	link := NewLink("gone12", nil, true, time.Now())
	_, err := s.InsertLink(ctx(t), link)
	require.NoError(t, err)

	require.NoError(t, s.DeactivateLink(ctx(t), link.ID))
	assert.ErrorIs(t, s.DeactivateLink(ctx(t), link.ID), shortlink.ErrNotFound)

	_, err = s.ResolveLink(ctx(t), "gone12")
	assert.ErrorIs(t, err, shortlink.ErrNotFound)
	_, err = s.FindActiveLink(ctx(t), "gone12")
	assert.ErrorIs(t, err, shortlink.ErrNotFound)

	ok, err := s.CodeExists(ctx(t), "gone12")
	require.NoError(t, err)
	assert.True(t, ok, "soft-deleted codes stay reserved")

	_, err = s.InsertLink(ctx(t), NewLink("gone12", nil, true, time.Now()))
	assert.ErrorIs(t, err, shortlink.ErrConflict)
}

func testVisibility(t *testing.T, s shortlink.Store) {
	alice := insertUser(t, s)
	bob := insertUser(t, s)
	now := time.Now()

	links := []shortlink.Link{
		NewLink("apub01", &alice.ID, true, now),
		NewLink("apriv1", &alice.ID, false, now.Add(time.Second)),
		NewLink("bpriv1", &bob.ID, false, now.Add(2*time.Second)),
		NewLink("anon01", nil, true, now.Add(3*time.Second)),
		NewLink("adead1", &alice.ID, true, now.Add(4*time.Second)),
	}
	for i := range links {
		links[i].ClickCount = 0
		_, err := s.InsertLink(ctx(t), links[i])
		require.NoError(t, err)
	}
	require.NoError(t, s.DeactivateLink(ctx(t), links[4].ID))
	for i := 0; i < 3; i++ {
		_, err := s.ResolveLink(ctx(t), "apriv1")
		require.NoError(t, err)
	}
	_, err := s.ResolveLink(ctx(t), "anon01")
	require.NoError(t, err)

	cases := []struct {
		name   string
		filter shortlink.LinkFilter
		codes  []string
		clicks int64
	}{
		{"all", shortlink.LinkFilter{Visibility: shortlink.VisibleAll}, []string{"anon01", "bpriv1", "apriv1", "apub01"}, 4},
		{"public", shortlink.LinkFilter{Visibility: shortlink.VisiblePublic}, []string{"anon01", "apub01"}, 1},
		{"owned", shortlink.LinkFilter{Visibility: shortlink.VisibleOwned, OwnerID: alice.ID}, []string{"apriv1", "apub01"}, 3},
		{"caller", shortlink.LinkFilter{Visibility: shortlink.VisibleToCaller, OwnerID: alice.ID}, []string{"anon01", "apriv1", "apub01"}, 4},
		{"owned-nobody", shortlink.LinkFilter{Visibility: shortlink.VisibleOwned, OwnerID: uuid.NewString()}, []string{}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := s.CountLinks(ctx(t), tc.filter)
			require.NoError(t, err)
			assert.EqualValues(t, len(tc.codes), n)

			sum, err := s.SumClicks(ctx(t), tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.clicks, sum)

			got, err := s.ListLinks(ctx(t), tc.filter, 0, 10)
			require.NoError(t, err)
			assert.Equal(t, tc.codes, codesOf(got))
		})
	}

	top, err := s.TopLinks(ctx(t), shortlink.LinkFilter{Visibility: shortlink.VisibleAll}, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "apriv1", top[0].ShortCode)
	assert.Equal(t, "anon01", top[1].ShortCode)
	require.NotNil(t, top[0].Owner)
	assert.Equal(t, alice.Name, top[0].Owner.Name)
	assert.Nil(t, top[1].Owner)
}

func testListOrder(t *testing.T, s shortlink.Store) {
	base := time.Now()
	for i, code := range []string{"old001", "mid001", "new001"} {
		_, err := s.InsertLink(ctx(t), NewLink(code, nil, true, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	filter := shortlink.LinkFilter{Visibility: shortlink.VisiblePublic}

	page, err := s.ListLinks(ctx(t), filter, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"mid001"}, codesOf(page))

	page, err = s.ListLinks(ctx(t), filter, 5, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func testUsers(t *testing.T, s shortlink.Store) {
	u := NewUser()
	saved, err := s.InsertUser(ctx(t), u)
	require.NoError(t, err)
	assert.Equal(t, u.Email, saved.Email)

	byEmail, err := s.FindUserByEmail(ctx(t), u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, u.PasswordHash, byEmail.PasswordHash)

	byID, err := s.FindUserByID(ctx(t), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Name, byID.Name)

	dup := NewUser()
	dup.Email = u.Email
	_, err = s.InsertUser(ctx(t), dup)
	var conflict *shortlink.EmailConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.ErrorIs(t, err, shortlink.ErrEmailTaken)

	_, err = s.FindUserByEmail(ctx(t), "missing@example.com")
	assert.True(t, errors.Is(err, shortlink.ErrNotFound))
	_, err = s.FindUserByID(ctx(t), uuid.NewString())
	assert.ErrorIs(t, err, shortlink.ErrUserNotFound)
}

func testClicks(t *testing.T, s shortlink.Store) {
	link := NewLink("clk001", nil, true, time.Now())
	_, err := s.InsertLink(ctx(t), link)
	require.NoError(t, err)
	other := NewLink("clk002", nil, true, time.Now())
	_, err = s.InsertLink(ctx(t), other)
	require.NoError(t, err)

	var events []shortlink.ClickEvent
	for i := 0; i < 5; i++ {
		events = append(events, shortlink.ClickEvent{
			LinkID:    link.ID,
			Code:      "clk001",
			ClickedAt: time.Now().UTC().Truncate(time.Millisecond),
			IP:        gofakeit.IPv4Address(),
			UserAgent: gofakeit.UserAgent(),
			Referer:   gofakeit.URL(),
		})
	}
	events = append(events, shortlink.ClickEvent{LinkID: other.ID, Code: "clk002", ClickedAt: time.Now().UTC()})
	require.NoError(t, s.RecordClicks(ctx(t), events))
	require.NoError(t, s.RecordClicks(ctx(t), nil))

	first, err := s.ListClicks(ctx(t), link.ID, 0, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Greater(t, first[0].ID, first[1].ID)
	assert.Greater(t, first[1].ID, first[2].ID)

	rest, err := s.ListClicks(ctx(t), link.ID, first[2].ID, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 2)
	for _, e := range rest {
		assert.Equal(t, link.ID, e.LinkID)
		assert.Less(t, e.ID, first[2].ID)
	}

	got, err := s.FindActiveLink(ctx(t), "clk001")
	require.NoError(t, err)
	assert.Zero(t, got.ClickCount, "click details never touch click_count")
}

func codesOf(links []shortlink.Link) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.ShortCode)
	}
	return out
}
