package shortlink_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nalberthy/url-shorten/internal/app/shortlink"
	"github.com/nalberthy/url-shorten/internal/app/shortlink/memstore"
	"github.com/nalberthy/url-shorten/internal/platform/auth"
)

type countingHasher struct {
	auth.BcryptHasher
	compares atomic.Int32
}

func (h *countingHasher) Compare(hash, password string) error {
	h.compares.Add(1)
	return h.BcryptHasher.Compare(hash, password)
}

func newAccounts(t *testing.T) (*shortlink.AccountService, *countingHasher, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	hasher := &countingHasher{BcryptHasher: auth.NewBcryptHasher(bcrypt.MinCost)}
	return shortlink.NewAccountService(store, store, hasher), hasher, store
}

func TestRegisterNormalizesAndHashes(t *testing.T) {
	svc, _, store := newAccounts(t)
	password := gofakeit.Password(true, true, true, false, false, 12)

	acc, err := svc.Register(t.Context(), "  Alice  ", " Alice@Example.com ", password)
	require.NoError(t, err)
	assert.NotEmpty(t, acc.ID)
	assert.Equal(t, "Alice", acc.Name)
	assert.Equal(t, "alice@example.com", acc.Email)
	assert.True(t, acc.IsActive)

	user, err := store.FindUserByID(t.Context(), acc.ID)
	require.NoError(t, err)
	assert.NotEqual(t, password, user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newAccounts(t)
	_, err := svc.Register(t.Context(), "Alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	_, err = svc.Register(t.Context(), "Other", "ALICE@example.com", "secret2")
	assert.ErrorIs(t, err, shortlink.ErrEmailTaken)
	assert.ErrorIs(t, err, shortlink.ErrConflict)
}

// lateConflictStore 模拟查重之后被并发注册抢先
type lateConflictStore struct {
	*memstore.Store
}

func (s lateConflictStore) InsertUser(_ context.Context, u shortlink.User) (shortlink.User, error) {
	return shortlink.User{}, &shortlink.EmailConflictError{Email: u.Email}
}

func TestRegisterConcurrentDuplicateMapsToConflict(t *testing.T) {
	store := lateConflictStore{memstore.New()}
	svc := shortlink.NewAccountService(store, store, auth.NewBcryptHasher(bcrypt.MinCost))

	_, err := svc.Register(t.Context(), "Alice", "alice@example.com", "secret1")
	assert.ErrorIs(t, err, shortlink.ErrEmailTaken)
}

func TestAuthenticate(t *testing.T) {
	svc, hasher, _ := newAccounts(t)
	acc, err := svc.Register(t.Context(), "Alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	got, err := svc.Authenticate(t.Context(), " ALICE@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)

	_, err = svc.Authenticate(t.Context(), "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, shortlink.ErrInvalidCredentials)

	before := hasher.compares.Load()
	_, err = svc.Authenticate(t.Context(), "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, shortlink.ErrInvalidCredentials)
	assert.Equal(t, before+1, hasher.compares.Load(), "unknown email still runs a hash comparison")
}

func TestAuthenticateInactiveUser(t *testing.T) {
	svc, _, store := newAccounts(t)
	hash, err := auth.NewBcryptHasher(bcrypt.MinCost).Hash("secret1")
	require.NoError(t, err)
	_, err = store.InsertUser(t.Context(), shortlink.User{
		ID:           "u-inactive",
		Name:         "Old",
		Email:        "old@example.com",
		PasswordHash: hash,
		IsActive:     false,
	})
	require.NoError(t, err)

	_, err = svc.Authenticate(t.Context(), "old@example.com", "secret1")
	assert.ErrorIs(t, err, shortlink.ErrInvalidCredentials)
}

func TestFindByIDAndUsage(t *testing.T) {
	svc, _, store := newAccounts(t)
	acc, err := svc.Register(t.Context(), "Alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	links := newLinkService(store)
	for i := 0; i < 3; i++ {
		v, err := links.Create(t.Context(), shortlink.CreateLinkInput{OriginalURL: gofakeit.URL()}, acc.ID)
		require.NoError(t, err)
		_, err = links.Resolve(t.Context(), v.ShortCode)
		require.NoError(t, err)
	}

	got, err := svc.FindByID(t.Context(), acc.ID)
	require.NoError(t, err)
	assert.Equal(t, acc.Email, got.Email)

	usage, err := svc.UsageStats(t.Context(), acc.ID)
	require.NoError(t, err)
	assert.Equal(t, shortlink.Usage{TotalURLs: 3, TotalClicks: 3}, usage)

	_, err = svc.FindByID(t.Context(), "missing")
	assert.ErrorIs(t, err, shortlink.ErrUserNotFound)
}
