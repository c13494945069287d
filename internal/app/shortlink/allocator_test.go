package shortlink

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// takenStore 只实现 CodeExists，其余方法不会被 Allocator 调用
type takenStore struct {
	LinkStore
	taken map[string]bool
	err   error
	calls int
}

func (s *takenStore) CodeExists(_ context.Context, code string) (bool, error) {
	s.calls++
	return s.taken[code], s.err
}

type setFilter map[string]bool

func (f setFilter) Add(code string)             { f[code] = true }
func (f setFilter) MightExist(code string) bool { return f[code] }

func seq(from byte) []byte {
	b := make([]byte, CodeLength)
	for i := range b {
		b[i] = from + byte(i)
	}
	return b
}

func newTestAllocator(store LinkStore, filter CodeFilter, max int, random ...[]byte) *Allocator {
	a := NewAllocator(store, filter, max)
	a.random = bytes.NewReader(bytes.Join(random, nil))
	return a
}

func TestAllocateMapsRandomBytesToAlphabet(t *testing.T) {
	store := &takenStore{}
	a := newTestAllocator(store, nil, 3, seq(1))

	code, err := a.Allocate(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "seando", code)
	assert.Equal(t, 1, store.calls)
}

func TestAllocateUsesLowSixBits(t *testing.T) {
	a := newTestAllocator(&takenStore{}, nil, 1, []byte{64, 128, 192, 65, 129, 255})

	code, err := a.Allocate(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "uuusst", code)
}

func TestAllocateDefaultCodesAreURLSafe(t *testing.T) {
	a := NewAllocator(&takenStore{}, nil, 0)
	assert.Equal(t, DefaultMaxAttempts, a.maxAttempts)

	for i := 0; i < 200; i++ {
		code, err := a.Allocate(t.Context())
		require.NoError(t, err)
		require.Len(t, code, CodeLength)
		for _, r := range code {
			require.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected rune %q", r)
		}
		require.NoError(t, ValidateCode(code))
	}
}

func TestAllocateRetriesTakenCodes(t *testing.T) {
	filter := setFilter{}
	store := &takenStore{taken: map[string]bool{"seando": true}}
	a := newTestAllocator(store, filter, 3, seq(1), seq(2))

	code, err := a.Allocate(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "eandom", code)
	assert.Equal(t, 2, store.calls)
	assert.True(t, filter.MightExist("seando"), "store collisions are remembered")
}

func TestAllocateSkipsFilteredCandidatesWithoutStoreLookup(t *testing.T) {
	filter := setFilter{"seando": true}
	store := &takenStore{}
	a := newTestAllocator(store, filter, 3, seq(1), seq(2))

	code, err := a.Allocate(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "eandom", code)
	assert.Equal(t, 1, store.calls)
}

func TestAllocateExhausted(t *testing.T) {
	store := &takenStore{taken: map[string]bool{"seando": true}}
	a := newTestAllocator(store, nil, 4, seq(1), seq(1), seq(1), seq(1))

	_, err := a.Allocate(t.Context())
	require.ErrorIs(t, err, ErrAllocationExhausted)
	assert.Equal(t, 4, store.calls)
}

func TestAllocateStoreError(t *testing.T) {
	boom := errors.New("db down")
	a := newTestAllocator(&takenStore{err: boom}, nil, 3, seq(1))

	_, err := a.Allocate(t.Context())
	assert.ErrorIs(t, err, boom)
}

func TestAllocateRandomSourceError(t *testing.T) {
	a := newTestAllocator(&takenStore{}, nil, 3, []byte{1, 2})

	_, err := a.Allocate(t.Context())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAllocationExhausted)
}

func TestRememberWithoutFilter(t *testing.T) {
	a := NewAllocator(&takenStore{}, nil, 1)
	assert.NotPanics(t, func() { a.Remember("abc", "def") })
}
