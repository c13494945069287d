package shortlink

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	cases := []struct {
		raw string
		ok  bool
	}{
		{"https://example.com", true},
		{"http://example.com/a/b?c=d#e", true},
		{"  https://example.com/trim  ", true},
		{"ftp://example.com", false},
		{"javascript:alert(1)", false},
		{"example.com", false},
		{"https://", false},
		{"", false},
		{"http://[::1", false},
	}
	for _, tc := range cases {
		err := ValidateURL(tc.raw)
		if tc.ok {
			assert.NoError(t, err, tc.raw)
		} else {
			assert.ErrorIs(t, err, ErrValidation, tc.raw)
		}
	}
}

func TestValidateCode(t *testing.T) {
	cases := []struct {
		code string
		ok   bool
	}{
		{"abc", true},
		{"my-link_2024", true},
		{"ABCDEFGHIJKLMNOPQRST", true},
		{"ab", false},
		{"ABCDEFGHIJKLMNOPQRSTU", false},
		{"has space", false},
		{"slash/code", false},
		{"ação", false},
		{"api", false},
		{"API", false},
		{"healthz", false},
	}
	for _, tc := range cases {
		err := ValidateCode(tc.code)
		if tc.ok {
			assert.NoError(t, err, tc.code)
		} else {
			assert.ErrorIs(t, err, ErrInvalidCode, tc.code)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}

func TestLinkCodes(t *testing.T) {
	custom := "promo"
	owner := "u1"
	l := Link{ShortCode: "abc123"}
	assert.Equal(t, "abc123", l.Code())
	assert.Equal(t, []string{"abc123"}, l.Codes())
	assert.False(t, l.OwnedBy(""))
	assert.False(t, l.OwnedBy("u1"))

	l.CustomCode = &custom
	l.UserID = &owner
	assert.Equal(t, "promo", l.Code())
	assert.Equal(t, []string{"abc123", "promo"}, l.Codes())
	assert.True(t, l.OwnedBy("u1"))
	assert.False(t, l.OwnedBy("u2"))
}

func TestNormalizePage(t *testing.T) {
	p, l := NormalizePage(0, 0)
	assert.Equal(t, DefaultPage, p)
	assert.Equal(t, DefaultLimit, l)

	p, l = NormalizePage(3, 500)
	assert.Equal(t, 3, p)
	assert.Equal(t, MaxLimit, l)

	p, l = NormalizePage(math.MaxInt, 10)
	assert.Equal(t, math.MaxInt/10, p)
	assert.Equal(t, 10, l)
	assert.Positive(t, (p-1)*l)
}
