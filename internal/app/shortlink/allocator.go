package shortlink

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/nalberthy/url-shorten/internal/platform/metrics"
)

const (
	CodeLength         = 6
	DefaultMaxAttempts = 10
)

// URL 安全字母表，64 个字符，随机字节取低 6 位即可均匀取样
const codeAlphabet = "useandom-26T198340PX75pxJACKVERYMINDBUSHWOLF_GQZbfghjklqvwyzrict"

// CodeFilter 是短码的本地成员过滤器（布隆过滤器）。
// MightExist 返回 false 表示一定没见过；返回 true 可能误判。
type CodeFilter interface {
	Add(code string)
	MightExist(code string) bool
}

// Allocator 生成不冲突的短码。
//
// 候选码先过本地过滤器，再查存储；重试次数有上限，超过返回 ErrAllocationExhausted。
// 候选码在真正插入之前不会被占用，最终以存储层唯一约束为准。
type Allocator struct {
	links       LinkStore
	filter      CodeFilter
	maxAttempts int
	random      io.Reader
}

func NewAllocator(links LinkStore, filter CodeFilter, maxAttempts int) *Allocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Allocator{
		links:       links,
		filter:      filter,
		maxAttempts: maxAttempts,
		random:      rand.Reader,
	}
}

func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		code, err := a.candidate()
		if err != nil {
			return "", err
		}
		if a.filter != nil && a.filter.MightExist(code) {
			metrics.CodeCollisions.WithLabelValues("filter").Inc()
			continue
		}
		taken, err := a.links.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if taken {
			metrics.CodeCollisions.WithLabelValues("store").Inc()
			a.Remember(code)
			continue
		}
		return code, nil
	}
	return "", fmt.Errorf("%w after %d attempts", ErrAllocationExhausted, a.maxAttempts)
}

// Remember 把已确认占用的短码记入过滤器。
func (a *Allocator) Remember(codes ...string) {
	if a.filter == nil {
		return
	}
	for _, c := range codes {
		a.filter.Add(c)
	}
}

func (a *Allocator) candidate() (string, error) {
	var buf [CodeLength]byte
	if _, err := io.ReadFull(a.random, buf[:]); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i := range buf {
		buf[i] = codeAlphabet[buf[i]&63]
	}
	return string(buf[:]), nil
}
