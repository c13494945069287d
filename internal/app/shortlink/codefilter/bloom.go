// Package codefilter 提供短码分配时使用的本地布隆过滤器。
package codefilter

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/nalberthy/url-shorten/internal/app/shortlink"
)

const (
	DefaultExpectedCodes     = 1_000_000
	DefaultFalsePositiveRate = 0.01
)

// Bloom 记录已知被占用的短码。
// MightExist 返回 false 表示一定没见过；返回 true 只是“可能”，分配器会换一个候选。
type Bloom struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

var _ shortlink.CodeFilter = (*Bloom)(nil)

// New expectedCodes 为预期短码数量，falsePositiveRate 建议 0.01
func New(expectedCodes uint, falsePositiveRate float64) *Bloom {
	if expectedCodes == 0 {
		expectedCodes = DefaultExpectedCodes
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = DefaultFalsePositiveRate
	}
	return &Bloom{filter: bloom.NewWithEstimates(expectedCodes, falsePositiveRate)}
}

func (b *Bloom) Add(code string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filter.AddString(code)
}

func (b *Bloom) MightExist(code string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filter.TestString(code)
}

// Count 估算已加入的元素个数
func (b *Bloom) Count() uint32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filter.ApproximatedSize()
}
