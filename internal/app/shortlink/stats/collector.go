// Package stats 异步收集跳转明细，批量写入 shortlink.ClickStore。
//
// 跳转请求只负责 Collect，写库在后台消费者里完成；链路是尽力而为的，
// 队列满、发送失败或写库失败都只记日志和指标，不影响跳转本身。
package stats

import (
	"sync"

	"github.com/nalberthy/url-shorten/internal/app/shortlink"
	"github.com/nalberthy/url-shorten/internal/platform/metrics"
)

// Collector 收集器接口
type Collector interface {
	Collect(event shortlink.ClickEvent)
	Close()
}

// NopCollector 丢弃所有事件，CLICK_COLLECTOR=none 时使用
type NopCollector struct{}

func (NopCollector) Collect(shortlink.ClickEvent) {}
func (NopCollector) Close()                       {}

// ChannelCollector 基于进程内 channel 的收集器，配合 Consumer 使用
type ChannelCollector struct {
	mu     sync.RWMutex
	ch     chan shortlink.ClickEvent
	closed bool
}

func NewChannelCollector(bufferSize int) *ChannelCollector {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	return &ChannelCollector{ch: make(chan shortlink.ClickEvent, bufferSize)}
}

func (c *ChannelCollector) Collect(event shortlink.ClickEvent) {
	// 读锁保证 Close 之后不会再往已关闭的 channel 里写
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- event:
	default:
		// 通道满了，丢弃
		metrics.ClickEventsDropped.WithLabelValues("channel").Inc()
	}
}

func (c *ChannelCollector) Events() <-chan shortlink.ClickEvent {
	return c.ch
}

// Close 可重复调用
func (c *ChannelCollector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}
