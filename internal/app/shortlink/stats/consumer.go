package stats

import (
	"context"

	"github.com/nalberthy/url-shorten/internal/app/shortlink"
)

// Consumer 消费 ChannelCollector 里的点击事件
type Consumer struct {
	events <-chan shortlink.ClickEvent
	sink   Sink
	opts   BatchOptions
}

func NewConsumer(collector *ChannelCollector, sink Sink, opts BatchOptions) *Consumer {
	return &Consumer{
		events: collector.Events(),
		sink:   sink,
		opts:   opts.withDefaults(),
	}
}

// Run 阻塞，直到 ctx 结束或收集器关闭
func (c *Consumer) Run(ctx context.Context) {
	drain(ctx, c.events, c.sink, c.opts, "channel")
}
