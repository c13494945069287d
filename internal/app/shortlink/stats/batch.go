package stats

import (
	"context"
	"log/slog"
	"time"

	"github.com/nalberthy/url-shorten/internal/app/shortlink"
	"github.com/nalberthy/url-shorten/internal/platform/metrics"
)

const (
	DefaultBatchSize     = 100
	DefaultFlushInterval = time.Second
	flushTimeout         = 5 * time.Second
)

// Sink 是批量写入的目标，shortlink.ClickStore 满足它
type Sink interface {
	RecordClicks(ctx context.Context, events []shortlink.ClickEvent) error
}

// BatchOptions 控制攒批：满 BatchSize 条或每隔 Interval 写一次
type BatchOptions struct {
	BatchSize int
	Interval  time.Duration
}

func (o BatchOptions) withDefaults() BatchOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Interval <= 0 {
		o.Interval = DefaultFlushInterval
	}
	return o
}

// drain 从 in 里攒批写入 sink，直到 ctx 结束或 in 被关闭；退出前会把剩余事件写掉
func drain(ctx context.Context, in <-chan shortlink.ClickEvent, sink Sink, opts BatchOptions, source string) {
	batch := make([]shortlink.ClickEvent, 0, opts.BatchSize)
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flush(sink, batch, source)
			return
		case event, ok := <-in:
			if !ok {
				flush(sink, batch, source)
				return
			}
			batch = append(batch, event)
			if len(batch) >= opts.BatchSize {
				flush(sink, batch, source)
				batch = batch[:0] //清空切片，但保留容量不变
			}
		case <-ticker.C:
			if len(batch) > 0 {
				flush(sink, batch, source)
				batch = batch[:0]
			}
		}
	}
}

// flush 用独立的 context，关停时也能把最后一批写完
func flush(sink Sink, batch []shortlink.ClickEvent, source string) error {
	if len(batch) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := sink.RecordClicks(ctx, batch); err != nil {
		slog.Error("click stats: flush failed", "source", source, "count", len(batch), "err", err)
		metrics.ClickEventsDropped.WithLabelValues(source).Add(float64(len(batch)))
		return err
	}
	metrics.ClickEventsFlushed.Add(float64(len(batch)))
	slog.Debug("click stats: flushed", "source", source, "count", len(batch))
	return nil
}
