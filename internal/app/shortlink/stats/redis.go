package stats

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nalberthy/url-shorten/internal/app/shortlink"
	"github.com/nalberthy/url-shorten/internal/platform/metrics"
)

const (
	DefaultStream   = "shortlink:clicks"
	DefaultGroup    = "shortlink:click-stats"
	DefaultConsumer = "consumer-1"

	// DefaultClaimIdle 之后仍未确认的消息会被重新认领
	DefaultClaimIdle = time.Minute

	eventField     = "event"
	streamMaxLen   = 100_000
	xaddTimeout    = 500 * time.Millisecond
	redisBufferLen = 1024
)

type RedisStreamConfig struct {
	Stream    string
	Group     string
	Consumer  string
	ClaimIdle time.Duration
}

func (c RedisStreamConfig) withDefaults() RedisStreamConfig {
	if c.Stream == "" {
		c.Stream = DefaultStream
	}
	if c.Group == "" {
		c.Group = DefaultGroup
	}
	if c.Consumer == "" {
		c.Consumer = DefaultConsumer
	}
	if c.ClaimIdle <= 0 {
		c.ClaimIdle = DefaultClaimIdle
	}
	return c
}

// RedisStreamCollector 把事件放进本地缓冲，由后台 goroutine XADD 到 stream，
// 跳转请求不等 Redis。缓冲满时丢弃；stream 长度近似截断在 streamMaxLen。
type RedisStreamCollector struct {
	rdb    *redis.Client
	stream string

	mu     sync.RWMutex
	ch     chan shortlink.ClickEvent
	closed bool
	done   chan struct{}
}

func NewRedisStreamCollector(rdb *redis.Client, stream string) *RedisStreamCollector {
	if stream == "" {
		stream = DefaultStream
	}
	r := &RedisStreamCollector{
		rdb:    rdb,
		stream: stream,
		ch:     make(chan shortlink.ClickEvent, redisBufferLen),
		done:   make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *RedisStreamCollector) Collect(event shortlink.ClickEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.ch <- event:
	default:
		metrics.ClickEventsDropped.WithLabelValues("redis").Inc()
	}
}

func (r *RedisStreamCollector) loop() {
	defer close(r.done)
	for event := range r.ch {
		r.add(event)
	}
}

func (r *RedisStreamCollector) add(event shortlink.ClickEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshal click event failed", "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), xaddTimeout)
	defer cancel()

	err = r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{eventField: string(data)},
	}).Err()
	if err != nil {
		slog.Error("redis xadd failed", "stream", r.stream, "err", err)
		metrics.ClickEventsDropped.WithLabelValues("redis").Inc()
	}
}

// Close 发完缓冲里的事件后返回，可重复调用。client 由调用方管理。
func (r *RedisStreamCollector) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.ch)
	}
	r.mu.Unlock()
	<-r.done
}

// RedisStreamConsumer 用消费者组读取 stream，写库成功后 XACK。
// 写库失败的消息留在 pending 列表，空闲超过 ClaimIdle 后由 claimPending 重新认领。
type RedisStreamConsumer struct {
	rdb  *redis.Client
	cfg  RedisStreamConfig
	sink Sink
	opts BatchOptions
}

// NewRedisStreamConsumer 创建消费者组（幂等）
func NewRedisStreamConsumer(ctx context.Context, rdb *redis.Client, cfg RedisStreamConfig, sink Sink, opts BatchOptions) (*RedisStreamConsumer, error) {
	if rdb == nil {
		return nil, errors.New("nil redis client")
	}
	cfg = cfg.withDefaults()

	gctx, cancel := context.WithTimeout(ctx, xaddTimeout)
	defer cancel()
	if err := rdb.XGroupCreateMkStream(gctx, cfg.Stream, cfg.Group, "$").Err(); err != nil && !isBusyGroup(err) {
		return nil, err
	}
	return &RedisStreamConsumer{rdb: rdb, cfg: cfg, sink: sink, opts: opts.withDefaults()}, nil
}

func isBusyGroup(err error) bool {
	return err != nil && strings.Contains(err.Error(), "BUSYGROUP")
}

// Run 阻塞读取直到 ctx 结束。启动时和之后每隔 ClaimIdle 先认领一次 pending 消息。
func (r *RedisStreamConsumer) Run(ctx context.Context) {
	var lastClaim time.Time
	for {
		if ctx.Err() != nil {
			return
		}
		if time.Since(lastClaim) >= r.cfg.ClaimIdle {
			r.claimPending(ctx)
			lastClaim = time.Now()
		}
		res, err := r.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    r.cfg.Group,
			Consumer: r.cfg.Consumer,
			Streams:  []string{r.cfg.Stream, ">"},
			Count:    int64(r.opts.BatchSize),
			Block:    r.opts.Interval,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			slog.Error("redis xreadgroup failed", "stream", r.cfg.Stream, "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.opts.Interval):
			}
			continue
		}
		r.handle(res)
	}
}

// claimPending 用 XAUTOCLAIM 把空闲超过 ClaimIdle 的 pending 消息转给自己并重新写库
func (r *RedisStreamConsumer) claimPending(ctx context.Context) {
	start := "0-0"
	for {
		msgs, next, err := r.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   r.cfg.Stream,
			Group:    r.cfg.Group,
			Consumer: r.cfg.Consumer,
			MinIdle:  r.cfg.ClaimIdle,
			Start:    start,
			Count:    int64(r.opts.BatchSize),
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("redis xautoclaim failed", "stream", r.cfg.Stream, "err", err)
			}
			return
		}
		if len(msgs) > 0 {
			slog.Info("claimed pending click events", "stream", r.cfg.Stream, "count", len(msgs))
			r.handle([]redis.XStream{{Stream: r.cfg.Stream, Messages: msgs}})
		}
		if next == "0-0" || next == "" {
			return
		}
		start = next
	}
}

func (r *RedisStreamConsumer) handle(streams []redis.XStream) {
	var (
		events []shortlink.ClickEvent
		ids    []string
		bad    []string
	)
	for _, s := range streams {
		for _, msg := range s.Messages {
			raw, _ := msg.Values[eventField].(string)
			var event shortlink.ClickEvent
			if err := json.Unmarshal([]byte(raw), &event); err != nil {
				slog.Error("unmarshal click event failed", "id", msg.ID, "err", err)
				bad = append(bad, msg.ID)
				continue
			}
			events = append(events, event)
			ids = append(ids, msg.ID)
		}
	}

	// 解析不了的消息直接确认，避免反复投递
	if err := flush(r.sink, events, "redis"); err == nil {
		ids = append(ids, bad...)
	} else {
		ids = bad
	}
	if len(ids) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), xaddTimeout)
	defer cancel()
	if err := r.rdb.XAck(ctx, r.cfg.Stream, r.cfg.Group, ids...).Err(); err != nil {
		slog.Error("redis xack failed", "count", len(ids), "err", err)
	}
}
