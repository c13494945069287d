package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nalberthy/url-shorten/internal/app/shortlink"
	"github.com/nalberthy/url-shorten/internal/app/shortlink/memstore"
	"github.com/nalberthy/url-shorten/internal/app/shortlink/repo"
	"github.com/nalberthy/url-shorten/internal/app/shortlink/sqlitestore"
	"github.com/nalberthy/url-shorten/internal/app/shortlink/stats"
	"github.com/nalberthy/url-shorten/internal/platform/config"
	"github.com/nalberthy/url-shorten/internal/platform/db"
	"github.com/nalberthy/url-shorten/internal/platform/migrate"
	"github.com/nalberthy/url-shorten/migrations"
)

// openStore 按 STORE_DRIVER 选择存储后端，返回的 close 在进程退出时调用
func openStore(ctx context.Context, cfg config.Config) (shortlink.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		dbCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		pool, err := db.New(dbCtx, cfg.DBDSN, db.PoolOptions{})
		if err != nil {
			return nil, nil, err
		}
		if cfg.MigrateOnStart {
			migCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			res, err := migrate.Up(migCtx, pool, migrate.Options{FS: migrations.FS})
			if err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
			slog.Info("migrations done", "source", res.Source, "applied", res.AppliedFiles, "skipped", len(res.SkippedFiles))
		}
		slog.Info("数据库连接成功", "driver", cfg.StoreDriver)
		return repo.New(pool), pool.Close, nil

	case config.StoreSQLite:
		s, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("数据库连接成功", "driver", cfg.StoreDriver, "path", cfg.SQLitePath)
		return s, func() {
			if err := s.Close(); err != nil {
				slog.Error("close sqlite failed", "err", err)
			}
		}, nil

	case config.StoreMemory:
		slog.Warn("using in-memory store, data is lost on restart")
		return memstore.New(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

// clickPipeline 是点击明细的收集端和消费端
type clickPipeline struct {
	collector stats.Collector
	wg        sync.WaitGroup
	closers   []func()
}

func (p *clickPipeline) run(fn func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		fn()
	}()
}

// shutdown 先关收集端，再等消费端退出
func (p *clickPipeline) shutdown() {
	p.collector.Close()
	p.wg.Wait()
	for _, c := range p.closers {
		c()
	}
}

// newClickPipeline 按 CLICK_COLLECTOR 选择 channel / kafka / redis / none。
// 消费者在 ctx 取消后刷完剩余批次再退出。
func newClickPipeline(ctx context.Context, cfg config.Config, sink stats.Sink) (*clickPipeline, error) {
	p := &clickPipeline{}
	opts := stats.BatchOptions{}

	switch cfg.ClickCollector {
	case config.CollectorChannel:
		slog.Info("使用 Channel 收集点击明细", "buffer", cfg.ClickBuffer)
		c := stats.NewChannelCollector(cfg.ClickBuffer)
		p.collector = c
		consumer := stats.NewConsumer(c, sink, opts)
		// channel 消费者在收集器关闭后才退出，不跟随 ctx，保证缓冲区刷完
		p.run(func() { consumer.Run(context.Background()) })

	case config.CollectorKafka:
		slog.Info("使用 Kafka 收集点击明细", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
		p.collector = stats.NewKafkaCollector(cfg.KafkaBrokers, cfg.KafkaTopic)
		consumer := stats.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, sink, opts)
		p.run(func() { consumer.Run(ctx) })
		p.closers = append(p.closers, consumer.Close)

	case config.CollectorRedis:
		slog.Info("使用 Redis Stream 收集点击明细", "addr", cfg.RedisAddr, "stream", cfg.RedisStream)
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		p.collector = stats.NewRedisStreamCollector(rdb, cfg.RedisStream)
		consumer, err := stats.NewRedisStreamConsumer(ctx, rdb, stats.RedisStreamConfig{Stream: cfg.RedisStream}, sink, opts)
		if err != nil {
			rdb.Close()
			return nil, err
		}
		p.run(func() { consumer.Run(ctx) })
		p.closers = append(p.closers, func() { rdb.Close() })

	case config.CollectorNone:
		slog.Warn("click details disabled by config", "CLICK_COLLECTOR", cfg.ClickCollector)
		p.collector = stats.NopCollector{}

	default:
		return nil, fmt.Errorf("unknown CLICK_COLLECTOR %q", cfg.ClickCollector)
	}
	return p, nil
}
