package stats

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/nalberthy/url-shorten/internal/app/shortlink"
	"github.com/nalberthy/url-shorten/internal/platform/metrics"
)

const kafkaGroupID = "click-stats-consumer"

type KafkaCollector struct {
	writer *kafka.Writer
}

func NewKafkaCollector(brokers []string, topic string) *KafkaCollector {
	return &KafkaCollector{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
			Async:    true, // 异步发送，错误在 Completion 里回调
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					slog.Error("kafka write failed", "count", len(messages), "err", err)
					metrics.ClickEventsDropped.WithLabelValues("kafka").Add(float64(len(messages)))
				}
			},
		},
	}
}

func (k *KafkaCollector) Collect(event shortlink.ClickEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshal click event failed", "err", err)
		return
	}
	// 同一个短链的事件落在同一个分区
	err = k.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(event.LinkID),
		Value: data,
	})
	if err != nil {
		slog.Error("kafka write failed", "err", err)
		metrics.ClickEventsDropped.WithLabelValues("kafka").Inc()
	}
}

func (k *KafkaCollector) Close() {
	if err := k.writer.Close(); err != nil {
		slog.Error("kafka writer close failed", "err", err)
	}
}

type KafkaConsumer struct {
	reader *kafka.Reader
	sink   Sink
	opts   BatchOptions
}

func NewKafkaConsumer(brokers []string, topic string, sink Sink, opts BatchOptions) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  kafkaGroupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		sink: sink,
		opts: opts.withDefaults(),
	}
}

func (k *KafkaConsumer) Run(ctx context.Context) {
	msgCh := make(chan shortlink.ClickEvent, k.opts.BatchSize)

	// 读取协程：把 Kafka 消息转成事件，ctx 结束时关闭 msgCh
	go func() {
		defer close(msgCh)
		for {
			msg, err := k.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Error("kafka read failed", "err", err)
				continue
			}

			var event shortlink.ClickEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				slog.Error("unmarshal click event failed", "err", err, "offset", msg.Offset)
				continue
			}
			select {
			case msgCh <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	drain(ctx, msgCh, k.sink, k.opts, "kafka")
}

func (k *KafkaConsumer) Close() {
	if err := k.reader.Close(); err != nil {
		slog.Error("kafka reader close failed", "err", err)
	}
}
