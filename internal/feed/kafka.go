package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"alert-systemv1/internal/model"
)

// KafkaConfig configures the Kafka tick source.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string

	// Workers is the number of decode goroutines. Messages for the
	// same partition may be decoded out of order across workers; the
	// candle aggregator tolerates that within its flush grace window.
	Workers int

	// BufferSize is the capacity of the internal message channel
	// between the reader and the workers.
	BufferSize int

	// RetryMax bounds consecutive read failures before Run gives up
	// and returns the error to the caller.
	RetryMax   int
	BackoffMin time.Duration
	BackoffMax time.Duration

	// MinBytes and MaxBytes are the fetch sizes passed to the reader.
	MinBytes int
	MaxBytes int
}

func (c *KafkaConfig) defaults() {
	if c.Topic == "" {
		c.Topic = "ticks"
	}
	if c.GroupID == "" {
		c.GroupID = "alertengine"
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 4096
	}
	if c.RetryMax <= 0 {
		c.RetryMax = 3
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = 250 * time.Millisecond
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 5 * time.Second
	}
	if c.MinBytes <= 0 {
		c.MinBytes = 1
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 1 << 20
	}
}

// KafkaSource consumes JSON ticks from a Kafka topic as part of a
// consumer group. The payload format is the same model.Tick JSON the
// WebSocket source reads. Offsets are committed by the group protocol
// as messages are read, so a restart resumes from the committed
// position rather than replaying the session.
type KafkaSource struct {
	cfg KafkaConfig

	// OnTick is called for every decoded tick, accepted or not.
	OnTick func(model.Tick)

	// OnDrop is called when the sink refuses a tick.
	OnDrop func()
}

// NewKafkaSource returns a Kafka source. Brokers are required.
func NewKafkaSource(cfg KafkaConfig) (*KafkaSource, error) {
	cfg.defaults()
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("feed: kafka brokers are required")
	}
	return &KafkaSource{cfg: cfg}, nil
}

// Name identifies the source in logs.
func (s *KafkaSource) Name() string { return "kafka" }

// Run reads the topic and fans decoded ticks into sink through a worker
// pool. The send into the worker channel blocks: the broker holds
// unread data, so backpressure here loses nothing. Run returns nil on
// cancellation and an error after RetryMax consecutive read failures.
func (s *KafkaSource) Run(ctx context.Context, sink Sink) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  s.cfg.Brokers,
		Topic:    s.cfg.Topic,
		GroupID:  s.cfg.GroupID,
		MinBytes: s.cfg.MinBytes,
		MaxBytes: s.cfg.MaxBytes,
	})
	defer reader.Close()

	log.Printf("[feed] kafka consuming topic=%s group=%s brokers=%v",
		s.cfg.Topic, s.cfg.GroupID, s.cfg.Brokers)

	msgCh := make(chan []byte, s.cfg.BufferSize)
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for raw := range msgCh {
				s.decode(raw, sink)
			}
		}()
	}

	var readErr error
	failures := 0
loop:
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			failures++
			if failures > s.cfg.RetryMax {
				readErr = fmt.Errorf("feed: kafka read: %w", err)
				break
			}
			sleep := backoffWithJitter(s.cfg.BackoffMin, s.cfg.BackoffMax, failures)
			log.Printf("[feed] kafka read error (%v), retry %d/%d in %s",
				err, failures, s.cfg.RetryMax, sleep)
			select {
			case <-time.After(sleep):
			case <-ctx.Done():
				break loop
			}
			continue
		}
		failures = 0

		select {
		case msgCh <- msg.Value:
		case <-ctx.Done():
			break loop
		}
	}

	close(msgCh)
	wg.Wait()
	return readErr
}

// decode runs on a worker goroutine. Recovery guards the caller's
// hooks, matching the reader loop's crash isolation.
func (s *KafkaSource) decode(raw []byte, sink Sink) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[feed] kafka worker panic: %v", r)
		}
	}()

	var tick model.Tick
	if err := json.Unmarshal(raw, &tick); err != nil {
		log.Printf("[feed] kafka parse error: %v (raw: %s)", err, raw)
		return
	}
	if tick.Symbol == "" {
		log.Printf("[feed] kafka skipping tick with empty symbol")
		return
	}
	if s.OnTick != nil {
		s.OnTick(tick)
	}
	if !sink.Push(tick) && s.OnDrop != nil {
		s.OnDrop()
	}
}

// backoffWithJitter returns min*2^(attempt-1) capped at max, minus a
// random jitter of up to half the computed delay.
func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	exp := min * time.Duration(1<<uint(attempt-1))
	if exp > max || exp <= 0 {
		exp = max
	}
	jitter := time.Duration(rand.Int63n(int64(exp) / 2))
	return exp - jitter
}
