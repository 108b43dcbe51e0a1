// Package nats implements the message queue port using NATS JetStream.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/TestRelay/internal/logger"
	"github.com/Strob0t/TestRelay/internal/port/messagequeue"
)

const streamName = "RELAY"

const (
	headerRunID      = "Relay-Run-ID"
	headerRetryCount = "Relay-Retry-Count"

	// maxRetries is the number of redeliveries a failing message gets
	// before it moves to the dead-letter subject.
	maxRetries = 3
)

// Queue implements messagequeue.Queue using NATS JetStream.
type Queue struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and ensures the JetStream stream exists.
func Connect(ctx context.Context, url string) (*Queue, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	// Ensure the stream exists with subjects matching our topic patterns.
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"relay.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Queue{nc: nc, js: js}, nil
}

// Publish sends a message to the given subject. A run ID present on the
// context travels in a header so the consumer side logs under the same ID.
func (q *Queue) Publish(ctx context.Context, subject string, data []byte) error {
	msg := &nats.Msg{Subject: subject, Data: data, Header: nats.Header{}}
	if id := logger.RunID(ctx); id != "" {
		msg.Header.Set(headerRunID, id)
	}
	if _, err := q.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers a handler for messages on the given subject.
//
// Payloads are schema-validated before the handler runs; a message that
// fails validation, or whose handler keeps failing past the retry budget,
// moves to the subject's ".dlq" sibling instead of cycling forever.
func (q *Queue) Subscribe(ctx context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		msgCtx := context.Background()
		if id := msg.Headers().Get(headerRunID); id != "" {
			msgCtx = logger.WithRunID(msgCtx, id)
		}

		if err := messagequeue.Validate(msg.Subject(), msg.Data()); err != nil {
			slog.Error("message failed validation, dead-lettering",
				"subject", msg.Subject(), "error", err)
			q.moveToDLQ(msgCtx, msg)
			return
		}

		if err := handler(msgCtx, msg.Subject(), msg.Data()); err != nil {
			retries := retryCount(msg.Headers())
			slog.Error("message handler failed",
				"subject", msg.Subject(), "retries", retries, "error", err)
			if retries >= maxRetries {
				q.moveToDLQ(msgCtx, msg)
				return
			}
			q.requeue(msgCtx, msg, retries+1)
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			slog.Error("nats ack failed", "error", ackErr)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}

	return cons.Stop, nil
}

// moveToDLQ publishes the message to its dead-letter subject and acks the
// original so it is not redelivered.
func (q *Queue) moveToDLQ(ctx context.Context, msg jetstream.Msg) {
	dlq := &nats.Msg{
		Subject: msg.Subject() + ".dlq",
		Data:    msg.Data(),
		Header:  copyHeader(msg.Headers()),
	}
	if _, err := q.js.PublishMsg(ctx, dlq); err != nil {
		slog.Error("dead-letter publish failed", "subject", dlq.Subject, "error", err)
		// Leave the original unacked so JetStream redelivers it.
		return
	}
	if err := msg.Ack(); err != nil {
		slog.Error("nats ack failed", "error", err)
	}
}

// requeue republishes the message with a bumped retry count and acks the
// original, so backoff is driven by redelivery rather than a blocked consumer.
func (q *Queue) requeue(ctx context.Context, msg jetstream.Msg, retries int) {
	retry := &nats.Msg{
		Subject: msg.Subject(),
		Data:    msg.Data(),
		Header:  copyHeader(msg.Headers()),
	}
	retry.Header.Set(headerRetryCount, strconv.Itoa(retries))
	if _, err := q.js.PublishMsg(ctx, retry); err != nil {
		slog.Error("retry publish failed", "subject", msg.Subject(), "error", err)
		return
	}
	if err := msg.Ack(); err != nil {
		slog.Error("nats ack failed", "error", err)
	}
}

func retryCount(hdrs nats.Header) int {
	n, err := strconv.Atoi(hdrs.Get(headerRetryCount))
	if err != nil {
		return 0
	}
	return n
}

func copyHeader(hdrs nats.Header) nats.Header {
	out := nats.Header{}
	for k, vs := range hdrs {
		for _, v := range vs {
			out.Add(k, v)
		}
	}
	return out
}

// KeyValue creates or opens a JetStream KV bucket with the given TTL.
func (q *Queue) KeyValue(ctx context.Context, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := q.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		TTL:    ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("nats keyvalue %s: %w", bucket, err)
	}
	return kv, nil
}

// Drain gracefully drains all subscriptions before closing.
func (q *Queue) Drain() error {
	return q.nc.Drain()
}

// Close shuts down the NATS connection.
func (q *Queue) Close() error {
	q.nc.Close()
	return nil
}

// IsConnected reports whether the queue is currently connected.
func (q *Queue) IsConnected() bool {
	return q.nc != nil && q.nc.IsConnected()
}
