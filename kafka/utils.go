package kafka

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// ConsumerMessage implements Message over a kafka-go message.
type ConsumerMessage struct {
	message kafka.Message
	reader  *kafka.Reader
}

// Consume fetches records on one goroutine and delivers them in order on the
// returned channel. The channel is unbuffered so the reader does not run ahead
// of the consumer; a record is fetched only after the previous one was taken.
//
// The goroutine stops when ctx is cancelled, the client shuts down, or a fetch
// fails with a permanent error. In the last case the translated error is sent
// on errCh (buffered, capacity 1) before the message channel is closed.
func (k *KafkaClient) Consume(ctx context.Context, wg *sync.WaitGroup) (<-chan Message, <-chan error) {
	outChan := make(chan Message)
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(outChan)
		k.consumeLoop(ctx, outChan, errCh)
	}()

	return outChan, errCh
}

func (k *KafkaClient) consumeLoop(ctx context.Context, outChan chan<- Message, errCh chan<- error) {
	fields := map[string]interface{}{
		"topic":    k.cfg.Topic,
		"group_id": k.cfg.GroupID,
	}

	for {
		select {
		case <-k.shutdownSignal:
			k.logInfo(ctx, "Stopping consumer due to shutdown signal", fields)
			return
		case <-ctx.Done():
			k.logInfo(ctx, "Stopping consumer due to context cancellation", fields)
			return
		default:
		}

		k.mu.RLock()
		reader := k.reader
		k.mu.RUnlock()

		if reader == nil {
			errCh <- ErrReaderNotInitialized
			return
		}

		start := time.Now()
		msg, err := reader.FetchMessage(ctx)

		msgSize := int64(0)
		if err == nil {
			msgSize = int64(len(msg.Value))
		}
		k.observeOperation("consume", k.cfg.Topic, strconv.Itoa(msg.Partition), time.Since(start), err, msgSize)

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return
			}
			// the reader was closed underneath us
			if errors.Is(err, io.EOF) {
				return
			}
			translated := TranslateError(err)
			if IsPermanentError(translated) || errors.Is(err, kafka.ErrGroupClosed) {
				k.logError(ctx, "Consumer stopped on permanent fetch error", err, fields)
				errCh <- translated
				return
			}
			k.logWarn(ctx, "Fetch failed, retrying", map[string]interface{}{
				"topic":     k.cfg.Topic,
				"error":     err.Error(),
				"retryable": IsRetryableError(translated),
			})
			select {
			case <-time.After(k.cfg.RetryBackoff):
				continue
			case <-ctx.Done():
				return
			case <-k.shutdownSignal:
				return
			}
		}

		select {
		case outChan <- &ConsumerMessage{message: msg, reader: reader}:
		case <-ctx.Done():
			return
		case <-k.shutdownSignal:
			return
		}
	}
}

// Publish writes value to topic. headers typically carry the trace context
// from tracer.GetCarrier.
func (k *KafkaClient) Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error {
	start := time.Now()
	var publishErr error

	defer func() {
		k.observeOperation("produce", topic, "", time.Since(start), publishErr, int64(len(value)))
	}()

	if err := ctx.Err(); err != nil {
		publishErr = err
		return publishErr
	}

	k.mu.RLock()
	writer := k.writer
	k.mu.RUnlock()

	if writer == nil {
		publishErr = ErrWriterNotInitialized
		return publishErr
	}

	kafkaMsg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}

	if len(headers) > 0 {
		kafkaMsg.Headers = make([]kafka.Header, 0, len(headers))
		for hk, hv := range headers {
			kafkaMsg.Headers = append(kafkaMsg.Headers, kafka.Header{Key: hk, Value: []byte(hv)})
		}
	}

	if err := writer.WriteMessages(ctx, kafkaMsg); err != nil {
		publishErr = TranslateError(err)
		return publishErr
	}

	return nil
}

// CommitMsg commits the message offset for the reader's group.
func (cm *ConsumerMessage) CommitMsg() error {
	return cm.reader.CommitMessages(context.Background(), cm.message)
}

func (cm *ConsumerMessage) Body() []byte { return cm.message.Value }

func (cm *ConsumerMessage) Key() string { return string(cm.message.Key) }

// Header returns the record headers; later duplicates win.
func (cm *ConsumerMessage) Header() map[string]string {
	headers := make(map[string]string, len(cm.message.Headers))
	for _, h := range cm.message.Headers {
		headers[h.Key] = string(h.Value)
	}
	return headers
}

func (cm *ConsumerMessage) Topic() string { return cm.message.Topic }

func (cm *ConsumerMessage) Partition() int { return cm.message.Partition }

func (cm *ConsumerMessage) Offset() int64 { return cm.message.Offset }

func (cm *ConsumerMessage) Time() time.Time { return cm.message.Time }
