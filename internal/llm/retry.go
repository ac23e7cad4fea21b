package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/streamchat-ai/chat-backend/pkg/metrics"
)

// StreamWithRetry opens a stream with bounded retries around initiation
// only. Once a channel has been handed to the consumer, mid-stream failures
// are never retried: a second attempt would duplicate partial output.
func StreamWithRetry(ctx context.Context, client Client, req *CompletionRequest, attempts int, wait time.Duration) (<-chan Chunk, error) {
	if attempts < 1 {
		attempts = 1
	}

	var out <-chan Chunk
	operation := func() error {
		ch, err := client.Stream(ctx, req)
		if err != nil {
			return err
		}
		out = ch
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(wait), uint64(attempts-1)),
		ctx,
	)
	notify := func(error, time.Duration) {
		metrics.LLMRetriesTotal.WithLabelValues(client.Name()).Inc()
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, err
	}
	return out, nil
}
