// Package resilient wraps calls to the remote model endpoint with
// classified-error retry and exponential backoff with jitter. Timeout,
// transient, connection and unavailable errors are retried up to
// MaxAttempts total tries; invalid-request and unclassified errors abort
// after a single try. Credential freshness is re-checked on every attempt
// because the wrapped providers fetch the credential per request.
package resilient

import (
	"context"
	"log"
	"time"

	"ai-docchat-be/pkg/apierr"
	"ai-docchat-be/pkg/embedding"
	"ai-docchat-be/pkg/llm"
)

// sleepFunc is swapped out in tests to avoid real backoff waits.
type sleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func do(ctx context.Context, policy RetryPolicy, sleep sleepFunc, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !apierr.Retriable(err) {
			return err
		}
		if attempt == policy.MaxAttempts-1 {
			break
		}

		delay := policy.Delay(attempt)
		log.Printf("[WARN] %s attempt %d/%d failed (%s), retrying in %s", op, attempt+1, policy.MaxAttempts, apierr.KindOf(err), delay)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return &RetriesExhaustedError{Attempts: policy.MaxAttempts, Last: lastErr}
}

// ChatClient is a retry-resilient llm.ChatProvider.
type ChatClient struct {
	inner  llm.ChatProvider
	policy RetryPolicy
	sleep  sleepFunc
}

func NewChatClient(inner llm.ChatProvider, policy RetryPolicy) *ChatClient {
	return &ChatClient{inner: inner, policy: policy, sleep: defaultSleep}
}

func (c *ChatClient) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	var result string
	err := do(ctx, c.policy, c.sleep, "chat completion", func(ctx context.Context) error {
		response, err := c.inner.Chat(ctx, history, options...)
		if err != nil {
			return err
		}
		result = response
		return nil
	})
	return result, err
}

// ChatStream forwards fragments as they arrive. A retriable error before
// completion restarts the entire call for the next attempt; an
// EventRestart is emitted first when fragments were already exposed, so
// consumers can discard their partial text. There is no partial-token
// resume.
func (c *ChatClient) ChatStream(ctx context.Context, history []llm.Message, options ...llm.Option) (*llm.Stream, error) {
	out := llm.NewStream(16)
	go c.runStream(ctx, out, history, options)
	return out, nil
}

func (c *ChatClient) runStream(ctx context.Context, out *llm.Stream, history []llm.Message, options []llm.Option) {
	var lastErr error
	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		forwarded, err := c.forwardAttempt(ctx, out, history, options)
		if err == nil {
			out.Close(nil)
			return
		}
		lastErr = err

		if !apierr.Retriable(err) {
			out.Close(err)
			return
		}
		if attempt == c.policy.MaxAttempts-1 {
			break
		}

		if forwarded {
			out.EmitRestart()
		}
		delay := c.policy.Delay(attempt)
		log.Printf("[WARN] chat stream attempt %d/%d failed (%s), retrying in %s", attempt+1, c.policy.MaxAttempts, apierr.KindOf(err), delay)
		if err := c.sleep(ctx, delay); err != nil {
			out.Close(err)
			return
		}
	}
	out.Close(&RetriesExhaustedError{Attempts: c.policy.MaxAttempts, Last: lastErr})
}

// forwardAttempt pipes one inner stream attempt into out. Reports whether
// any fragment reached the consumer.
func (c *ChatClient) forwardAttempt(ctx context.Context, out *llm.Stream, history []llm.Message, options []llm.Option) (bool, error) {
	inner, err := c.inner.ChatStream(ctx, history, options...)
	if err != nil {
		return false, err
	}

	forwarded := false
	for event := range inner.Events() {
		switch event.Type {
		case llm.EventDelta:
			out.EmitDelta(event.Delta)
			forwarded = true
		case llm.EventDone:
			return forwarded, nil
		case llm.EventRestart:
			out.EmitRestart()
			forwarded = false
		}
	}
	if err := inner.Err(); err != nil {
		return forwarded, err
	}
	return forwarded, apierr.New(apierr.KindConnection, 0, "stream closed without completion")
}

// EmbedClient is a retry-resilient embedding.EmbeddingProvider.
type EmbedClient struct {
	inner  embedding.EmbeddingProvider
	policy RetryPolicy
	sleep  sleepFunc
}

func NewEmbedClient(inner embedding.EmbeddingProvider, policy RetryPolicy) *EmbedClient {
	return &EmbedClient{inner: inner, policy: policy, sleep: defaultSleep}
}

func (c *EmbedClient) EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	var result [][]float32
	err := do(ctx, c.policy, c.sleep, "embedding", func(ctx context.Context) error {
		vectors, err := c.inner.EmbedBatch(ctx, inputs)
		if err != nil {
			return err
		}
		result = vectors
		return nil
	})
	return result, err
}
