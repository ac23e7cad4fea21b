package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyBackend fails its first N Stream initiations, then serves the
// scripted chunks.
type flakyBackend struct {
	failures int
	inits    int
	chunks   []Chunk
}

func (f *flakyBackend) Name() string     { return "flaky" }
func (f *flakyBackend) Models() []string { return nil }

func (f *flakyBackend) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *flakyBackend) Stream(ctx context.Context, req *CompletionRequest) (<-chan Chunk, error) {
	f.inits++
	if f.inits <= f.failures {
		return nil, errors.New("connection refused")
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		for _, chunk := range f.chunks {
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func drain(ch <-chan Chunk) []Chunk {
	var out []Chunk
	for c := range ch {
		out = append(out, c)
	}
	return out
}

func TestStreamWithRetryRecoversInitiationFailures(t *testing.T) {
	backend := &flakyBackend{
		failures: 2,
		chunks:   []Chunk{{Delta: "ok"}, {Done: true}},
	}

	ch, err := StreamWithRetry(context.Background(), backend, &CompletionRequest{Model: "m"}, 3, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, backend.inits)

	got := drain(ch)
	require.Len(t, got, 2)
	assert.Equal(t, "ok", got[0].Delta)
	assert.True(t, got[1].Done)
}

func TestStreamWithRetryExhaustsAttemptBound(t *testing.T) {
	backend := &flakyBackend{failures: 10}

	_, err := StreamWithRetry(context.Background(), backend, &CompletionRequest{Model: "m"}, 3, time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, 3, backend.inits, "no initiation beyond the attempt bound")
}

func TestStreamWithRetryNeverRetriesMidStream(t *testing.T) {
	backend := &flakyBackend{
		chunks: []Chunk{{Delta: "par"}, {Err: errors.New("stream reset")}},
	}

	ch, err := StreamWithRetry(context.Background(), backend, &CompletionRequest{Model: "m"}, 3, time.Millisecond)
	require.NoError(t, err)

	got := drain(ch)
	require.Len(t, got, 2)
	assert.Equal(t, "par", got[0].Delta)
	assert.Error(t, got[1].Err)

	// A failure after partial output must not re-initiate: a second attempt
	// would duplicate the partial output.
	assert.Equal(t, 1, backend.inits)
}
