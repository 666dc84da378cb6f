package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/product-verifier/internal/usecase"
	"github.com/DRSN-tech/product-verifier/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutbox struct {
	mu        sync.Mutex
	pending   []*usecase.OutboxEvent
	processed []int64
	resets    int
}

func (f *fakeOutbox) Create(_ context.Context, ev *usecase.OutboxEvent) (*usecase.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev.ID = int64(len(f.pending) + len(f.processed) + 1)
	f.pending = append(f.pending, ev)
	return ev, nil
}

func (f *fakeOutbox) GetAndMarkAsProcessing(_ context.Context, limit int) ([]*usecase.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := min(limit, len(f.pending))
	batch := f.pending[:n]
	f.pending = f.pending[n:]
	return batch, nil
}

func (f *fakeOutbox) MarkAsProcessed(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, id)
	return nil
}

func (f *fakeOutbox) ResetStale(context.Context, int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return 0, nil
}

func (f *fakeOutbox) processedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.processed)
}

type fakeProducer struct {
	mu   sync.Mutex
	keys []string
	fail map[string]bool
}

func (p *fakeProducer) WriteRawMessage(_ context.Context, req *usecase.WriteRawMessageReq) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail[req.Key] {
		return errors.New("dial tcp: connection refused")
	}
	p.keys = append(p.keys, req.Key)
	return nil
}

func seed(t *testing.T, repo *fakeOutbox, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := repo.Create(context.Background(), &usecase.OutboxEvent{
			EventID:     fmt.Sprintf("e%d", i),
			AggregateID: fmt.Sprintf("v%d", i),
			Payload:     []byte(`{}`),
		})
		require.NoError(t, err)
	}
}

func TestDrainPublishesAllBatches(t *testing.T) {
	repo := &fakeOutbox{}
	seed(t, repo, 25)
	producer := &fakeProducer{}

	w := NewOutboxWorker(repo, logger.Nop{}, producer, "")
	w.drain(context.Background())

	assert.Equal(t, 25, repo.processedCount())
	assert.Equal(t, "v0", producer.keys[0])
	assert.Equal(t, "v24", producer.keys[24])
}

func TestFailedEventsAreNotMarked(t *testing.T) {
	repo := &fakeOutbox{}
	seed(t, repo, 3)
	producer := &fakeProducer{fail: map[string]bool{"v1": true}}

	w := NewOutboxWorker(repo, logger.Nop{}, producer, "")
	w.drain(context.Background())

	assert.Equal(t, []int64{1, 3}, repo.processed)
}

func TestWorkerDrainsOnStartAndWake(t *testing.T) {
	repo := &fakeOutbox{}
	seed(t, repo, 2)

	w := NewOutboxWorker(repo, logger.Nop{}, &fakeProducer{}, "")
	w.Start(context.Background())
	defer w.Stop()

	require.Eventually(t, func() bool { return repo.processedCount() == 2 }, time.Second, 5*time.Millisecond)

	seed(t, repo, 1)
	w.Wake()
	require.Eventually(t, func() bool { return repo.processedCount() == 3 }, time.Second, 5*time.Millisecond)
}

func TestWorkerTickRequeuesStale(t *testing.T) {
	repo := &fakeOutbox{}

	w := NewOutboxWorker(repo, logger.Nop{}, &fakeProducer{}, "")
	w.interval = 10 * time.Millisecond
	w.Start(context.Background())

	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return repo.resets > 0
	}, time.Second, 5*time.Millisecond)

	w.Stop()
	w.Stop()
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(errors.New("dial tcp 10.0.0.1:9092: connect: Connection refused")))
	assert.False(t, isRetryableError(errors.New("message too large")))
	assert.False(t, isRetryableError(nil))
}
