package closer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/product-verifier/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloserLIFO(t *testing.T) {
	c := NewCloser(0, logger.Nop{})

	var order []string
	for _, name := range []string{"db", "redis", "http"} {
		c.Add(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, []string{"http", "redis", "db"}, order)
}

func TestCloserCollectsErrors(t *testing.T) {
	c := NewCloser(0, logger.Nop{})
	c.Add("broken", func(context.Context) error { return errors.New("boom") })
	c.AddFunc("pool", func() {})

	err := c.Close(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: boom")
}

func TestCloserCloseOnce(t *testing.T) {
	c := NewCloser(0, logger.Nop{})
	calls := 0
	c.AddFunc("once", func() { calls++ })

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestCloserForcesRemainingOnTimeout(t *testing.T) {
	c := NewCloser(time.Second, logger.Nop{})

	var (
		mu     sync.Mutex
		forced bool
	)
	c.AddFunc("first", func() {
		mu.Lock()
		forced = true
		mu.Unlock()
	})
	c.AddFunc("slow", func() {
		time.Sleep(100 * time.Millisecond)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Close(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shutdown interrupted after 0/2")

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, forced)
}
