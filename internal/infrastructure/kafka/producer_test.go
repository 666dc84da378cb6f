package kafka

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/DRSN-tech/product-verifier/internal/cfg"
	"github.com/DRSN-tech/product-verifier/internal/usecase"
	"github.com/DRSN-tech/product-verifier/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogProducerWritesEvent(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogProducer(logger.NewSlogLoggerWithWriter(&buf, slog.LevelInfo))

	err := p.WriteRawMessage(context.Background(), usecase.NewWriteRawMessageReq("ver-1", []byte(`{"is_match":true}`)))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "key=ver-1")
}

func TestEnsureTopicFailsWithoutBrokers(t *testing.T) {
	p := NewProducer(logger.Nop{}, &cfg.KafkaCfg{
		Topic:       "verification-events",
		Brokers:     []string{"127.0.0.1:1", "127.0.0.1:2"},
		NetworkMode: "tcp",
	})
	defer p.Close()

	err := p.EnsureTopic(time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
	assert.Contains(t, err.Error(), "127.0.0.1:2")
}
