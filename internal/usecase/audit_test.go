package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DRSN-tech/product-verifier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationEventPayload(t *testing.T) {
	v := &domain.Verification{
		ID:             "ver-1",
		QueryImage:     domain.ImageHandle{ObjectKey: "queries/q.png"},
		BestMatchID:    "ref-1",
		BestMatchImage: domain.ImageHandle{ObjectKey: "references/r.png"},
		Score:          0.93,
		IsMatch:        true,
		Threshold:      0.8,
		ModelVersion:   "resnet50/caffe",
		ReferenceCount: 4,
		CreatedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	event, err := newVerificationEvent(v)
	require.NoError(t, err)

	assert.Equal(t, VerificationCompleted, event.EventType)
	assert.Equal(t, Pending, event.Status)
	assert.Equal(t, "ver-1", event.AggregateID)
	assert.NotEmpty(t, event.EventID)

	var payload VerificationCompletedPayload
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, event.EventID, payload.EventID)
	assert.Equal(t, "references/r.png", payload.BestMatchKey)
	assert.Equal(t, "queries/q.png", payload.QueryKey)
	assert.True(t, payload.IsMatch)
	assert.Equal(t, 4, payload.ReferenceCount)
}

func TestNopAudit(t *testing.T) {
	var a AuditRecorder = NopAudit{}

	require.NoError(t, a.Record(context.Background(), &domain.Verification{}))
	res, err := a.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}
