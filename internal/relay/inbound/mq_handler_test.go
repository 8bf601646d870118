package inbound

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/mailrelay/internal/pkg/config"
	"github.com/shandysiswandi/mailrelay/internal/pkg/goroutine"
	"github.com/shandysiswandi/mailrelay/internal/pkg/instrument"
	"github.com/shandysiswandi/mailrelay/internal/pkg/messaging"
	"github.com/shandysiswandi/mailrelay/internal/relay/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cidRecorder struct {
	fakeUC
	cid string
}

func (c *cidRecorder) ConsumeDispatchJob(ctx context.Context, job entity.DispatchJob) error {
	c.cid = instrument.GetCorrelationID(ctx)
	return c.fakeUC.ConsumeDispatchJob(ctx, job)
}

func TestMQHandler_DispatchJob(t *testing.T) {
	t.Run("decodes the job and keeps the correlation id", func(t *testing.T) {
		// Arrange
		uc := &cidRecorder{}
		h := &MQHandler{uc: uc, uuid: fixedID("generated"), ins: instrument.NewNoop()}

		// Act
		err := h.DispatchJob(context.Background(), messaging.Message{
			ID:      "1",
			Body:    []byte(`{"email":"a@b.com","name":"Bob","message":"Hello there","submittedAt":"2026-03-01T10:00:00Z"}`),
			Headers: map[string]string{"cID": "cid-from-http"},
		})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "cid-from-http", uc.cid)
		require.Len(t, uc.jobs, 1)
		assert.Equal(t, "Bob", uc.jobs[0].Name)
		assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), uc.jobs[0].SubmittedAt)
	})

	t.Run("generates a correlation id when absent", func(t *testing.T) {
		uc := &cidRecorder{}
		h := &MQHandler{uc: uc, uuid: fixedID("generated"), ins: instrument.NewNoop()}

		require.NoError(t, h.DispatchJob(context.Background(), messaging.Message{Body: []byte(`{"email":"a@b.com"}`)}))

		assert.Equal(t, "generated", uc.cid)
	})

	t.Run("malformed body is dropped", func(t *testing.T) {
		uc := &fakeUC{}
		h := &MQHandler{uc: uc, uuid: fixedID("generated"), ins: instrument.NewNoop()}

		err := h.DispatchJob(context.Background(), messaging.Message{Body: []byte(`not json`)})

		assert.NoError(t, err)
		assert.Empty(t, uc.jobs)
	})

	t.Run("usecase error is returned", func(t *testing.T) {
		boom := errors.New("send failed")
		h := &MQHandler{uc: &fakeUC{jobErr: boom}, uuid: fixedID("generated"), ins: instrument.NewNoop()}

		err := h.DispatchJob(context.Background(), messaging.Message{Body: []byte(`{"email":"a@b.com"}`)})

		assert.ErrorIs(t, err, boom)
	})
}

type chanUC chan entity.DispatchJob

func (c chanUC) ConsumeDispatchJob(_ context.Context, job entity.DispatchJob) error {
	c <- job
	return nil
}

func TestRegisterMQConsumer(t *testing.T) {
	// Arrange
	cfg, err := config.NewViperFromBytes("yaml", []byte("dispatch:\n  topic: mail.dispatch\n  group: relay\n  workers: 2\n"))
	require.NoError(t, err)

	bus := messaging.NewMemory(4)
	gm := goroutine.NewManager(4)
	ctx, cancel := context.WithCancel(context.Background())
	jobs := make(chanUC, 16)

	// Act
	scheduled := RegisterMQConsumer(ctx, cfg, gm, bus, fixedID("cid"), jobs, instrument.NewNoop())

	// Assert
	require.True(t, scheduled)
	require.Eventually(t, func() bool {
		_ = bus.Publish(ctx, "mail.dispatch", messaging.OutgoingMessage{
			Body: []byte(`{"email":"a@b.com","name":"Bob","message":"Hello there"}`),
		})
		return len(jobs) > 0
	}, 2*time.Second, 20*time.Millisecond)

	job := <-jobs
	assert.Equal(t, "a@b.com", job.Email)

	cancel()
	assert.NoError(t, gm.Wait())
	require.NoError(t, bus.Close())
}
