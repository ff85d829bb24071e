package feed

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"sealtalk/errors"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSessionWorker_RunsUntilContextEnds(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	h.api.EXPECT().ListMessages(gomock.Any(), gomock.Any()).Return(nil, nil)
	worker := NewSessionWorker(log, h.rec, testIdentity)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	req.Eventually(func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.deliver != nil
	}, time.Second, 5*time.Millisecond)

	// When the context ends, the worker tears the session down and finishes
	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("worker did not stop with its context")
	}
	req.False(h.rec.Loading())
	req.ErrorIs(h.rec.Send(context.Background(), "too late"), errors.ErrNoSession)
}
