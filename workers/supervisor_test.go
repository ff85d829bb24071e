package workers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"sealtalk/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type countingWorker struct {
	runs   atomic.Int32
	result func(run int32) error
}

func (w *countingWorker) Run(ctx context.Context) error {
	return w.result(w.runs.Add(1))
}

func TestSupervisor_RestartsCrashedWorker(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	sup := NewSupervisor(log, time.Millisecond)

	// Given a worker that crashes twice before terminating properly
	worker := &countingWorker{result: func(run int32) error {
		if run < 3 {
			return errors.New("boom")
		}
		return nil
	}}
	sup.Add(worker)

	done := make(chan struct{})
	go func() {
		sup.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("supervisor did not drain after the worker finished")
	}
	req.Equal(int32(3), worker.runs.Load())
}

func TestSupervisor_RecoversFromPanic(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	sup := NewSupervisor(log, time.Millisecond)

	worker := &countingWorker{result: func(run int32) error {
		if run == 1 {
			panic("unexpected state")
		}
		return nil
	}}
	sup.Add(worker)

	done := make(chan struct{})
	go func() {
		sup.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("supervisor did not survive the panic")
	}
	req.Equal(int32(2), worker.runs.Load())
}

func TestSupervisor_FinishedWorker_IsNotRestarted(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	sup := NewSupervisor(log, time.Millisecond)

	worker := &countingWorker{result: func(int32) error { return nil }}
	sup.Add(worker)
	sup.Run(context.Background())

	req.Equal(int32(1), worker.runs.Load())
}

func TestSupervisor_Stop_DrainsBlockedWorkers(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	blocked := mocks.NewMockWorker(ctrl)
	blocked.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	sup := NewSupervisor(log, time.Millisecond)
	sup.Add(blocked)

	done := make(chan struct{})
	go func() {
		sup.Run(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return sup.Cancel != nil }, time.Second, 5*time.Millisecond)
	sup.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("supervisor did not drain on Stop")
	}
}
