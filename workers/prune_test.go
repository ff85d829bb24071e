package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"sealtalk/domain"
	"sealtalk/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestPruneWorker_PrunesAtTheRetentionCutoff(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	archive := mocks.NewMockIArchive(ctrl)
	pruned := make(chan time.Time, 1)
	archive.EXPECT().PruneBefore(gomock.Any()).DoAndReturn(func(cutoff time.Time) (int, error) {
		select {
		case pruned <- cutoff:
		default:
		}
		return 2, nil
	}).MinTimes(1)

	worker := NewPruneWorker(logs.GetLoggerFromLevel(slog.LevelDebug),
		archive, 5*time.Millisecond, domain.RetentionWindow)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	var cutoff time.Time
	select {
	case cutoff = <-pruned:
	case <-time.After(time.Second):
		req.Fail("prune never fired")
	}
	cancel()
	<-done

	req.WithinDuration(time.Now().Add(-domain.RetentionWindow), cutoff, time.Minute)
}

func TestPruneWorker_SurvivesPruneFailure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	archive := mocks.NewMockIArchive(ctrl)
	calls := make(chan struct{}, 4)
	archive.EXPECT().PruneBefore(gomock.Any()).DoAndReturn(func(time.Time) (int, error) {
		select {
		case calls <- struct{}{}:
		default:
		}
		return 0, context.DeadlineExceeded
	}).MinTimes(2)

	worker := NewPruneWorker(logs.GetLoggerFromLevel(slog.LevelDebug),
		archive, 5*time.Millisecond, domain.RetentionWindow)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	// The loop keeps ticking after a failed prune
	<-calls
	select {
	case <-calls:
	case <-time.After(time.Second):
		req.Fail("worker stopped after the first failure")
	}
	cancel()
	<-done
}
