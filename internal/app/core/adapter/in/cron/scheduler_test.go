package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JoeShih716/go-bank-clients/internal/app/core/usecase"
)

type fakeRunner struct {
	calls  atomic.Int32
	report usecase.RunReport
	err    error
	block  chan struct{}
	ran    chan struct{}
}

func (f *fakeRunner) Run(ctx context.Context) (usecase.RunReport, error) {
	f.calls.Add(1)
	if f.ran != nil {
		select {
		case f.ran <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return f.report, ctx.Err()
		}
	}
	return f.report, f.err
}

func TestNewScheduler_RejectsSubSecondInterval(t *testing.T) {
	_, err := NewScheduler(&fakeRunner{}, 500*time.Millisecond, zap.NewNop())
	assert.Error(t, err)
}

func TestNewScheduler_RejectsFractionalSeconds(t *testing.T) {
	_, err := NewScheduler(&fakeRunner{}, 1500*time.Millisecond, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "whole number of seconds")

	_, err = NewScheduler(&fakeRunner{}, 2*time.Second, zap.NewNop())
	assert.NoError(t, err)
}

func TestRunOnce_LogsReport(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	runner := &fakeRunner{report: usecase.RunReport{Processed: 3, Accrued: 2, Capped: 1}}
	s, err := NewScheduler(runner, time.Minute, zap.New(core))
	require.NoError(t, err)

	s.RunOnce(context.Background())

	entries := logs.FilterMessage("accrual run finished").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, 3, fields["processed"])
	assert.EqualValues(t, 2, fields["accrued"])
	assert.EqualValues(t, 1, fields["capped"])
}

func TestRunOnce_LogsFailure(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	runner := &fakeRunner{
		report: usecase.RunReport{Processed: 2, Accrued: 1, Failed: 1},
		err:    errors.New("account 7: persistence failure"),
	}
	s, err := NewScheduler(runner, time.Minute, zap.New(core))
	require.NoError(t, err)

	s.RunOnce(context.Background())

	entries := logs.FilterMessage("accrual run finished with errors").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 1, entries[0].ContextMap()["failed"])
}

func TestRunOnce_Timeout(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	s, err := NewScheduler(runner, time.Minute, zap.NewNop(), WithRunTimeout(20*time.Millisecond))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.RunOnce(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not observe timeout")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	runner := &fakeRunner{ran: make(chan struct{}, 1)}
	s, err := NewScheduler(runner, time.Second, zap.NewNop())
	require.NoError(t, err)

	s.Start()
	select {
	case <-runner.ran:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled run did not fire")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.GreaterOrEqual(t, runner.calls.Load(), int32(1))
}

func TestScheduler_StopCancelsRunningJob(t *testing.T) {
	runner := &fakeRunner{ran: make(chan struct{}, 1), block: make(chan struct{})}
	s, err := NewScheduler(runner, time.Second, zap.NewNop())
	require.NoError(t, err)

	s.Start()
	select {
	case <-runner.ran:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled run did not fire")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	// 阻塞中的那一輪會被取消，SkipIfStillRunning 保證沒有重疊執行
	assert.Equal(t, int32(1), runner.calls.Load())
}
