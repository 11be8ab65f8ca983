package memory

import (
	"context"
	"errors"
	"sync"
)

// ErrStoreClosed Store 已關閉
var ErrStoreClosed = errors.New("memory store closed")

// Mode 寫入序列化的方式
type Mode string

const (
	// ModeMutex 呼叫端 goroutine 持有全域鎖執行 unit of work
	ModeMutex Mode = "mutex"
	// ModeEventLoop 所有 unit of work 交給單一 goroutine 依序執行 (LMAX 風格)
	ModeEventLoop Mode = "event_loop"
)

// sequencer 保證同一時間只有一個 unit of work 在修改狀態
type sequencer interface {
	Do(ctx context.Context, fn func()) error
	Close()
}

func newSequencer(mode Mode) (sequencer, error) {
	switch mode {
	case ModeMutex, "":
		return &mutexSequencer{}, nil
	case ModeEventLoop:
		return newLoopSequencer(), nil
	default:
		return nil, errors.New("unknown memory store mode: " + string(mode))
	}
}

type mutexSequencer struct {
	mu     sync.Mutex
	closed bool
}

func (s *mutexSequencer) Do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	fn()
	return nil
}

func (s *mutexSequencer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// request 包裝一個 unit of work，讓 Do 可以等待執行完成
type request struct {
	fn   func()
	done chan struct{}
}

// loopSequencer 輸送帶只有一條，由 run 依序消化
type loopSequencer struct {
	requests    chan *request
	quit        chan struct{}
	stopped     chan struct{}
	once        sync.Once
	requestPool sync.Pool
}

func newLoopSequencer() *loopSequencer {
	s := &loopSequencer{
		// unbuffered: 送出成功即由 run 接手
		requests: make(chan *request),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
		requestPool: sync.Pool{
			New: func() any {
				return &request{done: make(chan struct{}, 1)}
			},
		},
	}
	go s.run()
	return s
}

func (s *loopSequencer) Do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := s.requestPool.Get().(*request)
	req.fn = fn
	defer func() {
		req.fn = nil
		s.requestPool.Put(req)
	}()

	select {
	case s.requests <- req:
	case <-s.quit:
		return ErrStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	// 已被接手，等待執行完成
	<-req.done
	return nil
}

func (s *loopSequencer) run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.quit:
			return
		case req := <-s.requests:
			req.fn()
			req.done <- struct{}{}
		}
	}
}

func (s *loopSequencer) Close() {
	s.once.Do(func() {
		close(s.quit)
	})
	<-s.stopped
}
