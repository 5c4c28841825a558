// gpu_sync_state_test.go - Tests for fence bookkeeping

package main

import (
	"testing"
	"time"
)

func TestGPUSyncState_SubmitAssignsIncreasingFences(t *testing.T) {
	s := NewGPUSyncState()
	var prev uint64
	for i := 0; i < 100; i++ {
		f := s.Submit(SwapBuffersCommand{})
		if f != prev+1 {
			t.Fatalf("fence %d after %d", f, prev)
		}
		prev = f
	}
	if s.LastFence() != 100 || s.QueueLen() != 100 {
		t.Fatalf("LastFence=%d QueueLen=%d", s.LastFence(), s.QueueLen())
	}
	for i := 1; i <= 100; i++ {
		rec, ok := s.queue.Pop()
		if !ok || rec.Fence != uint64(i) {
			t.Fatalf("queue order broken at %d: %d", i, rec.Fence)
		}
	}
}

func TestGPUSyncState_WaitForSignaledFenceReturnsImmediately(t *testing.T) {
	s := NewGPUSyncState()
	f := s.Submit(SwapBuffersCommand{})
	s.SignalFence(f)

	done := make(chan struct{})
	go func() {
		s.WaitForFence(f)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait on signaled fence blocked")
	}
}

func TestGPUSyncState_WaitReleasedBySynchronize(t *testing.T) {
	s := NewGPUSyncState()
	f := s.Submit(SwapBuffersCommand{})

	done := make(chan struct{})
	go func() {
		s.WaitForFence(f)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("waiter returned before the fence was signaled")
	default:
	}

	s.SignalFence(f)
	s.TrySynchronize()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not woken")
	}
}

func TestGPUSyncState_IsSynchronizedGap(t *testing.T) {
	s := NewGPUSyncState()
	for i := 0; i < GPU_SYNC_MAX_QUEUE_GAP; i++ {
		s.Submit(SwapBuffersCommand{})
	}
	if !s.IsSynchronized() {
		t.Fatalf("gap of %d should count as synchronized", GPU_SYNC_MAX_QUEUE_GAP)
	}
	s.Submit(SwapBuffersCommand{})
	if s.IsSynchronized() {
		t.Fatal("gap above threshold reported synchronized")
	}
	s.SignalFence(1)
	if !s.IsSynchronized() {
		t.Fatal("gap back at threshold should be synchronized")
	}
}

func TestGPUSyncState_ShutdownReleasesWaiters(t *testing.T) {
	s := NewGPUSyncState()
	f := s.Submit(SwapBuffersCommand{})

	const waiters = 4
	done := make(chan struct{}, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			s.WaitForFence(f)
			done <- struct{}{}
		}()
	}
	time.Sleep(10 * time.Millisecond)
	s.Shutdown()

	for i := 0; i < waiters; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("waiter %d still blocked after shutdown", i)
		}
	}
	if s.IsRunning() {
		t.Fatal("state still running after shutdown")
	}
	if s.WaitForCommands() != true {
		t.Fatal("queued command must still be delivered after shutdown")
	}
}

func TestGPUSyncState_FenceRegressionPanics(t *testing.T) {
	s := NewGPUSyncState()
	s.Submit(SwapBuffersCommand{})
	s.Submit(SwapBuffersCommand{})
	s.SignalFence(2)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on fence regression")
		}
	}()
	s.SignalFence(1)
}

func TestGPUSyncState_WaitOnUnassignedFencePanics(t *testing.T) {
	s := NewGPUSyncState()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic waiting on a fence never handed out")
		}
	}()
	s.WaitForFence(3)
}
