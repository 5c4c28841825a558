// gpu_command_queue_test.go - Tests for the GPU command queue

package main

import (
	"sync"
	"testing"
	"time"
)

func TestGPUCommandQueue_FIFOAcrossGrowth(t *testing.T) {
	q := NewGPUCommandQueue()
	n := GPU_COMMAND_QUEUE_INITIAL_CAPACITY*3 + 7

	// Interleave pops so head wraps before the ring grows
	for i := 1; i <= 10; i++ {
		q.Push(GPUCommandRecord{Command: SwapBuffersCommand{}, Fence: uint64(i)})
	}
	for i := 1; i <= 5; i++ {
		rec, ok := q.Pop()
		if !ok || rec.Fence != uint64(i) {
			t.Fatalf("pop %d: got fence %d ok=%v", i, rec.Fence, ok)
		}
	}
	for i := 11; i <= n; i++ {
		q.Push(GPUCommandRecord{Command: SwapBuffersCommand{}, Fence: uint64(i)})
	}
	if q.Len() != n-5 {
		t.Fatalf("Len=%d, want %d", q.Len(), n-5)
	}
	for want := uint64(6); want <= uint64(n); want++ {
		rec, ok := q.Pop()
		if !ok {
			t.Fatalf("queue empty at fence %d", want)
		}
		if rec.Fence != want {
			t.Fatalf("out of order: got %d, want %d", rec.Fence, want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("expected empty queue")
	}
}

func TestGPUCommandQueue_WaitWakesOnPush(t *testing.T) {
	q := NewGPUCommandQueue()
	got := make(chan bool, 1)
	go func() {
		got <- q.WaitUntilNonEmpty()
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push(GPUCommandRecord{Command: SwapBuffersCommand{}, Fence: 1})

	select {
	case ok := <-got:
		if !ok {
			t.Fatal("WaitUntilNonEmpty returned false with a queued record")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consumer not woken by push")
	}
}

func TestGPUCommandQueue_CloseReleasesConsumer(t *testing.T) {
	q := NewGPUCommandQueue()
	var wg sync.WaitGroup
	wg.Add(1)
	var result bool
	go func() {
		defer wg.Done()
		result = q.WaitUntilNonEmpty()
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()
	q.Close()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not release the consumer")
	}
	if result {
		t.Fatal("expected false from a closed empty queue")
	}
}

func TestGPUCommandQueue_ClosedQueueStillDrains(t *testing.T) {
	q := NewGPUCommandQueue()
	q.Push(GPUCommandRecord{Command: SwapBuffersCommand{}, Fence: 1})
	q.Close()
	q.Push(GPUCommandRecord{Command: SwapBuffersCommand{}, Fence: 2})

	for want := uint64(1); want <= 2; want++ {
		if !q.WaitUntilNonEmpty() {
			t.Fatalf("queue reported drained before fence %d", want)
		}
		rec, _ := q.Pop()
		if rec.Fence != want {
			t.Fatalf("got fence %d, want %d", rec.Fence, want)
		}
	}
	if q.WaitUntilNonEmpty() {
		t.Fatal("expected false once closed and drained")
	}
}

func TestGPUCommandQueue_ConcurrentProducerConsumer(t *testing.T) {
	q := NewGPUCommandQueue()
	const n = 20000

	go func() {
		for i := 1; i <= n; i++ {
			q.Push(GPUCommandRecord{Command: FlushRegionCommand{Addr: VAddr(i)}, Fence: uint64(i)})
		}
		q.Close()
	}()

	next := uint64(1)
	for q.WaitUntilNonEmpty() {
		for {
			rec, ok := q.Pop()
			if !ok {
				break
			}
			if rec.Fence != next {
				t.Fatalf("got fence %d, want %d", rec.Fence, next)
			}
			if cmd := rec.Command.(FlushRegionCommand); cmd.Addr != VAddr(next) {
				t.Fatalf("payload mismatch at %d: %v", next, cmd.Addr)
			}
			next++
		}
	}
	if next != n+1 {
		t.Fatalf("consumed %d records, want %d", next-1, n)
	}
}

func BenchmarkGPUCommandQueue_PushPop(b *testing.B) {
	q := NewGPUCommandQueue()
	rec := GPUCommandRecord{Command: SwapBuffersCommand{}, Fence: 1}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		q.Push(rec)
		q.Pop()
	}
}
