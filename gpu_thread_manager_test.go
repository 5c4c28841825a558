// gpu_thread_manager_test.go - Ordering, blocking and shutdown tests for the GPU thread

package main

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type recordedCall struct {
	kind GPUCommandKind
	id   uint64
}

// recordingRenderer logs every call. gate, when set, is waited on before a
// call completes; delay slows every call down.
type recordingRenderer struct {
	mu       sync.Mutex
	calls    []recordedCall
	executed atomic.Uint64
	delay    time.Duration
	gate     chan struct{}
	started  chan GPUCommandKind
	onSwap   func()
}

func (r *recordingRenderer) record(kind GPUCommandKind, id uint64) {
	if r.started != nil {
		select {
		case r.started <- kind:
		default:
		}
	}
	if r.gate != nil {
		<-r.gate
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	r.calls = append(r.calls, recordedCall{kind: kind, id: id})
	r.mu.Unlock()
	r.executed.Add(1)
}

func (r *recordingRenderer) ProcessCommandList(list []uint32) {
	r.record(GPU_CMD_SUBMIT_LIST, uint64(list[0]))
}

func (r *recordingRenderer) SwapBuffers() {
	if r.onSwap != nil {
		r.onSwap()
	}
	r.record(GPU_CMD_SWAP_BUFFERS, 0)
}

func (r *recordingRenderer) MemoryFill(cfg MemoryFillConfig, _ bool) {
	r.record(GPU_CMD_MEMORY_FILL, uint64(cfg.Start))
}

func (r *recordingRenderer) DisplayTransfer(cfg DisplayTransferConfig) {
	r.record(GPU_CMD_DISPLAY_TRANSFER, uint64(cfg.InputAddress))
}

func (r *recordingRenderer) FlushRegion(addr VAddr, _ uint64) {
	r.record(GPU_CMD_FLUSH_REGION, uint64(addr))
}

func (r *recordingRenderer) InvalidateRegion(addr VAddr, _ uint64) {
	r.record(GPU_CMD_INVALIDATE_REGION, uint64(addr))
}

func (r *recordingRenderer) FlushAndInvalidateRegion(addr VAddr, _ uint64) {
	r.record(GPU_CMD_FLUSH_AND_INVALIDATE_REGION, uint64(addr))
}

func (r *recordingRenderer) snapshot() []recordedCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedCall(nil), r.calls...)
}

type countingContext struct {
	made atomic.Int32
	done atomic.Int32
}

func (c *countingContext) MakeCurrent() { c.made.Add(1) }
func (c *countingContext) DoneCurrent() { c.done.Add(1) }

// issue calls the manager operation for kind with id as its payload tag.
func issue(m *GPUThreadManager, kind GPUCommandKind, id uint64) {
	switch kind {
	case GPU_CMD_SUBMIT_LIST:
		m.SubmitList([]uint32{uint32(id)})
	case GPU_CMD_SWAP_BUFFERS:
		m.SwapBuffers()
	case GPU_CMD_MEMORY_FILL:
		m.MemoryFill(MemoryFillConfig{Start: VAddr(id), End: VAddr(id) + 4}, false)
	case GPU_CMD_DISPLAY_TRANSFER:
		m.DisplayTransfer(DisplayTransferConfig{InputAddress: VAddr(id)})
	case GPU_CMD_FLUSH_REGION:
		m.FlushRegion(VAddr(id), 4)
	case GPU_CMD_INVALIDATE_REGION:
		m.InvalidateRegion(VAddr(id), 4)
	case GPU_CMD_FLUSH_AND_INVALIDATE_REGION:
		m.FlushAndInvalidateRegion(VAddr(id), 4)
	}
}

func closeWithin(t *testing.T, m *GPUThreadManager, limit time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		m.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(limit):
		t.Fatalf("Close did not return within %v", limit)
	}
}

func TestGPUThreadManager_FIFOOrderingRandomKinds(t *testing.T) {
	for _, n := range []int{1, 7, 100, 1000, 10000} {
		r := &recordingRenderer{}
		m := NewGPUThreadManager(r, nil)
		rng := rand.New(rand.NewPCG(uint64(n), 42))

		want := make([]recordedCall, 0, n)
		for i := 1; i <= n; i++ {
			kind := GPUCommandKind(rng.IntN(int(GPU_CMD_KIND_COUNT)))
			id := uint64(i)
			if kind == GPU_CMD_SWAP_BUFFERS {
				id = 0
			}
			issue(m, kind, uint64(i))
			want = append(want, recordedCall{kind: kind, id: id})

			// A blocking call returns only after its own command ran
			if commandBlocks(kind) && r.executed.Load() < uint64(i) {
				t.Fatalf("n=%d: %v returned before execution (%d of %d done)", n, kind, r.executed.Load(), i)
			}
		}
		m.Synchronize()
		closeWithin(t, m, 5*time.Second)

		got := r.snapshot()
		if len(got) != len(want) {
			t.Fatalf("n=%d: executed %d commands, want %d", n, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("n=%d: command %d is %v/%d, want %v/%d", n, i, got[i].kind, got[i].id, want[i].kind, want[i].id)
			}
		}
	}
}

func TestGPUThreadManager_FencesMonotonic(t *testing.T) {
	r := &recordingRenderer{}
	m := NewGPUThreadManager(r, nil)
	defer m.Close()

	stop := make(chan struct{})
	violations := make(chan string, 1)
	go func() {
		var lastSeen, signaledSeen uint64
		for {
			select {
			case <-stop:
				return
			default:
			}
			signaled := m.sync.SignaledFence()
			last := m.sync.LastFence()
			if last < lastSeen || signaled < signaledSeen || signaled > last {
				select {
				case violations <- "fence went backwards or overtook last":
				default:
				}
				return
			}
			lastSeen, signaledSeen = last, signaled
		}
	}()

	for i := 1; i <= 2000; i++ {
		m.InvalidateRegion(VAddr(i), 1)
	}
	m.Synchronize()
	close(stop)

	select {
	case v := <-violations:
		t.Fatal(v)
	default:
	}
	if st := m.Stats(); st.SignaledFence != st.LastFence || st.LastFence != 2000 {
		t.Fatalf("after sync: signaled=%d last=%d", st.SignaledFence, st.LastFence)
	}
}

func TestGPUThreadManager_NonBlockingReturnsBeforeExecution(t *testing.T) {
	r := &recordingRenderer{gate: make(chan struct{})}
	m := NewGPUThreadManager(r, nil)

	returned := make(chan struct{})
	go func() {
		m.InvalidateRegion(0x1000, 16)
		m.MemoryFill(MemoryFillConfig{Start: 0x2000, End: 0x2010}, false)
		m.SubmitList([]uint32{1, 2})
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("non-blocking operations waited on a stalled GPU")
	}
	if r.executed.Load() != 0 {
		t.Fatalf("nothing should have executed yet, got %d", r.executed.Load())
	}

	close(r.gate)
	closeWithin(t, m, 5*time.Second)
	if r.executed.Load() != 3 {
		t.Fatalf("executed %d, want 3", r.executed.Load())
	}
}

func TestGPUThreadManager_BlockingWaitsForExecution(t *testing.T) {
	blocking := []GPUCommandKind{
		GPU_CMD_SWAP_BUFFERS,
		GPU_CMD_DISPLAY_TRANSFER,
		GPU_CMD_FLUSH_REGION,
		GPU_CMD_FLUSH_AND_INVALIDATE_REGION,
	}
	for _, kind := range blocking {
		r := &recordingRenderer{gate: make(chan struct{}), started: make(chan GPUCommandKind, 1)}
		m := NewGPUThreadManager(r, nil)

		returned := make(chan struct{})
		go func() {
			issue(m, kind, 0x40)
			close(returned)
		}()

		<-r.started
		select {
		case <-returned:
			t.Fatalf("%v returned while its command was still executing", kind)
		case <-time.After(20 * time.Millisecond):
		}

		close(r.gate)
		select {
		case <-returned:
		case <-time.After(2 * time.Second):
			t.Fatalf("%v never returned", kind)
		}
		if r.executed.Load() != 1 {
			t.Fatalf("%v: executed %d, want 1", kind, r.executed.Load())
		}
		closeWithin(t, m, 2*time.Second)
	}
}

func TestGPUThreadManager_BlockingPolicyTable(t *testing.T) {
	want := map[GPUCommandKind]bool{
		GPU_CMD_SUBMIT_LIST:                 false,
		GPU_CMD_SWAP_BUFFERS:                true,
		GPU_CMD_MEMORY_FILL:                 false,
		GPU_CMD_DISPLAY_TRANSFER:            true,
		GPU_CMD_FLUSH_REGION:                true,
		GPU_CMD_INVALIDATE_REGION:           false,
		GPU_CMD_FLUSH_AND_INVALIDATE_REGION: true,
	}
	for k := GPUCommandKind(0); k < GPU_CMD_KIND_COUNT; k++ {
		if got := commandBlocks(k); got != want[k] {
			t.Errorf("%v: blocks=%v, want %v", k, got, want[k])
		}
	}

	defer func() {
		if recover() == nil {
			t.Fatal("unknown kind must panic")
		}
	}()
	commandBlocks(GPU_CMD_KIND_COUNT)
}

func TestGPUThreadManager_ReentrantCallRunsInline(t *testing.T) {
	r := &recordingRenderer{}
	m := NewGPUThreadManager(r, nil)
	r.onSwap = func() {
		// Backend callback re-entering the manager from the GPU thread
		m.FlushRegion(0x5000, 64)
		m.InvalidateRegion(0x6000, 64)
	}

	done := make(chan struct{})
	go func() {
		m.SwapBuffers()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("re-entrant call deadlocked the GPU thread")
	}
	closeWithin(t, m, 2*time.Second)

	got := r.snapshot()
	want := []recordedCall{
		{GPU_CMD_FLUSH_REGION, 0x5000},
		{GPU_CMD_INVALIDATE_REGION, 0x6000},
		{GPU_CMD_SWAP_BUFFERS, 0},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d calls, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d = %v, want %v", i, got[i], want[i])
		}
	}
	st := m.Stats()
	if st.Inline != 2 || st.LastFence != 1 {
		t.Fatalf("inline=%d last fence=%d, want 2 and 1", st.Inline, st.LastFence)
	}
}

func TestGPUThreadManager_ShutdownWhileProducerWaits(t *testing.T) {
	r := &recordingRenderer{delay: 50 * time.Millisecond, started: make(chan GPUCommandKind, 1)}
	m := NewGPUThreadManager(r, nil)

	producer := make(chan struct{})
	go func() {
		m.FlushRegion(0x100, 4)
		close(producer)
	}()
	<-r.started

	closeWithin(t, m, 2*time.Second)
	select {
	case <-producer:
	case <-time.After(2 * time.Second):
		t.Fatal("producer left hanging after shutdown")
	}
	if s := m.Stats().WorkerState; s != GPU_WORKER_TERMINATED {
		t.Fatalf("worker state %v after Close", s)
	}
}

func TestGPUThreadManager_ContextAcquiredLazily(t *testing.T) {
	ctx := &countingContext{}
	m := NewGPUThreadManager(&recordingRenderer{}, ctx)
	closeWithin(t, m, 2*time.Second)
	if ctx.made.Load() != 0 {
		t.Fatal("context acquired although no command was ever submitted")
	}

	ctx = &countingContext{}
	m = NewGPUThreadManager(&recordingRenderer{}, ctx)
	if s := m.Stats().WorkerState; s != GPU_WORKER_NOT_STARTED && s != GPU_WORKER_AWAITING_FIRST_COMMAND {
		t.Fatalf("unexpected state before first command: %v", s)
	}
	m.SwapBuffers()
	if ctx.made.Load() != 1 {
		t.Fatalf("MakeCurrent called %d times, want 1", ctx.made.Load())
	}
	m.SwapBuffers()
	closeWithin(t, m, 2*time.Second)
	if ctx.made.Load() != 1 || ctx.done.Load() != 1 {
		t.Fatalf("make=%d done=%d, want 1 and 1", ctx.made.Load(), ctx.done.Load())
	}
}

func TestGPUThreadManager_EmptyListDropped(t *testing.T) {
	r := &recordingRenderer{}
	m := NewGPUThreadManager(r, nil)
	m.SubmitList(nil)
	m.SubmitList([]uint32{})
	closeWithin(t, m, 2*time.Second)
	if st := m.Stats(); st.LastFence != 0 || r.executed.Load() != 0 {
		t.Fatalf("empty lists produced fence %d and %d executions", st.LastFence, r.executed.Load())
	}
}

func TestGPUThreadManager_QueuedCommandsRunBeforeExit(t *testing.T) {
	r := &recordingRenderer{gate: make(chan struct{})}
	m := NewGPUThreadManager(r, nil)
	for i := 1; i <= 50; i++ {
		m.InvalidateRegion(VAddr(i), 1)
	}
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(r.gate)
	}()
	closeWithin(t, m, 5*time.Second)
	if r.executed.Load() != 50 {
		t.Fatalf("executed %d of 50 queued commands", r.executed.Load())
	}
}

func TestGPUThreadManager_AfterCloseIsDropped(t *testing.T) {
	r := &recordingRenderer{}
	m := NewGPUThreadManager(r, nil)
	closeWithin(t, m, 2*time.Second)

	done := make(chan struct{})
	go func() {
		m.FlushRegion(0, 4)
		m.Synchronize()
		m.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("operation after Close blocked")
	}
	if st := m.Stats(); st.Dropped != 1 || r.executed.Load() != 0 {
		t.Fatalf("dropped=%d executed=%d", st.Dropped, r.executed.Load())
	}
}

func TestGPUThreadManager_OneWorkerPerRenderer(t *testing.T) {
	r := &recordingRenderer{}
	m := NewGPUThreadManager(r, nil)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("second GPU thread on the same renderer must panic")
			}
		}()
		NewGPUThreadManager(r, nil)
	}()

	closeWithin(t, m, 2*time.Second)
	m2 := NewGPUThreadManager(r, nil)
	closeWithin(t, m2, 2*time.Second)
}

func TestGPUThreadManager_CloseFromWorkerRefused(t *testing.T) {
	r := &recordingRenderer{}
	m := NewGPUThreadManager(r, nil)
	var inner error
	r.onSwap = func() { inner = m.Close() }
	m.SwapBuffers()
	if inner == nil {
		t.Fatal("Close from the GPU thread must return an error")
	}
	if !m.sync.IsRunning() {
		t.Fatal("refused Close still shut the GPU thread down")
	}
	closeWithin(t, m, 2*time.Second)
}

func TestGPUThreadManager_CallerIsNotWorker(t *testing.T) {
	m := NewGPUThreadManager(&recordingRenderer{}, nil)
	defer m.Close()
	m.SwapBuffers()
	if m.worker.IsWorkerGoroutine() {
		t.Fatal("test goroutine identified as the GPU thread")
	}
}

func BenchmarkGPUThreadManager_NonBlockingSubmit(b *testing.B) {
	m := NewGPUThreadManager(&recordingRenderer{}, nil)
	defer m.Close()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m.InvalidateRegion(VAddr(i), 4)
	}
	m.Synchronize()
}
