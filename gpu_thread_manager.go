// gpu_thread_manager.go - Producer-facing facade over the GPU thread

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

/*
gpu_thread_manager.go - GPU Thread Manager

The emulation thread talks to the renderer only through this type. Each
operation builds one command, submits it and, when the blocking policy says so,
waits for its fence before returning.

Blocking policy:

	SubmitList                non-blocking, later commands are ordered behind it
	SwapBuffers               blocking, frame pacing must not run ahead
	MemoryFill                non-blocking
	DisplayTransfer           blocking, the caller usually reads the output next
	FlushRegion               blocking, the caller reads guest memory next
	InvalidateRegion          non-blocking
	FlushAndInvalidateRegion  blocking

Calls made from the GPU thread itself (a renderer callback re-entering the
manager) execute in place instead of being queued.
*/

package main

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// GPUThreadManager owns one GPU worker and its synchronization state.
type GPUThreadManager struct {
	renderer GPURenderer
	sync     *GPUSyncState
	worker   *GPUWorker

	closeOnce sync.Once
	closed    atomic.Bool

	inline  atomic.Uint64
	blocked atomic.Uint64
	dropped atomic.Uint64
}

// NewGPUThreadManager starts a GPU thread driving renderer. context is made
// current on that thread when the first command arrives and may be nil.
func NewGPUThreadManager(renderer GPURenderer, context RenderContext) *GPUThreadManager {
	if renderer == nil {
		panic("gpu: thread manager needs a renderer")
	}
	state := NewGPUSyncState()
	m := &GPUThreadManager{
		renderer: renderer,
		sync:     state,
		worker:   NewGPUWorker(renderer, context, state),
	}
	m.worker.Start()
	Logger().Debug("gpu thread manager started", "renderer", fmt.Sprintf("%T", renderer))
	return m
}

// commandBlocks reports whether the producer waits for a command of kind k.
func commandBlocks(k GPUCommandKind) bool {
	switch k {
	case GPU_CMD_SUBMIT_LIST, GPU_CMD_MEMORY_FILL, GPU_CMD_INVALIDATE_REGION:
		return false
	case GPU_CMD_SWAP_BUFFERS, GPU_CMD_DISPLAY_TRANSFER,
		GPU_CMD_FLUSH_REGION, GPU_CMD_FLUSH_AND_INVALIDATE_REGION:
		return true
	}
	panic(fmt.Sprintf("gpu: no blocking policy for %v", k))
}

// push routes cmd to the worker, or runs it in place when called from the
// worker itself.
func (m *GPUThreadManager) push(cmd GPUCommand) {
	if m.worker.IsWorkerGoroutine() {
		m.inline.Add(1)
		executeGPUCommand(cmd, m.renderer)
		return
	}
	if m.closed.Load() {
		m.dropped.Add(1)
		Logger().Warn("gpu command after shutdown dropped", "kind", cmd.Kind())
		return
	}
	fence := m.sync.Submit(cmd)
	if commandBlocks(cmd.Kind()) {
		m.blocked.Add(1)
		m.sync.WaitForFence(fence)
	}
}

// SubmitList queues a guest command list. Empty lists are dropped. The
// caller must not modify list until a later blocking call has returned.
func (m *GPUThreadManager) SubmitList(list []uint32) {
	if len(list) == 0 {
		return
	}
	m.push(SubmitListCommand{List: list})
}

// SwapBuffers ends the current frame.
func (m *GPUThreadManager) SwapBuffers() {
	m.push(SwapBuffersCommand{})
}

func (m *GPUThreadManager) MemoryFill(cfg MemoryFillConfig, isSecondFiller bool) {
	m.push(MemoryFillCommand{Config: cfg, IsSecondFiller: isSecondFiller})
}

func (m *GPUThreadManager) DisplayTransfer(cfg DisplayTransferConfig) {
	m.push(DisplayTransferCommand{Config: cfg})
}

// FlushRegion writes cached GPU data for [addr, addr+size) back to guest
// memory and returns once that has happened.
func (m *GPUThreadManager) FlushRegion(addr VAddr, size uint64) {
	m.push(FlushRegionCommand{Addr: addr, Size: size})
}

// InvalidateRegion tells the renderer that guest memory in the range changed.
func (m *GPUThreadManager) InvalidateRegion(addr VAddr, size uint64) {
	m.push(InvalidateRegionCommand{Addr: addr, Size: size})
}

func (m *GPUThreadManager) FlushAndInvalidateRegion(addr VAddr, size uint64) {
	m.push(FlushAndInvalidateRegionCommand{Addr: addr, Size: size})
}

// Synchronize waits until every command submitted so far has executed.
func (m *GPUThreadManager) Synchronize() {
	if m.worker.IsWorkerGoroutine() || m.closed.Load() {
		return
	}
	if last := m.sync.LastFence(); last > 0 {
		m.sync.WaitForFence(last)
	}
}

// Close shuts the GPU thread down and waits for it to exit. Commands
// already queued still execute. Producers blocked on a fence are released.
// Safe to call more than once.
func (m *GPUThreadManager) Close() error {
	if m.worker.IsWorkerGoroutine() {
		return &VideoError{Operation: "gpu thread close", Details: "called from the GPU thread"}
	}
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		m.sync.Shutdown()
		<-m.worker.Done()
		Logger().Debug("gpu thread manager closed",
			"signaled", m.sync.SignaledFence(),
			"executed", m.worker.Executed())
	})
	return nil
}

// GPUThreadStats is a snapshot of the manager's counters.
type GPUThreadStats struct {
	LastFence     uint64
	SignaledFence uint64
	Queued        int
	Executed      uint64
	Inline        uint64
	Blocked       uint64
	Dropped       uint64
	WorkerState   GPUWorkerState
}

func (m *GPUThreadManager) Stats() GPUThreadStats {
	return GPUThreadStats{
		LastFence:     m.sync.LastFence(),
		SignaledFence: m.sync.SignaledFence(),
		Queued:        m.sync.QueueLen(),
		Executed:      m.worker.Executed(),
		Inline:        m.inline.Load(),
		Blocked:       m.blocked.Load(),
		Dropped:       m.dropped.Load(),
		WorkerState:   m.worker.State(),
	}
}

// Renderer returns the renderer driven by this manager.
func (m *GPUThreadManager) Renderer() GPURenderer {
	return m.renderer
}
