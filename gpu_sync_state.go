// gpu_sync_state.go - Fence bookkeeping shared by the GPU thread and its producer

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
gpu_sync_state.go - Synchronization State for the GPU Thread

Two counters describe the command stream:

	lastFence     highest fence handed out by Submit (producer side)
	signaledFence highest fence whose command has finished executing (worker side)

signaledFence <= lastFence always holds, and neither ever goes backwards.
A caller waiting on fence F is released once signaledFence >= F, or when the
state shuts down.

The worker does not wake waiters after every command. It wakes them when the
producer is at most GPU_SYNC_MAX_QUEUE_GAP commands ahead, which always
happens once the queue drains.
*/

package main

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// GPUSyncState owns the command queue and the fence counters of one
// ThreadManager.
type GPUSyncState struct {
	queue *GPUCommandQueue

	submitMu  sync.Mutex // keeps fence order equal to queue order
	lastFence atomic.Uint64

	signaledFence atomic.Uint64
	running       atomic.Bool

	syncMu   sync.Mutex
	syncCond *sync.Cond
}

// NewGPUSyncState creates a running state with an empty queue.
func NewGPUSyncState() *GPUSyncState {
	s := &GPUSyncState{queue: NewGPUCommandQueue()}
	s.syncCond = sync.NewCond(&s.syncMu)
	s.running.Store(true)
	return s
}

// Submit assigns the next fence to cmd, enqueues it and wakes the worker.
func (s *GPUSyncState) Submit(cmd GPUCommand) uint64 {
	s.submitMu.Lock()
	fence := s.lastFence.Load() + 1
	s.lastFence.Store(fence)
	s.queue.Push(GPUCommandRecord{Command: cmd, Fence: fence})
	s.submitMu.Unlock()
	return fence
}

// WaitForFence blocks until fence has been executed or the state has shut
// down. It returns immediately when the fence is already signaled.
func (s *GPUSyncState) WaitForFence(fence uint64) {
	if s.signaledFence.Load() >= fence {
		return
	}
	if last := s.lastFence.Load(); fence > last {
		panic(fmt.Sprintf("gpu: wait on unassigned fence %d (last %d)", fence, last))
	}

	s.syncMu.Lock()
	for s.signaledFence.Load() < fence && s.running.Load() {
		s.syncCond.Wait()
	}
	s.syncMu.Unlock()
}

// SignalFence records that the command carrying fence has executed.
// Called only by the worker, in queue order.
func (s *GPUSyncState) SignalFence(fence uint64) {
	if prev := s.signaledFence.Load(); fence < prev {
		panic(fmt.Sprintf("gpu: fence went backwards (%d after %d)", fence, prev))
	}
	if last := s.lastFence.Load(); fence > last {
		panic(fmt.Sprintf("gpu: fence %d signaled beyond last fence %d", fence, last))
	}
	s.signaledFence.Store(fence)
}

// IsSynchronized reports whether the worker is close enough to the producer
// to be considered caught up.
func (s *GPUSyncState) IsSynchronized() bool {
	return s.lastFence.Load()-s.signaledFence.Load() <= GPU_SYNC_MAX_QUEUE_GAP
}

// TrySynchronize wakes fence waiters when IsSynchronized holds.
func (s *GPUSyncState) TrySynchronize() {
	if !s.IsSynchronized() {
		return
	}
	s.syncMu.Lock()
	s.syncCond.Broadcast()
	s.syncMu.Unlock()
}

// WaitForCommands blocks the worker until work is queued. It returns false
// once the state has shut down and the queue is drained.
func (s *GPUSyncState) WaitForCommands() bool {
	return s.queue.WaitUntilNonEmpty()
}

// Shutdown is a one-way transition out of the running state. It releases the
// worker and every fence waiter. Idempotent.
func (s *GPUSyncState) Shutdown() {
	s.running.Store(false)
	s.queue.Close()
	s.syncMu.Lock()
	s.syncCond.Broadcast()
	s.syncMu.Unlock()
}

func (s *GPUSyncState) IsRunning() bool       { return s.running.Load() }
func (s *GPUSyncState) LastFence() uint64     { return s.lastFence.Load() }
func (s *GPUSyncState) SignaledFence() uint64 { return s.signaledFence.Load() }
func (s *GPUSyncState) QueueLen() int         { return s.queue.Len() }
