// gpu_worker.go - Dedicated GPU thread draining the command queue

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
gpu_worker.go - GPU Worker

One goroutine per ThreadManager, pinned to its OS thread for its whole life
because the host rendering context is bound to that thread.

State machine:

	NotStarted -> AwaitingFirstCommand -> Draining <-> Idle -> ShuttingDown -> Terminated

The render context is acquired lazily when the first command arrives, not at
start. If shutdown is requested before any command was queued the worker exits
without touching the context.

Main loop: wait for the queue, pop one record, execute it, signal its fence,
try to wake waiters, repeat. The loop ends when shutdown has been requested and
the queue is empty; commands queued before shutdown always execute.
*/

package main

import (
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

type GPUWorkerState int32

const (
	GPU_WORKER_NOT_STARTED GPUWorkerState = iota
	GPU_WORKER_AWAITING_FIRST_COMMAND
	GPU_WORKER_DRAINING
	GPU_WORKER_IDLE
	GPU_WORKER_SHUTTING_DOWN
	GPU_WORKER_TERMINATED
)

func (s GPUWorkerState) String() string {
	switch s {
	case GPU_WORKER_NOT_STARTED:
		return "NotStarted"
	case GPU_WORKER_AWAITING_FIRST_COMMAND:
		return "AwaitingFirstCommand"
	case GPU_WORKER_DRAINING:
		return "Draining"
	case GPU_WORKER_IDLE:
		return "Idle"
	case GPU_WORKER_SHUTTING_DOWN:
		return "ShuttingDown"
	case GPU_WORKER_TERMINATED:
		return "Terminated"
	}
	return fmt.Sprintf("GPUWorkerState(%d)", int32(s))
}

// Renderers currently driven by a GPU thread.
var gpuWorkerOwners sync.Map

// GPUWorker executes queued commands against a renderer.
type GPUWorker struct {
	renderer GPURenderer
	context  RenderContext
	sync     *GPUSyncState

	phase       atomic.Int32
	goroutineID atomic.Int64
	executed    atomic.Uint64
	ownerKey    any

	startOnce sync.Once
	done      chan struct{}
}

// NewGPUWorker creates a worker. A nil context means the renderer needs none.
func NewGPUWorker(renderer GPURenderer, context RenderContext, state *GPUSyncState) *GPUWorker {
	if context == nil {
		context = nullRenderContext{}
	}
	return &GPUWorker{
		renderer: renderer,
		context:  context,
		sync:     state,
		done:     make(chan struct{}),
	}
}

// Start launches the worker goroutine. Only the first call has an effect.
func (w *GPUWorker) Start() {
	w.startOnce.Do(func() {
		w.claimRenderer()
		go w.run()
	})
}

// Done is closed once the worker has terminated.
func (w *GPUWorker) Done() <-chan struct{} {
	return w.done
}

func (w *GPUWorker) State() GPUWorkerState {
	return GPUWorkerState(w.phase.Load())
}

// Executed reports how many commands the worker has run.
func (w *GPUWorker) Executed() uint64 {
	return w.executed.Load()
}

// IsWorkerGoroutine reports whether the caller is running on the worker itself.
func (w *GPUWorker) IsWorkerGoroutine() bool {
	id := w.goroutineID.Load()
	return id != 0 && id == goid.Get()
}

func (w *GPUWorker) setState(s GPUWorkerState) {
	w.phase.Store(int32(s))
}

func (w *GPUWorker) run() {
	defer close(w.done)
	defer w.releaseRenderer()
	defer w.setState(GPU_WORKER_TERMINATED)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	w.goroutineID.Store(goid.Get())
	setCurrentThreadName(GPU_THREAD_NAME)

	w.setState(GPU_WORKER_AWAITING_FIRST_COMMAND)
	if !w.sync.WaitForCommands() {
		Logger().Debug("gpu thread stopped before first command")
		return
	}

	w.context.MakeCurrent()
	defer w.context.DoneCurrent()
	Logger().Info("gpu thread acquired render context")

	for {
		w.setState(GPU_WORKER_DRAINING)
		w.drain()
		if !w.sync.IsRunning() {
			w.setState(GPU_WORKER_SHUTTING_DOWN)
		} else {
			w.setState(GPU_WORKER_IDLE)
		}
		if !w.sync.WaitForCommands() {
			break
		}
	}
	w.setState(GPU_WORKER_SHUTTING_DOWN)
	Logger().Info("gpu thread stopped", "executed", w.executed.Load())
}

func (w *GPUWorker) drain() {
	for {
		rec, ok := w.sync.queue.Pop()
		if !ok {
			return
		}
		executeGPUCommand(rec.Command, w.renderer)
		w.executed.Add(1)
		w.sync.SignalFence(rec.Fence)
		w.sync.TrySynchronize()
	}
}

// claimRenderer enforces one GPU thread per renderer instance.
func (w *GPUWorker) claimRenderer() {
	if w.renderer == nil || !reflect.TypeOf(w.renderer).Comparable() {
		return
	}
	if _, taken := gpuWorkerOwners.LoadOrStore(w.renderer, w); taken {
		panic(fmt.Sprintf("gpu: renderer %T already driven by a GPU thread", w.renderer))
	}
	w.ownerKey = w.renderer
}

func (w *GPUWorker) releaseRenderer() {
	if w.ownerKey != nil {
		gpuWorkerOwners.Delete(w.ownerKey)
	}
}
