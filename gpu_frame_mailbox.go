// gpu_frame_mailbox.go - Latest-wins frame exchange between renderer and presenter

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
gpu_frame_mailbox.go - Frame Mailbox

A fixed ring of Frames shared by the renderer (producer of finished frames)
and the presenter (consumer). Every Frame is in exactly one place at a time:

	free     -> GetRenderFrame     -> rendering
	rendering -> ReleaseRenderFrame -> pending (front is newest)
	pending  -> TryGetPresentFrame -> displayed
	displayed -> next successful TryGetPresentFrame -> free

The renderer never waits. With no free frame it takes back the oldest pending
one, dropping that frame. The presenter always jumps to the newest pending
frame and recycles everything older. When nothing new arrives within the
timeout it gets the frame it already showed.
*/

package main

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"
)

type frameState int

const (
	frameFree frameState = iota
	frameRendering
	framePending
	frameDisplayed
)

// Frame is one entry of the swap chain.
type Frame struct {
	// Render targets, one per screen, sized base geometry x ResScale.
	Screens  [SCREEN_COUNT]*image.RGBA
	ResScale uint16

	// Set by ReloadRenderFrame, cleared by ReloadPresentFrame.
	TextureReloaded bool

	RenderFence  *FrameFence // signaled when rendering finished
	PresentFence *FrameFence // signaled when presentation finished

	// Sequence is the renderer's frame counter at release.
	Sequence uint64

	index int
	state frameState
}

// Index is the frame's fixed slot in the ring.
func (f *Frame) Index() int { return f.index }

// ScreenBaseSize returns the unscaled size of a screen.
func ScreenBaseSize(screen int) (int, int) {
	if screen == SCREEN_BOTTOM {
		return SCREEN_BOTTOM_WIDTH, SCREEN_BOTTOM_HEIGHT
	}
	return SCREEN_TOP_WIDTH, SCREEN_TOP_HEIGHT
}

func allocateScreens(f *Frame, scale uint16) {
	if scale == 0 {
		scale = 1
	}
	for i := range f.Screens {
		w, h := ScreenBaseSize(i)
		f.Screens[i] = image.NewRGBA(image.Rect(0, 0, w*int(scale), h*int(scale)))
	}
	f.ResScale = scale
}

// FrameMailbox hands frames between one renderer and one presenter.
type FrameMailbox struct {
	mu      sync.Mutex
	frames  []*Frame
	free    []*Frame
	pending []*Frame // newest first
	shown   *Frame
	closed  bool

	// Closed and replaced on every release to wake a timed wait.
	changed chan struct{}

	dropped atomic.Uint64
}

// NewFrameMailbox allocates size frames at the given resolution scale.
// Sizes below FRAME_SWAP_CHAIN_MIN_SIZE are raised to it.
func NewFrameMailbox(size int, scale uint16) *FrameMailbox {
	if size < FRAME_SWAP_CHAIN_MIN_SIZE {
		size = FRAME_SWAP_CHAIN_MIN_SIZE
	}
	m := &FrameMailbox{
		frames:  make([]*Frame, size),
		free:    make([]*Frame, 0, size),
		pending: make([]*Frame, 0, size),
		changed: make(chan struct{}),
	}
	for i := range m.frames {
		f := &Frame{index: i}
		allocateScreens(f, scale)
		m.frames[i] = f
		m.free = append(m.free, f)
	}
	return m
}

// GetRenderFrame returns a frame for the renderer to draw into. It never
// blocks. It returns nil only after Close.
func (m *FrameMailbox) GetRenderFrame() *Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}

	var f *Frame
	if len(m.free) > 0 {
		f = m.free[0]
		m.free = m.free[1:]
	} else if n := len(m.pending); n > 0 {
		// Presenter is behind, reuse the oldest unseen frame
		f = m.pending[n-1]
		m.pending = m.pending[:n-1]
		m.dropped.Add(1)
	} else {
		panic("gpu: frame mailbox has no free or pending frame")
	}
	f.state = frameRendering
	return f
}

// ReleaseRenderFrame queues a finished frame for presentation.
func (m *FrameMailbox) ReleaseRenderFrame(f *Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if f.state != frameRendering {
		panic(fmt.Sprintf("gpu: release of frame %d in state %d", f.index, f.state))
	}
	f.state = framePending
	m.pending = append(m.pending, nil)
	copy(m.pending[1:], m.pending)
	m.pending[0] = f

	close(m.changed)
	m.changed = make(chan struct{})
}

// TryGetPresentFrame waits up to timeout for a new frame. On success it
// returns the newest one and recycles all older pending frames along with
// the previously shown frame. On timeout it returns the previously shown
// frame, or nil when nothing has been shown yet or the mailbox is closed.
func (m *FrameMailbox) TryGetPresentFrame(timeout time.Duration) *Frame {
	var timer *time.Timer
	m.mu.Lock()
	for len(m.pending) == 0 && !m.closed {
		if timer == nil {
			timer = time.NewTimer(timeout)
			defer timer.Stop()
		}
		changed := m.changed
		m.mu.Unlock()
		select {
		case <-changed:
			m.mu.Lock()
			continue
		case <-timer.C:
		}
		m.mu.Lock()
		if len(m.pending) == 0 {
			shown := m.shown
			if m.closed {
				shown = nil
			}
			m.mu.Unlock()
			return shown
		}
	}
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}

	f := m.pending[0]
	for _, old := range m.pending[1:] {
		m.recycleLocked(old)
		m.dropped.Add(1)
	}
	m.pending = m.pending[:0]
	if m.shown != nil {
		m.recycleLocked(m.shown)
	}
	f.state = frameDisplayed
	m.shown = f
	return f
}

func (m *FrameMailbox) recycleLocked(f *Frame) {
	f.state = frameFree
	m.free = append(m.free, f)
}

// ReloadRenderFrame reallocates a frame's render targets for a new
// resolution scale. Only the renderer may call it, on a frame it holds.
func (m *FrameMailbox) ReloadRenderFrame(f *Frame, scale uint16) {
	m.mu.Lock()
	state := f.state
	m.mu.Unlock()
	if state != frameRendering {
		panic(fmt.Sprintf("gpu: reload of frame %d not held by the renderer", f.index))
	}
	allocateScreens(f, scale)
	f.TextureReloaded = true
	Logger().Debug("render frame reloaded", "frame", f.index, "scale", f.ResScale)
}

// ReloadPresentFrame acknowledges a reload on the presenter side.
func (m *FrameMailbox) ReloadPresentFrame(f *Frame) {
	f.TextureReloaded = false
}

// Close empties the queues and wakes a waiting presenter. Later calls to
// GetRenderFrame return nil. Idempotent.
func (m *FrameMailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.free = m.free[:0]
	m.pending = m.pending[:0]
	m.shown = nil
	close(m.changed)
}

func (m *FrameMailbox) Capacity() int { return len(m.frames) }

func (m *FrameMailbox) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *FrameMailbox) FreeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.free)
}

func (m *FrameMailbox) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Dropped counts frames that were rendered but never shown.
func (m *FrameMailbox) Dropped() uint64 {
	return m.dropped.Load()
}
