// video_presenter.go - Presentation loop feeding the video output

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
video_presenter.go - Frame Presenter

The presentation side of the frame mailbox. Each pass pulls the newest
finished frame, composes the three screens into the display layout and hands
the pixels to the VideoOutput.

Signal Flow:
1. Renderer releases finished frames into the mailbox
2. Presenter waits up to the present timeout for a new frame
3. Newest frame wins, older ones go back to the renderer
4. Frame is composed (top screens side by side, bottom screen centred)
5. Final pixels are sent to VideoOutput, present fence signalled

Architecture:
                    ┌─────────────┐     ┌─────────────┐     ┌─────────┐
  GPU thread ────→ │   Mailbox   │ ──→ │  Presenter  │ ──→ │ Display │
                    └─────────────┘     └─────────────┘     └─────────┘

When no new frame arrives the mailbox hands back the frame already shown and
it is sent again, so the display repeats instead of going blank.
*/

package main

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"
)

type FramePresenter struct {
	mutex    sync.RWMutex
	output   VideoOutput
	mailbox  *FrameMailbox
	settings *SettingsStore

	composed     *image.RGBA
	lastSequence uint64
	layout       FramebufferLayout

	done     chan struct{}
	stopOnce sync.Once

	presented atomic.Uint64
	repeated  atomic.Uint64
	empty     atomic.Uint64
}

func NewFramePresenter(output VideoOutput, mailbox *FrameMailbox, settings *SettingsStore) *FramePresenter {
	return &FramePresenter{
		output:   output,
		mailbox:  mailbox,
		settings: settings,
		done:     make(chan struct{}),
	}
}

// Run presents frames until ctx is cancelled, Stop is called or the
// mailbox is closed.
func (p *FramePresenter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.done:
			return nil
		default:
		}
		if p.mailbox.Closed() {
			return nil
		}
		if err := p.PresentOnce(p.settings.Get().PresentTimeout()); err != nil {
			return err
		}
	}
}

func (p *FramePresenter) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
}

// PresentOnce runs one presentation pass. It reports errors from the output.
// A frame whose render fence has not signaled within timeout stays shown and
// is retried on the next pass.
func (p *FramePresenter) PresentOnce(timeout time.Duration) error {
	f := p.mailbox.TryGetPresentFrame(timeout)
	if f == nil {
		p.empty.Add(1)
		return nil
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if f.TextureReloaded {
		p.mailbox.ReloadPresentFrame(f)
		Logger().Debug("present frame reloaded", "frame", f.Index(), "scale", f.ResScale)
	}
	if !f.RenderFence.Wait(timeout) {
		Logger().Debug("render fence not ready", "frame", f.Index())
		return nil
	}

	if f.Sequence == p.lastSequence && p.composed != nil {
		p.repeated.Add(1)
	} else {
		s := p.settings.Get()
		layout := DefaultLayout(int(f.ResScale))
		if layout.Width != p.layout.Width || layout.Height != p.layout.Height {
			p.resizeOutput(layout)
		}
		p.layout = layout
		p.composed = ComposeFrame(p.composed, f, layout, BackgroundRGBA(s.BackgroundColor), ScaleMode(s.LinearFilter))
		p.lastSequence = f.Sequence
		p.presented.Add(1)
	}

	if p.output != nil && p.output.IsStarted() {
		if err := p.output.UpdateFrame(p.composed.Pix); err != nil {
			return &VideoError{Operation: "present", Details: fmt.Sprintf("frame %d", f.Sequence), Err: err}
		}
	}

	f.PresentFence = NewFrameFence()
	f.PresentFence.Signal()
	return nil
}

func (p *FramePresenter) resizeOutput(layout FramebufferLayout) {
	if p.output == nil {
		return
	}
	config := p.output.GetDisplayConfig()
	config.Width = layout.Width
	config.Height = layout.Height
	if err := p.output.SetDisplayConfig(config); err != nil {
		Logger().Warn("display resize failed", "width", layout.Width, "height", layout.Height, "err", err)
	}
}

// Snapshot copies the last composed frame.
func (p *FramePresenter) Snapshot() (FrameSnapshot, bool) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	if p.composed == nil {
		return FrameSnapshot{}, false
	}
	b := p.composed.Bounds()
	snap := FrameSnapshot{
		Buffer:    make([]byte, len(p.composed.Pix)),
		Width:     b.Dx(),
		Height:    b.Dy(),
		Sequence:  p.lastSequence,
		Timestamp: time.Now(),
	}
	copy(snap.Buffer, p.composed.Pix)
	return snap, true
}

// LastImage returns a copy of the last composed frame as an image.
func (p *FramePresenter) LastImage() (*image.RGBA, bool) {
	snap, ok := p.Snapshot()
	if !ok {
		return nil, false
	}
	img := image.NewRGBA(image.Rect(0, 0, snap.Width, snap.Height))
	copy(img.Pix, snap.Buffer)
	return img, true
}

type PresenterStats struct {
	Presented uint64
	Repeated  uint64
	Empty     uint64
}

func (p *FramePresenter) Stats() PresenterStats {
	return PresenterStats{
		Presented: p.presented.Load(),
		Repeated:  p.repeated.Load(),
		Empty:     p.empty.Load(),
	}
}
