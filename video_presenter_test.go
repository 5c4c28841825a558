// video_presenter_test.go - Mailbox to output presentation

package main

import (
	"context"
	"testing"
	"time"
)

func newTestPresenter(t *testing.T) (*FramePresenter, *HeadlessVideoOutput, *SoftwareRenderer) {
	t.Helper()
	settings := unlimitedSettings()
	mailbox := NewFrameMailbox(FRAME_SWAP_CHAIN_SIZE, 1)
	renderer := NewSoftwareRenderer(NewGuestMemory(DEFAULT_GUEST_MEMORY_SIZE), mailbox, settings)
	output := NewHeadlessOutput()
	if err := output.Start(); err != nil {
		t.Fatalf("start output: %v", err)
	}
	return NewFramePresenter(output, mailbox, settings), output, renderer
}

func TestFramePresenter_PresentsAndRepeats(t *testing.T) {
	p, output, r := newTestPresenter(t)

	if err := p.PresentOnce(5 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if st := p.Stats(); st.Empty != 1 || output.GetFrameCount() != 0 {
		t.Fatalf("empty mailbox: stats %+v frames %d", st, output.GetFrameCount())
	}

	r.SwapBuffers()
	if err := p.PresentOnce(5 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	layout := DefaultLayout(1)
	cfg := output.GetDisplayConfig()
	if cfg.Width != layout.Width || cfg.Height != layout.Height {
		t.Fatalf("output resized to %dx%d, want %dx%d", cfg.Width, cfg.Height, layout.Width, layout.Height)
	}
	if got := len(output.LastFrame()); got != layout.Width*layout.Height*BYTES_PER_PIXEL {
		t.Fatalf("frame of %d bytes", got)
	}

	// No new frame: the shown frame goes out again
	if err := p.PresentOnce(5 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	st := p.Stats()
	if st.Presented != 1 || st.Repeated != 1 || output.GetFrameCount() != 2 {
		t.Fatalf("stats %+v, output frames %d", st, output.GetFrameCount())
	}

	snap, ok := p.Snapshot()
	if !ok || snap.Sequence != 1 || snap.Width != layout.Width {
		t.Fatalf("snapshot %+v ok=%v", snap.Sequence, ok)
	}
	img, ok := p.LastImage()
	if !ok || img.Bounds().Dy() != layout.Height {
		t.Fatal("LastImage missing")
	}
}

func TestFramePresenter_BackgroundShowsAroundBottomScreen(t *testing.T) {
	p, _, r := newTestPresenter(t)
	p.settings.Update(func(s *Settings) { s.BackgroundColor = 0x102030 })
	r.SwapBuffers()
	if err := p.PresentOnce(5 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	img, _ := p.LastImage()
	px := img.RGBAAt(0, SCREEN_TOP_HEIGHT)
	if px.R != 0x10 || px.G != 0x20 || px.B != 0x30 {
		t.Fatalf("background pixel %v", px)
	}
}

func TestFramePresenter_PresentFenceReleasesRenderer(t *testing.T) {
	p, _, r := newTestPresenter(t)
	r.SwapBuffers()
	if err := p.PresentOnce(5 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	shown := p.mailbox.TryGetPresentFrame(time.Millisecond)
	if shown == nil || !shown.PresentFence.Signaled() {
		t.Fatal("present fence not signalled after presentation")
	}
}

func TestFramePresenter_RunStopsOnClose(t *testing.T) {
	p, output, r := newTestPresenter(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	for i := 0; i < 5; i++ {
		r.SwapBuffers()
		time.Sleep(2 * time.Millisecond)
	}
	deadline := time.Now().Add(2 * time.Second)
	for output.GetFrameCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	p.mailbox.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run kept going after the mailbox closed")
	}
	if output.GetFrameCount() == 0 {
		t.Fatal("nothing presented")
	}
}

func TestFramePresenter_StopAndCancel(t *testing.T) {
	for _, useStop := range []bool{true, false} {
		p, _, _ := newTestPresenter(t)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- p.Run(ctx) }()
		if useStop {
			p.Stop()
			p.Stop()
		} else {
			cancel()
		}
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("Run ignored stop=%v", useStop)
		}
		cancel()
	}
}

func TestFramePresenter_WaitsForRenderFence(t *testing.T) {
	p, output, _ := newTestPresenter(t)
	fence := NewFrameFence()
	f := p.mailbox.GetRenderFrame()
	f.Sequence = 1
	f.RenderFence = fence
	p.mailbox.ReleaseRenderFrame(f)

	// Rendering still in flight: nothing may reach the output
	if err := p.PresentOnce(5 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if st := p.Stats(); st.Presented != 0 || output.GetFrameCount() != 0 {
		t.Fatalf("unfinished frame presented: stats %+v frames %d", st, output.GetFrameCount())
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		fence.Signal()
	}()
	if err := p.PresentOnce(2 * time.Second); err != nil {
		t.Fatal(err)
	}
	if st := p.Stats(); st.Presented != 1 || output.GetFrameCount() != 1 {
		t.Fatalf("frame not presented after its fence: stats %+v frames %d", st, output.GetFrameCount())
	}
	if !f.PresentFence.Signaled() {
		t.Fatal("present fence not signalled")
	}
}
