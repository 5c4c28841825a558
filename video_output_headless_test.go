// video_output_headless_test.go - Window-less video output

package main

import "testing"

func TestHeadlessOutput_DisplayConfigRoundTrip(t *testing.T) {
	out := NewHeadlessOutput()
	cfg := DisplayConfig{Width: 800, Height: 480, Scale: 2, Fullscreen: true}
	if err := out.SetDisplayConfig(cfg); err != nil {
		t.Fatalf("SetDisplayConfig returned error: %v", err)
	}
	if got := out.GetDisplayConfig(); got != cfg {
		t.Fatalf("expected %+v, got %+v", cfg, got)
	}
}

func TestHeadlessOutput_KeepsLastFrameCopy(t *testing.T) {
	out := NewHeadlessOutput()
	if out.IsStarted() {
		t.Fatal("new output already started")
	}
	out.Start()
	buf := []byte{1, 2, 3, 4}
	out.UpdateFrame(buf)
	buf[0] = 9
	if got := out.LastFrame(); got[0] != 1 || out.GetFrameCount() != 1 {
		t.Fatalf("last frame %v, count %d", got, out.GetFrameCount())
	}
	out.Close()
	if out.IsStarted() || out.GetRefreshRate() != 60 {
		t.Fatal("close or refresh rate wrong")
	}
}

func TestNewVideoOutput_Backends(t *testing.T) {
	out, err := NewVideoOutput(VIDEO_BACKEND_HEADLESS)
	if err != nil {
		t.Fatalf("headless backend: %v", err)
	}
	if _, ok := out.(*HeadlessVideoOutput); !ok {
		t.Fatalf("headless backend is %T", out)
	}
	if _, err := NewVideoOutput(99); err == nil {
		t.Fatal("unknown backend accepted")
	}
}
