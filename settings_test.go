// settings_test.go - TOML settings, flag overrides and the settings store

package main

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/BurntSushi/toml"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "iegpu.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestSettings_LoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeConfig(t, `
async_gpu = false
resolution_factor = 3
graphics_api = " Vulkan "
swap_chain_size = 1
unknown_key = 5
`)
	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.AsyncGPU || s.ResolutionFactor != 3 {
		t.Fatalf("decoded %+v", s)
	}
	if s.GraphicsAPI != GRAPHICS_API_VULKAN {
		t.Fatalf("api %q not normalised", s.GraphicsAPI)
	}
	if s.SwapChainSize != FRAME_SWAP_CHAIN_MIN_SIZE {
		t.Fatalf("swap chain %d not clamped", s.SwapChainSize)
	}
	if s.FrameLimit != 100 || s.LogLevel != "info" {
		t.Fatal("missing keys lost their defaults")
	}
}

func TestSettings_LoadReportsBadFile(t *testing.T) {
	if _, err := LoadSettings(writeConfig(t, "async_gpu = [")); err == nil {
		t.Fatal("malformed TOML accepted")
	}
	if _, err := LoadSettings(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestSettings_ValidateClamps(t *testing.T) {
	s := Settings{
		SwapChainSize:    0,
		PresentTimeoutMs: -1,
		FrameLimit:       -50,
		ResolutionFactor: 40,
		DisplayScale:     0,
		GraphicsAPI:      "metal",
		BackgroundColor:  0xFF123456,
	}
	s.Validate()
	if s.SwapChainSize != FRAME_SWAP_CHAIN_MIN_SIZE ||
		s.PresentTimeout() != FRAME_DEFAULT_PRESENT_TIMEOUT ||
		s.FrameLimit != 0 ||
		s.ResolutionFactor != SCREEN_MAX_RESOLUTION_SCALE ||
		s.DisplayScale != 1 ||
		s.GraphicsAPI != GRAPHICS_API_SOFTWARE ||
		s.BackgroundColor != 0x123456 {
		t.Fatalf("Validate left %+v", s)
	}
}

func TestSettings_WriteRoundTripsThroughTOML(t *testing.T) {
	want := DefaultSettings()
	want.LinearFilter = true
	want.BackgroundColor = 0x202020

	var buf bytes.Buffer
	if err := WriteSettings(&buf, want); err != nil {
		t.Fatalf("WriteSettings: %v", err)
	}
	if !strings.Contains(buf.String(), "linear_filter = true") {
		t.Fatalf("unexpected encoding:\n%s", buf.String())
	}
	var got Settings
	if _, err := toml.Decode(buf.String(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestCommandLine_FlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "async_gpu = false\nframe_limit = 50\nlinear_filter = true\n")
	var out bytes.Buffer
	cl, err := ParseCommandLine("iegpu", []string{
		"-config", path, "-async", "-scale", "12", "-frames", "30", "-headless", "demo.lua",
	}, &out)
	if err != nil {
		t.Fatalf("ParseCommandLine: %v", err)
	}
	s := cl.Settings
	if !s.AsyncGPU {
		t.Fatal("explicit -async did not override the file")
	}
	if s.FrameLimit != 50 || !s.LinearFilter {
		t.Fatal("file values lost for flags that were not set")
	}
	if s.ResolutionFactor != SCREEN_MAX_RESOLUTION_SCALE {
		t.Fatalf("scale %d not clamped", s.ResolutionFactor)
	}
	if cl.Frames != 30 || !cl.Headless || cl.Script != "demo.lua" || cl.ConfigPath != path {
		t.Fatalf("run options %+v", cl)
	}
}

func TestCommandLine_Errors(t *testing.T) {
	var out bytes.Buffer
	if _, err := ParseCommandLine("iegpu", []string{"-h"}, &out); !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("-h returned %v", err)
	}
	if _, err := ParseCommandLine("iegpu", []string{"a.lua", "b.lua"}, &out); err == nil {
		t.Fatal("two scripts accepted")
	}
	if _, err := ParseCommandLine("iegpu", []string{"-swapchain", "x"}, &out); err == nil {
		t.Fatal("bad integer accepted")
	}
}

func TestSettingsStore_UpdateIsAtomic(t *testing.T) {
	store := NewSettingsStore(DefaultSettings())
	before := store.Get()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Update(func(s *Settings) { s.ResolutionFactor = (s.ResolutionFactor + 1) % 5 })
			store.Update(func(s *Settings) { s.FrameLimit++ })
		}()
	}
	wg.Wait()

	if got := store.Get().FrameLimit; got != before.FrameLimit+50 {
		t.Fatalf("frame limit %d, want %d", got, before.FrameLimit+50)
	}
	if before.FrameLimit != 100 {
		t.Fatal("published snapshot was modified in place")
	}

	store.Set(Settings{SwapChainSize: 1})
	if store.Get().SwapChainSize != FRAME_SWAP_CHAIN_MIN_SIZE {
		t.Fatal("Set skipped validation")
	}
}

func TestCommandLine_FeaturesFlag(t *testing.T) {
	cl, err := ParseCommandLine("iegpu", []string{"-features"}, &bytes.Buffer{})
	if err != nil || !cl.Features {
		t.Fatalf("-features: %+v %v", cl, err)
	}
	if len(compiledFeatures) == 0 {
		t.Fatal("no build features registered")
	}
}
