// settings.go - Configuration loading and the live settings snapshot

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
settings.go - Settings

Settings come from an optional TOML file, then command-line flags override
whatever the file set. The result is validated and published through a
SettingsStore. Readers take a snapshot with Get and never mutate it; writers
publish a whole new value with Set.
*/

package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	GRAPHICS_API_SOFTWARE = "software"
	GRAPHICS_API_VULKAN   = "vulkan"
)

type Settings struct {
	AsyncGPU         bool    `toml:"async_gpu"`
	ResolutionFactor uint16  `toml:"resolution_factor"` // 0 follows the display scale
	LinearFilter     bool    `toml:"linear_filter"`
	GraphicsAPI      string  `toml:"graphics_api"`
	SwapChainSize    int     `toml:"swap_chain_size"`
	PresentTimeoutMs int     `toml:"present_timeout_ms"`
	FrameLimit       int     `toml:"frame_limit"` // percent of 60Hz, 0 is unlimited
	DisplayScale     float64 `toml:"display_scale"`
	Fullscreen       bool    `toml:"fullscreen"`
	LogLevel         string  `toml:"log_level"`
	BackgroundColor  uint32  `toml:"background_color"` // 0xRRGGBB
}

func DefaultSettings() Settings {
	return Settings{
		AsyncGPU:         true,
		GraphicsAPI:      GRAPHICS_API_SOFTWARE,
		SwapChainSize:    FRAME_SWAP_CHAIN_SIZE,
		PresentTimeoutMs: int(FRAME_DEFAULT_PRESENT_TIMEOUT / time.Millisecond),
		FrameLimit:       100,
		DisplayScale:     1,
		LogLevel:         "info",
	}
}

// Validate clamps out-of-range values instead of rejecting them.
func (s *Settings) Validate() {
	if s.SwapChainSize < FRAME_SWAP_CHAIN_MIN_SIZE {
		s.SwapChainSize = FRAME_SWAP_CHAIN_MIN_SIZE
	}
	if s.PresentTimeoutMs <= 0 {
		s.PresentTimeoutMs = int(FRAME_DEFAULT_PRESENT_TIMEOUT / time.Millisecond)
	}
	if s.FrameLimit < 0 {
		s.FrameLimit = 0
	}
	if s.ResolutionFactor > SCREEN_MAX_RESOLUTION_SCALE {
		s.ResolutionFactor = SCREEN_MAX_RESOLUTION_SCALE
	}
	if s.DisplayScale <= 0 {
		s.DisplayScale = 1
	}
	s.GraphicsAPI = strings.ToLower(strings.TrimSpace(s.GraphicsAPI))
	if s.GraphicsAPI != GRAPHICS_API_VULKAN {
		s.GraphicsAPI = GRAPHICS_API_SOFTWARE
	}
	s.BackgroundColor &= 0xFFFFFF
}

func (s *Settings) PresentTimeout() time.Duration {
	return time.Duration(s.PresentTimeoutMs) * time.Millisecond
}

// LoadSettings reads a TOML file over the defaults. Keys missing from the
// file keep their default value.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}
	md, err := toml.DecodeFile(path, &s)
	if err != nil {
		return s, fmt.Errorf("settings: read %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		Logger().Warn("unknown settings keys ignored", "file", path, "keys", fmt.Sprint(undecoded))
	}
	s.Validate()
	return s, nil
}

// WriteSettings encodes s as TOML.
func WriteSettings(w io.Writer, s Settings) error {
	var buffer bytes.Buffer
	if err := toml.NewEncoder(&buffer).Encode(s); err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	_, err := w.Write(buffer.Bytes())
	return err
}

// CommandLine is the parsed command line: settings plus run options.
type CommandLine struct {
	Settings   Settings
	ConfigPath string
	Frames     int
	Screenshot string
	Headless   bool
	DumpConfig bool
	Features   bool
	Script     string
}

// ParseCommandLine loads the config file named by -config and applies every
// flag that was set explicitly on top of it.
func ParseCommandLine(name string, args []string, output io.Writer) (*CommandLine, error) {
	defaults := DefaultSettings()
	flagSettings := defaults
	cl := &CommandLine{}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cl.ConfigPath, "config", "", "TOML settings file")
	fs.BoolVar(&flagSettings.AsyncGPU, "async", defaults.AsyncGPU, "run GPU commands on a dedicated thread")
	scale := fs.Uint("scale", uint(defaults.ResolutionFactor), "internal resolution factor (0 follows display scale)")
	fs.BoolVar(&flagSettings.LinearFilter, "linear", defaults.LinearFilter, "bilinear filtering when scaling")
	fs.StringVar(&flagSettings.GraphicsAPI, "api", defaults.GraphicsAPI, "graphics API: software or vulkan")
	fs.IntVar(&flagSettings.SwapChainSize, "swapchain", defaults.SwapChainSize, "frames in the presentation mailbox")
	fs.IntVar(&flagSettings.FrameLimit, "limit", defaults.FrameLimit, "frame limit in percent of 60Hz (0 unlimited)")
	fs.BoolVar(&flagSettings.Fullscreen, "fullscreen", defaults.Fullscreen, "start fullscreen")
	fs.StringVar(&flagSettings.LogLevel, "log", defaults.LogLevel, "log level: debug, info, warn, error")
	fs.IntVar(&cl.Frames, "frames", 0, "stop after this many frames when the script loops (0 runs until closed)")
	fs.StringVar(&cl.Screenshot, "screenshot", "", "write a PNG screenshot of the last frame")
	fs.BoolVar(&cl.Headless, "headless", false, "present without a window")
	fs.BoolVar(&cl.DumpConfig, "dump-config", false, "print the effective settings as TOML and exit")
	fs.BoolVar(&cl.Features, "features", false, "list compiled features and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("%s: expected at most one script, got %d", name, fs.NArg())
	}
	cl.Script = fs.Arg(0)
	flagSettings.ResolutionFactor = uint16(min(*scale, SCREEN_MAX_RESOLUTION_SCALE))

	s, err := LoadSettings(cl.ConfigPath)
	if err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "async":
			s.AsyncGPU = flagSettings.AsyncGPU
		case "scale":
			s.ResolutionFactor = flagSettings.ResolutionFactor
		case "linear":
			s.LinearFilter = flagSettings.LinearFilter
		case "api":
			s.GraphicsAPI = flagSettings.GraphicsAPI
		case "swapchain":
			s.SwapChainSize = flagSettings.SwapChainSize
		case "limit":
			s.FrameLimit = flagSettings.FrameLimit
		case "fullscreen":
			s.Fullscreen = flagSettings.Fullscreen
		case "log":
			s.LogLevel = flagSettings.LogLevel
		}
	})
	s.Validate()
	cl.Settings = s
	return cl, nil
}

// SettingsStore publishes read-only Settings snapshots.
type SettingsStore struct {
	current atomic.Pointer[Settings]
}

func NewSettingsStore(s Settings) *SettingsStore {
	store := &SettingsStore{}
	store.Set(s)
	return store
}

// Get returns the current snapshot. Callers must not modify it.
func (st *SettingsStore) Get() *Settings {
	return st.current.Load()
}

func (st *SettingsStore) Set(s Settings) {
	s.Validate()
	st.current.Store(&s)
}

// Update applies fn to a copy of the current settings and publishes it.
func (st *SettingsStore) Update(fn func(*Settings)) {
	for {
		old := st.current.Load()
		next := *old
		fn(&next)
		next.Validate()
		if st.current.CompareAndSwap(old, &next) {
			return
		}
	}
}
