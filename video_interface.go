// video_interface.go - Presentation output contract and screen layout

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

package main

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"golang.org/x/image/draw"
)

// VideoError provides detailed error context for video operations
type VideoError struct {
	Operation string // What operation was being attempted
	Details   string // Additional error context
	Err       error  // Underlying error if any
}

func (e *VideoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("video %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("video %s failed: %s", e.Operation, e.Details)
}

func (e *VideoError) Unwrap() error {
	return e.Err
}

// FrameSnapshot is a copy of the last composed output frame
type FrameSnapshot struct {
	Buffer    []byte // RGBA pixels
	Width     int
	Height    int
	Sequence  uint64    // renderer frame number
	Timestamp time.Time // When the snapshot was taken
}

// DisplayConfig contains hardware-independent configuration
type DisplayConfig struct {
	Width       int
	Height      int
	Scale       int // Integer window scaling factor
	RefreshRate int // Target refresh rate in Hz
	VSync       bool
	Fullscreen  bool
}

// VideoOutput is where the presenter sends composed frames
type VideoOutput interface {
	// Lifecycle management
	Start() error
	Stop() error
	Close() error
	IsStarted() bool

	SetDisplayConfig(config DisplayConfig) error
	GetDisplayConfig() DisplayConfig
	UpdateFrame(buffer []byte) error // Takes raw RGBA pixels only

	// Timing and synchronization
	WaitForVSync() error
	GetFrameCount() uint64
	GetRefreshRate() int
}

// Video backend types
const (
	VIDEO_BACKEND_EBITEN = iota
	VIDEO_BACKEND_HEADLESS
)

// NewVideoOutput creates a new video output instance using the specified backend
func NewVideoOutput(backend int) (VideoOutput, error) {
	switch backend {
	case VIDEO_BACKEND_EBITEN:
		return NewEbitenOutput()
	case VIDEO_BACKEND_HEADLESS:
		return NewHeadlessOutput(), nil
	}
	return nil, &VideoError{
		Operation: "backend creation",
		Details:   fmt.Sprintf("unknown backend type: %d", backend),
	}
}

func ClampScale(scale int) int {
	if scale < 1 {
		return 1
	}
	if scale > SCREEN_MAX_RESOLUTION_SCALE {
		return SCREEN_MAX_RESOLUTION_SCALE
	}
	return scale
}

// FramebufferLayout places the three screens on the output surface.
type FramebufferLayout struct {
	Width   int
	Height  int
	Screens [SCREEN_COUNT]image.Rectangle
}

// DefaultLayout puts both top screens side by side above a centred bottom
// screen, scaled by scale.
func DefaultLayout(scale int) FramebufferLayout {
	scale = ClampScale(scale)
	topW, topH := SCREEN_TOP_WIDTH*scale, SCREEN_TOP_HEIGHT*scale
	botW, botH := SCREEN_BOTTOM_WIDTH*scale, SCREEN_BOTTOM_HEIGHT*scale
	width := 2 * topW
	botX := (width - botW) / 2

	var l FramebufferLayout
	l.Width = width
	l.Height = topH + botH
	l.Screens[SCREEN_TOP_LEFT] = image.Rect(0, 0, topW, topH)
	l.Screens[SCREEN_TOP_RIGHT] = image.Rect(topW, 0, 2*topW, topH)
	l.Screens[SCREEN_BOTTOM] = image.Rect(botX, topH, botX+botW, topH+botH)
	return l
}

// ScaleMode returns the scaler for the filter setting.
func ScaleMode(linear bool) draw.Scaler {
	if linear {
		return draw.ApproxBiLinear
	}
	return draw.NearestNeighbor
}

// ComposeFrame draws a frame's screens into dst following layout. dst is
// reallocated when its size does not match.
func ComposeFrame(dst *image.RGBA, f *Frame, layout FramebufferLayout, background color.RGBA, scaler draw.Scaler) *image.RGBA {
	bounds := image.Rect(0, 0, layout.Width, layout.Height)
	if dst == nil || dst.Bounds() != bounds {
		dst = image.NewRGBA(bounds)
	}
	draw.Draw(dst, bounds, image.NewUniform(background), image.Point{}, draw.Src)
	for i, rect := range layout.Screens {
		src := f.Screens[i]
		if src == nil || rect.Empty() {
			continue
		}
		if src.Bounds().Size() == rect.Size() {
			draw.Draw(dst, rect, src, src.Bounds().Min, draw.Src)
			continue
		}
		scaler.Scale(dst, rect, src, src.Bounds(), draw.Src, nil)
	}
	return dst
}

// BackgroundRGBA converts a 0xRRGGBB setting to an opaque colour.
func BackgroundRGBA(rgb uint32) color.RGBA {
	return color.RGBA{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb), A: 0xFF}
}
