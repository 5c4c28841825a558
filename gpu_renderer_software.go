// gpu_renderer_software.go - Software host renderer

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
gpu_renderer_software.go - Software Renderer

The host backend used when no hardware path is selected, and the reference
for what every GPURenderer must do observably:

	ProcessCommandList        (register, value) word pairs into the register file
	MemoryFill                pattern fill into a dirty cached surface
	DisplayTransfer           RGBA8 copy with optional flip and 2x downscale
	FlushRegion               dirty cached bytes back to guest memory
	InvalidateRegion          drop cached surfaces, guest memory wins
	SwapBuffers               scan out the three guest framebuffers into a
	                          mailbox frame and release it to the presenter

All methods run on one thread at a time: the GPU thread in async mode, the
emulation thread otherwise. Counters are atomic because the status bar reads
them from elsewhere.
*/

package main

import (
	"encoding/binary"
	"image"
	"sync/atomic"
	"time"

	"golang.org/x/image/draw"
)

// Present fence wait bound before a frame is reused anyway.
const SOFTWARE_PRESENT_FENCE_TIMEOUT = 100 * time.Millisecond

var guestFramebuffers = [SCREEN_COUNT]VAddr{
	SCREEN_TOP_LEFT:  GUEST_FB_TOP_LEFT,
	SCREEN_TOP_RIGHT: GUEST_FB_TOP_RIGHT,
	SCREEN_BOTTOM:    GUEST_FB_BOTTOM,
}

// GuestFramebufferAddress returns where a screen is scanned out from.
func GuestFramebufferAddress(screen int) VAddr {
	return guestFramebuffers[screen]
}

// GuestFramebufferSize returns the byte size of a screen's guest buffer.
func GuestFramebufferSize(screen int) uint64 {
	w, h := ScreenBaseSize(screen)
	return uint64(w * h * BYTES_PER_PIXEL)
}

type SoftwareRendererStats struct {
	Lists         uint64
	Words         uint64
	Fills         uint64
	Transfers     uint64
	Flushes       uint64
	Invalidations uint64
	Swaps         uint64
	Screenshots   uint64
}

type SoftwareRenderer struct {
	mem      GuestBus
	cache    *SurfaceCache
	mailbox  *FrameMailbox
	settings *SettingsStore

	registers [GPU_REGISTER_COUNT]uint32

	// AfterMemoryFill runs once a fill has completed, on the renderer's
	// thread. It stands in for the fill-complete interrupt.
	AfterMemoryFill func(isSecondFiller bool)

	// ScaleFactor is polled at every swap. Nil means scale 1.
	ScaleFactor func() uint16

	scanout    [SCREEN_COUNT]*image.RGBA
	screenshot screenshotSlot
	perf       *PerfStats
	limiter    *FrameLimiter
	frameCount uint64

	lists         atomic.Uint64
	words         atomic.Uint64
	fills         atomic.Uint64
	transfers     atomic.Uint64
	flushes       atomic.Uint64
	invalidations atomic.Uint64
	swaps         atomic.Uint64
	screenshots   atomic.Uint64
}

func NewSoftwareRenderer(mem GuestBus, mailbox *FrameMailbox, settings *SettingsStore) *SoftwareRenderer {
	r := &SoftwareRenderer{
		mem:      mem,
		cache:    NewSurfaceCache(mem),
		mailbox:  mailbox,
		settings: settings,
		perf:     NewPerfStats(),
		limiter:  NewFrameLimiter(),
	}
	for i := range r.scanout {
		w, h := ScreenBaseSize(i)
		r.scanout[i] = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	return r
}

func (r *SoftwareRenderer) ProcessCommandList(list []uint32) {
	r.lists.Add(1)
	r.words.Add(uint64(len(list)))
	for i := 0; i+1 < len(list); i += 2 {
		reg := list[i]
		if reg < GPU_REGISTER_COUNT {
			r.registers[reg] = list[i+1]
		}
	}
}

// Register returns a register value. Only safe on the renderer's thread or
// after the GPU has been synchronized.
func (r *SoftwareRenderer) Register(index int) uint32 {
	if index < 0 || index >= GPU_REGISTER_COUNT {
		return 0
	}
	return r.registers[index]
}

func (r *SoftwareRenderer) MemoryFill(cfg MemoryFillConfig, isSecondFiller bool) {
	r.fills.Add(1)
	// Guest-programmed ranges are clipped to guest RAM
	if size := r.mem.Size(); uint64(cfg.End) > size {
		cfg.End = VAddr(size)
	}
	if cfg.End > cfg.Start {
		r.cache.Insert(cfg.Start, fillPattern(cfg))
	}
	if r.AfterMemoryFill != nil {
		r.AfterMemoryFill(isSecondFiller)
	}
}

// fillPattern expands the fill value over [Start, End). Widths other than
// 16 and 24 bits fill whole words.
func fillPattern(cfg MemoryFillConfig) []byte {
	data := make([]byte, int(cfg.End-cfg.Start))
	var elem []byte
	switch cfg.FillWidth {
	case MEMORY_FILL_16BIT:
		elem = []byte{byte(cfg.Value), byte(cfg.Value >> 8)}
	case MEMORY_FILL_24BIT:
		elem = []byte{byte(cfg.Value), byte(cfg.Value >> 8), byte(cfg.Value >> 16)}
	default:
		elem = binary.LittleEndian.AppendUint32(nil, cfg.Value)
	}
	for i := range data {
		data[i] = elem[i%len(elem)]
	}
	return data
}

func (r *SoftwareRenderer) DisplayTransfer(cfg DisplayTransferConfig) {
	r.transfers.Add(1)
	if cfg.InputWidth <= 0 || cfg.InputHeight <= 0 {
		return
	}
	if !r.transferFits(cfg) {
		Logger().Warn("display transfer outside guest memory ignored",
			"in", cfg.InputAddress, "out", cfg.OutputAddress,
			"width", cfg.InputWidth, "height", cfg.InputHeight)
		return
	}
	inSize := uint64(cfg.InputWidth * cfg.InputHeight * BYTES_PER_PIXEL)
	r.cache.Flush(cfg.InputAddress, inSize)

	src := image.NewRGBA(image.Rect(0, 0, cfg.InputWidth, cfg.InputHeight))
	r.mem.ReadBlock(cfg.InputAddress, src.Pix)
	if cfg.Flags&DISPLAY_TRANSFER_FLIP_VERTICAL != 0 {
		flipRows(src)
	}

	outW, outH := cfg.OutputSize()
	if outW <= 0 || outH <= 0 {
		return
	}
	out := src
	if outW != cfg.InputWidth || outH != cfg.InputHeight {
		out = image.NewRGBA(image.Rect(0, 0, outW, outH))
		draw.ApproxBiLinear.Scale(out, out.Bounds(), src, src.Bounds(), draw.Src, nil)
	}
	r.cache.Insert(cfg.OutputAddress, out.Pix)
}

// transferFits reports whether both the source and the destination of a
// transfer lie inside guest memory and within the per-side limits.
func (r *SoftwareRenderer) transferFits(cfg DisplayTransferConfig) bool {
	if cfg.InputWidth > GPU_MAX_TRANSFER_WIDTH || cfg.InputHeight > GPU_MAX_TRANSFER_HEIGHT {
		return false
	}
	size := r.mem.Size()
	inside := func(addr VAddr, w, h int) bool {
		return uint64(addr)+uint64(w)*uint64(h)*BYTES_PER_PIXEL <= size
	}
	outW, outH := cfg.OutputSize()
	return inside(cfg.InputAddress, cfg.InputWidth, cfg.InputHeight) &&
		inside(cfg.OutputAddress, outW, outH)
}

func flipRows(img *image.RGBA) {
	h := img.Bounds().Dy()
	row := make([]byte, img.Stride)
	for y := 0; y < h/2; y++ {
		top := img.Pix[y*img.Stride : (y+1)*img.Stride]
		bot := img.Pix[(h-1-y)*img.Stride : (h-y)*img.Stride]
		copy(row, top)
		copy(top, bot)
		copy(bot, row)
	}
}

func (r *SoftwareRenderer) FlushRegion(addr VAddr, size uint64) {
	r.flushes.Add(1)
	r.cache.Flush(addr, size)
}

func (r *SoftwareRenderer) InvalidateRegion(addr VAddr, size uint64) {
	r.invalidations.Add(1)
	r.cache.Invalidate(addr, size)
}

func (r *SoftwareRenderer) FlushAndInvalidateRegion(addr VAddr, size uint64) {
	r.flushes.Add(1)
	r.invalidations.Add(1)
	r.cache.FlushAndInvalidate(addr, size)
}

func (r *SoftwareRenderer) SwapBuffers() {
	r.swaps.Add(1)
	s := r.settings.Get()

	// Scan-out reads guest memory, so pending GPU writes to it land first
	for i, addr := range guestFramebuffers {
		r.cache.Flush(addr, GuestFramebufferSize(i))
		r.mem.ReadBlock(addr, r.scanout[i].Pix)
	}

	f := r.mailbox.GetRenderFrame()
	if f == nil {
		return
	}
	if !f.PresentFence.Wait(SOFTWARE_PRESENT_FENCE_TIMEOUT) {
		Logger().Debug("present fence timed out, reusing frame", "frame", f.Index())
	}
	f.PresentFence = nil
	f.RenderFence = nil

	scale := r.scaleFactor()
	if f.ResScale != scale {
		r.mailbox.ReloadRenderFrame(f, scale)
	}

	scaler := ScaleMode(s.LinearFilter)
	for i, src := range r.scanout {
		dst := f.Screens[i]
		if scale == 1 {
			copy(dst.Pix, src.Pix)
			continue
		}
		scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	}

	if req := r.screenshot.take(); req != nil {
		r.screenshots.Add(1)
		img := ComposeFrame(nil, f, req.Layout, BackgroundRGBA(s.BackgroundColor), scaler)
		if req.Callback != nil {
			req.Callback(img)
		}
	}

	r.frameCount++
	f.Sequence = r.frameCount
	// Software frames are complete at release
	f.RenderFence = NewFrameFence()
	f.RenderFence.Signal()
	r.mailbox.ReleaseRenderFrame(f)

	r.perf.EndFrame()
	r.limiter.Wait(s.FrameLimit)
}

func (r *SoftwareRenderer) scaleFactor() uint16 {
	if r.ScaleFactor == nil {
		return 1
	}
	scale := r.ScaleFactor()
	if scale == 0 {
		return 1
	}
	return min(scale, SCREEN_MAX_RESOLUTION_SCALE)
}

// RequestScreenshot schedules a capture of the next swapped frame. It
// reports false when a capture is already pending.
func (r *SoftwareRenderer) RequestScreenshot(req ScreenshotRequest) bool {
	return r.screenshot.request(req)
}

func (r *SoftwareRenderer) ScreenshotPending() bool {
	return r.screenshot.isPending()
}

func (r *SoftwareRenderer) Perf() PerfSnapshot {
	return r.perf.Snapshot()
}

func (r *SoftwareRenderer) Stats() SoftwareRendererStats {
	return SoftwareRendererStats{
		Lists:         r.lists.Load(),
		Words:         r.words.Load(),
		Fills:         r.fills.Load(),
		Transfers:     r.transfers.Load(),
		Flushes:       r.flushes.Load(),
		Invalidations: r.invalidations.Load(),
		Swaps:         r.swaps.Load(),
		Screenshots:   r.screenshots.Load(),
	}
}

// CachedSurfaces reports the surface cache size. Renderer thread only.
func (r *SoftwareRenderer) CachedSurfaces() int {
	return r.cache.Len()
}

var _ GPURenderer = (*SoftwareRenderer)(nil)
