// video_core.go - Session-owned video core

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
video_core.go - Video Core

Owns everything one emulation session needs on the GPU side: guest memory,
the frame mailbox, the renderer and the front-end the emulated core calls.

Init decides once whether commands run on a dedicated GPU thread or in place
on the caller's thread. The choice holds for the session lifetime.

Guest-visible registers (GPU_IO_BASE):

	0x00 FILL_START   0x04 FILL_END    0x08 FILL_VALUE   0x0C FILL_CONTROL (write starts fill)
	0x10 XFER_IN      0x14 XFER_OUT    0x18 XFER_SIZE    0x1C XFER_FLAGS   0x20 XFER_TRIGGER
	0x24 LIST_ADDR    0x28 LIST_WORDS  0x2C LIST_TRIGGER
	0x30 SWAP
	0x34 FLUSH_ADDR   0x38 FLUSH_SIZE  0x3C FLUSH_CONTROL (bit0 flush, bit1 invalidate)
	0x40 FENCE (ro)   0x44 IRQ_STATUS (write 1 to clear)

FENCE reads the low 32 bits of the last signaled fence and wraps. Fills are
clipped to guest RAM. Transfers that leave guest RAM are ignored.
*/

package main

import (
	"encoding/binary"
	"image"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const (
	GPU_IO_BASE = 0x00F00000

	GPU_REG_FILL_START    = 0x00
	GPU_REG_FILL_END      = 0x04
	GPU_REG_FILL_VALUE    = 0x08
	GPU_REG_FILL_CONTROL  = 0x0C
	GPU_REG_XFER_IN       = 0x10
	GPU_REG_XFER_OUT      = 0x14
	GPU_REG_XFER_SIZE     = 0x18
	GPU_REG_XFER_FLAGS    = 0x1C
	GPU_REG_XFER_TRIGGER  = 0x20
	GPU_REG_LIST_ADDR     = 0x24
	GPU_REG_LIST_WORDS    = 0x28
	GPU_REG_LIST_TRIGGER  = 0x2C
	GPU_REG_SWAP          = 0x30
	GPU_REG_FLUSH_ADDR    = 0x34
	GPU_REG_FLUSH_SIZE    = 0x38
	GPU_REG_FLUSH_CONTROL = 0x3C
	GPU_REG_FENCE         = 0x40 // low 32 bits of the signaled fence, wraps
	GPU_REG_IRQ_STATUS    = 0x44
	GPU_REG_WINDOW        = 0x48

	// Register bit fields
	GPU_FILL_WIDTH_MASK  = 0x3 // 0: 16-bit, 1: 24-bit, 2: 32-bit
	GPU_FILL_SECOND_UNIT = 1 << 8
	GPU_FLUSH_CTRL_FLUSH = 1 << 0
	GPU_FLUSH_CTRL_INVAL = 1 << 1
	GPU_IRQ_PSC0         = 1 << 0
	GPU_IRQ_PSC1         = 1 << 1
	GPU_MAX_LIST_WORDS   = 0x10000
)

type VideoCore struct {
	session  string
	settings *SettingsStore
	memory   *GuestMemory
	mailbox  *FrameMailbox
	renderer *SoftwareRenderer
	gpu      GPUFrontend
	threaded *GPUThreadManager
	host     HostDeviceInfo
	log      *slog.Logger

	regMu sync.Mutex
	regs  [GPU_REG_WINDOW / 4]uint32
	irq   atomic.Uint32

	shutdownOnce sync.Once
}

// NewVideoCore creates an uninitialised core with its own session id.
func NewVideoCore(settings *SettingsStore, memory *GuestMemory) *VideoCore {
	if memory == nil {
		memory = NewGuestMemory(DEFAULT_GUEST_MEMORY_SIZE)
	}
	session := uuid.NewString()
	return &VideoCore{
		session:  session,
		settings: settings,
		memory:   memory,
		log:      Logger().With("session", session),
	}
}

// Init probes the host, builds the renderer and picks the execution mode.
// A failed probe leaves the core unusable and reports why.
func (vc *VideoCore) Init() (ResultStatus, error) {
	s := vc.settings.Get()

	host, status, err := probeHostDevice(s.GraphicsAPI)
	if status != ResultStatusSuccess {
		vc.log.Error("video core init failed", "api", s.GraphicsAPI, "status", status, "err", err)
		return status, err
	}
	vc.host = host

	vc.mailbox = NewFrameMailbox(s.SwapChainSize, vc.ResolutionScaleFactor())
	vc.renderer = NewSoftwareRenderer(vc.memory, vc.mailbox, vc.settings)
	vc.renderer.ScaleFactor = vc.ResolutionScaleFactor
	vc.renderer.AfterMemoryFill = vc.signalFillInterrupt

	if s.AsyncGPU {
		vc.threaded = NewGPUThreadManager(vc.renderer, nil)
		vc.gpu = vc.threaded
	} else {
		vc.gpu = NewSerialGPU(vc.renderer)
	}
	vc.mapRegisters()

	vc.log.Info("video core initialised",
		"api", s.GraphicsAPI,
		"device", host.Name,
		"async", s.AsyncGPU,
		"swap_chain", vc.mailbox.Capacity(),
		"scale", vc.ResolutionScaleFactor())
	return ResultStatusSuccess, nil
}

// Shutdown drains the GPU and releases the presenter. Idempotent.
func (vc *VideoCore) Shutdown() error {
	var err error
	vc.shutdownOnce.Do(func() {
		if vc.gpu != nil {
			err = vc.gpu.Close()
		}
		if vc.mailbox != nil {
			vc.mailbox.Close()
		}
		vc.log.Info("video core shut down")
	})
	return err
}

func (vc *VideoCore) Session() string             { return vc.session }
func (vc *VideoCore) GPU() GPUFrontend            { return vc.gpu }
func (vc *VideoCore) Mailbox() *FrameMailbox      { return vc.mailbox }
func (vc *VideoCore) Renderer() *SoftwareRenderer { return vc.renderer }
func (vc *VideoCore) Memory() *GuestMemory        { return vc.memory }
func (vc *VideoCore) Host() HostDeviceInfo        { return vc.host }
func (vc *VideoCore) Settings() *SettingsStore    { return vc.settings }
func (vc *VideoCore) Async() bool                 { return vc.threaded != nil }

// ThreadStats reports GPU thread counters. ok is false in serial mode.
func (vc *VideoCore) ThreadStats() (GPUThreadStats, bool) {
	if vc.threaded == nil {
		return GPUThreadStats{}, false
	}
	return vc.threaded.Stats(), true
}

// ResolutionScaleFactor is the configured factor, or the display scale
// rounded to a whole number when the factor is 0.
func (vc *VideoCore) ResolutionScaleFactor() uint16 {
	s := vc.settings.Get()
	if s.ResolutionFactor != 0 {
		return s.ResolutionFactor
	}
	scale := math.Round(s.DisplayScale)
	if scale < 1 {
		return 1
	}
	return uint16(min(scale, SCREEN_MAX_RESOLUTION_SCALE))
}

// RequestScreenshot captures the next swapped frame. A request made while
// another is pending is ignored.
func (vc *VideoCore) RequestScreenshot(layout FramebufferLayout, callback func(*image.RGBA)) bool {
	if vc.renderer == nil {
		return false
	}
	if !vc.renderer.RequestScreenshot(ScreenshotRequest{Layout: layout, Callback: callback}) {
		vc.log.Warn("screenshot already requested")
		return false
	}
	return true
}

func (vc *VideoCore) signalFillInterrupt(isSecondFiller bool) {
	bit := uint32(GPU_IRQ_PSC0)
	if isSecondFiller {
		bit = GPU_IRQ_PSC1
	}
	vc.irq.Or(bit)
}

// Interrupts returns the pending interrupt bits.
func (vc *VideoCore) Interrupts() uint32 {
	return vc.irq.Load()
}

func (vc *VideoCore) mapRegisters() {
	vc.memory.MapIO(GPU_IO_BASE, GPU_IO_BASE+GPU_REG_WINDOW-1, vc.readRegister, vc.writeRegister)
}

func (vc *VideoCore) reg(offset uint32) uint32 {
	return vc.regs[offset/4]
}

func (vc *VideoCore) readRegister(addr VAddr) uint32 {
	offset := uint32(addr-GPU_IO_BASE) &^ 3
	switch offset {
	case GPU_REG_FENCE:
		// The fence counter is 64-bit; guests compare the low word modulo 2^32
		if vc.threaded != nil {
			return uint32(vc.threaded.Stats().SignaledFence)
		}
		return uint32(vc.renderer.Stats().Swaps)
	case GPU_REG_IRQ_STATUS:
		return vc.irq.Load()
	}
	vc.regMu.Lock()
	defer vc.regMu.Unlock()
	return vc.reg(offset)
}

// writeRegister latches the value and starts whatever the register
// triggers. It runs without the guest memory lock held, so blocking
// operations are allowed.
func (vc *VideoCore) writeRegister(addr VAddr, value uint32) {
	offset := uint32(addr-GPU_IO_BASE) &^ 3
	if offset == GPU_REG_IRQ_STATUS {
		vc.irq.And(^value)
		return
	}

	vc.regMu.Lock()
	vc.regs[offset/4] = value
	regs := vc.regs
	vc.regMu.Unlock()
	get := func(off uint32) uint32 { return regs[off/4] }

	switch offset {
	case GPU_REG_FILL_CONTROL:
		widths := [...]int{MEMORY_FILL_16BIT, MEMORY_FILL_24BIT, MEMORY_FILL_32BIT, MEMORY_FILL_32BIT}
		vc.gpu.MemoryFill(MemoryFillConfig{
			Start:     VAddr(get(GPU_REG_FILL_START)),
			End:       VAddr(get(GPU_REG_FILL_END)),
			Value:     get(GPU_REG_FILL_VALUE),
			FillWidth: widths[value&GPU_FILL_WIDTH_MASK],
		}, value&GPU_FILL_SECOND_UNIT != 0)
	case GPU_REG_XFER_TRIGGER:
		size := get(GPU_REG_XFER_SIZE)
		vc.gpu.DisplayTransfer(DisplayTransferConfig{
			InputAddress:  VAddr(get(GPU_REG_XFER_IN)),
			OutputAddress: VAddr(get(GPU_REG_XFER_OUT)),
			InputWidth:    int(size & 0xFFFF),
			InputHeight:   int(size >> 16),
			Flags:         get(GPU_REG_XFER_FLAGS),
		})
	case GPU_REG_LIST_TRIGGER:
		vc.gpu.SubmitList(vc.readCommandList(VAddr(get(GPU_REG_LIST_ADDR)), get(GPU_REG_LIST_WORDS)))
	case GPU_REG_SWAP:
		vc.gpu.SwapBuffers()
	case GPU_REG_FLUSH_CONTROL:
		start, size := VAddr(get(GPU_REG_FLUSH_ADDR)), uint64(get(GPU_REG_FLUSH_SIZE))
		switch value & (GPU_FLUSH_CTRL_FLUSH | GPU_FLUSH_CTRL_INVAL) {
		case GPU_FLUSH_CTRL_FLUSH:
			vc.gpu.FlushRegion(start, size)
		case GPU_FLUSH_CTRL_INVAL:
			vc.gpu.InvalidateRegion(start, size)
		case GPU_FLUSH_CTRL_FLUSH | GPU_FLUSH_CTRL_INVAL:
			vc.gpu.FlushAndInvalidateRegion(start, size)
		}
	}
}

// readCommandList snapshots a list from guest memory. Guest RAM is bytes,
// so the GPU gets its own copy of the words.
func (vc *VideoCore) readCommandList(addr VAddr, words uint32) []uint32 {
	words = min(words, GPU_MAX_LIST_WORDS)
	if words == 0 {
		return nil
	}
	raw := make([]byte, words*4)
	vc.memory.ReadBlock(addr, raw)
	list := make([]uint32, words)
	for i := range list {
		list[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return list
}
