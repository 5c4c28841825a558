// video_core_test.go - Session wiring and the guest register window

package main

import (
	"image"
	"sync/atomic"
	"testing"
	"time"
)

func newTestCore(t *testing.T, async bool) *VideoCore {
	t.Helper()
	s := DefaultSettings()
	s.AsyncGPU = async
	s.FrameLimit = 0
	core := NewVideoCore(NewSettingsStore(s), nil)
	status, err := core.Init()
	if status != ResultStatusSuccess || err != nil {
		t.Fatalf("Init: %v %v", status, err)
	}
	t.Cleanup(func() { core.Shutdown() })
	return core
}

func regAddr(offset uint32) VAddr {
	return VAddr(GPU_IO_BASE + offset)
}

func TestVideoCore_InitSelectsMode(t *testing.T) {
	serial := newTestCore(t, false)
	if serial.Async() {
		t.Fatal("serial settings produced a GPU thread")
	}
	if _, ok := serial.GPU().(*SerialGPU); !ok {
		t.Fatalf("serial front-end is %T", serial.GPU())
	}
	if _, ok := serial.ThreadStats(); ok {
		t.Fatal("serial core reported thread stats")
	}

	async := newTestCore(t, true)
	if !async.Async() {
		t.Fatal("async settings ran serially")
	}
	if st, ok := async.ThreadStats(); !ok || st.WorkerState == GPU_WORKER_TERMINATED {
		t.Fatalf("thread stats %+v ok=%v", st, ok)
	}
	if async.Session() == "" || async.Session() == serial.Session() {
		t.Fatal("sessions must have distinct ids")
	}
	if async.Host().Name == "" {
		t.Fatal("host device not recorded")
	}
}

func TestVideoCore_RegisterWindow(t *testing.T) {
	for _, async := range []bool{false, true} {
		core := newTestCore(t, async)
		mem := core.Memory()

		// 32-bit fill by the second unit
		mem.Write32(regAddr(GPU_REG_FILL_START), 0x4000)
		mem.Write32(regAddr(GPU_REG_FILL_END), 0x4010)
		mem.Write32(regAddr(GPU_REG_FILL_VALUE), 0x11223344)
		mem.Write32(regAddr(GPU_REG_FILL_CONTROL), 2|GPU_FILL_SECOND_UNIT)

		// Blocking flush makes the fill visible
		mem.Write32(regAddr(GPU_REG_FLUSH_ADDR), 0x4000)
		mem.Write32(regAddr(GPU_REG_FLUSH_SIZE), 0x10)
		mem.Write32(regAddr(GPU_REG_FLUSH_CONTROL), GPU_FLUSH_CTRL_FLUSH)
		if got := mem.Read32(0x400C); got != 0x11223344 {
			t.Fatalf("async=%v: filled word %08X", async, got)
		}

		if irq := mem.Read32(regAddr(GPU_REG_IRQ_STATUS)); irq != GPU_IRQ_PSC1 {
			t.Fatalf("async=%v: irq %b, want PSC1", async, irq)
		}
		mem.Write32(regAddr(GPU_REG_IRQ_STATUS), GPU_IRQ_PSC1)
		if core.Interrupts() != 0 {
			t.Fatalf("async=%v: irq not cleared", async)
		}

		// Command list: two register writes read out of guest RAM
		mem.Write32(0x5000, 0x20)
		mem.Write32(0x5004, 0xBEEF)
		mem.Write32(0x5008, 0x21)
		mem.Write32(0x500C, 0xF00D)
		mem.Write32(regAddr(GPU_REG_LIST_ADDR), 0x5000)
		mem.Write32(regAddr(GPU_REG_LIST_WORDS), 4)
		mem.Write32(regAddr(GPU_REG_LIST_TRIGGER), 1)

		mem.Write32(regAddr(GPU_REG_SWAP), 1)
		core.GPU().Synchronize()
		if core.Renderer().Register(0x20) != 0xBEEF || core.Renderer().Register(0x21) != 0xF00D {
			t.Fatalf("async=%v: command list not applied", async)
		}

		fence := mem.Read32(regAddr(GPU_REG_FENCE))
		if async && fence != 4 {
			t.Fatalf("fence %d, want 4 (fill, flush, list, swap)", fence)
		}
		if !async && fence != 1 {
			t.Fatalf("serial fence %d, want 1 swap", fence)
		}
		if mem.Read32(regAddr(GPU_REG_FILL_VALUE)) != 0x11223344 {
			t.Fatal("latched register not readable")
		}
		if f := core.Mailbox().TryGetPresentFrame(10 * time.Millisecond); f == nil || f.Sequence != 1 {
			t.Fatalf("async=%v: no frame after swap", async)
		}
	}
}

func TestVideoCore_TransferThroughRegisters(t *testing.T) {
	core := newTestCore(t, true)
	mem := core.Memory()
	for i := 0; i < 4; i++ {
		mem.Write32(VAddr(0x8000+i*4), uint32(i/2+1)) // 2x2, rows 1 and 2
	}
	mem.Write32(regAddr(GPU_REG_XFER_IN), 0x8000)
	mem.Write32(regAddr(GPU_REG_XFER_OUT), 0x9000)
	mem.Write32(regAddr(GPU_REG_XFER_SIZE), 2<<16|2)
	mem.Write32(regAddr(GPU_REG_XFER_FLAGS), DISPLAY_TRANSFER_FLIP_VERTICAL)
	mem.Write32(regAddr(GPU_REG_XFER_TRIGGER), 1)

	mem.Write32(regAddr(GPU_REG_FLUSH_ADDR), 0x9000)
	mem.Write32(regAddr(GPU_REG_FLUSH_SIZE), 16)
	mem.Write32(regAddr(GPU_REG_FLUSH_CONTROL), GPU_FLUSH_CTRL_FLUSH|GPU_FLUSH_CTRL_INVAL)
	if mem.Read32(0x9000) != 2 || mem.Read32(0x9008) != 1 {
		t.Fatalf("transfer output %d %d", mem.Read32(0x9000), mem.Read32(0x9008))
	}
}

func TestVideoCore_ResolutionScaleFactor(t *testing.T) {
	store := NewSettingsStore(DefaultSettings())
	core := NewVideoCore(store, nil)

	store.Update(func(s *Settings) {
		s.ResolutionFactor = 0
		s.DisplayScale = 2.6
	})
	if got := core.ResolutionScaleFactor(); got != 3 {
		t.Fatalf("display scale 2.6 gave factor %d", got)
	}
	store.Update(func(s *Settings) { s.DisplayScale = 0.2 })
	if got := core.ResolutionScaleFactor(); got != 1 {
		t.Fatalf("display scale 0.2 gave factor %d", got)
	}
	store.Update(func(s *Settings) { s.ResolutionFactor = 4 })
	if got := core.ResolutionScaleFactor(); got != 4 {
		t.Fatalf("explicit factor gave %d", got)
	}
}

func TestVideoCore_ScreenshotRequestedOnce(t *testing.T) {
	core := newTestCore(t, true)
	var calls atomic.Int32
	cb := func(*image.RGBA) { calls.Add(1) }

	if !core.RequestScreenshot(DefaultLayout(1), cb) {
		t.Fatal("first request refused")
	}
	if core.RequestScreenshot(DefaultLayout(1), cb) {
		t.Fatal("second request accepted while pending")
	}
	core.GPU().SwapBuffers()
	core.GPU().SwapBuffers()
	if calls.Load() != 1 {
		t.Fatalf("screenshot callback ran %d times", calls.Load())
	}
}

func TestVideoCore_ShutdownIdempotent(t *testing.T) {
	core := newTestCore(t, true)
	core.GPU().InvalidateRegion(0, 4)
	if err := core.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := core.Shutdown(); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
	if !core.Mailbox().Closed() {
		t.Fatal("mailbox left open")
	}
	if st, _ := core.ThreadStats(); st.WorkerState != GPU_WORKER_TERMINATED || st.Executed != 1 {
		t.Fatalf("after shutdown %+v", st)
	}
}

func TestVideoCore_UninitialisedScreenshot(t *testing.T) {
	core := NewVideoCore(NewSettingsStore(DefaultSettings()), nil)
	if core.RequestScreenshot(DefaultLayout(1), nil) {
		t.Fatal("screenshot accepted before Init")
	}
	if err := core.Shutdown(); err != nil {
		t.Fatalf("Shutdown before Init: %v", err)
	}
}

func TestVideoCore_OutOfRangeRegisterCommands(t *testing.T) {
	for _, async := range []bool{false, true} {
		core := newTestCore(t, async)
		mem := core.Memory()

		mem.Write32(regAddr(GPU_REG_FILL_START), 0)
		mem.Write32(regAddr(GPU_REG_FILL_END), 0xFFFFFFF0)
		mem.Write32(regAddr(GPU_REG_FILL_VALUE), 0x01010101)
		mem.Write32(regAddr(GPU_REG_FILL_CONTROL), 2)

		mem.Write32(regAddr(GPU_REG_XFER_IN), 0)
		mem.Write32(regAddr(GPU_REG_XFER_OUT), 0)
		mem.Write32(regAddr(GPU_REG_XFER_SIZE), 0xFFFFFFFF)
		mem.Write32(regAddr(GPU_REG_XFER_TRIGGER), 1)
		core.GPU().Synchronize()

		r := core.Renderer()
		if got := uint64(r.cache.DirtyBytes()); got != mem.Size() {
			t.Fatalf("async=%v: %d dirty bytes cached, guest RAM is %d", async, got, mem.Size())
		}
		if st := r.Stats(); st.Fills != 1 || st.Transfers != 1 {
			t.Fatalf("async=%v: stats %+v", async, st)
		}
	}
}
