// gpu_frontend.go - Serial and threaded GPU front-ends

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

// GPUFrontend is what the emulated core calls. GPUThreadManager queues work
// for the GPU thread; SerialGPU runs it on the caller's thread.
type GPUFrontend interface {
	SubmitList(list []uint32)
	SwapBuffers()
	MemoryFill(cfg MemoryFillConfig, isSecondFiller bool)
	DisplayTransfer(cfg DisplayTransferConfig)
	FlushRegion(addr VAddr, size uint64)
	InvalidateRegion(addr VAddr, size uint64)
	FlushAndInvalidateRegion(addr VAddr, size uint64)
	Synchronize()
	Close() error
}

// SerialGPU executes every command in place. Used when asynchronous GPU
// emulation is disabled.
type SerialGPU struct {
	renderer GPURenderer
}

func NewSerialGPU(renderer GPURenderer) *SerialGPU {
	return &SerialGPU{renderer: renderer}
}

func (g *SerialGPU) SubmitList(list []uint32) {
	if len(list) == 0 {
		return
	}
	g.renderer.ProcessCommandList(list)
}

func (g *SerialGPU) SwapBuffers() { g.renderer.SwapBuffers() }

func (g *SerialGPU) MemoryFill(cfg MemoryFillConfig, isSecondFiller bool) {
	g.renderer.MemoryFill(cfg, isSecondFiller)
}

func (g *SerialGPU) DisplayTransfer(cfg DisplayTransferConfig) { g.renderer.DisplayTransfer(cfg) }

func (g *SerialGPU) FlushRegion(addr VAddr, size uint64) { g.renderer.FlushRegion(addr, size) }

func (g *SerialGPU) InvalidateRegion(addr VAddr, size uint64) {
	g.renderer.InvalidateRegion(addr, size)
}

func (g *SerialGPU) FlushAndInvalidateRegion(addr VAddr, size uint64) {
	g.renderer.FlushAndInvalidateRegion(addr, size)
}

func (g *SerialGPU) Synchronize() {}

func (g *SerialGPU) Close() error { return nil }

var (
	_ GPUFrontend = (*SerialGPU)(nil)
	_ GPUFrontend = (*GPUThreadManager)(nil)
)
