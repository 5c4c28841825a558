// gpu_renderer.go - Host rendering backend contract

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

import "fmt"

// GPURenderer is the host side that realizes emulated GPU commands. Exactly
// one context calls it at a time: the GPU thread when asynchronous emulation
// is enabled, the emulated core otherwise.
type GPURenderer interface {
	ProcessCommandList(list []uint32)
	SwapBuffers()
	MemoryFill(config MemoryFillConfig, isSecondFiller bool)
	DisplayTransfer(config DisplayTransferConfig)
	FlushRegion(addr VAddr, size uint64)
	InvalidateRegion(addr VAddr, size uint64)
	FlushAndInvalidateRegion(addr VAddr, size uint64)
}

// RenderContext is the host windowing layer's per-thread rendering context.
// MakeCurrent binds it to the calling OS thread; DoneCurrent releases it.
type RenderContext interface {
	MakeCurrent()
	DoneCurrent()
}

// nullRenderContext is used when the renderer needs no host context.
type nullRenderContext struct{}

func (nullRenderContext) MakeCurrent() {}
func (nullRenderContext) DoneCurrent() {}

// ResultStatus is the outcome of video core initialization.
type ResultStatus int

const (
	ResultStatusSuccess ResultStatus = iota
	ResultStatusErrorGenericDrivers
	ResultStatusErrorUnsupportedAPI
)

func (s ResultStatus) String() string {
	switch s {
	case ResultStatusSuccess:
		return "Success"
	case ResultStatusErrorGenericDrivers:
		return "ErrorGenericDrivers"
	case ResultStatusErrorUnsupportedAPI:
		return "ErrorUnsupportedAPI"
	}
	return fmt.Sprintf("ResultStatus(%d)", int(s))
}
