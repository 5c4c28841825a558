// gpu_command.go - GPU command records

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
gpu_command.go - Command Records for the GPU Thread

A command is exactly one of seven kinds. The set is closed: GPUCommand has an
unexported method, so only this file can add variants, and every variant
dispatches itself onto GPURenderer. Adding a kind means adding a renderer
method, which breaks every backend until it handles the new kind.

Payload ownership:
- Region descriptors and fill/transfer configs are copied into the command.
- SubmitListCommand keeps a non-owning view of guest command memory. The
  producer must not rewrite that memory before the list has executed. The
  emulated core only reuses a command buffer after a blocking operation (swap
  or flush) has returned, and the queue is strictly FIFO, so the slice is never
  observed half-rewritten.
*/

package main

import "fmt"

// VAddr is an emulated virtual address.
type VAddr uint32

// GPUCommandKind identifies a command variant.
type GPUCommandKind int

const (
	GPU_CMD_SUBMIT_LIST GPUCommandKind = iota
	GPU_CMD_SWAP_BUFFERS
	GPU_CMD_MEMORY_FILL
	GPU_CMD_DISPLAY_TRANSFER
	GPU_CMD_FLUSH_REGION
	GPU_CMD_INVALIDATE_REGION
	GPU_CMD_FLUSH_AND_INVALIDATE_REGION
	GPU_CMD_KIND_COUNT
)

var gpuCommandKindNames = [GPU_CMD_KIND_COUNT]string{
	GPU_CMD_SUBMIT_LIST:                 "SubmitList",
	GPU_CMD_SWAP_BUFFERS:                "SwapBuffers",
	GPU_CMD_MEMORY_FILL:                 "MemoryFill",
	GPU_CMD_DISPLAY_TRANSFER:            "DisplayTransfer",
	GPU_CMD_FLUSH_REGION:                "FlushRegion",
	GPU_CMD_INVALIDATE_REGION:           "InvalidateRegion",
	GPU_CMD_FLUSH_AND_INVALIDATE_REGION: "FlushAndInvalidateRegion",
}

func (k GPUCommandKind) String() string {
	if k < 0 || k >= GPU_CMD_KIND_COUNT {
		return fmt.Sprintf("GPUCommandKind(%d)", int(k))
	}
	return gpuCommandKindNames[k]
}

// MemoryFillConfig describes one fill engine operation. Fill covers [Start, End).
type MemoryFillConfig struct {
	Start     VAddr
	End       VAddr
	Value     uint32
	FillWidth int // MEMORY_FILL_16BIT, MEMORY_FILL_24BIT or MEMORY_FILL_32BIT
}

// DisplayTransferConfig describes a copy between two RGBA8 guest buffers.
type DisplayTransferConfig struct {
	InputAddress  VAddr
	OutputAddress VAddr
	InputWidth    int
	InputHeight   int
	Flags         uint32 // DISPLAY_TRANSFER_* bits
}

// OutputSize returns the destination dimensions after scaling flags are applied.
func (c DisplayTransferConfig) OutputSize() (int, int) {
	if c.Flags&DISPLAY_TRANSFER_SCALE_DOWN_2X != 0 {
		return c.InputWidth / 2, c.InputHeight / 2
	}
	return c.InputWidth, c.InputHeight
}

// GPUCommand is the closed set of commands executed by the GPU thread.
type GPUCommand interface {
	Kind() GPUCommandKind
	execute(r GPURenderer)
}

type SubmitListCommand struct {
	List []uint32
}

type SwapBuffersCommand struct{}

type MemoryFillCommand struct {
	Config         MemoryFillConfig
	IsSecondFiller bool
}

type DisplayTransferCommand struct {
	Config DisplayTransferConfig
}

type FlushRegionCommand struct {
	Addr VAddr
	Size uint64
}

type InvalidateRegionCommand struct {
	Addr VAddr
	Size uint64
}

type FlushAndInvalidateRegionCommand struct {
	Addr VAddr
	Size uint64
}

func (SubmitListCommand) Kind() GPUCommandKind               { return GPU_CMD_SUBMIT_LIST }
func (SwapBuffersCommand) Kind() GPUCommandKind              { return GPU_CMD_SWAP_BUFFERS }
func (MemoryFillCommand) Kind() GPUCommandKind               { return GPU_CMD_MEMORY_FILL }
func (DisplayTransferCommand) Kind() GPUCommandKind          { return GPU_CMD_DISPLAY_TRANSFER }
func (FlushRegionCommand) Kind() GPUCommandKind              { return GPU_CMD_FLUSH_REGION }
func (InvalidateRegionCommand) Kind() GPUCommandKind         { return GPU_CMD_INVALIDATE_REGION }
func (FlushAndInvalidateRegionCommand) Kind() GPUCommandKind { return GPU_CMD_FLUSH_AND_INVALIDATE_REGION }

func (c SubmitListCommand) execute(r GPURenderer)      { r.ProcessCommandList(c.List) }
func (SwapBuffersCommand) execute(r GPURenderer)       { r.SwapBuffers() }
func (c MemoryFillCommand) execute(r GPURenderer)      { r.MemoryFill(c.Config, c.IsSecondFiller) }
func (c DisplayTransferCommand) execute(r GPURenderer) { r.DisplayTransfer(c.Config) }
func (c FlushRegionCommand) execute(r GPURenderer)     { r.FlushRegion(c.Addr, c.Size) }
func (c InvalidateRegionCommand) execute(r GPURenderer) {
	r.InvalidateRegion(c.Addr, c.Size)
}
func (c FlushAndInvalidateRegionCommand) execute(r GPURenderer) {
	r.FlushAndInvalidateRegion(c.Addr, c.Size)
}

// GPUCommandRecord is a queued command tagged with its fence.
type GPUCommandRecord struct {
	Command GPUCommand
	Fence   uint64
}

// executeGPUCommand runs one command against the renderer. A nil command can
// only come from a corrupted record and is fatal.
func executeGPUCommand(cmd GPUCommand, r GPURenderer) {
	if cmd == nil {
		panic("gpu: unreachable command variant (nil)")
	}
	cmd.execute(r)
}
