// script_host.go - Lua producer harness for the GPU core

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
script_host.go - Script Host

Stands in for the emulated CPU core: a Lua script drives the GPU front-end
from a single producer goroutine, exactly the way a core would.

Lua API:

	gpu.submit_list({words...})
	gpu.swap()
	gpu.fill(start, end, value [, width=32 [, second=false]])
	gpu.transfer(in, out, width, height [, flags])
	gpu.flush(addr, size)      gpu.invalidate(addr, size)      gpu.flush_invalidate(addr, size)
	gpu.sync()                 gpu.frames() -> n               gpu.running() -> bool
	gpu.screen(i) -> addr, width, height
	gpu.FLIP, gpu.SCALE_DOWN   display transfer flags
	mem.read32(addr) -> value  mem.write32(addr, value)
*/

package main

import (
	"context"
	_ "embed"
	"fmt"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

//go:embed scripts/demo.lua
var demoScript string

type ScriptHost struct {
	core      *VideoCore
	maxFrames int
	frames    atomic.Int64
	ctx       context.Context
}

// NewScriptHost binds a host to core. maxFrames of zero runs until the
// context is cancelled.
func NewScriptHost(core *VideoCore, maxFrames int) *ScriptHost {
	return &ScriptHost{core: core, maxFrames: maxFrames}
}

// Frames reports how many swaps the script has issued.
func (h *ScriptHost) Frames() int {
	return int(h.frames.Load())
}

// RunFile executes a script file, or the built-in demo when path is empty.
func (h *ScriptHost) RunFile(ctx context.Context, path string) error {
	if path == "" {
		return h.Run(ctx, "demo.lua", demoScript)
	}
	return h.run(ctx, path, func(L *lua.LState) error { return L.DoFile(path) })
}

// Run executes source as a script named name.
func (h *ScriptHost) Run(ctx context.Context, name, source string) error {
	return h.run(ctx, name, func(L *lua.LState) error { return L.DoString(source) })
}

func (h *ScriptHost) run(ctx context.Context, name string, exec func(*lua.LState) error) error {
	h.ctx = ctx
	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)
	h.register(L)

	Logger().Info("script started", "script", name, "session", h.core.Session())
	err := exec(L)
	if err != nil && ctx.Err() != nil {
		// Cancelled from outside, not a script failure
		err = nil
	}
	Logger().Info("script finished", "script", name, "frames", h.Frames())
	if err != nil {
		return fmt.Errorf("script %s: %w", name, err)
	}
	return nil
}

func (h *ScriptHost) running() bool {
	if h.ctx != nil && h.ctx.Err() != nil {
		return false
	}
	return h.maxFrames <= 0 || h.Frames() < h.maxFrames
}

func (h *ScriptHost) register(L *lua.LState) {
	gpu := h.core.GPU()

	gpuTable := L.NewTable()
	L.SetFuncs(gpuTable, map[string]lua.LGFunction{
		"submit_list": func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			list := make([]uint32, 0, tbl.Len())
			tbl.ForEach(func(_, v lua.LValue) {
				if n, ok := v.(lua.LNumber); ok {
					list = append(list, uint32(int64(n)))
				}
			})
			gpu.SubmitList(list)
			return 0
		},
		"swap": func(L *lua.LState) int {
			gpu.SwapBuffers()
			h.frames.Add(1)
			return 0
		},
		"fill": func(L *lua.LState) int {
			gpu.MemoryFill(MemoryFillConfig{
				Start:     VAddr(L.CheckInt64(1)),
				End:       VAddr(L.CheckInt64(2)),
				Value:     uint32(L.CheckInt64(3)),
				FillWidth: L.OptInt(4, MEMORY_FILL_32BIT),
			}, L.OptBool(5, false))
			return 0
		},
		"transfer": func(L *lua.LState) int {
			gpu.DisplayTransfer(DisplayTransferConfig{
				InputAddress:  VAddr(L.CheckInt64(1)),
				OutputAddress: VAddr(L.CheckInt64(2)),
				InputWidth:    L.CheckInt(3),
				InputHeight:   L.CheckInt(4),
				Flags:         uint32(L.OptInt64(5, 0)),
			})
			return 0
		},
		"flush": func(L *lua.LState) int {
			gpu.FlushRegion(VAddr(L.CheckInt64(1)), uint64(L.CheckInt64(2)))
			return 0
		},
		"invalidate": func(L *lua.LState) int {
			gpu.InvalidateRegion(VAddr(L.CheckInt64(1)), uint64(L.CheckInt64(2)))
			return 0
		},
		"flush_invalidate": func(L *lua.LState) int {
			gpu.FlushAndInvalidateRegion(VAddr(L.CheckInt64(1)), uint64(L.CheckInt64(2)))
			return 0
		},
		"sync": func(L *lua.LState) int {
			gpu.Synchronize()
			return 0
		},
		"frames": func(L *lua.LState) int {
			L.Push(lua.LNumber(h.Frames()))
			return 1
		},
		"running": func(L *lua.LState) int {
			L.Push(lua.LBool(h.running()))
			return 1
		},
		"screen": func(L *lua.LState) int {
			i := L.CheckInt(1)
			if i < 0 || i >= SCREEN_COUNT {
				L.ArgError(1, "screen index out of range")
				return 0
			}
			w, hgt := ScreenBaseSize(i)
			L.Push(lua.LNumber(GuestFramebufferAddress(i)))
			L.Push(lua.LNumber(w))
			L.Push(lua.LNumber(hgt))
			return 3
		},
	})
	gpuTable.RawSetString("FLIP", lua.LNumber(DISPLAY_TRANSFER_FLIP_VERTICAL))
	gpuTable.RawSetString("SCALE_DOWN", lua.LNumber(DISPLAY_TRANSFER_SCALE_DOWN_2X))
	L.SetGlobal("gpu", gpuTable)

	memTable := L.NewTable()
	L.SetFuncs(memTable, map[string]lua.LGFunction{
		"read32": func(L *lua.LState) int {
			L.Push(lua.LNumber(h.core.Memory().Read32(VAddr(L.CheckInt64(1)))))
			return 1
		},
		"write32": func(L *lua.LState) int {
			h.core.Memory().Write32(VAddr(L.CheckInt64(1)), uint32(L.CheckInt64(2)))
			return 0
		},
	})
	L.SetGlobal("mem", memTable)
}
