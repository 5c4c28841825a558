// guest_memory.go - Guest memory for the GPU core

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
guest_memory.go - Guest Memory for the Intuition GPU Core

Flat little-endian guest RAM shared by the emulated core (producer side) and
the renderer (GPU thread). Addresses are guest virtual addresses; anything
outside the backing store reads as zero and ignores writes.

Core Features:

    16MB of guest memory allocated as a contiguous block.
    Memory-mapped I/O regions with read/write callbacks, looked up by page.
    32-bit word access plus block copies used by the renderer for flushes and scan-out.
    Reset clears the whole store.

Concurrency:

    A sync.RWMutex protects the store. I/O callbacks are invoked with the lock
    released, so a callback may submit GPU work that itself touches guest memory.
*/

package main

import (
	"encoding/binary"
	"sync"
)

const (
	GUEST_PAGE_SIZE = 0x100
	GUEST_PAGE_MASK = ^uint32(GUEST_PAGE_SIZE - 1)
	GUEST_WORD_SIZE = 4
)

type GuestBus interface {
	Read32(addr VAddr) uint32
	Write32(addr VAddr, value uint32)
	ReadBlock(addr VAddr, dst []byte) int
	WriteBlock(addr VAddr, src []byte) int
	Size() uint64
}

type GuestMemory struct {
	memory  []byte
	mutex   sync.RWMutex
	mapping map[uint32][]GuestIORegion
}

type GuestIORegion struct {
	/*
		GuestIORegion is an inclusive address range whose accesses are
		routed to callbacks. A nil onRead falls back to plain memory.
	*/
	start   VAddr
	end     VAddr
	onRead  func(addr VAddr) uint32
	onWrite func(addr VAddr, value uint32)
}

func NewGuestMemory(size int) *GuestMemory {
	if size <= 0 {
		size = DEFAULT_GUEST_MEMORY_SIZE
	}
	return &GuestMemory{
		memory:  make([]byte, size),
		mapping: make(map[uint32][]GuestIORegion),
	}
}

func (mem *GuestMemory) MapIO(start, end VAddr, onRead func(addr VAddr) uint32, onWrite func(addr VAddr, value uint32)) {
	/*
		MapIO registers a region for every page it touches. Lookups only
		scan the regions of the accessed page.
	*/

	mem.mutex.Lock()
	defer mem.mutex.Unlock()

	region := GuestIORegion{start: start, end: end, onRead: onRead, onWrite: onWrite}
	firstPage := uint32(start) & GUEST_PAGE_MASK
	lastPage := uint32(end) & GUEST_PAGE_MASK
	for page := firstPage; page <= lastPage; page += GUEST_PAGE_SIZE {
		mem.mapping[page] = append(mem.mapping[page], region)
		if page+GUEST_PAGE_SIZE < page {
			break
		}
	}
}

func (mem *GuestMemory) regionFor(addr VAddr) (GuestIORegion, bool) {
	mem.mutex.RLock()
	defer mem.mutex.RUnlock()
	for _, region := range mem.mapping[uint32(addr)&GUEST_PAGE_MASK] {
		if addr >= region.start && addr <= region.end {
			return region, true
		}
	}
	return GuestIORegion{}, false
}

func (mem *GuestMemory) inRange(addr VAddr, n int) bool {
	return uint64(addr)+uint64(n) <= uint64(len(mem.memory))
}

func (mem *GuestMemory) Write32(addr VAddr, value uint32) {
	/*
		Write32 stores a little-endian word. When the address belongs to an
		I/O region the value is stored first and the onWrite callback runs
		afterwards, outside the lock.
	*/

	region, isIO := mem.regionFor(addr)

	mem.mutex.Lock()
	if mem.inRange(addr, GUEST_WORD_SIZE) {
		binary.LittleEndian.PutUint32(mem.memory[addr:addr+GUEST_WORD_SIZE], value)
	}
	mem.mutex.Unlock()

	if isIO && region.onWrite != nil {
		region.onWrite(addr, value)
	}
}

func (mem *GuestMemory) Read32(addr VAddr) uint32 {
	if region, isIO := mem.regionFor(addr); isIO && region.onRead != nil {
		return region.onRead(addr)
	}

	mem.mutex.RLock()
	defer mem.mutex.RUnlock()
	if !mem.inRange(addr, GUEST_WORD_SIZE) {
		return 0
	}
	return binary.LittleEndian.Uint32(mem.memory[addr : addr+GUEST_WORD_SIZE])
}

// ReadBlock copies guest memory at addr into dst and returns the number of
// bytes that were inside the store. Bytes past the end are zeroed.
func (mem *GuestMemory) ReadBlock(addr VAddr, dst []byte) int {
	mem.mutex.RLock()
	defer mem.mutex.RUnlock()
	n := 0
	if int(addr) < len(mem.memory) {
		n = copy(dst, mem.memory[addr:])
	}
	clear(dst[n:])
	return n
}

// WriteBlock copies src into guest memory at addr, clipped to the store.
func (mem *GuestMemory) WriteBlock(addr VAddr, src []byte) int {
	mem.mutex.Lock()
	defer mem.mutex.Unlock()
	if int(addr) >= len(mem.memory) {
		return 0
	}
	return copy(mem.memory[addr:], src)
}

func (mem *GuestMemory) Size() uint64 {
	return uint64(len(mem.memory))
}

func (mem *GuestMemory) Reset() {
	mem.mutex.Lock()
	defer mem.mutex.Unlock()
	clear(mem.memory)
}
