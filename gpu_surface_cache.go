// gpu_surface_cache.go - GPU-side copies of guest memory ranges

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
gpu_surface_cache.go - Surface Cache

The renderer keeps GPU results in cached surfaces instead of writing them to
guest memory straight away. A dirty surface holds bytes guest memory has not
seen yet.

	Flush       writes dirty bytes overlapping a range back to guest memory
	Invalidate  forgets every surface overlapping a range
	Insert      adds a new dirty surface, retiring anything it overlaps

The cache belongs to the renderer and is only touched from the renderer's
thread.
*/

package main

type cachedSurface struct {
	addr  VAddr
	data  []byte
	dirty bool
}

func (s *cachedSurface) end() uint64 {
	return uint64(s.addr) + uint64(len(s.data))
}

// overlap returns the byte range of s inside [addr, addr+size), relative to s.
func (s *cachedSurface) overlap(addr VAddr, size uint64) (int, int, bool) {
	lo := max(uint64(s.addr), uint64(addr))
	hi := min(s.end(), uint64(addr)+size)
	if lo >= hi {
		return 0, 0, false
	}
	return int(lo - uint64(s.addr)), int(hi - uint64(s.addr)), true
}

type SurfaceCache struct {
	mem      GuestBus
	surfaces []*cachedSurface
}

func NewSurfaceCache(mem GuestBus) *SurfaceCache {
	return &SurfaceCache{mem: mem}
}

// Insert caches data as a dirty surface at addr. Overlapping surfaces are
// written back whole and dropped first so older bytes never land after newer
// ones.
func (c *SurfaceCache) Insert(addr VAddr, data []byte) {
	if len(data) == 0 {
		return
	}
	size := uint64(len(data))
	for _, s := range c.surfaces {
		if _, _, ok := s.overlap(addr, size); ok && s.dirty {
			c.mem.WriteBlock(s.addr, s.data)
			s.dirty = false
		}
	}
	c.Invalidate(addr, size)
	c.surfaces = append(c.surfaces, &cachedSurface{addr: addr, data: data, dirty: true})
}

// Flush writes the dirty parts of every surface overlapping the range and
// returns the number of bytes written.
func (c *SurfaceCache) Flush(addr VAddr, size uint64) int {
	written := 0
	for _, s := range c.surfaces {
		if !s.dirty {
			continue
		}
		lo, hi, ok := s.overlap(addr, size)
		if !ok {
			continue
		}
		written += c.mem.WriteBlock(s.addr+VAddr(lo), s.data[lo:hi])
		if lo == 0 && hi == len(s.data) {
			s.dirty = false
		}
	}
	return written
}

// Invalidate drops every surface overlapping the range. Unflushed bytes are
// discarded. Returns the number of surfaces removed.
func (c *SurfaceCache) Invalidate(addr VAddr, size uint64) int {
	kept := c.surfaces[:0]
	removed := 0
	for _, s := range c.surfaces {
		if _, _, ok := s.overlap(addr, size); ok {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	clear(c.surfaces[len(kept):])
	c.surfaces = kept
	return removed
}

func (c *SurfaceCache) FlushAndInvalidate(addr VAddr, size uint64) {
	c.Flush(addr, size)
	c.Invalidate(addr, size)
}

// Len reports the number of cached surfaces.
func (c *SurfaceCache) Len() int {
	return len(c.surfaces)
}

// DirtyBytes reports how many cached bytes guest memory has not seen.
func (c *SurfaceCache) DirtyBytes() int {
	n := 0
	for _, s := range c.surfaces {
		if s.dirty {
			n += len(s.data)
		}
	}
	return n
}
