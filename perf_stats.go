// perf_stats.go - Frame counters and frame pacing

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
	"sync"
	"time"
)

const (
	PERF_NATIVE_FRAME_RATE = 60
	PERF_FPS_WINDOW        = time.Second
)

// PerfStats counts rendered frames and keeps a rolling FPS figure.
type PerfStats struct {
	mu          sync.Mutex
	frames      uint64
	windowStart time.Time
	windowCount int
	fps         float64
	lastFrame   time.Duration
	frameStart  time.Time
	now         func() time.Time
}

func NewPerfStats() *PerfStats {
	return &PerfStats{now: time.Now}
}

// EndFrame records a finished frame.
func (p *PerfStats) EndFrame() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if !p.frameStart.IsZero() {
		p.lastFrame = now.Sub(p.frameStart)
	}
	p.frameStart = now
	p.frames++

	if p.windowStart.IsZero() {
		p.windowStart = now
	}
	p.windowCount++
	if elapsed := now.Sub(p.windowStart); elapsed >= PERF_FPS_WINDOW {
		p.fps = float64(p.windowCount) / elapsed.Seconds()
		p.windowStart = now
		p.windowCount = 0
	}
}

type PerfSnapshot struct {
	Frames    uint64
	FPS       float64
	FrameTime time.Duration
}

func (p *PerfStats) Snapshot() PerfSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PerfSnapshot{Frames: p.frames, FPS: p.fps, FrameTime: p.lastFrame}
}

// FrameLimiter paces swaps to a percentage of the native frame rate.
type FrameLimiter struct {
	next  time.Time
	now   func() time.Time
	sleep func(time.Duration)
}

func NewFrameLimiter() *FrameLimiter {
	return &FrameLimiter{now: time.Now, sleep: time.Sleep}
}

// FrameInterval returns the frame period for a limit in percent. Zero means
// no limit.
func FrameInterval(percent int) time.Duration {
	if percent <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / (PERF_NATIVE_FRAME_RATE * float64(percent) / 100))
}

// Wait sleeps until the next frame is due. A limiter that fell more than a
// frame behind resynchronises instead of racing to catch up.
func (l *FrameLimiter) Wait(percent int) {
	interval := FrameInterval(percent)
	if interval == 0 {
		l.next = time.Time{}
		return
	}
	now := l.now()
	if l.next.IsZero() || now.Sub(l.next) > interval {
		l.next = now.Add(interval)
		return
	}
	if d := l.next.Sub(now); d > 0 {
		l.sleep(d)
	}
	l.next = l.next.Add(interval)
}
