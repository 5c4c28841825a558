// runtime_status.go - Live pipeline counters for the status bar

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

import "sync"

type runtimeStatusSnapshot struct {
	core      *VideoCore
	presenter *FramePresenter
}

// pipelineStatus is what the status bar draws.
type pipelineStatus struct {
	Async     bool
	Thread    GPUThreadStats
	Renderer  SoftwareRendererStats
	Perf      PerfSnapshot
	Presenter PresenterStats
	Dropped   uint64
	Scale     uint16
	Device    string
}

type runtimeStatusStore struct {
	mu sync.RWMutex
	runtimeStatusSnapshot
}

func (s *runtimeStatusStore) setPipeline(core *VideoCore, presenter *FramePresenter) {
	s.mu.Lock()
	s.core = core
	s.presenter = presenter
	s.mu.Unlock()
}

func (s *runtimeStatusStore) snapshot() runtimeStatusSnapshot {
	s.mu.RLock()
	snap := s.runtimeStatusSnapshot
	s.mu.RUnlock()
	return snap
}

// pipeline gathers the counters. ok is false until a core is registered.
func (s *runtimeStatusStore) pipeline() (pipelineStatus, bool) {
	snap := s.snapshot()
	if snap.core == nil || snap.core.Renderer() == nil {
		return pipelineStatus{}, false
	}
	st := pipelineStatus{
		Async:    snap.core.Async(),
		Renderer: snap.core.Renderer().Stats(),
		Perf:     snap.core.Renderer().Perf(),
		Dropped:  snap.core.Mailbox().Dropped(),
		Scale:    snap.core.ResolutionScaleFactor(),
		Device:   snap.core.Host().Name,
	}
	st.Thread, _ = snap.core.ThreadStats()
	if snap.presenter != nil {
		st.Presenter = snap.presenter.Stats()
	}
	return st, true
}

var runtimeStatus = &runtimeStatusStore{}
