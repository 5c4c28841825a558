// runtime_status_test.go - Status bar counters

package main

import "testing"

func TestRuntimeStatus_Pipeline(t *testing.T) {
	store := &runtimeStatusStore{}
	if _, ok := store.pipeline(); ok {
		t.Fatal("pipeline reported before a core was registered")
	}

	core := newTestCore(t, true)
	presenter := NewFramePresenter(NewHeadlessOutput(), core.Mailbox(), core.Settings())
	store.setPipeline(core, presenter)

	core.GPU().SwapBuffers()
	presenter.PresentOnce(0)

	st, ok := store.pipeline()
	if !ok {
		t.Fatal("pipeline missing after registration")
	}
	if !st.Async || st.Thread.LastFence != 1 || st.Renderer.Swaps != 1 {
		t.Fatalf("status %+v", st)
	}
	if st.Presenter.Presented != 1 || st.Scale != 1 || st.Device == "" {
		t.Fatalf("status %+v", st)
	}
}
