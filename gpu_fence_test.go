// gpu_fence_test.go - One-shot frame fences

package main

import (
	"testing"
	"time"
)

func TestFrameFence_SignalReleasesWait(t *testing.T) {
	f := NewFrameFence()
	if f.Signaled() {
		t.Fatal("new fence already signaled")
	}
	go func() {
		time.Sleep(5 * time.Millisecond)
		f.Signal()
	}()
	if !f.Wait(time.Second) {
		t.Fatal("Wait timed out on a signaled fence")
	}
	f.Signal()
	if !f.Signaled() {
		t.Fatal("fence not signaled after Signal")
	}
}

func TestFrameFence_WaitTimesOut(t *testing.T) {
	if NewFrameFence().Wait(5 * time.Millisecond) {
		t.Fatal("Wait reported success on an unsignaled fence")
	}
}

func TestFrameFence_NilIsSignaled(t *testing.T) {
	var f *FrameFence
	f.Signal()
	if !f.Signaled() || !f.Wait(0) {
		t.Fatal("nil fence must behave as signaled")
	}
}
