// gpu_command_queue.go - FIFO command queue between the emulated core and the GPU thread

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

// GPUCommandQueue is an unbounded FIFO for one producer and one consumer.
// Push never blocks. Records are published under the queue mutex, so a pop
// never observes a partially written record.
type GPUCommandQueue struct {
	mu       sync.Mutex
	nonEmpty *sync.Cond
	data     []GPUCommandRecord
	head     int
	count    int
	closed   bool
}

// NewGPUCommandQueue creates an empty queue.
func NewGPUCommandQueue() *GPUCommandQueue {
	q := &GPUCommandQueue{
		data: make([]GPUCommandRecord, GPU_COMMAND_QUEUE_INITIAL_CAPACITY),
	}
	q.nonEmpty = sync.NewCond(&q.mu)
	return q
}

// Push appends a record and wakes the consumer. Records pushed after Close
// are still queued so that nothing submitted is lost.
func (q *GPUCommandQueue) Push(rec GPUCommandRecord) {
	q.mu.Lock()
	if q.count == len(q.data) {
		q.growLocked()
	}
	q.data[(q.head+q.count)%len(q.data)] = rec
	q.count++
	q.mu.Unlock()
	q.nonEmpty.Signal()
}

// Pop removes the oldest record. It returns false when the queue is empty.
func (q *GPUCommandQueue) Pop() (GPUCommandRecord, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return GPUCommandRecord{}, false
	}
	rec := q.data[q.head]
	// Drop the reference so command list views can be collected
	q.data[q.head] = GPUCommandRecord{}
	q.head = (q.head + 1) % len(q.data)
	q.count--
	return rec, true
}

// WaitUntilNonEmpty blocks until a record is available or the queue is
// closed. It returns false only once the queue is both closed and empty.
func (q *GPUCommandQueue) WaitUntilNonEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.count == 0 && !q.closed {
		q.nonEmpty.Wait()
	}
	return q.count > 0
}

// Close releases a consumer blocked in WaitUntilNonEmpty. Idempotent.
func (q *GPUCommandQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.nonEmpty.Broadcast()
}

// Len reports the number of queued records.
func (q *GPUCommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Empty reports whether no records are queued.
func (q *GPUCommandQueue) Empty() bool {
	return q.Len() == 0
}

func (q *GPUCommandQueue) growLocked() {
	grown := make([]GPUCommandRecord, len(q.data)*2)
	for i := 0; i < q.count; i++ {
		grown[i] = q.data[(q.head+i)%len(q.data)]
	}
	q.data = grown
	q.head = 0
}
