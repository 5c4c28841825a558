// gpu_constants.go - Constants for the asynchronous GPU core

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

import "time"

// Command synchronization
const (
	// The worker wakes fence waiters once the producer is at most this many
	// commands ahead. Empirical.
	GPU_SYNC_MAX_QUEUE_GAP = 5

	// Initial ring capacity of the command queue. The queue grows on demand.
	GPU_COMMAND_QUEUE_INITIAL_CAPACITY = 256

	GPU_THREAD_NAME = "GpuThread"
)

// Frame mailbox
const (
	FRAME_SWAP_CHAIN_SIZE     = 4
	FRAME_SWAP_CHAIN_MIN_SIZE = 3

	FRAME_DEFAULT_PRESENT_TIMEOUT = 16 * time.Millisecond
)

// Screen indices inside a Frame
const (
	SCREEN_TOP_LEFT = iota
	SCREEN_TOP_RIGHT
	SCREEN_BOTTOM
	SCREEN_COUNT
)

// Native screen geometry at resolution scale 1
const (
	SCREEN_TOP_WIDTH     = 400
	SCREEN_TOP_HEIGHT    = 240
	SCREEN_BOTTOM_WIDTH  = 320
	SCREEN_BOTTOM_HEIGHT = 240

	SCREEN_MAX_RESOLUTION_SCALE = 10
)

// Memory fill widths (bits per fill element)
const (
	MEMORY_FILL_16BIT = 16
	MEMORY_FILL_24BIT = 24
	MEMORY_FILL_32BIT = 32
)

// Display transfer flags
const (
	DISPLAY_TRANSFER_FLIP_VERTICAL = 1 << 0
	DISPLAY_TRANSFER_SCALE_DOWN_2X = 1 << 1

	// Largest transfer accepted per side, in pixels
	GPU_MAX_TRANSFER_WIDTH  = 4096
	GPU_MAX_TRANSFER_HEIGHT = 4096
)

const (
	BYTES_PER_PIXEL = 4

	// Size of the software renderer's register file (words).
	GPU_REGISTER_COUNT = 0x300

	DEFAULT_GUEST_MEMORY_SIZE = 16 * 1024 * 1024
)

// Guest framebuffer addresses scanned out on swap (one RGBA8 buffer per screen)
const (
	GUEST_FB_TOP_LEFT  = 0x00100000
	GUEST_FB_TOP_RIGHT = 0x00180000
	GUEST_FB_BOTTOM    = 0x00200000
)
