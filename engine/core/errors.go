package core

import (
	"errors"
)

var (
	// ErrSwapchainBooting is returned while the swapchain is being resized or
	// recreated; the frame is skipped, not failed.
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	// ErrDeviceLost indicates the GPU can no longer make forward progress.
	// Fatal: the frame loop must stop.
	ErrDeviceLost = errors.New("device lost")
)
