//go:build linux

package ptask

import "golang.org/x/sys/unix"

// setFIFO moves the calling OS thread to SCHED_FIFO at the given priority.
// The caller must have locked its goroutine to the thread.
func setFIFO(priority int) error {
	attr := unix.SchedAttr{
		Size:     unix.SizeofSchedAttr,
		Policy:   unix.SCHED_FIFO,
		Priority: uint32(priority),
	}
	return unix.SchedSetAttr(0, &attr, 0)
}
