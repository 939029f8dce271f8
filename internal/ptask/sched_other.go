//go:build !linux

package ptask

import "errors"

func setFIFO(priority int) error {
	return errors.New("SCHED_FIFO is only available on linux")
}
