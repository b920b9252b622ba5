//go:build linux

package eventsource

import (
	"golang.org/x/sys/unix"
)

// createWakeFD creates an eventfd used to wake a goroutine blocked in
// poll/wait. Adapted from the teacher's wakeup_linux.go createWakeFd.
func createWakeFD() (readFD, writeFD int, err error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return -1, -1, err
	}
	return fd, fd, nil
}

func closeWakeFD(readFD, writeFD int) {
	if readFD >= 0 {
		_ = unix.Close(readFD)
	}
}

// signalWakeFD writes to the eventfd, waking anyone blocked reading it.
func signalWakeFD(writeFD int) error {
	var buf [8]byte
	buf[7] = 1
	_, err := unix.Write(writeFD, buf[:])
	if err == unix.EAGAIN {
		// Counter already non-zero (a wake is already pending): fine.
		return nil
	}
	return err
}

// drainWakeFD clears a pending wake so the next wait actually blocks.
func drainWakeFD(readFD int) {
	var buf [8]byte
	for {
		_, err := unix.Read(readFD, buf[:])
		if err != nil {
			return
		}
	}
}
