//go:build darwin

package eventsource

import "syscall"

// createWakeFD creates a self-pipe used to wake a goroutine blocked in
// poll/wait. Adapted from the teacher's wakeup_darwin.go createWakeFd
// (Darwin has no eventfd, so a non-blocking pipe stands in for one).
func createWakeFD() (readFD, writeFD int, err error) {
	var fds [2]int
	if err := syscall.Pipe(fds[:]); err != nil {
		return -1, -1, err
	}
	syscall.CloseOnExec(fds[0])
	syscall.CloseOnExec(fds[1])
	if err := syscall.SetNonblock(fds[0], true); err != nil {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
		return -1, -1, err
	}
	if err := syscall.SetNonblock(fds[1], true); err != nil {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
		return -1, -1, err
	}
	return fds[0], fds[1], nil
}

func closeWakeFD(readFD, writeFD int) {
	if readFD >= 0 {
		_ = syscall.Close(readFD)
	}
	if writeFD >= 0 && writeFD != readFD {
		_ = syscall.Close(writeFD)
	}
}

func signalWakeFD(writeFD int) error {
	_, err := syscall.Write(writeFD, []byte{1})
	if err == syscall.EAGAIN {
		return nil
	}
	return err
}

func drainWakeFD(readFD int) {
	var buf [64]byte
	for {
		_, err := syscall.Read(readFD, buf[:])
		if err != nil {
			return
		}
	}
}
