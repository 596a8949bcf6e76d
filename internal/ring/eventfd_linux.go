//go:build linux

package ring

import "golang.org/x/sys/unix"

func eventfdCreate() int {
	fd, err := unix.Eventfd(0, unix.EFD_SEMAPHORE|unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return -1
	}
	return fd
}

func eventfdBump(fd int) {
	if fd < 0 {
		return
	}
	var one [8]byte
	one[7] = 1
	_, _ = unix.Write(fd, one[:])
}

func eventfdDrain(fd int) {
	if fd < 0 {
		return
	}
	var buf [8]byte
	_, _ = unix.Read(fd, buf[:])
}

func eventfdClose(fd int) error {
	if fd < 0 {
		return nil
	}
	return unix.Close(fd)
}
