//go:build linux

package backend

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const maxCUDADevices = 16

// cudaDeviceCount counts NVIDIA device nodes the process can open. The
// control node must be accessible for any device to count.
func cudaDeviceCount() int {
	if !accessible("/dev/nvidiactl") {
		return 0
	}
	n := 0
	for i := 0; i < maxCUDADevices; i++ {
		if !accessible(fmt.Sprintf("/dev/nvidia%d", i)) {
			break
		}
		n++
	}
	return n
}

func accessible(path string) bool {
	return unix.Access(path, unix.R_OK|unix.W_OK) == nil
}
