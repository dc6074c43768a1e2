//go:build !linux

package backend

func cudaDeviceCount() int {
	return 0
}
