package backend

import (
	"os"
	"strings"
)

// Detect returns the number of accelerator devices this process may use.
var Detect = func() int {
	visible, set := os.LookupEnv("CUDA_VISIBLE_DEVICES")
	return visibleDevices(cudaDeviceCount(), visible, set)
}

// Available returns a comma-separated list of available backends.
func Available() string {
	entries := []string{CPU}
	if Detect() > 0 {
		entries = append(entries, CUDA)
	}
	return strings.Join(entries, ",")
}

// visibleDevices caps the probed device count by CUDA_VISIBLE_DEVICES.
// An unset variable leaves the count alone; an empty value or -1 hides all.
func visibleDevices(probed int, visible string, set bool) int {
	if !set {
		return probed
	}
	visible = strings.TrimSpace(visible)
	if visible == "" || strings.HasPrefix(visible, "-1") {
		return 0
	}
	n := 0
	for _, id := range strings.Split(visible, ",") {
		if strings.TrimSpace(id) == "-1" {
			break
		}
		n++
	}
	return min(probed, n)
}
