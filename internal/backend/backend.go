package backend

import (
	"fmt"
	"strings"
)

const (
	CPU  = "cpu"
	CUDA = "cuda"
	Auto = "auto"
)

func Normalize(name string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(name))
	if backend == "" {
		return Auto, nil
	}
	switch backend {
	case CPU, CUDA, Auto:
		return backend, nil
	default:
		return "", fmt.Errorf("unknown backend %q (expected auto, cpu, or cuda)", backend)
	}
}

// Select resolves a requested backend name into a load plan given the number
// of accelerator devices visible to the process.
func Select(requested string, devices int) (Plan, error) {
	name, err := Normalize(requested)
	if err != nil {
		return Plan{}, err
	}
	switch name {
	case CPU:
		return FallbackPlan(), nil
	case CUDA:
		if devices < 1 {
			return Plan{}, fmt.Errorf("cuda backend requested but no cuda devices detected")
		}
		return AcceleratedPlan(devices), nil
	default:
		if devices > 0 {
			return AcceleratedPlan(devices), nil
		}
		return FallbackPlan(), nil
	}
}
