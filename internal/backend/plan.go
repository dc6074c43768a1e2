package backend

import (
	"fmt"
	"strings"
)

const (
	DTypeFloat32  = "float32"
	DTypeBFloat16 = "bfloat16"

	QuantNF4 = "nf4"

	DeviceMapAuto = "auto"
)

// Quantization describes how weights are compressed when they are loaded
// onto an accelerator.
type Quantization struct {
	Bits         int
	Type         string
	DoubleQuant  bool
	ComputeDType string
}

// Plan is the load configuration chosen for the model. Exactly one of the
// two shapes is produced: an accelerated plan with 4-bit weights spread
// across every visible device, or a CPU plan with full precision weights.
type Plan struct {
	Device       string
	DeviceMap    string
	Devices      int
	Quantization *Quantization
	DType        string
	LowMemory    bool
}

func AcceleratedPlan(devices int) Plan {
	return Plan{
		Device:    CUDA,
		DeviceMap: DeviceMapAuto,
		Devices:   devices,
		Quantization: &Quantization{
			Bits:         4,
			Type:         QuantNF4,
			DoubleQuant:  true,
			ComputeDType: DTypeBFloat16,
		},
		DType: DTypeBFloat16,
	}
}

func FallbackPlan() Plan {
	return Plan{
		Device:    CPU,
		DeviceMap: CPU,
		DType:     DTypeFloat32,
		LowMemory: true,
	}
}

func (p Plan) Accelerated() bool {
	return p.Device == CUDA
}

func (p Plan) String() string {
	parts := []string{
		"device=" + p.Device,
		"device_map=" + p.DeviceMap,
	}
	if p.Devices > 0 {
		parts = append(parts, fmt.Sprintf("devices=%d", p.Devices))
	}
	if q := p.Quantization; q != nil {
		parts = append(parts, fmt.Sprintf("quant=%dbit-%s", q.Bits, q.Type))
		if q.DoubleQuant {
			parts = append(parts, "double_quant=true")
		}
		parts = append(parts, "compute_dtype="+q.ComputeDType)
	} else {
		parts = append(parts, "dtype="+p.DType)
	}
	if p.LowMemory {
		parts = append(parts, "low_memory=true")
	}
	return strings.Join(parts, " ")
}
