package nn

import (
	"math"
	"math/rand"

	"github.com/dejaview-ml/dejaview/internal/tensor"
)

// Xavier (Glorot) initialization for weights.
//
// Initializes weights with values drawn from a uniform distribution:
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
//
// Freshly constructed layers carry Xavier weights so an export works even
// without pretrained weights loaded.
func Xavier(fanIn, fanOut int, shape tensor.Shape) *tensor.RawTensor {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	t, err := tensor.NewRaw(shape, tensor.Float32)
	if err != nil {
		panic(err)
	}

	data := t.AsFloat32()
	for i := range data {
		//nolint:gosec // Using math/rand for weight initialization (not security-critical)
		data[i] = float32((rand.Float64()*2.0 - 1.0) * bound)
	}
	return t
}

// Zeros creates a zero-filled float32 tensor. Commonly used for bias
// initialization.
func Zeros(shape tensor.Shape) *tensor.RawTensor {
	t, err := tensor.Zeros(shape)
	if err != nil {
		panic(err)
	}
	return t
}

// Ones creates a one-filled float32 tensor. Used for BatchNorm scale and
// running variance initialization.
func Ones(shape tensor.Shape) *tensor.RawTensor {
	t, err := tensor.Ones(shape)
	if err != nil {
		panic(err)
	}
	return t
}
