package tensor

import (
	"math/rand"
)

// Zeros creates a float32 tensor filled with zeros.
func Zeros(shape Shape) (*RawTensor, error) {
	return NewRaw(shape, Float32)
}

// Ones creates a float32 tensor filled with ones.
func Ones(shape Shape) (*RawTensor, error) {
	t, err := NewRaw(shape, Float32)
	if err != nil {
		return nil, err
	}
	data := t.AsFloat32()
	for i := range data {
		data[i] = 1.0
	}
	return t, nil
}

// Randn creates a float32 tensor with values drawn from N(0, 1).
//
// This is how the exporter synthesizes the placeholder input used to trace a
// model's computation graph. The values themselves never end up in the
// exported artifact; only the shape matters.
func Randn(shape Shape) (*RawTensor, error) {
	//nolint:gosec // math/rand for placeholder data, not security-critical
	return RandnSource(shape, rand.New(rand.NewSource(rand.Int63())))
}

// RandnSource is Randn with an explicit random source, for deterministic
// placeholder inputs.
func RandnSource(shape Shape, src *rand.Rand) (*RawTensor, error) {
	t, err := NewRaw(shape, Float32)
	if err != nil {
		return nil, err
	}
	data := t.AsFloat32()
	for i := range data {
		data[i] = float32(src.NormFloat64())
	}
	return t, nil
}
