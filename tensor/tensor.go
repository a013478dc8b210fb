// Copyright 2026 DejaView ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for tensor data used across the
// DejaView toolkit.
//
// Tensors here are plain host-memory buffers with a shape and a data type.
// They carry model weights and placeholder inputs for graph tracing; there is
// no compute attached to them.
//
// Example:
//
//	dummy, err := tensor.Randn(tensor.Shape{1, 3, 224, 224})
//	if err != nil {
//	    log.Fatal(err)
//	}
package tensor

import (
	"math/rand"

	"github.com/dejaview-ml/dejaview/internal/tensor"
)

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Uint8   DataType = tensor.Uint8
	Bool    DataType = tensor.Bool
)

// Shape represents the dimensions of a tensor.
// Example: Shape{1, 3, 224, 224} is a batch of one RGB 224x224 image.
type Shape = tensor.Shape

// RawTensor is a contiguous host-memory tensor.
type RawTensor = tensor.RawTensor

// NewRaw creates a zero-initialized tensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype)
}

// FromFloat32 creates a float32 tensor from a slice. The slice length must
// match the shape's element count.
func FromFloat32(shape Shape, data []float32) (*RawTensor, error) {
	return tensor.FromFloat32(shape, data)
}

// Zeros creates a float32 tensor filled with zeros.
func Zeros(shape Shape) (*RawTensor, error) {
	return tensor.Zeros(shape)
}

// Ones creates a float32 tensor filled with ones.
func Ones(shape Shape) (*RawTensor, error) {
	return tensor.Ones(shape)
}

// Randn creates a float32 tensor with standard normal values. Commonly used
// as the placeholder input when exporting a model.
func Randn(shape Shape) (*RawTensor, error) {
	return tensor.Randn(shape)
}

// RandnSource is Randn with a caller-provided random source, for
// reproducible values.
func RandnSource(shape Shape, src *rand.Rand) (*RawTensor, error) {
	return tensor.RandnSource(shape, src)
}
