// Copyright 2026 DejaView ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public API for the neural network layers used to
// assemble exportable models.
//
// Every layer records itself into a computation graph when traced, so any
// composition of these layers can be handed to onnx.Export.
//
// Example:
//
//	model := nn.NewSequential(
//	    nn.NewConv2D(3, 16, 3, 3, 2, 1, 1, false),
//	    nn.NewBatchNorm2D(16),
//	    nn.NewReLU6(),
//	    nn.NewGlobalAvgPool2D(),
//	    nn.NewFlatten(1),
//	    nn.NewLinear(16, 10),
//	)
package nn

import (
	internalnn "github.com/dejaview-ml/dejaview/internal/nn"
)

// Module is the interface every layer implements: graph tracing plus state
// dict access for loading and saving weights.
type Module = internalnn.Module

// Parameter is a named weight tensor of a layer.
type Parameter = internalnn.Parameter

// Layer types.
type (
	Conv2D          = internalnn.Conv2D
	BatchNorm2D     = internalnn.BatchNorm2D
	Linear          = internalnn.Linear
	ReLU            = internalnn.ReLU
	ReLU6           = internalnn.ReLU6
	Dropout         = internalnn.Dropout
	GlobalAvgPool2D = internalnn.GlobalAvgPool2D
	Flatten         = internalnn.Flatten
	Sequential      = internalnn.Sequential
)

// NewConv2D creates a 2D convolutional layer. Set groups to inChannels for a
// depthwise convolution.
func NewConv2D(inChannels, outChannels, kernelH, kernelW, stride, padding, groups int, useBias bool) *Conv2D {
	return internalnn.NewConv2D(inChannels, outChannels, kernelH, kernelW, stride, padding, groups, useBias)
}

// NewBatchNorm2D creates a batch normalization layer over channels.
func NewBatchNorm2D(numFeatures int) *BatchNorm2D {
	return internalnn.NewBatchNorm2D(numFeatures)
}

// NewLinear creates a fully connected layer.
func NewLinear(inFeatures, outFeatures int) *Linear {
	return internalnn.NewLinear(inFeatures, outFeatures)
}

// NewReLU creates a ReLU activation.
func NewReLU() *ReLU {
	return internalnn.NewReLU()
}

// NewReLU6 creates a ReLU6 activation, the clipped rectifier used by
// MobileNet-style architectures.
func NewReLU6() *ReLU6 {
	return internalnn.NewReLU6()
}

// NewDropout creates a dropout layer with the given drop probability.
func NewDropout(p float32) *Dropout {
	return internalnn.NewDropout(p)
}

// NewGlobalAvgPool2D creates a global average pooling layer.
func NewGlobalAvgPool2D() *GlobalAvgPool2D {
	return internalnn.NewGlobalAvgPool2D()
}

// NewFlatten creates a flatten layer collapsing dimensions from axis on.
func NewFlatten(axis int) *Flatten {
	return internalnn.NewFlatten(axis)
}

// NewSequential chains modules into one.
func NewSequential(modules ...Module) *Sequential {
	return internalnn.NewSequential(modules...)
}
