// Package nn implements neural network modules for the DejaView exporter.
//
// This package provides the building blocks model architectures are assembled
// from:
//   - Module interface: base interface for all NN components
//   - Parameter: named weight tensors
//   - Conv2D, BatchNorm2D, Linear: parameterized layers
//   - ReLU, ReLU6, Dropout, GlobalAvgPool2D, Flatten: stateless layers
//   - Sequential: container for stacking layers
//
// Modules do not execute kernels. A module knows its weights and how to
// record its operations onto a computation graph while being traced against a
// placeholder input; the onnx package turns the recorded graph into an
// artifact.
package nn

import (
	"github.com/dejaview-ml/dejaview/internal/onnx"
	"github.com/dejaview-ml/dejaview/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Modules can be composed to build complex architectures:
//
//	features := nn.NewSequential(
//	    nn.NewConv2D(3, 32, 3, 3, 2, 1, 1, false),
//	    nn.NewBatchNorm2D(32),
//	    nn.NewReLU6(),
//	)
type Module interface {
	// Trace records the module's operations on the graph under construction
	// and returns the value holding the module's output. Shape mismatches
	// between the module and the traced input surface here as errors.
	Trace(ctx *onnx.TraceContext, input onnx.Value) (onnx.Value, error)

	// Parameters returns all trainable parameters of this module, including
	// nested module parameters. Stateless modules return nil.
	Parameters() []*Parameter

	// StateDict returns a map of parameter and buffer names to raw tensors.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict loads parameters and buffers from a state dictionary.
	// Loading is strict: missing entries and shape mismatches are errors.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}
