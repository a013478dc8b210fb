// Package onnx provides ONNX model export for the DejaView toolkit.
//
// A model is traced against a placeholder input: each layer records its
// operations and weights into a computation graph, which is then serialized
// to the ONNX protobuf format. Axes declared dynamic keep symbolic names in
// the artifact so inference engines can resize them at run time.
//
// # Example Usage
//
//	import (
//	    "github.com/dejaview-ml/dejaview/onnx"
//	    "github.com/dejaview-ml/dejaview/tensor"
//	    "github.com/dejaview-ml/dejaview/zoo"
//	)
//
//	model, err := zoo.Build(ctx, "mobilenet_v2", zoo.Pretrained())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	model.Eval()
//
//	dummy, _ := tensor.Randn(tensor.Shape{1, 3, 224, 224})
//	err = onnx.Export(model, dummy, "mobilenetv2_dynamic.onnx", onnx.ExportOptions{
//	    OpsetVersion: 11,
//	    DynamicAxes: onnx.DynamicAxes{
//	        "input":  {0: "batch_size", 2: "height", 3: "width"},
//	        "output": {0: "batch_size"},
//	    },
//	})
package onnx

import (
	internalonnx "github.com/dejaview-ml/dejaview/internal/onnx"
	"github.com/dejaview-ml/dejaview/internal/tensor"
)

// Opset versions the exporter can emit.
const (
	MinOpset     = internalonnx.MinOpset
	MaxOpset     = internalonnx.MaxOpset
	DefaultOpset = internalonnx.DefaultOpset
)

// Module is anything that can be traced into a computation graph. Networks
// from the zoo package and layers from the nn package all satisfy it.
type Module = internalonnx.Module

// DynamicAxes maps a graph tensor name to a mapping from axis index to a
// symbolic dimension name.
type DynamicAxes = internalonnx.DynamicAxes

// ExportOptions configures a model export.
type ExportOptions = internalonnx.ExportOptions

// Sentinel errors returned by Export.
var (
	ErrUnsupportedOpset = internalonnx.ErrUnsupportedOpset
	ErrUnknownTensor    = internalonnx.ErrUnknownTensor
	ErrAxisOutOfRange   = internalonnx.ErrAxisOutOfRange
	ErrNilInput         = internalonnx.ErrNilInput
)

// Export traces model against the placeholder input dummy and writes the
// serialized graph and weights to a single file at path.
//
// The dummy input supplies the concrete shape and dtype the trace runs with;
// its values never matter. On any failure nothing is written to path.
func Export(model Module, dummy *tensor.RawTensor, path string, opts ExportOptions) error {
	return internalonnx.Export(model, dummy, path, opts)
}

// ModelInfo contains metadata about an exported artifact.
//
// Use [ReadInfo] to inspect a model file without loading it into a runtime.
type ModelInfo = internalonnx.ModelInfo

// ReadInfo extracts metadata from an ONNX file: producer, opset, graph
// inputs/outputs with their dynamic axes, and the set of operators used.
//
// Example:
//
//	info, err := onnx.ReadInfo("mobilenetv2_dynamic.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Opset: %d\n", info.OpsetVersion)
//	fmt.Printf("Inputs: %v\n", info.InputNames)
//	fmt.Printf("Operators: %v\n", info.Operators)
func ReadInfo(path string) (*ModelInfo, error) {
	return internalonnx.ReadInfo(path)
}
