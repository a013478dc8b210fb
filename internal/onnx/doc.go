// Package onnx implements ONNX model export for the DejaView exporter.
//
// ONNX (Open Neural Network Exchange) is an open format for representing deep
// learning models. This package implements a hand-written protobuf codec for
// .onnx files without external dependencies, a graph builder that records
// operations while a model is traced against a placeholder input, and the
// Export entry point that serializes the result to disk.
//
// Key components:
//   - ModelProto: Top-level ONNX model structure with metadata and graph
//   - GraphProto: Computation graph with nodes, inputs, outputs, and initializers
//   - GraphBuilder: Accumulates nodes and weights during tracing
//   - TraceContext: Per-trace state (builder, opset, execution mode)
//   - Export: Traces a model and writes a single .onnx artifact
//   - ReadInfo: Decodes an .onnx file back into inspectable metadata
//
// Example usage:
//
//	dummy, _ := tensor.Randn(tensor.Shape{1, 3, 224, 224})
//	err := onnx.Export(model, dummy, "model.onnx", onnx.ExportOptions{
//	    InputNames:  []string{"input"},
//	    OutputNames: []string{"output"},
//	    DynamicAxes: onnx.DynamicAxes{
//	        "input":  {0: "batch_size", 2: "height", 3: "width"},
//	        "output": {0: "batch_size"},
//	    },
//	    OpsetVersion: 11,
//	})
package onnx
