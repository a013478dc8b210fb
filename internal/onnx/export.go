package onnx

import (
	"fmt"
	"os"

	"github.com/dejaview-ml/dejaview/internal/tensor"
)

// Opset versions the graph tracer can emit. Operators whose signatures changed
// across this range (Clip, Dropout) branch on the requested version.
const (
	MinOpset = 9
	MaxOpset = 13

	// DefaultOpset is used when ExportOptions leaves OpsetVersion zero.
	DefaultOpset = 13
)

const (
	producerName    = "dejaview"
	producerVersion = "0.1.0"
)

// DynamicAxes maps a named graph tensor to a mapping from axis index to a
// symbolic name. Axes listed here are exported as resizable; every other axis
// is baked into the artifact as a literal constant taken from the traced
// placeholder input.
type DynamicAxes map[string]map[int]string

// Module is anything that can be traced into a computation graph.
type Module interface {
	// Trace records the module's operations on the graph under construction
	// and returns the value holding the module's output.
	Trace(ctx *TraceContext, input Value) (Value, error)
}

// ExportOptions configures a model export.
type ExportOptions struct {
	// InputNames holds the public names of the graph inputs. Only a single
	// input is supported; defaults to "input".
	InputNames []string

	// OutputNames holds the public names of the graph outputs. Only a single
	// output is supported; defaults to "output".
	OutputNames []string

	// DynamicAxes declares which axes of the named tensors are resizable.
	DynamicAxes DynamicAxes

	// OpsetVersion selects the operator set; zero means DefaultOpset.
	OpsetVersion int64

	// GraphName names the exported graph; defaults to "main_graph".
	GraphName string
}

// Export traces the model against the placeholder input and writes the
// serialized computation graph and weights to a single file at path.
//
// All validation and encoding happens before any file I/O: on failure nothing
// is written, and a missing parent directory fails without leaving a partial
// artifact. Errors propagate to the caller; there is no retry.
func Export(model Module, dummy *tensor.RawTensor, path string, opts ExportOptions) error {
	data, err := exportBytes(model, dummy, opts)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	return nil
}

// exportBytes runs the trace and serializes the model in memory.
func exportBytes(model Module, dummy *tensor.RawTensor, opts ExportOptions) ([]byte, error) {
	if model == nil {
		return nil, fmt.Errorf("model is nil")
	}
	if dummy == nil {
		return nil, ErrNilInput
	}

	opset := opts.OpsetVersion
	if opset == 0 {
		opset = DefaultOpset
	}
	if opset < MinOpset || opset > MaxOpset {
		return nil, fmt.Errorf("%w: %d (supported %d..%d)", ErrUnsupportedOpset, opset, MinOpset, MaxOpset)
	}

	inputName, err := singleName(opts.InputNames, "input")
	if err != nil {
		return nil, fmt.Errorf("input names: %w", err)
	}
	outputName, err := singleName(opts.OutputNames, "output")
	if err != nil {
		return nil, fmt.Errorf("output names: %w", err)
	}

	graphName := opts.GraphName
	if graphName == "" {
		graphName = "main_graph"
	}

	elemType, err := elemTypeFor(dummy.DType())
	if err != nil {
		return nil, fmt.Errorf("placeholder input: %w", err)
	}

	b := NewGraphBuilder(graphName)
	in, err := b.AddInput(inputName, dummy.Shape(), elemType)
	if err != nil {
		return nil, err
	}

	ctx := &TraceContext{Graph: b, Opset: opset}
	if m, ok := model.(interface{ Training() bool }); ok {
		ctx.Training = m.Training()
	}

	out, err := model.Trace(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("tracing failed: %w", err)
	}

	if err := b.Rename(out.Name, outputName); err != nil {
		return nil, err
	}
	out.Name = outputName
	b.MarkOutput(out)

	if err := validateDynamicAxes(opts.DynamicAxes, b); err != nil {
		return nil, err
	}

	graph := &GraphProto{
		Name:         b.name,
		Nodes:        b.nodes,
		Initializers: b.initializers,
	}
	for _, v := range b.inputs {
		graph.Inputs = append(graph.Inputs, valueInfo(v, opts.DynamicAxes[v.Name]))
	}
	for _, v := range b.outputs {
		graph.Outputs = append(graph.Outputs, valueInfo(v, opts.DynamicAxes[v.Name]))
	}

	proto := &ModelProto{
		IRVersion:       irVersionFor(opset),
		OpsetImport:     []OperatorSetID{{Domain: "", Version: opset}},
		ProducerName:    producerName,
		ProducerVersion: producerVersion,
		Graph:           graph,
	}

	return Encode(proto), nil
}

// singleName applies the default and rejects multi-tensor declarations.
func singleName(names []string, fallback string) (string, error) {
	switch len(names) {
	case 0:
		return fallback, nil
	case 1:
		if names[0] == "" {
			return "", fmt.Errorf("name must not be empty")
		}
		return names[0], nil
	default:
		return "", fmt.Errorf("expected at most one name, got %d", len(names))
	}
}

// validateDynamicAxes checks that every declared axis references a graph
// input or output and a valid axis index.
func validateDynamicAxes(axes DynamicAxes, b *GraphBuilder) error {
	declared := make(map[string]Value)
	for _, v := range b.inputs {
		declared[v.Name] = v
	}
	for _, v := range b.outputs {
		declared[v.Name] = v
	}

	for name, dims := range axes {
		v, ok := declared[name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownTensor, name)
		}
		for axis := range dims {
			if axis < 0 || axis >= len(v.Shape) {
				return fmt.Errorf("%w: tensor %q has rank %d, axis %d",
					ErrAxisOutOfRange, name, len(v.Shape), axis)
			}
		}
	}
	return nil
}

// valueInfo builds the tensor specification for a graph input or output,
// substituting symbolic names for axes declared dynamic.
func valueInfo(v Value, dynamic map[int]string) ValueInfoProto {
	dims := make([]DimensionProto, len(v.Shape))
	for i, d := range v.Shape {
		if param, ok := dynamic[i]; ok {
			dims[i] = DimensionProto{DimParam: param}
			continue
		}
		dims[i] = DimensionProto{DimValue: int64(d)}
	}

	return ValueInfoProto{
		Name: v.Name,
		Type: &TypeProto{
			TensorType: &TensorTypeProto{
				ElemType: v.ElemType,
				Shape:    &TensorShapeProto{Dims: dims},
			},
		},
	}
}

// irVersionFor returns the ONNX IR version matching the opset, mirroring what
// mainstream exporters stamp on their artifacts.
func irVersionFor(opset int64) int64 {
	switch {
	case opset <= 11:
		return 6
	case opset <= 14:
		return 7
	default:
		return 8
	}
}
