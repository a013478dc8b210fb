package onnx

import (
	"fmt"

	"github.com/dejaview-ml/dejaview/internal/tensor"
)

// Value identifies a tensor flowing through the graph under construction: its
// name plus the concrete shape observed while tracing the placeholder input.
type Value struct {
	Name     string
	Shape    tensor.Shape
	ElemType int32
}

// TraceContext carries per-trace state handed to every module during tracing.
type TraceContext struct {
	Graph    *GraphBuilder
	Opset    int64
	Training bool
}

// GraphBuilder accumulates nodes, initializers and graph inputs/outputs while
// a model is traced. Node and tensor names are generated from per-operator
// counters, so tracing the same model twice yields identical graphs.
type GraphBuilder struct {
	name         string
	nodes        []NodeProto
	initializers []TensorProto
	inputs       []Value
	outputs      []Value
	opCounts     map[string]int
	names        map[string]bool
}

// NewGraphBuilder creates an empty graph builder.
func NewGraphBuilder(name string) *GraphBuilder {
	return &GraphBuilder{
		name:     name,
		opCounts: make(map[string]int),
		names:    make(map[string]bool),
	}
}

// AddInput declares a graph input with the given name and traced shape.
func (b *GraphBuilder) AddInput(name string, shape tensor.Shape, elemType int32) (Value, error) {
	if b.names[name] {
		return Value{}, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	b.names[name] = true

	v := Value{Name: name, Shape: shape.Clone(), ElemType: elemType}
	b.inputs = append(b.inputs, v)
	return v, nil
}

// MarkOutput declares a traced value as a graph output.
func (b *GraphBuilder) MarkOutput(v Value) {
	b.outputs = append(b.outputs, v)
}

// NodeName reserves a deterministic name for the next node of the given
// operator type (Conv_0, Conv_1, Clip_0, ...).
func (b *GraphBuilder) NodeName(opType string) string {
	name := fmt.Sprintf("%s_%d", opType, b.opCounts[opType])
	b.opCounts[opType]++
	return name
}

// AddNode appends a node and registers its output tensor names.
func (b *GraphBuilder) AddNode(n NodeProto) {
	for _, out := range n.Outputs {
		b.names[out] = true
	}
	b.nodes = append(b.nodes, n)
}

// AddInitializer registers a weight tensor under the given name.
func (b *GraphBuilder) AddInitializer(name string, t *tensor.RawTensor) error {
	if b.names[name] {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	b.names[name] = true

	elemType, err := elemTypeFor(t.DType())
	if err != nil {
		return fmt.Errorf("initializer %q: %w", name, err)
	}

	dims := make([]int64, len(t.Shape()))
	for i, d := range t.Shape() {
		dims[i] = int64(d)
	}

	raw := make([]byte, t.ByteSize())
	copy(raw, t.Data())

	b.initializers = append(b.initializers, TensorProto{
		Name:     name,
		DataType: elemType,
		Dims:     dims,
		RawData:  raw,
	})
	return nil
}

// AddScalar registers a scalar float32 initializer. Used for operators whose
// bounds moved from attributes to inputs (e.g., Clip at opset 11).
func (b *GraphBuilder) AddScalar(name string, v float32) error {
	t, err := tensor.FromFloat32(tensor.Shape{}, []float32{v})
	if err != nil {
		return err
	}
	return b.AddInitializer(name, t)
}

// Rename renames a traced tensor everywhere it appears in the graph.
// Used to give graph outputs their declared public names.
func (b *GraphBuilder) Rename(oldName, newName string) error {
	if oldName == newName {
		return nil
	}
	if b.names[newName] {
		return fmt.Errorf("%w: %q", ErrDuplicateName, newName)
	}
	if !b.names[oldName] {
		return fmt.Errorf("cannot rename unknown tensor %q", oldName)
	}

	for ni := range b.nodes {
		node := &b.nodes[ni]
		for i, in := range node.Inputs {
			if in == oldName {
				node.Inputs[i] = newName
			}
		}
		for i, out := range node.Outputs {
			if out == oldName {
				node.Outputs[i] = newName
			}
		}
	}
	delete(b.names, oldName)
	b.names[newName] = true
	return nil
}

// Inputs returns the declared graph inputs.
func (b *GraphBuilder) Inputs() []Value {
	return b.inputs
}

// Outputs returns the declared graph outputs.
func (b *GraphBuilder) Outputs() []Value {
	return b.outputs
}

// Nodes returns the recorded nodes in trace order.
func (b *GraphBuilder) Nodes() []NodeProto {
	return b.nodes
}

// Initializers returns the registered weight tensors.
func (b *GraphBuilder) Initializers() []TensorProto {
	return b.initializers
}

// NodeCount returns the number of recorded nodes.
func (b *GraphBuilder) NodeCount() int {
	return len(b.nodes)
}

// elemTypeFor converts tensor.DataType to the ONNX element type.
func elemTypeFor(dt tensor.DataType) (int32, error) {
	switch dt {
	case tensor.Float32:
		return TensorProtoFloat, nil
	case tensor.Float64:
		return TensorProtoDouble, nil
	case tensor.Int32:
		return TensorProtoInt32, nil
	case tensor.Int64:
		return TensorProtoInt64, nil
	case tensor.Uint8:
		return TensorProtoUint8, nil
	case tensor.Bool:
		return TensorProtoBool, nil
	default:
		return 0, fmt.Errorf("unsupported data type %s", dt)
	}
}

// IntAttribute builds an INT node attribute.
func IntAttribute(name string, v int64) AttributeProto {
	return AttributeProto{Name: name, Type: AttributeProtoInt, I: v}
}

// IntsAttribute builds an INTS node attribute.
func IntsAttribute(name string, vs ...int64) AttributeProto {
	return AttributeProto{Name: name, Type: AttributeProtoInts, Ints: vs}
}

// FloatAttribute builds a FLOAT node attribute.
func FloatAttribute(name string, v float32) AttributeProto {
	return AttributeProto{Name: name, Type: AttributeProtoFloat, F: v}
}
