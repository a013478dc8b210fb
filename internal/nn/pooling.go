package nn

import (
	"fmt"

	"github.com/dejaview-ml/dejaview/internal/onnx"
	"github.com/dejaview-ml/dejaview/internal/tensor"
)

// GlobalAvgPool2D averages every channel's spatial plane down to 1x1.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, channels, 1, 1]
//
// Tracing emits a single GlobalAveragePool node.
type GlobalAvgPool2D struct{}

// NewGlobalAvgPool2D creates a new global average pooling module.
func NewGlobalAvgPool2D() *GlobalAvgPool2D {
	return &GlobalAvgPool2D{}
}

// Trace records a GlobalAveragePool node.
func (p *GlobalAvgPool2D) Trace(ctx *onnx.TraceContext, input onnx.Value) (onnx.Value, error) {
	shape := input.Shape
	if len(shape) != 4 {
		return onnx.Value{}, fmt.Errorf("global avg pool: expected 4D input [N,C,H,W], got %dD", len(shape))
	}

	g := ctx.Graph
	node := g.NodeName("GlobalAveragePool")
	outName := node + "_output"

	g.AddNode(onnx.NodeProto{
		Name:    node,
		OpType:  "GlobalAveragePool",
		Inputs:  []string{input.Name},
		Outputs: []string{outName},
	})

	return onnx.Value{
		Name:     outName,
		Shape:    tensor.Shape{shape[0], shape[1], 1, 1},
		ElemType: input.ElemType,
	}, nil
}

// Parameters returns an empty slice (pooling has no trainable parameters).
func (p *GlobalAvgPool2D) Parameters() []*Parameter {
	return nil
}

// StateDict returns nil (pooling has no state).
func (p *GlobalAvgPool2D) StateDict() map[string]*tensor.RawTensor {
	return nil
}

// LoadStateDict is a no-op for pooling.
func (p *GlobalAvgPool2D) LoadStateDict(map[string]*tensor.RawTensor) error {
	return nil
}

// Flatten reshapes the input into a 2D matrix, keeping the dimensions before
// axis as the batch dimension and collapsing the rest.
//
// Tracing emits a single Flatten node.
type Flatten struct {
	axis int
}

// NewFlatten creates a Flatten module collapsing dimensions from the given
// axis on. axis=1 is the usual "keep batch" flatten.
func NewFlatten(axis int) *Flatten {
	if axis < 0 {
		panic(fmt.Sprintf("flatten: invalid axis %d", axis))
	}
	return &Flatten{axis: axis}
}

// Trace records a Flatten node.
func (f *Flatten) Trace(ctx *onnx.TraceContext, input onnx.Value) (onnx.Value, error) {
	shape := input.Shape
	if f.axis > len(shape) {
		return onnx.Value{}, fmt.Errorf("flatten: axis %d out of range for %dD input", f.axis, len(shape))
	}

	outer, inner := 1, 1
	for i, d := range shape {
		if i < f.axis {
			outer *= d
		} else {
			inner *= d
		}
	}

	g := ctx.Graph
	node := g.NodeName("Flatten")
	outName := node + "_output"

	g.AddNode(onnx.NodeProto{
		Name:       node,
		OpType:     "Flatten",
		Inputs:     []string{input.Name},
		Outputs:    []string{outName},
		Attributes: []onnx.AttributeProto{onnx.IntAttribute("axis", int64(f.axis))},
	})

	return onnx.Value{
		Name:     outName,
		Shape:    tensor.Shape{outer, inner},
		ElemType: input.ElemType,
	}, nil
}

// Parameters returns an empty slice (Flatten has no trainable parameters).
func (f *Flatten) Parameters() []*Parameter {
	return nil
}

// StateDict returns nil (Flatten has no state).
func (f *Flatten) StateDict() map[string]*tensor.RawTensor {
	return nil
}

// LoadStateDict is a no-op for Flatten.
func (f *Flatten) LoadStateDict(map[string]*tensor.RawTensor) error {
	return nil
}
