package nn

import (
	"github.com/dejaview-ml/dejaview/internal/onnx"
	"github.com/dejaview-ml/dejaview/internal/tensor"
)

// ReLU is a Rectified Linear Unit activation module.
//
// Applies the element-wise function: f(x) = max(0, x)
//
// Tracing emits a single Relu node.
type ReLU struct{}

// NewReLU creates a new ReLU activation module.
func NewReLU() *ReLU {
	return &ReLU{}
}

// Trace records a Relu node. Output shape equals input shape.
func (r *ReLU) Trace(ctx *onnx.TraceContext, input onnx.Value) (onnx.Value, error) {
	g := ctx.Graph
	node := g.NodeName("Relu")
	outName := node + "_output"

	g.AddNode(onnx.NodeProto{
		Name:    node,
		OpType:  "Relu",
		Inputs:  []string{input.Name},
		Outputs: []string{outName},
	})

	return onnx.Value{Name: outName, Shape: input.Shape.Clone(), ElemType: input.ElemType}, nil
}

// Parameters returns an empty slice (ReLU has no trainable parameters).
func (r *ReLU) Parameters() []*Parameter {
	return nil
}

// StateDict returns nil (ReLU has no state).
func (r *ReLU) StateDict() map[string]*tensor.RawTensor {
	return nil
}

// LoadStateDict is a no-op for ReLU.
func (r *ReLU) LoadStateDict(map[string]*tensor.RawTensor) error {
	return nil
}

// ReLU6 is the clipped rectifier used by MobileNet-style architectures.
//
// Applies the element-wise function: f(x) = min(max(0, x), 6)
//
// Tracing emits a Clip node. The min/max bounds are attributes below opset
// 11 and scalar constant inputs from opset 11 on, matching the operator's
// signature change.
type ReLU6 struct{}

// NewReLU6 creates a new ReLU6 activation module.
func NewReLU6() *ReLU6 {
	return &ReLU6{}
}

// Trace records a Clip node bounded to [0, 6]. Output shape equals input shape.
func (r *ReLU6) Trace(ctx *onnx.TraceContext, input onnx.Value) (onnx.Value, error) {
	g := ctx.Graph
	node := g.NodeName("Clip")
	outName := node + "_output"

	proto := onnx.NodeProto{
		Name:    node,
		OpType:  "Clip",
		Inputs:  []string{input.Name},
		Outputs: []string{outName},
	}

	if ctx.Opset < 11 {
		proto.Attributes = []onnx.AttributeProto{
			onnx.FloatAttribute("min", 0),
			onnx.FloatAttribute("max", 6),
		}
	} else {
		minName := node + "_min"
		maxName := node + "_max"
		if err := g.AddScalar(minName, 0); err != nil {
			return onnx.Value{}, err
		}
		if err := g.AddScalar(maxName, 6); err != nil {
			return onnx.Value{}, err
		}
		proto.Inputs = append(proto.Inputs, minName, maxName)
	}

	g.AddNode(proto)
	return onnx.Value{Name: outName, Shape: input.Shape.Clone(), ElemType: input.ElemType}, nil
}

// Parameters returns an empty slice (ReLU6 has no trainable parameters).
func (r *ReLU6) Parameters() []*Parameter {
	return nil
}

// StateDict returns nil (ReLU6 has no state).
func (r *ReLU6) StateDict() map[string]*tensor.RawTensor {
	return nil
}

// LoadStateDict is a no-op for ReLU6.
func (r *ReLU6) LoadStateDict(map[string]*tensor.RawTensor) error {
	return nil
}
