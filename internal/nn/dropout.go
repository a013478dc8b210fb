package nn

import (
	"fmt"

	"github.com/dejaview-ml/dejaview/internal/onnx"
	"github.com/dejaview-ml/dejaview/internal/tensor"
)

// Dropout randomly zeroes elements during training.
//
// In inference mode dropout is the identity, so tracing an eval-mode model
// emits no node at all. Training-mode tracing emits a Dropout node; the ratio
// is an attribute below opset 12 and a scalar constant input from opset 12 on.
type Dropout struct {
	p float32
}

// NewDropout creates a Dropout module with the given drop probability.
func NewDropout(p float32) *Dropout {
	if p < 0 || p >= 1 {
		panic(fmt.Sprintf("dropout: invalid probability %g", p))
	}
	return &Dropout{p: p}
}

// Trace records a Dropout node in training mode and passes the input through
// untouched in inference mode.
func (d *Dropout) Trace(ctx *onnx.TraceContext, input onnx.Value) (onnx.Value, error) {
	if !ctx.Training {
		return input, nil
	}

	g := ctx.Graph
	node := g.NodeName("Dropout")
	outName := node + "_output"

	proto := onnx.NodeProto{
		Name:    node,
		OpType:  "Dropout",
		Inputs:  []string{input.Name},
		Outputs: []string{outName},
	}

	if ctx.Opset < 12 {
		proto.Attributes = []onnx.AttributeProto{onnx.FloatAttribute("ratio", d.p)}
	} else {
		ratioName := node + "_ratio"
		if err := g.AddScalar(ratioName, d.p); err != nil {
			return onnx.Value{}, err
		}
		proto.Inputs = append(proto.Inputs, ratioName)
	}

	g.AddNode(proto)
	return onnx.Value{Name: outName, Shape: input.Shape.Clone(), ElemType: input.ElemType}, nil
}

// Parameters returns an empty slice (Dropout has no trainable parameters).
func (d *Dropout) Parameters() []*Parameter {
	return nil
}

// StateDict returns nil (Dropout has no state).
func (d *Dropout) StateDict() map[string]*tensor.RawTensor {
	return nil
}

// LoadStateDict is a no-op for Dropout.
func (d *Dropout) LoadStateDict(map[string]*tensor.RawTensor) error {
	return nil
}

// P returns the drop probability.
func (d *Dropout) P() float32 {
	return d.p
}
