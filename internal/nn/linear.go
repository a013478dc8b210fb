package nn

import (
	"fmt"

	"github.com/dejaview-ml/dejaview/internal/onnx"
	"github.com/dejaview-ml/dejaview/internal/tensor"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x is the input tensor with shape [batch_size, in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the bias vector with shape [out_features]
//   - y is the output tensor with shape [batch_size, out_features]
//
// Tracing emits a single Gemm node with transB=1, so the weight initializer
// keeps its [out_features, in_features] layout.
type Linear struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter // [out_features, in_features]
	bias        *Parameter // [out_features]
}

// NewLinear creates a new Linear layer.
//
// Weights are initialized using Xavier/Glorot uniform distribution.
// Biases are initialized to zeros.
func NewLinear(inFeatures, outFeatures int) *Linear {
	if inFeatures <= 0 || outFeatures <= 0 {
		panic(fmt.Sprintf("linear: invalid features in=%d, out=%d", inFeatures, outFeatures))
	}

	weightShape := tensor.Shape{outFeatures, inFeatures}
	weight := NewParameter("weight", Xavier(inFeatures, outFeatures, weightShape))
	bias := NewParameter("bias", Zeros(tensor.Shape{outFeatures}))

	return &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      weight,
		bias:        bias,
	}
}

// Trace records a Gemm node.
//
// Input shape: [batch_size, in_features]
// Output shape: [batch_size, out_features]
func (l *Linear) Trace(ctx *onnx.TraceContext, input onnx.Value) (onnx.Value, error) {
	shape := input.Shape
	if len(shape) != 2 {
		return onnx.Value{}, fmt.Errorf("linear: expected 2D input [batch, features], got shape %v", shape)
	}
	if shape[1] != l.inFeatures {
		return onnx.Value{}, fmt.Errorf("linear: expected input with %d features, got %d", l.inFeatures, shape[1])
	}

	g := ctx.Graph
	node := g.NodeName("Gemm")

	weightName := node + ".weight"
	biasName := node + ".bias"
	if err := g.AddInitializer(weightName, l.weight.Tensor()); err != nil {
		return onnx.Value{}, err
	}
	if err := g.AddInitializer(biasName, l.bias.Tensor()); err != nil {
		return onnx.Value{}, err
	}

	outName := node + "_output"
	g.AddNode(onnx.NodeProto{
		Name:    node,
		OpType:  "Gemm",
		Inputs:  []string{input.Name, weightName, biasName},
		Outputs: []string{outName},
		Attributes: []onnx.AttributeProto{
			onnx.FloatAttribute("alpha", 1),
			onnx.FloatAttribute("beta", 1),
			onnx.IntAttribute("transB", 1),
		},
	})

	return onnx.Value{
		Name:     outName,
		Shape:    tensor.Shape{shape[0], l.outFeatures},
		ElemType: input.ElemType,
	}, nil
}

// Parameters returns all trainable parameters.
func (l *Linear) Parameters() []*Parameter {
	return []*Parameter{l.weight, l.bias}
}

// StateDict returns the layer's weights.
func (l *Linear) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		"weight": l.weight.Tensor(),
		"bias":   l.bias.Tensor(),
	}
}

// LoadStateDict loads the layer's weights.
func (l *Linear) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return loadStateDict(stateDict, map[string]*Parameter{
		"weight": l.weight,
		"bias":   l.bias,
	})
}

// InFeatures returns the number of input features.
func (l *Linear) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear) OutFeatures() int {
	return l.outFeatures
}

// String returns a string representation of the layer.
func (l *Linear) String() string {
	return fmt.Sprintf("Linear(in_features=%d, out_features=%d)", l.inFeatures, l.outFeatures)
}
