package nn

import (
	"fmt"

	"github.com/dejaview-ml/dejaview/internal/onnx"
	"github.com/dejaview-ml/dejaview/internal/tensor"
)

// BatchNorm2D normalizes a 4D input over the channel dimension using learned
// scale/shift and running statistics accumulated during training.
//
// In inference mode tracing emits a single BatchNormalization node backed by
// the stored running mean and variance. Tracing a training-mode model is
// rejected: batch statistics do not exist in an exported graph.
type BatchNorm2D struct {
	numFeatures int
	eps         float32
	momentum    float32

	weight      *Parameter // scale, [num_features]
	bias        *Parameter // shift, [num_features]
	runningMean *Parameter // [num_features]
	runningVar  *Parameter // [num_features]
}

// NewBatchNorm2D creates a BatchNorm2D layer with identity initialization
// (scale 1, shift 0, mean 0, variance 1).
func NewBatchNorm2D(numFeatures int) *BatchNorm2D {
	if numFeatures <= 0 {
		panic(fmt.Sprintf("batchnorm2d: invalid num_features %d", numFeatures))
	}

	shape := tensor.Shape{numFeatures}
	return &BatchNorm2D{
		numFeatures: numFeatures,
		eps:         1e-5,
		momentum:    0.1,
		weight:      NewParameter("weight", Ones(shape)),
		bias:        NewParameter("bias", Zeros(shape)),
		runningMean: NewParameter("running_mean", Zeros(shape)),
		runningVar:  NewParameter("running_var", Ones(shape)),
	}
}

// Trace records a BatchNormalization node.
//
// Input and output shapes are identical: [batch, num_features, height, width].
func (b *BatchNorm2D) Trace(ctx *onnx.TraceContext, input onnx.Value) (onnx.Value, error) {
	if ctx.Training {
		return onnx.Value{}, fmt.Errorf("batchnorm2d: cannot trace in training mode, switch the model to inference mode first")
	}

	shape := input.Shape
	if len(shape) != 4 {
		return onnx.Value{}, fmt.Errorf("batchnorm2d: expected 4D input [N,C,H,W], got %dD", len(shape))
	}
	if shape[1] != b.numFeatures {
		return onnx.Value{}, fmt.Errorf("batchnorm2d: input channels %d != expected %d", shape[1], b.numFeatures)
	}

	g := ctx.Graph
	node := g.NodeName("BatchNormalization")

	inputs := []string{input.Name}
	for _, p := range []struct {
		suffix string
		param  *Parameter
	}{
		{".weight", b.weight},
		{".bias", b.bias},
		{".running_mean", b.runningMean},
		{".running_var", b.runningVar},
	} {
		name := node + p.suffix
		if err := g.AddInitializer(name, p.param.Tensor()); err != nil {
			return onnx.Value{}, err
		}
		inputs = append(inputs, name)
	}

	outName := node + "_output"
	g.AddNode(onnx.NodeProto{
		Name:    node,
		OpType:  "BatchNormalization",
		Inputs:  inputs,
		Outputs: []string{outName},
		Attributes: []onnx.AttributeProto{
			onnx.FloatAttribute("epsilon", b.eps),
			onnx.FloatAttribute("momentum", b.momentum),
		},
	})

	return onnx.Value{Name: outName, Shape: shape.Clone(), ElemType: input.ElemType}, nil
}

// Parameters returns the trainable scale and shift.
func (b *BatchNorm2D) Parameters() []*Parameter {
	return []*Parameter{b.weight, b.bias}
}

// StateDict returns trainable parameters and running statistics.
func (b *BatchNorm2D) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		"weight":       b.weight.Tensor(),
		"bias":         b.bias.Tensor(),
		"running_mean": b.runningMean.Tensor(),
		"running_var":  b.runningVar.Tensor(),
	}
}

// LoadStateDict loads trainable parameters and running statistics.
func (b *BatchNorm2D) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return loadStateDict(stateDict, map[string]*Parameter{
		"weight":       b.weight,
		"bias":         b.bias,
		"running_mean": b.runningMean,
		"running_var":  b.runningVar,
	})
}

// NumFeatures returns the number of normalized channels.
func (b *BatchNorm2D) NumFeatures() int {
	return b.numFeatures
}

// String returns a string representation of the layer.
func (b *BatchNorm2D) String() string {
	return fmt.Sprintf("BatchNorm2D(num_features=%d, eps=%g, momentum=%g)", b.numFeatures, b.eps, b.momentum)
}
