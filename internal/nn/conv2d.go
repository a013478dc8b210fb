package nn

import (
	"fmt"

	"github.com/dejaview-ml/dejaview/internal/onnx"
	"github.com/dejaview-ml/dejaview/internal/tensor"
)

// Conv2D is a 2D convolutional layer.
//
// Input shape:  [batch, in_channels, height, width]
// Weight shape: [out_channels, in_channels/groups, kernel_h, kernel_w]
// Bias shape:   [out_channels]
// Output shape: [batch, out_channels, out_h, out_w]
//
// Where:
//
//	out_h = (height + 2*padding - kernel_h) / stride + 1
//	out_w = (width + 2*padding - kernel_w) / stride + 1
//
// Setting groups == in_channels == out_channels gives a depthwise
// convolution, the building block of MobileNet-style architectures.
//
// Tracing emits a single Conv node plus weight (and optional bias)
// initializers.
type Conv2D struct {
	inChannels  int
	outChannels int
	kernelSize  [2]int
	stride      int
	padding     int
	groups      int
	useBias     bool

	weight *Parameter // [out_channels, in_channels/groups, kernel_h, kernel_w]
	bias   *Parameter // [out_channels] or nil
}

// NewConv2D creates a new 2D convolutional layer with Xavier initialization.
//
// Parameters:
//   - inChannels: Number of input channels
//   - outChannels: Number of output channels (number of filters)
//   - kernelH, kernelW: Kernel dimensions
//   - stride: Stride for convolution (commonly 1 or 2)
//   - padding: Zero padding to apply to input (commonly 0, 1, 2)
//   - groups: Number of blocked connections (1 for dense, inChannels for depthwise)
//   - useBias: Whether to include bias term
func NewConv2D(inChannels, outChannels, kernelH, kernelW, stride, padding, groups int, useBias bool) *Conv2D {
	if inChannels <= 0 || outChannels <= 0 {
		panic(fmt.Sprintf("conv2d: invalid channels in=%d, out=%d", inChannels, outChannels))
	}
	if kernelH <= 0 || kernelW <= 0 {
		panic(fmt.Sprintf("conv2d: invalid kernel size h=%d, w=%d", kernelH, kernelW))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("conv2d: invalid stride %d", stride))
	}
	if padding < 0 {
		panic(fmt.Sprintf("conv2d: invalid padding %d", padding))
	}
	if groups <= 0 || inChannels%groups != 0 || outChannels%groups != 0 {
		panic(fmt.Sprintf("conv2d: invalid groups %d for channels in=%d, out=%d", groups, inChannels, outChannels))
	}

	weightShape := tensor.Shape{outChannels, inChannels / groups, kernelH, kernelW}
	fanIn := (inChannels / groups) * kernelH * kernelW
	fanOut := (outChannels / groups) * kernelH * kernelW
	weight := NewParameter("weight", Xavier(fanIn, fanOut, weightShape))

	var bias *Parameter
	if useBias {
		bias = NewParameter("bias", Zeros(tensor.Shape{outChannels}))
	}

	return &Conv2D{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernelSize:  [2]int{kernelH, kernelW},
		stride:      stride,
		padding:     padding,
		groups:      groups,
		useBias:     useBias,
		weight:      weight,
		bias:        bias,
	}
}

// Trace records a Conv node.
//
// Input: [batch, in_channels, height, width]
// Output: [batch, out_channels, out_h, out_w].
func (c *Conv2D) Trace(ctx *onnx.TraceContext, input onnx.Value) (onnx.Value, error) {
	shape := input.Shape
	if len(shape) != 4 {
		return onnx.Value{}, fmt.Errorf("conv2d: expected 4D input [N,C,H,W], got %dD", len(shape))
	}
	if shape[1] != c.inChannels {
		return onnx.Value{}, fmt.Errorf("conv2d: input channels %d != expected %d", shape[1], c.inChannels)
	}

	g := ctx.Graph
	node := g.NodeName("Conv")

	weightName := node + ".weight"
	if err := g.AddInitializer(weightName, c.weight.Tensor()); err != nil {
		return onnx.Value{}, err
	}
	inputs := []string{input.Name, weightName}

	if c.useBias {
		biasName := node + ".bias"
		if err := g.AddInitializer(biasName, c.bias.Tensor()); err != nil {
			return onnx.Value{}, err
		}
		inputs = append(inputs, biasName)
	}

	outName := node + "_output"
	g.AddNode(onnx.NodeProto{
		Name:    node,
		OpType:  "Conv",
		Inputs:  inputs,
		Outputs: []string{outName},
		Attributes: []onnx.AttributeProto{
			onnx.IntsAttribute("dilations", 1, 1),
			onnx.IntAttribute("group", int64(c.groups)),
			onnx.IntsAttribute("kernel_shape", int64(c.kernelSize[0]), int64(c.kernelSize[1])),
			onnx.IntsAttribute("pads",
				int64(c.padding), int64(c.padding), int64(c.padding), int64(c.padding)),
			onnx.IntsAttribute("strides", int64(c.stride), int64(c.stride)),
		},
	})

	outSize := c.ComputeOutputSize(shape[2], shape[3])
	return onnx.Value{
		Name:     outName,
		Shape:    tensor.Shape{shape[0], c.outChannels, outSize[0], outSize[1]},
		ElemType: input.ElemType,
	}, nil
}

// Parameters returns all trainable parameters.
func (c *Conv2D) Parameters() []*Parameter {
	if c.useBias {
		return []*Parameter{c.weight, c.bias}
	}
	return []*Parameter{c.weight}
}

// StateDict returns the layer's weights.
func (c *Conv2D) StateDict() map[string]*tensor.RawTensor {
	dict := map[string]*tensor.RawTensor{"weight": c.weight.Tensor()}
	if c.useBias {
		dict["bias"] = c.bias.Tensor()
	}
	return dict
}

// LoadStateDict loads the layer's weights.
func (c *Conv2D) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	params := map[string]*Parameter{"weight": c.weight}
	if c.useBias {
		params["bias"] = c.bias
	}
	return loadStateDict(stateDict, params)
}

// String returns a string representation of the layer.
func (c *Conv2D) String() string {
	return fmt.Sprintf("Conv2D(in_channels=%d, out_channels=%d, kernel_size=(%d, %d), stride=%d, padding=%d, groups=%d, bias=%v)",
		c.inChannels, c.outChannels,
		c.kernelSize[0], c.kernelSize[1],
		c.stride, c.padding, c.groups, c.useBias)
}

// OutChannels returns the number of output channels.
func (c *Conv2D) OutChannels() int {
	return c.outChannels
}

// InChannels returns the number of input channels.
func (c *Conv2D) InChannels() int {
	return c.inChannels
}

// KernelSize returns the kernel size [height, width].
func (c *Conv2D) KernelSize() [2]int {
	return c.kernelSize
}

// Stride returns the stride.
func (c *Conv2D) Stride() int {
	return c.stride
}

// Padding returns the padding.
func (c *Conv2D) Padding() int {
	return c.padding
}

// Groups returns the number of convolution groups.
func (c *Conv2D) Groups() int {
	return c.groups
}

// ComputeOutputSize computes output spatial dimensions for given input size.
//
// Returns: [out_height, out_width].
func (c *Conv2D) ComputeOutputSize(inputH, inputW int) [2]int {
	outH := (inputH+2*c.padding-c.kernelSize[0])/c.stride + 1
	outW := (inputW+2*c.padding-c.kernelSize[1])/c.stride + 1
	return [2]int{outH, outW}
}
