package zoo

import (
	"fmt"
	"strings"

	"github.com/dejaview-ml/dejaview/internal/nn"
	"github.com/dejaview-ml/dejaview/internal/onnx"
	"github.com/dejaview-ml/dejaview/internal/tensor"
)

// MobileNetV2 is the classification network from "MobileNetV2: Inverted
// Residuals and Linear Bottlenecks" (https://arxiv.org/abs/1801.04381).
//
// The layer layout and state dict keys mirror the torchvision reference
// model, so checkpoints converted from torchvision load without any key
// remapping: "features.0.0.weight", "features.1.conv.0.0.weight",
// "classifier.1.weight" and so on.
type MobileNetV2 struct {
	features   *nn.Sequential
	pool       *nn.GlobalAvgPool2D
	flatten    *nn.Flatten
	classifier *nn.Sequential

	numClasses int
}

// Per-stage config: expansion factor, output channels, repeats, first stride.
var mobileNetV2Setting = [][4]int{
	{1, 16, 1, 1},
	{6, 24, 2, 2},
	{6, 32, 3, 2},
	{6, 64, 4, 2},
	{6, 96, 3, 1},
	{6, 160, 3, 2},
	{6, 320, 1, 1},
}

// NewMobileNetV2 builds a MobileNetV2 with width multiplier 1.0 and the given
// number of output classes (1000 for ImageNet).
func NewMobileNetV2(numClasses int) *MobileNetV2 {
	if numClasses <= 0 {
		panic(fmt.Sprintf("mobilenetv2: invalid num_classes %d", numClasses))
	}

	const (
		widthMult   = 1.0
		roundTo     = 8
		lastChannel = 1280
	)

	inCh := makeDivisible(32*widthMult, roundTo)
	outCh := makeDivisible(lastChannel*widthMult, roundTo)

	features := nn.NewSequential(newConvBNActivation(3, inCh, 3, 2, 1))
	for _, s := range mobileNetV2Setting {
		expand, c, repeats, stride := s[0], s[1], s[2], s[3]
		ch := makeDivisible(float64(c)*widthMult, roundTo)
		for i := 0; i < repeats; i++ {
			st := 1
			if i == 0 {
				st = stride
			}
			features.Add(newInvertedResidual(inCh, ch, st, expand))
			inCh = ch
		}
	}
	features.Add(newConvBNActivation(inCh, outCh, 1, 1, 1))

	classifier := nn.NewSequential(
		nn.NewDropout(0.2),
		nn.NewLinear(outCh, numClasses),
	)

	return &MobileNetV2{
		features:   features,
		pool:       nn.NewGlobalAvgPool2D(),
		flatten:    nn.NewFlatten(1),
		classifier: classifier,
		numClasses: numClasses,
	}
}

// Trace runs the backbone, pooling, flatten and classifier head in order.
//
// Input: [batch, 3, height, width]. Output: [batch, num_classes].
func (m *MobileNetV2) Trace(ctx *onnx.TraceContext, input onnx.Value) (onnx.Value, error) {
	v, err := m.features.Trace(ctx, input)
	if err != nil {
		return onnx.Value{}, fmt.Errorf("features: %w", err)
	}
	if v, err = m.pool.Trace(ctx, v); err != nil {
		return onnx.Value{}, err
	}
	if v, err = m.flatten.Trace(ctx, v); err != nil {
		return onnx.Value{}, err
	}
	if v, err = m.classifier.Trace(ctx, v); err != nil {
		return onnx.Value{}, fmt.Errorf("classifier: %w", err)
	}
	return v, nil
}

// Parameters returns all trainable parameters.
func (m *MobileNetV2) Parameters() []*nn.Parameter {
	params := m.features.Parameters()
	return append(params, m.classifier.Parameters()...)
}

// StateDict returns all weights under torchvision-compatible keys.
func (m *MobileNetV2) StateDict() map[string]*tensor.RawTensor {
	dict := make(map[string]*tensor.RawTensor)
	for name, t := range m.features.StateDict() {
		dict["features."+name] = t
	}
	for name, t := range m.classifier.StateDict() {
		dict["classifier."+name] = t
	}
	return dict
}

// LoadStateDict loads weights keyed the torchvision way.
func (m *MobileNetV2) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	features := make(map[string]*tensor.RawTensor)
	classifier := make(map[string]*tensor.RawTensor)
	for name, t := range stateDict {
		switch {
		case strings.HasPrefix(name, "features."):
			features[strings.TrimPrefix(name, "features.")] = t
		case strings.HasPrefix(name, "classifier."):
			classifier[strings.TrimPrefix(name, "classifier.")] = t
		default:
			return fmt.Errorf("mobilenetv2: unexpected state dict key %q", name)
		}
	}
	if err := m.features.LoadStateDict(features); err != nil {
		return fmt.Errorf("features: %w", err)
	}
	if err := m.classifier.LoadStateDict(classifier); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	return nil
}

// NumClasses returns the classifier output size.
func (m *MobileNetV2) NumClasses() int {
	return m.numClasses
}

// newConvBNActivation builds the Conv+BatchNorm+ReLU6 block. Returned as a
// Sequential so nested state dict keys come out as "0.weight" (conv) and
// "1.weight" (bn), the torchvision ConvBNReLU layout.
func newConvBNActivation(inCh, outCh, kernel, stride, groups int) *nn.Sequential {
	padding := (kernel - 1) / 2
	return nn.NewSequential(
		nn.NewConv2D(inCh, outCh, kernel, kernel, stride, padding, groups, false),
		nn.NewBatchNorm2D(outCh),
		nn.NewReLU6(),
	)
}

// invertedResidual is the MobileNetV2 bottleneck block: pointwise expansion,
// depthwise convolution, linear pointwise projection, with a residual Add
// when the block preserves shape.
type invertedResidual struct {
	conv        *nn.Sequential
	useResidual bool
}

func newInvertedResidual(inCh, outCh, stride, expand int) *invertedResidual {
	if stride != 1 && stride != 2 {
		panic(fmt.Sprintf("inverted residual: invalid stride %d", stride))
	}

	hidden := inCh * expand

	conv := nn.NewSequential()
	if expand != 1 {
		conv.Add(newConvBNActivation(inCh, hidden, 1, 1, 1))
	}
	conv.Add(newConvBNActivation(hidden, hidden, 3, stride, hidden))
	conv.Add(nn.NewConv2D(hidden, outCh, 1, 1, 1, 0, 1, false))
	conv.Add(nn.NewBatchNorm2D(outCh))

	return &invertedResidual{
		conv:        conv,
		useResidual: stride == 1 && inCh == outCh,
	}
}

// Trace runs the bottleneck and, when shape is preserved, adds the skip
// connection with an Add node.
func (b *invertedResidual) Trace(ctx *onnx.TraceContext, input onnx.Value) (onnx.Value, error) {
	out, err := b.conv.Trace(ctx, input)
	if err != nil {
		return onnx.Value{}, err
	}
	if !b.useResidual {
		return out, nil
	}

	g := ctx.Graph
	node := g.NodeName("Add")
	sumName := node + "_output"
	g.AddNode(onnx.NodeProto{
		Name:    node,
		OpType:  "Add",
		Inputs:  []string{input.Name, out.Name},
		Outputs: []string{sumName},
	})
	return onnx.Value{Name: sumName, Shape: out.Shape.Clone(), ElemType: out.ElemType}, nil
}

// Parameters returns the block's trainable parameters.
func (b *invertedResidual) Parameters() []*nn.Parameter {
	return b.conv.Parameters()
}

// StateDict returns the block's weights under the "conv." prefix.
func (b *invertedResidual) StateDict() map[string]*tensor.RawTensor {
	dict := make(map[string]*tensor.RawTensor)
	for name, t := range b.conv.StateDict() {
		dict["conv."+name] = t
	}
	return dict
}

// LoadStateDict loads the block's weights from "conv."-prefixed keys.
func (b *invertedResidual) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	sub := make(map[string]*tensor.RawTensor)
	for name, t := range stateDict {
		if strings.HasPrefix(name, "conv.") {
			sub[strings.TrimPrefix(name, "conv.")] = t
		}
	}
	return b.conv.LoadStateDict(sub)
}

// makeDivisible rounds channel counts to the nearest multiple of divisor,
// never going below 90% of the original value. Taken from the MobileNet
// reference implementation.
func makeDivisible(v float64, divisor int) int {
	d := float64(divisor)
	n := int((v + d/2) / d)
	next := n * divisor
	if next < divisor {
		next = divisor
	}
	if float64(next) < 0.9*v {
		next += divisor
	}
	return next
}
