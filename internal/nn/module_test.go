package nn

import (
	"testing"

	"github.com/dejaview-ml/dejaview/internal/tensor"
)

func TestReLUTrace(t *testing.T) {
	ctx := newTraceContext(13, false)
	in := traceInput(t, ctx, tensor.Shape{1, 32, 8, 8})

	out, err := NewReLU().Trace(ctx, in)
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	if !out.Shape.Equal(in.Shape) {
		t.Errorf("output shape %v, want %v", out.Shape, in.Shape)
	}

	node := ctx.Graph.Nodes()[0]
	if node.OpType != "Relu" {
		t.Errorf("op type %q, want Relu", node.OpType)
	}
	if len(node.Attributes) != 0 {
		t.Errorf("Relu should have no attributes, got %v", node.Attributes)
	}
}

func TestReLU6TraceOldOpset(t *testing.T) {
	ctx := newTraceContext(10, false)
	in := traceInput(t, ctx, tensor.Shape{1, 32, 8, 8})

	if _, err := NewReLU6().Trace(ctx, in); err != nil {
		t.Fatalf("Trace failed: %v", err)
	}

	node := ctx.Graph.Nodes()[0]
	if node.OpType != "Clip" {
		t.Errorf("op type %q, want Clip", node.OpType)
	}
	if len(node.Inputs) != 1 {
		t.Errorf("opset 10 Clip should take 1 input, got %v", node.Inputs)
	}
	if got := findAttribute(t, node, "min").F; got != 0 {
		t.Errorf("min %g, want 0", got)
	}
	if got := findAttribute(t, node, "max").F; got != 6 {
		t.Errorf("max %g, want 6", got)
	}
}

func TestReLU6TraceNewOpset(t *testing.T) {
	ctx := newTraceContext(11, false)
	in := traceInput(t, ctx, tensor.Shape{1, 32, 8, 8})

	if _, err := NewReLU6().Trace(ctx, in); err != nil {
		t.Fatalf("Trace failed: %v", err)
	}

	node := ctx.Graph.Nodes()[0]
	if len(node.Inputs) != 3 {
		t.Fatalf("opset 11 Clip should take 3 inputs, got %v", node.Inputs)
	}
	if node.Inputs[1] != "Clip_0_min" || node.Inputs[2] != "Clip_0_max" {
		t.Errorf("unexpected bound inputs %v", node.Inputs)
	}
	if len(node.Attributes) != 0 {
		t.Errorf("opset 11 Clip should have no attributes, got %v", node.Attributes)
	}

	inits := ctx.Graph.Initializers()
	if len(inits) != 2 {
		t.Fatalf("expected 2 scalar initializers, got %d", len(inits))
	}
	if len(inits[0].Dims) != 0 {
		t.Errorf("min initializer should be scalar, got dims %v", inits[0].Dims)
	}
}

func TestDropoutEvalIsIdentity(t *testing.T) {
	ctx := newTraceContext(13, false)
	in := traceInput(t, ctx, tensor.Shape{1, 1280})

	out, err := NewDropout(0.2).Trace(ctx, in)
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	if out.Name != in.Name {
		t.Errorf("eval-mode dropout should pass input through, got %q", out.Name)
	}
	if ctx.Graph.NodeCount() != 0 {
		t.Errorf("eval-mode dropout emitted %d nodes", ctx.Graph.NodeCount())
	}
}

func TestDropoutTrainingOldOpset(t *testing.T) {
	ctx := newTraceContext(11, true)
	in := traceInput(t, ctx, tensor.Shape{1, 1280})

	if _, err := NewDropout(0.2).Trace(ctx, in); err != nil {
		t.Fatalf("Trace failed: %v", err)
	}

	node := ctx.Graph.Nodes()[0]
	if node.OpType != "Dropout" {
		t.Errorf("op type %q, want Dropout", node.OpType)
	}
	if got := findAttribute(t, node, "ratio").F; got != 0.2 {
		t.Errorf("ratio %g, want 0.2", got)
	}
}

func TestDropoutTrainingNewOpset(t *testing.T) {
	ctx := newTraceContext(12, true)
	in := traceInput(t, ctx, tensor.Shape{1, 1280})

	if _, err := NewDropout(0.2).Trace(ctx, in); err != nil {
		t.Fatalf("Trace failed: %v", err)
	}

	node := ctx.Graph.Nodes()[0]
	if len(node.Inputs) != 2 || node.Inputs[1] != "Dropout_0_ratio" {
		t.Errorf("opset 12 Dropout inputs %v, want ratio as second input", node.Inputs)
	}
	if len(node.Attributes) != 0 {
		t.Errorf("opset 12 Dropout should have no attributes, got %v", node.Attributes)
	}
}

func TestNewDropoutPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for p=1")
		}
	}()
	NewDropout(1)
}

func TestBatchNorm2DTrace(t *testing.T) {
	bn := NewBatchNorm2D(32)
	ctx := newTraceContext(13, false)
	in := traceInput(t, ctx, tensor.Shape{1, 32, 8, 8})

	out, err := bn.Trace(ctx, in)
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	if !out.Shape.Equal(in.Shape) {
		t.Errorf("output shape %v, want %v", out.Shape, in.Shape)
	}

	node := ctx.Graph.Nodes()[0]
	if node.OpType != "BatchNormalization" {
		t.Errorf("op type %q, want BatchNormalization", node.OpType)
	}
	want := []string{"input",
		"BatchNormalization_0.weight",
		"BatchNormalization_0.bias",
		"BatchNormalization_0.running_mean",
		"BatchNormalization_0.running_var",
	}
	if len(node.Inputs) != len(want) {
		t.Fatalf("inputs %v, want %v", node.Inputs, want)
	}
	for i := range want {
		if node.Inputs[i] != want[i] {
			t.Errorf("input[%d] = %q, want %q", i, node.Inputs[i], want[i])
		}
	}
	if got := findAttribute(t, node, "epsilon").F; got != 1e-5 {
		t.Errorf("epsilon %g, want 1e-5", got)
	}
}

func TestBatchNorm2DRejectsTraining(t *testing.T) {
	bn := NewBatchNorm2D(32)
	ctx := newTraceContext(13, true)
	in := traceInput(t, ctx, tensor.Shape{1, 32, 8, 8})

	if _, err := bn.Trace(ctx, in); err == nil {
		t.Error("expected error tracing batchnorm in training mode")
	}
}

func TestBatchNorm2DStateDict(t *testing.T) {
	bn := NewBatchNorm2D(16)
	dict := bn.StateDict()

	for _, key := range []string{"weight", "bias", "running_mean", "running_var"} {
		if _, ok := dict[key]; !ok {
			t.Errorf("state dict missing %q", key)
		}
	}
	if len(bn.Parameters()) != 2 {
		t.Errorf("expected 2 trainable parameters, got %d", len(bn.Parameters()))
	}

	// running_var starts at 1, running_mean at 0
	if got := dict["running_var"].AsFloat32()[0]; got != 1 {
		t.Errorf("running_var[0] = %g, want 1", got)
	}
	if got := dict["running_mean"].AsFloat32()[0]; got != 0 {
		t.Errorf("running_mean[0] = %g, want 0", got)
	}
}

func TestGlobalAvgPool2DTrace(t *testing.T) {
	ctx := newTraceContext(13, false)
	in := traceInput(t, ctx, tensor.Shape{1, 1280, 7, 7})

	out, err := NewGlobalAvgPool2D().Trace(ctx, in)
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	if !out.Shape.Equal(tensor.Shape{1, 1280, 1, 1}) {
		t.Errorf("output shape %v, want [1 1280 1 1]", out.Shape)
	}
	if ctx.Graph.Nodes()[0].OpType != "GlobalAveragePool" {
		t.Errorf("op type %q", ctx.Graph.Nodes()[0].OpType)
	}
}

func TestFlattenTrace(t *testing.T) {
	ctx := newTraceContext(13, false)
	in := traceInput(t, ctx, tensor.Shape{2, 1280, 1, 1})

	out, err := NewFlatten(1).Trace(ctx, in)
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	if !out.Shape.Equal(tensor.Shape{2, 1280}) {
		t.Errorf("output shape %v, want [2 1280]", out.Shape)
	}

	node := ctx.Graph.Nodes()[0]
	if node.OpType != "Flatten" {
		t.Errorf("op type %q, want Flatten", node.OpType)
	}
	if got := findAttribute(t, node, "axis").I; got != 1 {
		t.Errorf("axis %d, want 1", got)
	}
}
