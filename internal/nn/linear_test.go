package nn

import (
	"testing"

	"github.com/dejaview-ml/dejaview/internal/onnx"
	"github.com/dejaview-ml/dejaview/internal/tensor"
)

func TestNewLinear(t *testing.T) {
	lin := NewLinear(1280, 1000)

	if lin.InFeatures() != 1280 || lin.OutFeatures() != 1000 {
		t.Errorf("features in=%d out=%d, want 1280/1000", lin.InFeatures(), lin.OutFeatures())
	}
	if got := lin.weight.Tensor().Shape(); !got.Equal(tensor.Shape{1000, 1280}) {
		t.Errorf("weight shape %v, want [1000 1280]", got)
	}
	if got := lin.bias.Tensor().Shape(); !got.Equal(tensor.Shape{1000}) {
		t.Errorf("bias shape %v, want [1000]", got)
	}
}

func TestNewLinearPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for non-positive features")
		}
	}()
	NewLinear(0, 10)
}

func TestLinearTrace(t *testing.T) {
	lin := NewLinear(1280, 1000)
	ctx := newTraceContext(13, false)
	in := traceInput(t, ctx, tensor.Shape{1, 1280})

	out, err := lin.Trace(ctx, in)
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}

	if !out.Shape.Equal(tensor.Shape{1, 1000}) {
		t.Errorf("output shape %v, want [1 1000]", out.Shape)
	}

	node := ctx.Graph.Nodes()[0]
	if node.OpType != "Gemm" {
		t.Errorf("op type %q, want Gemm", node.OpType)
	}
	if len(node.Inputs) != 3 {
		t.Fatalf("expected 3 inputs, got %v", node.Inputs)
	}
	if node.Inputs[1] != "Gemm_0.weight" || node.Inputs[2] != "Gemm_0.bias" {
		t.Errorf("unexpected inputs %v", node.Inputs)
	}

	if got := findAttribute(t, node, "alpha").F; got != 1 {
		t.Errorf("alpha %g, want 1", got)
	}
	if got := findAttribute(t, node, "beta").F; got != 1 {
		t.Errorf("beta %g, want 1", got)
	}
	if got := findAttribute(t, node, "transB").I; got != 1 {
		t.Errorf("transB %d, want 1", got)
	}
}

func TestLinearTraceErrors(t *testing.T) {
	lin := NewLinear(128, 10)
	ctx := newTraceContext(13, false)

	if _, err := lin.Trace(ctx, onnx.Value{Name: "x", Shape: tensor.Shape{1, 2, 64}}); err == nil {
		t.Error("expected error for 3D input")
	}
	if _, err := lin.Trace(ctx, onnx.Value{Name: "y", Shape: tensor.Shape{1, 64}}); err == nil {
		t.Error("expected error for feature mismatch")
	}
}
