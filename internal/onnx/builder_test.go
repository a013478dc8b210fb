package onnx

import (
	"errors"
	"testing"

	"github.com/dejaview-ml/dejaview/internal/tensor"
)

func TestGraphBuilderNodeNames(t *testing.T) {
	b := NewGraphBuilder("g")

	if got := b.NodeName("Conv"); got != "Conv_0" {
		t.Errorf("first Conv name %q", got)
	}
	if got := b.NodeName("Conv"); got != "Conv_1" {
		t.Errorf("second Conv name %q", got)
	}
	if got := b.NodeName("Gemm"); got != "Gemm_0" {
		t.Errorf("first Gemm name %q", got)
	}
}

func TestGraphBuilderDuplicateInput(t *testing.T) {
	b := NewGraphBuilder("g")
	if _, err := b.AddInput("input", tensor.Shape{1, 3}, TensorProtoFloat); err != nil {
		t.Fatal(err)
	}
	_, err := b.AddInput("input", tensor.Shape{1, 3}, TensorProtoFloat)
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
}

func TestGraphBuilderAddInitializer(t *testing.T) {
	b := NewGraphBuilder("g")
	w, err := tensor.FromFloat32(tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}

	if err := b.AddInitializer("w", w); err != nil {
		t.Fatalf("AddInitializer failed: %v", err)
	}
	if err := b.AddInitializer("w", w); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}

	inits := b.Initializers()
	if len(inits) != 1 {
		t.Fatalf("expected 1 initializer, got %d", len(inits))
	}
	ti := inits[0]
	if ti.DataType != TensorProtoFloat {
		t.Errorf("data type %d", ti.DataType)
	}
	if len(ti.Dims) != 2 || ti.Dims[0] != 2 || ti.Dims[1] != 2 {
		t.Errorf("dims %v", ti.Dims)
	}
	if len(ti.RawData) != 16 {
		t.Errorf("raw data %d bytes, want 16", len(ti.RawData))
	}

	// The initializer must hold its own copy of the weight bytes.
	w.AsFloat32()[0] = 99
	if ti.RawData[3] != 0x3f { // float32(1) little-endian ends in 0x3f
		t.Error("initializer shares memory with the source tensor")
	}
}

func TestGraphBuilderAddScalar(t *testing.T) {
	b := NewGraphBuilder("g")
	if err := b.AddScalar("min", 0); err != nil {
		t.Fatalf("AddScalar failed: %v", err)
	}

	ti := b.Initializers()[0]
	if len(ti.Dims) != 0 {
		t.Errorf("scalar dims %v, want none", ti.Dims)
	}
	if len(ti.RawData) != 4 {
		t.Errorf("scalar raw data %d bytes, want 4", len(ti.RawData))
	}
}

func TestGraphBuilderRename(t *testing.T) {
	b := NewGraphBuilder("g")
	in, err := b.AddInput("input", tensor.Shape{1}, TensorProtoFloat)
	if err != nil {
		t.Fatal(err)
	}
	b.AddNode(NodeProto{
		Name: "Relu_0", OpType: "Relu",
		Inputs: []string{in.Name}, Outputs: []string{"Relu_0_output"},
	})
	b.AddNode(NodeProto{
		Name: "Relu_1", OpType: "Relu",
		Inputs: []string{"Relu_0_output"}, Outputs: []string{"Relu_1_output"},
	})

	if err := b.Rename("Relu_0_output", "mid"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if b.Nodes()[0].Outputs[0] != "mid" {
		t.Errorf("producer output %q, want mid", b.Nodes()[0].Outputs[0])
	}
	if b.Nodes()[1].Inputs[0] != "mid" {
		t.Errorf("consumer input %q, want mid", b.Nodes()[1].Inputs[0])
	}

	if err := b.Rename("ghost", "x"); err == nil {
		t.Error("expected error renaming unknown tensor")
	}
	if err := b.Rename("mid", "input"); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
}
