package onnx

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dejaview-ml/dejaview/internal/tensor"
)

// reluModel is a minimal traced model for export tests.
type reluModel struct {
	training bool
}

func (m *reluModel) Training() bool { return m.training }

func (m *reluModel) Trace(ctx *TraceContext, input Value) (Value, error) {
	g := ctx.Graph
	node := g.NodeName("Relu")
	out := node + "_output"
	g.AddNode(NodeProto{
		Name:    node,
		OpType:  "Relu",
		Inputs:  []string{input.Name},
		Outputs: []string{out},
	})
	return Value{Name: out, Shape: input.Shape.Clone(), ElemType: input.ElemType}, nil
}

func dummyInput(t *testing.T, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	d, err := tensor.Zeros(shape)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestExportWritesValidModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.onnx")
	dummy := dummyInput(t, tensor.Shape{1, 3, 224, 224})

	err := Export(&reluModel{}, dummy, path, ExportOptions{
		OpsetVersion: 11,
		DynamicAxes: DynamicAxes{
			"input":  {0: "batch_size", 2: "height", 3: "width"},
			"output": {0: "batch_size"},
		},
	})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	proto, err := ParseFile(path)
	if err != nil {
		t.Fatalf("exported file does not parse: %v", err)
	}
	if proto.IRVersion != 6 {
		t.Errorf("ir version %d, want 6 for opset 11", proto.IRVersion)
	}
	if proto.OpsetImport[0].Version != 11 {
		t.Errorf("opset %d, want 11", proto.OpsetImport[0].Version)
	}
	if proto.ProducerName != "dejaview" {
		t.Errorf("producer %q", proto.ProducerName)
	}

	graph := proto.Graph
	if graph.Inputs[0].Name != "input" || graph.Outputs[0].Name != "output" {
		t.Errorf("default tensor names %q/%q", graph.Inputs[0].Name, graph.Outputs[0].Name)
	}

	dims := graph.Inputs[0].Type.TensorType.Shape.Dims
	if dims[0].DimParam != "batch_size" || dims[1].DimValue != 3 {
		t.Errorf("input dims %+v", dims)
	}
	if dims[2].DimParam != "height" || dims[3].DimParam != "width" {
		t.Errorf("spatial dims not dynamic: %+v", dims)
	}
	outDims := graph.Outputs[0].Type.TensorType.Shape.Dims
	if outDims[0].DimParam != "batch_size" {
		t.Errorf("output dims %+v", outDims)
	}

	// The trace output must be renamed to the public output name.
	if got := graph.Nodes[0].Outputs[0]; got != "output" {
		t.Errorf("node output %q, want output", got)
	}
}

func TestExportDeterministic(t *testing.T) {
	dir := t.TempDir()
	dummy := dummyInput(t, tensor.Shape{1, 3, 8, 8})
	opts := ExportOptions{OpsetVersion: 11}

	a := filepath.Join(dir, "a.onnx")
	b := filepath.Join(dir, "b.onnx")
	if err := Export(&reluModel{}, dummy, a, opts); err != nil {
		t.Fatal(err)
	}
	if err := Export(&reluModel{}, dummy, b, opts); err != nil {
		t.Fatal(err)
	}

	da, err := os.ReadFile(a)
	if err != nil {
		t.Fatal(err)
	}
	db, err := os.ReadFile(b)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(da, db) {
		t.Error("two exports of the same model differ")
	}
}

func TestExportDefaultOpset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.onnx")
	dummy := dummyInput(t, tensor.Shape{1, 4})

	if err := Export(&reluModel{}, dummy, path, ExportOptions{}); err != nil {
		t.Fatal(err)
	}
	info, err := ReadInfo(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.OpsetVersion != DefaultOpset {
		t.Errorf("opset %d, want default %d", info.OpsetVersion, DefaultOpset)
	}
}

func TestExportUnsupportedOpset(t *testing.T) {
	dummy := dummyInput(t, tensor.Shape{1, 4})
	for _, opset := range []int64{8, 14, -1} {
		err := Export(&reluModel{}, dummy, "ignored.onnx", ExportOptions{OpsetVersion: opset})
		if !errors.Is(err, ErrUnsupportedOpset) {
			t.Errorf("opset %d: expected ErrUnsupportedOpset, got %v", opset, err)
		}
	}
}

func TestExportUnknownDynamicAxisTensor(t *testing.T) {
	dummy := dummyInput(t, tensor.Shape{1, 4})
	err := Export(&reluModel{}, dummy, "ignored.onnx", ExportOptions{
		DynamicAxes: DynamicAxes{"ghost": {0: "batch_size"}},
	})
	if !errors.Is(err, ErrUnknownTensor) {
		t.Errorf("expected ErrUnknownTensor, got %v", err)
	}
}

func TestExportAxisOutOfRange(t *testing.T) {
	dummy := dummyInput(t, tensor.Shape{1, 4})
	err := Export(&reluModel{}, dummy, "ignored.onnx", ExportOptions{
		DynamicAxes: DynamicAxes{"input": {5: "batch_size"}},
	})
	if !errors.Is(err, ErrAxisOutOfRange) {
		t.Errorf("expected ErrAxisOutOfRange, got %v", err)
	}
}

func TestExportNilInput(t *testing.T) {
	err := Export(&reluModel{}, nil, "ignored.onnx", ExportOptions{})
	if !errors.Is(err, ErrNilInput) {
		t.Errorf("expected ErrNilInput, got %v", err)
	}
}

func TestExportMissingDirLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "does", "not", "exist", "model.onnx")
	dummy := dummyInput(t, tensor.Shape{1, 4})

	if err := Export(&reluModel{}, dummy, path, ExportOptions{}); err == nil {
		t.Fatal("expected error for missing parent directory")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("a partial file was left behind")
	}
}

func TestExportCustomNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.onnx")
	dummy := dummyInput(t, tensor.Shape{1, 4})

	err := Export(&reluModel{}, dummy, path, ExportOptions{
		InputNames:  []string{"pixels"},
		OutputNames: []string{"logits"},
		GraphName:   "classifier",
	})
	if err != nil {
		t.Fatal(err)
	}

	info, err := ReadInfo(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.GraphName != "classifier" {
		t.Errorf("graph name %q", info.GraphName)
	}
	if len(info.InputNames) != 1 || info.InputNames[0] != "pixels" {
		t.Errorf("input names %v", info.InputNames)
	}
	if len(info.OutputNames) != 1 || info.OutputNames[0] != "logits" {
		t.Errorf("output names %v", info.OutputNames)
	}
}

func TestExportRejectsMultipleNames(t *testing.T) {
	dummy := dummyInput(t, tensor.Shape{1, 4})
	err := Export(&reluModel{}, dummy, "ignored.onnx", ExportOptions{
		InputNames: []string{"a", "b"},
	})
	if err == nil {
		t.Error("expected error for multiple input names")
	}
}

func TestExportTrainingFlagReachesTrace(t *testing.T) {
	var seen bool
	model := traceFunc(func(ctx *TraceContext, input Value) (Value, error) {
		seen = ctx.Training
		g := ctx.Graph
		g.AddNode(NodeProto{OpType: "Identity", Name: "Identity_0",
			Inputs: []string{input.Name}, Outputs: []string{"Identity_0_output"}})
		return Value{Name: "Identity_0_output", Shape: input.Shape, ElemType: input.ElemType}, nil
	})

	dummy := dummyInput(t, tensor.Shape{1, 4})
	path := filepath.Join(t.TempDir(), "m.onnx")
	if err := Export(trainingModel{model}, dummy, path, ExportOptions{}); err != nil {
		t.Fatal(err)
	}
	if !seen {
		t.Error("ctx.Training not set from the model's Training method")
	}
}

type traceFunc func(ctx *TraceContext, input Value) (Value, error)

func (f traceFunc) Trace(ctx *TraceContext, input Value) (Value, error) { return f(ctx, input) }

type trainingModel struct{ traceFunc }

func (trainingModel) Training() bool { return true }
