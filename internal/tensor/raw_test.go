package tensor

import (
	"math/rand"
	"testing"
)

func TestNewRawZeroInitialized(t *testing.T) {
	raw, err := NewRaw(Shape{2, 3}, Float32)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}

	if raw.NumElements() != 6 {
		t.Errorf("NumElements = %d, want 6", raw.NumElements())
	}
	if raw.ByteSize() != 24 {
		t.Errorf("ByteSize = %d, want 24", raw.ByteSize())
	}
	for i, v := range raw.AsFloat32() {
		if v != 0 {
			t.Errorf("element %d = %f, want 0", i, v)
		}
	}
}

func TestNewRawInvalidShape(t *testing.T) {
	if _, err := NewRaw(Shape{2, 0}, Float32); err == nil {
		t.Error("NewRaw should fail for zero dimension")
	}
	if _, err := NewRaw(Shape{-1, 3}, Float32); err == nil {
		t.Error("NewRaw should fail for negative dimension")
	}
}

func TestRawTensorAsFloat32ZeroCopy(t *testing.T) {
	raw, _ := NewRaw(Shape{3, 2}, Float32)
	data := raw.AsFloat32()

	if len(data) != 6 {
		t.Errorf("AsFloat32 length = %d, want 6", len(data))
	}

	// Modify and verify zero-copy
	data[0] = 42
	if raw.AsFloat32()[0] != 42 {
		t.Error("AsFloat32 should return zero-copy slice")
	}
}

func TestFromFloat32(t *testing.T) {
	raw, err := FromFloat32(Shape{2, 2}, []float32{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("FromFloat32 failed: %v", err)
	}
	if raw.AsFloat32()[3] != 4 {
		t.Errorf("element 3 = %f, want 4", raw.AsFloat32()[3])
	}

	if _, err := FromFloat32(Shape{2, 2}, []float32{1, 2}); err == nil {
		t.Error("FromFloat32 should fail on element count mismatch")
	}
}

func TestCloneIsDeep(t *testing.T) {
	raw, _ := FromFloat32(Shape{2}, []float32{1, 2})
	clone := raw.Clone()

	clone.AsFloat32()[0] = 99
	if raw.AsFloat32()[0] != 1 {
		t.Error("Clone should not share memory with the original")
	}
	if !clone.Shape().Equal(raw.Shape()) {
		t.Errorf("Clone shape = %v, want %v", clone.Shape(), raw.Shape())
	}
}

func TestRandnSourceDeterministic(t *testing.T) {
	a, err := RandnSource(Shape{1, 3, 4, 4}, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("RandnSource failed: %v", err)
	}
	b, _ := RandnSource(Shape{1, 3, 4, 4}, rand.New(rand.NewSource(7)))

	av, bv := a.AsFloat32(), b.AsFloat32()
	for i := range av {
		if av[i] != bv[i] {
			t.Fatalf("element %d differs: %f vs %f", i, av[i], bv[i])
		}
	}
}
