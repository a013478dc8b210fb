package nn

import (
	"fmt"

	"github.com/dejaview-ml/dejaview/internal/tensor"
)

// Parameter represents a named weight tensor of a layer.
//
// Parameters typically hold weights and biases; BatchNorm additionally keeps
// non-trainable running statistics as parameters so they travel with the
// state dict.
type Parameter struct {
	name   string
	tensor *tensor.RawTensor
}

// NewParameter creates a new parameter.
func NewParameter(name string, t *tensor.RawTensor) *Parameter {
	return &Parameter{name: name, tensor: t}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.RawTensor {
	return p.tensor
}

// load copies values from src into the parameter, checking shape and type.
func (p *Parameter) load(src *tensor.RawTensor) error {
	if src == nil {
		return fmt.Errorf("parameter %s: source tensor is nil", p.name)
	}
	if !p.tensor.Shape().Equal(src.Shape()) {
		return fmt.Errorf("parameter %s: shape mismatch: have %v, want %v",
			p.name, src.Shape(), p.tensor.Shape())
	}
	if p.tensor.DType() != src.DType() {
		return fmt.Errorf("parameter %s: dtype mismatch: have %s, want %s",
			p.name, src.DType(), p.tensor.DType())
	}
	copy(p.tensor.Data(), src.Data())
	return nil
}

// loadStateDict copies the named entries into the given parameters.
// Every parameter must be present in the state dict.
func loadStateDict(stateDict map[string]*tensor.RawTensor, params map[string]*Parameter) error {
	for name, param := range params {
		src, ok := stateDict[name]
		if !ok {
			return fmt.Errorf("missing state dict entry: %s", name)
		}
		if err := param.load(src); err != nil {
			return err
		}
	}
	return nil
}
