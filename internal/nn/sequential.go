package nn

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dejaview-ml/dejaview/internal/onnx"
	"github.com/dejaview-ml/dejaview/internal/tensor"
)

// Sequential chains modules together, passing each traced value to the next.
//
// State dict keys are prefixed with the child's index, matching the flat
// naming convention used by safetensors checkpoints ("0.weight", "1.bias", ...).
//
// Example:
//
//	model := nn.NewSequential(
//		nn.NewLinear(784, 128),
//		nn.NewReLU(),
//		nn.NewLinear(128, 10),
//	)
type Sequential struct {
	modules []Module
}

// NewSequential creates a sequential container from the given modules.
func NewSequential(modules ...Module) *Sequential {
	return &Sequential{modules: modules}
}

// Add appends a module to the chain.
func (s *Sequential) Add(m Module) {
	s.modules = append(s.modules, m)
}

// Trace runs each child module in order.
func (s *Sequential) Trace(ctx *onnx.TraceContext, input onnx.Value) (onnx.Value, error) {
	value := input
	for i, m := range s.modules {
		out, err := m.Trace(ctx, value)
		if err != nil {
			return onnx.Value{}, fmt.Errorf("sequential[%d]: %w", i, err)
		}
		value = out
	}
	return value, nil
}

// Parameters returns the parameters of every child module, in order.
func (s *Sequential) Parameters() []*Parameter {
	var params []*Parameter
	for _, m := range s.modules {
		params = append(params, m.Parameters()...)
	}
	return params
}

// StateDict returns all child weights, keyed by child index.
func (s *Sequential) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for i, m := range s.modules {
		prefix := strconv.Itoa(i) + "."
		for name, t := range m.StateDict() {
			stateDict[prefix+name] = t
		}
	}
	return stateDict
}

// LoadStateDict distributes index-prefixed weights to the child modules.
func (s *Sequential) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for i, m := range s.modules {
		prefix := strconv.Itoa(i) + "."
		sub := make(map[string]*tensor.RawTensor)
		for name, t := range stateDict {
			if strings.HasPrefix(name, prefix) {
				sub[strings.TrimPrefix(name, prefix)] = t
			}
		}
		if len(sub) == 0 && len(m.StateDict()) == 0 {
			// stateless module, nothing to load
			continue
		}
		if err := m.LoadStateDict(sub); err != nil {
			return fmt.Errorf("sequential[%d]: %w", i, err)
		}
	}
	return nil
}

// Len returns the number of child modules.
func (s *Sequential) Len() int {
	return len(s.modules)
}

// Module returns the child module at index i.
func (s *Sequential) Module(i int) Module {
	return s.modules[i]
}

// String returns a string representation of the container.
func (s *Sequential) String() string {
	var sb strings.Builder
	sb.WriteString("Sequential(\n")
	for i, m := range s.modules {
		str, ok := m.(fmt.Stringer)
		if ok {
			fmt.Fprintf(&sb, "  (%d): %s\n", i, str.String())
		} else {
			fmt.Fprintf(&sb, "  (%d): %T\n", i, m)
		}
	}
	sb.WriteString(")")
	return sb.String()
}
