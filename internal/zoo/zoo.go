// Package zoo provides ready-made network architectures with optional
// pretrained weights.
//
// Example:
//
//	model, err := zoo.Build(ctx, "mobilenet_v2", zoo.Pretrained())
//	if err != nil {
//		return err
//	}
//	model.Eval()
package zoo

import (
	"context"
	"fmt"
	"sort"

	"github.com/dejaview-ml/dejaview/internal/hub"
	"github.com/dejaview-ml/dejaview/internal/loader"
	"github.com/dejaview-ml/dejaview/internal/nn"
	"github.com/dejaview-ml/dejaview/internal/onnx"
	"github.com/dejaview-ml/dejaview/internal/tensor"
)

// ErrUnknownArchitecture is returned by Build for names not in the registry.
var ErrUnknownArchitecture = fmt.Errorf("unknown architecture")

var registry = map[string]func() nn.Module{
	"mobilenet_v2": func() nn.Module { return NewMobileNetV2(1000) },
}

// Architectures lists the registered architecture names, sorted.
func Architectures() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Model wraps a network together with its architecture name and train/eval
// mode. Freshly built models start in training mode; call Eval before
// exporting an inference graph.
type Model struct {
	arch     string
	module   nn.Module
	training bool
}

// Build constructs the named architecture. With the Pretrained option the
// published weights are fetched (and cached) first, then loaded into the
// model.
func Build(ctx context.Context, name string, opts ...Option) (*Model, error) {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	builder, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownArchitecture, name, Architectures())
	}

	model := &Model{arch: name, module: builder(), training: true}

	if cfg.pretrained {
		path, err := hub.Fetch(ctx, name, cfg.hubOpts...)
		if err != nil {
			return nil, fmt.Errorf("fetch weights for %s: %w", name, err)
		}
		stateDict, err := loader.LoadStateDict(path)
		if err != nil {
			return nil, fmt.Errorf("load weights for %s: %w", name, err)
		}
		if err := model.LoadStateDict(stateDict); err != nil {
			return nil, fmt.Errorf("apply weights for %s: %w", name, err)
		}
	}

	return model, nil
}

type config struct {
	pretrained bool
	hubOpts    []hub.Option
}

// Option configures Build.
type Option func(*config)

// Pretrained requests the published weights for the architecture.
func Pretrained() Option {
	return func(c *config) { c.pretrained = true }
}

// WithBaseURL overrides the weight download endpoint. Mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *config) { c.hubOpts = append(c.hubOpts, hub.WithBaseURL(url)) }
}

// WithCacheDir overrides the local weight cache directory.
func WithCacheDir(dir string) Option {
	return func(c *config) { c.hubOpts = append(c.hubOpts, hub.WithCacheDir(dir)) }
}

// WithProgress toggles the download progress bar.
func WithProgress(enabled bool) Option {
	return func(c *config) { c.hubOpts = append(c.hubOpts, hub.WithProgress(enabled)) }
}

// Train switches the model to training mode.
func (m *Model) Train() {
	m.training = true
}

// Eval switches the model to inference mode.
func (m *Model) Eval() {
	m.training = false
}

// Training reports whether the model is in training mode.
func (m *Model) Training() bool {
	return m.training
}

// Architecture returns the registry name this model was built from.
func (m *Model) Architecture() string {
	return m.arch
}

// Trace records the wrapped network into the graph under construction.
func (m *Model) Trace(ctx *onnx.TraceContext, input onnx.Value) (onnx.Value, error) {
	return m.module.Trace(ctx, input)
}

// Parameters returns the wrapped network's trainable parameters.
func (m *Model) Parameters() []*nn.Parameter {
	return m.module.Parameters()
}

// StateDict returns the wrapped network's weights.
func (m *Model) StateDict() map[string]*tensor.RawTensor {
	return m.module.StateDict()
}

// LoadStateDict loads weights into the wrapped network.
func (m *Model) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return m.module.LoadStateDict(stateDict)
}

// Module returns the wrapped network.
func (m *Model) Module() nn.Module {
	return m.module
}
