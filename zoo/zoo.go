// Package zoo provides ready-made network architectures with optional
// pretrained weights.
//
// Example:
//
//	model, err := zoo.Build(ctx, "mobilenet_v2", zoo.Pretrained())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	model.Eval()
package zoo

import (
	"context"

	internalzoo "github.com/dejaview-ml/dejaview/internal/zoo"
)

// Model is a built network together with its train/eval mode. It satisfies
// onnx.Module and can be passed straight to onnx.Export.
type Model = internalzoo.Model

// MobileNetV2 is the torchvision-compatible MobileNetV2 classifier.
type MobileNetV2 = internalzoo.MobileNetV2

// Option configures Build.
type Option = internalzoo.Option

// ErrUnknownArchitecture is returned by Build for unregistered names.
var ErrUnknownArchitecture = internalzoo.ErrUnknownArchitecture

// Build constructs the named architecture, optionally loading its published
// pretrained weights. Downloaded weights are cached; only the first
// Pretrained build of an architecture touches the network.
func Build(ctx context.Context, name string, opts ...Option) (*Model, error) {
	return internalzoo.Build(ctx, name, opts...)
}

// Architectures lists the registered architecture names.
func Architectures() []string {
	return internalzoo.Architectures()
}

// NewMobileNetV2 builds a randomly initialized MobileNetV2 with the given
// number of output classes.
func NewMobileNetV2(numClasses int) *MobileNetV2 {
	return internalzoo.NewMobileNetV2(numClasses)
}

// Pretrained requests the published weights for the architecture.
func Pretrained() Option {
	return internalzoo.Pretrained()
}

// WithBaseURL overrides the weight download endpoint.
func WithBaseURL(url string) Option {
	return internalzoo.WithBaseURL(url)
}

// WithCacheDir overrides the local weight cache directory.
func WithCacheDir(dir string) Option {
	return internalzoo.WithCacheDir(dir)
}

// WithProgress toggles the download progress bar.
func WithProgress(enabled bool) Option {
	return internalzoo.WithProgress(enabled)
}
