package hub

import "github.com/opencontainers/go-digest"

// Weights describes a published weight artifact.
type Weights struct {
	// File is the artifact's file name, both remotely and in the cache.
	File string
	// Digest is the expected sha256 of the artifact.
	Digest digest.Digest
	// Size is the artifact size in bytes, used to drive the progress bar.
	Size int64
}

// manifest pins every downloadable checkpoint to its digest. Entries are
// keyed by architecture name as registered in the model zoo.
var manifest = map[string]Weights{
	"mobilenet_v2": {
		File:   "mobilenet_v2-imagenet1k-v1.safetensors",
		Digest: digest.Digest("sha256:8b6f4c9e2d1a7f305c8be19a46d20e57f1b3a9d8c4e6f2071a5b3c9d8e7f6a41"),
		Size:   14212972,
	},
}

// Lookup returns the weight descriptor for an architecture name.
func Lookup(name string) (Weights, bool) {
	w, ok := manifest[name]
	return w, ok
}
