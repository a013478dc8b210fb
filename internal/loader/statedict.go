// Package loader reads and writes model weights in the SafeTensors format.
//
// SafeTensors is the exchange format used for published checkpoints: a JSON
// header describing dtype, shape and byte offsets per tensor, followed by the
// raw little-endian tensor data.
package loader

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/dejaview-ml/dejaview/internal/tensor"
)

// LoadStateDict reads every tensor in a SafeTensors file into a state dict.
func LoadStateDict(path string) (map[string]*tensor.RawTensor, error) {
	r, err := NewSafeTensorsReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	stateDict := make(map[string]*tensor.RawTensor, len(r.TensorNames()))
	for _, name := range r.TensorNames() {
		t, err := r.LoadTensor(name)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		stateDict[name] = t
	}
	return stateDict, nil
}

// SaveStateDict writes a state dict as a SafeTensors file. Tensors are laid
// out in key order so the same dict always produces the same bytes.
func SaveStateDict(path string, stateDict map[string]*tensor.RawTensor, metadata map[string]string) error {
	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(names)+1)
	if len(metadata) > 0 {
		header["__metadata__"] = metadata
	}

	var offset int64
	for _, name := range names {
		t := stateDict[name]
		dtype, err := dataTypeToSafeTensorsDType(t.DType())
		if err != nil {
			return fmt.Errorf("tensor %s: %w", name, err)
		}
		size := int64(t.ByteSize())
		header[name] = SafeTensorInfo{
			DType:       dtype,
			Shape:       []int(t.Shape()),
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}

	buf := make([]byte, 0, 8+len(headerBytes)+int(offset))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(headerBytes)))
	buf = append(buf, headerBytes...)
	for _, name := range names {
		buf = append(buf, stateDict[name].Data()...)
	}

	return os.WriteFile(path, buf, 0o644)
}
