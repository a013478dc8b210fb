package onnx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ParseFile parses an ONNX model from file.
//
//nolint:gosec // G304: Path is provided by caller, file inclusion is intentional for ONNX model loading
func ParseFile(path string) (*ModelProto, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// Parse parses an ONNX model from bytes.
func Parse(data []byte) (*ModelProto, error) {
	p := &parser{data: data}
	model := &ModelProto{}
	if err := p.modelProto(model); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	return model, nil
}

// parser implements a minimal protobuf wire format decoder, the read-side
// counterpart of the encoder in this package.
type parser struct {
	data []byte
	pos  int
}

// Protobuf wire types.
const (
	wireVarint = 0 // int32, int64, uint32, uint64, sint32, sint64, bool, enum
	wire64Bit  = 1 // fixed64, sfixed64, double
	wireBytes  = 2 // string, bytes, embedded messages, packed repeated fields
	wire32Bit  = 5 // fixed32, sfixed32, float
)

//nolint:gocyclo,cyclop // Protobuf parsing requires field-by-field switch logic
func (p *parser) modelProto(m *ModelProto) error {
	return p.fields(func(fieldNum, wireType int) error {
		switch fieldNum {
		case 1: // ir_version
			return p.readVarintInto(&m.IRVersion)
		case 2: // producer_name
			return p.readStringInto(&m.ProducerName)
		case 3: // producer_version
			return p.readStringInto(&m.ProducerVersion)
		case 4: // domain
			return p.readStringInto(&m.Domain)
		case 5: // model_version
			return p.readVarintInto(&m.ModelVersion)
		case 6: // doc_string
			return p.readStringInto(&m.DocString)
		case 7: // graph
			m.Graph = &GraphProto{}
			return p.readEmbedded(func(sub *parser) error { return sub.graphProto(m.Graph) })
		case 8: // opset_import
			opset := OperatorSetID{}
			if err := p.readEmbedded(func(sub *parser) error { return sub.operatorSetID(&opset) }); err != nil {
				return err
			}
			m.OpsetImport = append(m.OpsetImport, opset)
			return nil
		case 14: // metadata_props
			entry := StringStringEntry{}
			if err := p.readEmbedded(func(sub *parser) error { return sub.stringStringEntry(&entry) }); err != nil {
				return err
			}
			m.MetadataProps = append(m.MetadataProps, entry)
			return nil
		default:
			return p.skipField(wireType)
		}
	})
}

//nolint:gocyclo,cyclop // Protobuf parsing requires field-by-field switch logic
func (p *parser) graphProto(m *GraphProto) error {
	return p.fields(func(fieldNum, wireType int) error {
		switch fieldNum {
		case 1: // node
			node := NodeProto{}
			if err := p.readEmbedded(func(sub *parser) error { return sub.nodeProto(&node) }); err != nil {
				return err
			}
			m.Nodes = append(m.Nodes, node)
			return nil
		case 2: // name
			return p.readStringInto(&m.Name)
		case 5: // initializer
			init := TensorProto{}
			if err := p.readEmbedded(func(sub *parser) error { return sub.tensorProto(&init) }); err != nil {
				return err
			}
			m.Initializers = append(m.Initializers, init)
			return nil
		case 10: // doc_string
			return p.readStringInto(&m.DocString)
		case 11: // input
			vi := ValueInfoProto{}
			if err := p.readEmbedded(func(sub *parser) error { return sub.valueInfoProto(&vi) }); err != nil {
				return err
			}
			m.Inputs = append(m.Inputs, vi)
			return nil
		case 12: // output
			vi := ValueInfoProto{}
			if err := p.readEmbedded(func(sub *parser) error { return sub.valueInfoProto(&vi) }); err != nil {
				return err
			}
			m.Outputs = append(m.Outputs, vi)
			return nil
		case 13: // value_info
			vi := ValueInfoProto{}
			if err := p.readEmbedded(func(sub *parser) error { return sub.valueInfoProto(&vi) }); err != nil {
				return err
			}
			m.ValueInfo = append(m.ValueInfo, vi)
			return nil
		default:
			return p.skipField(wireType)
		}
	})
}

//nolint:gocyclo,cyclop // Protobuf parsing requires field-by-field switch logic
func (p *parser) nodeProto(m *NodeProto) error {
	return p.fields(func(fieldNum, wireType int) error {
		switch fieldNum {
		case 1: // input
			s, err := p.readString()
			if err != nil {
				return err
			}
			m.Inputs = append(m.Inputs, s)
			return nil
		case 2: // output
			s, err := p.readString()
			if err != nil {
				return err
			}
			m.Outputs = append(m.Outputs, s)
			return nil
		case 3: // name
			return p.readStringInto(&m.Name)
		case 4: // op_type
			return p.readStringInto(&m.OpType)
		case 5: // attribute
			attr := AttributeProto{}
			if err := p.readEmbedded(func(sub *parser) error { return sub.attributeProto(&attr) }); err != nil {
				return err
			}
			m.Attributes = append(m.Attributes, attr)
			return nil
		case 6: // doc_string
			return p.readStringInto(&m.DocString)
		case 7: // domain
			return p.readStringInto(&m.Domain)
		default:
			return p.skipField(wireType)
		}
	})
}

//nolint:gocognit,gocyclo,cyclop // Protobuf parsing requires field-by-field switch logic
func (p *parser) attributeProto(m *AttributeProto) error {
	return p.fields(func(fieldNum, wireType int) error {
		switch fieldNum {
		case 1: // name
			return p.readStringInto(&m.Name)
		case 2: // f
			v, err := p.readFloat32()
			if err != nil {
				return err
			}
			m.F = v
			return nil
		case 3: // i
			return p.readVarintInto(&m.I)
		case 4: // s
			b, err := p.readBytes()
			if err != nil {
				return err
			}
			m.S = b
			return nil
		case 5: // t
			m.T = &TensorProto{}
			return p.readEmbedded(func(sub *parser) error { return sub.tensorProto(m.T) })
		case 6: // g
			m.G = &GraphProto{}
			return p.readEmbedded(func(sub *parser) error { return sub.graphProto(m.G) })
		case 7: // floats (packed)
			fs, err := p.readPackedFloats()
			if err != nil {
				return err
			}
			m.Floats = append(m.Floats, fs...)
			return nil
		case 8: // ints (packed or unpacked)
			if wireType == wireVarint {
				var v int64
				if err := p.readVarintInto(&v); err != nil {
					return err
				}
				m.Ints = append(m.Ints, v)
				return nil
			}
			vs, err := p.readPackedVarints()
			if err != nil {
				return err
			}
			m.Ints = append(m.Ints, vs...)
			return nil
		case 9: // strings
			b, err := p.readBytes()
			if err != nil {
				return err
			}
			m.Strings = append(m.Strings, b)
			return nil
		case 13: // doc_string
			return p.readStringInto(&m.DocString)
		case 20: // type
			var v int64
			if err := p.readVarintInto(&v); err != nil {
				return err
			}
			m.Type = int32(v) //nolint:gosec // G115: ONNX attribute type fits in int32
			return nil
		default:
			return p.skipField(wireType)
		}
	})
}

//nolint:gocognit,gocyclo,cyclop // Protobuf parsing requires field-by-field switch logic
func (p *parser) tensorProto(m *TensorProto) error {
	return p.fields(func(fieldNum, wireType int) error {
		switch fieldNum {
		case 1: // dims (packed or unpacked)
			if wireType == wireVarint {
				var v int64
				if err := p.readVarintInto(&v); err != nil {
					return err
				}
				m.Dims = append(m.Dims, v)
				return nil
			}
			vs, err := p.readPackedVarints()
			if err != nil {
				return err
			}
			m.Dims = append(m.Dims, vs...)
			return nil
		case 2: // data_type
			var v int64
			if err := p.readVarintInto(&v); err != nil {
				return err
			}
			m.DataType = int32(v) //nolint:gosec // G115: ONNX data type fits in int32
			return nil
		case 4: // float_data (packed)
			fs, err := p.readPackedFloats()
			if err != nil {
				return err
			}
			m.FloatData = append(m.FloatData, fs...)
			return nil
		case 5: // int32_data (packed)
			vs, err := p.readPackedVarints()
			if err != nil {
				return err
			}
			for _, v := range vs {
				m.Int32Data = append(m.Int32Data, int32(v)) //nolint:gosec // G115: ONNX protobuf varint fits in int32
			}
			return nil
		case 7: // int64_data (packed)
			vs, err := p.readPackedVarints()
			if err != nil {
				return err
			}
			m.Int64Data = append(m.Int64Data, vs...)
			return nil
		case 8: // name
			return p.readStringInto(&m.Name)
		case 9: // raw_data
			b, err := p.readBytes()
			if err != nil {
				return err
			}
			m.RawData = b
			return nil
		case 12: // doc_string
			return p.readStringInto(&m.DocString)
		default:
			return p.skipField(wireType)
		}
	})
}

func (p *parser) valueInfoProto(m *ValueInfoProto) error {
	return p.fields(func(fieldNum, wireType int) error {
		switch fieldNum {
		case 1: // name
			return p.readStringInto(&m.Name)
		case 2: // type
			m.Type = &TypeProto{}
			return p.readEmbedded(func(sub *parser) error { return sub.typeProto(m.Type) })
		case 3: // doc_string
			return p.readStringInto(&m.DocString)
		default:
			return p.skipField(wireType)
		}
	})
}

func (p *parser) typeProto(m *TypeProto) error {
	return p.fields(func(fieldNum, wireType int) error {
		switch fieldNum {
		case 1: // tensor_type
			m.TensorType = &TensorTypeProto{}
			return p.readEmbedded(func(sub *parser) error { return sub.tensorTypeProto(m.TensorType) })
		default:
			return p.skipField(wireType)
		}
	})
}

func (p *parser) tensorTypeProto(m *TensorTypeProto) error {
	return p.fields(func(fieldNum, wireType int) error {
		switch fieldNum {
		case 1: // elem_type
			var v int64
			if err := p.readVarintInto(&v); err != nil {
				return err
			}
			m.ElemType = int32(v) //nolint:gosec // G115: ONNX elem type fits in int32
			return nil
		case 2: // shape
			m.Shape = &TensorShapeProto{}
			return p.readEmbedded(func(sub *parser) error { return sub.tensorShapeProto(m.Shape) })
		default:
			return p.skipField(wireType)
		}
	})
}

func (p *parser) tensorShapeProto(m *TensorShapeProto) error {
	return p.fields(func(fieldNum, wireType int) error {
		switch fieldNum {
		case 1: // dim
			dim := DimensionProto{}
			if err := p.readEmbedded(func(sub *parser) error { return sub.dimensionProto(&dim) }); err != nil {
				return err
			}
			m.Dims = append(m.Dims, dim)
			return nil
		default:
			return p.skipField(wireType)
		}
	})
}

func (p *parser) dimensionProto(m *DimensionProto) error {
	return p.fields(func(fieldNum, wireType int) error {
		switch fieldNum {
		case 1: // dim_value
			return p.readVarintInto(&m.DimValue)
		case 2: // dim_param
			return p.readStringInto(&m.DimParam)
		default:
			return p.skipField(wireType)
		}
	})
}

func (p *parser) operatorSetID(m *OperatorSetID) error {
	return p.fields(func(fieldNum, wireType int) error {
		switch fieldNum {
		case 1: // domain
			return p.readStringInto(&m.Domain)
		case 2: // version
			return p.readVarintInto(&m.Version)
		default:
			return p.skipField(wireType)
		}
	})
}

func (p *parser) stringStringEntry(m *StringStringEntry) error {
	return p.fields(func(fieldNum, wireType int) error {
		switch fieldNum {
		case 1: // key
			return p.readStringInto(&m.Key)
		case 2: // value
			return p.readStringInto(&m.Value)
		default:
			return p.skipField(wireType)
		}
	})
}

// fields iterates the message's fields, handing each tag to the callback.
func (p *parser) fields(handle func(fieldNum, wireType int) error) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if err := handle(fieldNum, wireType); err != nil {
			return err
		}
	}
	return nil
}

// readTag reads a protobuf field tag.
func (p *parser) readTag() (fieldNum, wireType int, err error) {
	if p.pos >= len(p.data) {
		return 0, 0, io.EOF
	}
	tag, err := p.readVarint()
	if err != nil {
		return 0, 0, err
	}
	fieldNum = int(tag >> 3)
	wireType = int(tag & 0x7)
	return fieldNum, wireType, nil
}

// readVarint reads a varint-encoded int64.
func (p *parser) readVarint() (int64, error) {
	var result uint64
	var shift uint
	for {
		if p.pos >= len(p.data) {
			return 0, io.EOF
		}
		b := p.data[p.pos]
		p.pos++
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift >= 64 {
			return 0, errors.New("varint overflow")
		}
	}
	return int64(result), nil //nolint:gosec // G115: Protobuf varint fits in int64
}

// readVarintInto reads a varint into the destination.
func (p *parser) readVarintInto(dst *int64) error {
	v, err := p.readVarint()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// readBytes reads a length-delimited byte slice.
func (p *parser) readBytes() ([]byte, error) {
	length, err := p.readVarint()
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, errors.New("negative length")
	}
	end := p.pos + int(length)
	if end > len(p.data) {
		return nil, io.ErrUnexpectedEOF
	}
	result := p.data[p.pos:end]
	p.pos = end
	return result, nil
}

// readString reads a length-delimited string.
func (p *parser) readString() (string, error) {
	b, err := p.readBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// readStringInto reads a length-delimited string into the destination.
func (p *parser) readStringInto(dst *string) error {
	s, err := p.readString()
	if err != nil {
		return err
	}
	*dst = s
	return nil
}

// readEmbedded reads a length-delimited embedded message with a sub-parser.
func (p *parser) readEmbedded(read func(*parser) error) error {
	data, err := p.readBytes()
	if err != nil {
		return err
	}
	return read(&parser{data: data})
}

// readFloat32 reads a 32-bit float.
func (p *parser) readFloat32() (float32, error) {
	if p.pos+4 > len(p.data) {
		return 0, io.ErrUnexpectedEOF
	}
	bits := binary.LittleEndian.Uint32(p.data[p.pos:])
	p.pos += 4
	return math.Float32frombits(bits), nil
}

// readPackedVarints reads a packed repeated varint field.
func (p *parser) readPackedVarints() ([]int64, error) {
	data, err := p.readBytes()
	if err != nil {
		return nil, err
	}
	sub := &parser{data: data}
	var result []int64
	for sub.pos < len(sub.data) {
		v, err := sub.readVarint()
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

// readPackedFloats reads a packed repeated float field.
func (p *parser) readPackedFloats() ([]float32, error) {
	data, err := p.readBytes()
	if err != nil {
		return nil, err
	}
	result := make([]float32, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		bits := binary.LittleEndian.Uint32(data[i:])
		result = append(result, math.Float32frombits(bits))
	}
	return result, nil
}

// skipField skips a field based on wire type.
func (p *parser) skipField(wireType int) error {
	switch wireType {
	case wireVarint:
		_, err := p.readVarint()
		return err
	case wire64Bit:
		if p.pos+8 > len(p.data) {
			return io.ErrUnexpectedEOF
		}
		p.pos += 8
		return nil
	case wireBytes:
		_, err := p.readBytes()
		return err
	case wire32Bit:
		if p.pos+4 > len(p.data) {
			return io.ErrUnexpectedEOF
		}
		p.pos += 4
		return nil
	default:
		return fmt.Errorf("unknown wire type: %d", wireType)
	}
}
