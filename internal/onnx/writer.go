package onnx

import (
	"encoding/binary"
	"math"
)

// Encode serializes an ONNX model to protobuf wire format.
//
// Fields are emitted in a fixed order and zero values are skipped, matching
// standard proto3 serialization. Encoding the same ModelProto twice produces
// byte-identical output, which is what makes re-exports reproducible.
func Encode(m *ModelProto) []byte {
	e := &encoder{}
	e.modelProto(m)
	return e.buf
}

// encoder implements a minimal protobuf wire format encoder, the write-side
// counterpart of the parser in this package.
type encoder struct {
	buf []byte
}

func (e *encoder) modelProto(m *ModelProto) {
	e.varintField(1, m.IRVersion)
	e.stringField(2, m.ProducerName)
	e.stringField(3, m.ProducerVersion)
	e.stringField(4, m.Domain)
	e.varintField(5, m.ModelVersion)
	e.stringField(6, m.DocString)
	if m.Graph != nil {
		e.messageField(7, func(sub *encoder) { sub.graphProto(m.Graph) })
	}
	for i := range m.OpsetImport {
		opset := &m.OpsetImport[i]
		e.messageField(8, func(sub *encoder) { sub.operatorSetID(opset) })
	}
	for i := range m.MetadataProps {
		entry := &m.MetadataProps[i]
		e.messageField(14, func(sub *encoder) { sub.stringStringEntry(entry) })
	}
}

func (e *encoder) graphProto(g *GraphProto) {
	for i := range g.Nodes {
		node := &g.Nodes[i]
		e.messageField(1, func(sub *encoder) { sub.nodeProto(node) })
	}
	e.stringField(2, g.Name)
	for i := range g.Initializers {
		init := &g.Initializers[i]
		e.messageField(5, func(sub *encoder) { sub.tensorProto(init) })
	}
	e.stringField(10, g.DocString)
	for i := range g.Inputs {
		vi := &g.Inputs[i]
		e.messageField(11, func(sub *encoder) { sub.valueInfoProto(vi) })
	}
	for i := range g.Outputs {
		vi := &g.Outputs[i]
		e.messageField(12, func(sub *encoder) { sub.valueInfoProto(vi) })
	}
	for i := range g.ValueInfo {
		vi := &g.ValueInfo[i]
		e.messageField(13, func(sub *encoder) { sub.valueInfoProto(vi) })
	}
}

func (e *encoder) nodeProto(n *NodeProto) {
	for _, input := range n.Inputs {
		e.stringField(1, input)
	}
	for _, output := range n.Outputs {
		e.stringField(2, output)
	}
	e.stringField(3, n.Name)
	e.stringField(4, n.OpType)
	for i := range n.Attributes {
		attr := &n.Attributes[i]
		e.messageField(5, func(sub *encoder) { sub.attributeProto(attr) })
	}
	e.stringField(6, n.DocString)
	e.stringField(7, n.Domain)
}

func (e *encoder) attributeProto(a *AttributeProto) {
	e.stringField(1, a.Name)
	e.floatField(2, a.F)
	e.varintField(3, a.I)
	e.bytesField(4, a.S)
	if a.T != nil {
		e.messageField(5, func(sub *encoder) { sub.tensorProto(a.T) })
	}
	if a.G != nil {
		e.messageField(6, func(sub *encoder) { sub.graphProto(a.G) })
	}
	e.packedFloats(7, a.Floats)
	e.packedVarints(8, a.Ints)
	for _, s := range a.Strings {
		e.bytesField(9, s)
	}
	e.stringField(13, a.DocString)
	e.varintField(20, int64(a.Type))
}

func (e *encoder) tensorProto(t *TensorProto) {
	e.packedVarints(1, t.Dims)
	e.varintField(2, int64(t.DataType))
	e.packedFloats(4, t.FloatData)
	if len(t.Int32Data) > 0 {
		ints := make([]int64, len(t.Int32Data))
		for i, v := range t.Int32Data {
			ints[i] = int64(v)
		}
		e.packedVarints(5, ints)
	}
	e.packedVarints(7, t.Int64Data)
	e.stringField(8, t.Name)
	e.bytesField(9, t.RawData)
	e.stringField(12, t.DocString)
}

func (e *encoder) valueInfoProto(v *ValueInfoProto) {
	e.stringField(1, v.Name)
	if v.Type != nil {
		e.messageField(2, func(sub *encoder) { sub.typeProto(v.Type) })
	}
	e.stringField(3, v.DocString)
}

func (e *encoder) typeProto(t *TypeProto) {
	if t.TensorType != nil {
		e.messageField(1, func(sub *encoder) { sub.tensorTypeProto(t.TensorType) })
	}
}

func (e *encoder) tensorTypeProto(t *TensorTypeProto) {
	e.varintField(1, int64(t.ElemType))
	if t.Shape != nil {
		e.messageField(2, func(sub *encoder) { sub.tensorShapeProto(t.Shape) })
	}
}

func (e *encoder) tensorShapeProto(s *TensorShapeProto) {
	for i := range s.Dims {
		dim := &s.Dims[i]
		e.messageField(1, func(sub *encoder) { sub.dimensionProto(dim) })
	}
}

func (e *encoder) dimensionProto(d *DimensionProto) {
	if d.DimParam != "" {
		e.stringField(2, d.DimParam)
		return
	}
	e.varintField(1, d.DimValue)
}

func (e *encoder) operatorSetID(o *OperatorSetID) {
	e.stringField(1, o.Domain)
	e.varintField(2, o.Version)
}

func (e *encoder) stringStringEntry(s *StringStringEntry) {
	e.stringField(1, s.Key)
	e.stringField(2, s.Value)
}

// tag writes a protobuf field tag.
func (e *encoder) tag(fieldNum, wireType int) {
	e.varint(uint64(fieldNum)<<3 | uint64(wireType)) //nolint:gosec // G115: field numbers fit in uint64
}

// varint writes a varint-encoded value.
func (e *encoder) varint(v uint64) {
	e.buf = binary.AppendUvarint(e.buf, v)
}

// varintField writes a varint field, skipping the zero value.
func (e *encoder) varintField(fieldNum int, v int64) {
	if v == 0 {
		return
	}
	e.tag(fieldNum, wireVarint)
	e.varint(uint64(v)) //nolint:gosec // G115: two's complement varint, symmetric with readVarint
}

// stringField writes a length-delimited string field, skipping empty strings.
func (e *encoder) stringField(fieldNum int, s string) {
	if s == "" {
		return
	}
	e.tag(fieldNum, wireBytes)
	e.varint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// bytesField writes a length-delimited bytes field, skipping empty slices.
func (e *encoder) bytesField(fieldNum int, b []byte) {
	if len(b) == 0 {
		return
	}
	e.tag(fieldNum, wireBytes)
	e.varint(uint64(len(b)))
	e.buf = append(e.buf, b...)
}

// floatField writes a 32-bit float field, skipping the zero value.
func (e *encoder) floatField(fieldNum int, v float32) {
	if v == 0 {
		return
	}
	e.tag(fieldNum, wire32Bit)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, math.Float32bits(v))
}

// messageField encodes an embedded message into a sub-buffer, then writes it
// as a length-delimited field.
func (e *encoder) messageField(fieldNum int, fn func(*encoder)) {
	sub := &encoder{}
	fn(sub)
	e.tag(fieldNum, wireBytes)
	e.varint(uint64(len(sub.buf)))
	e.buf = append(e.buf, sub.buf...)
}

// packedVarints writes a packed repeated varint field.
func (e *encoder) packedVarints(fieldNum int, vs []int64) {
	if len(vs) == 0 {
		return
	}
	sub := &encoder{}
	for _, v := range vs {
		sub.varint(uint64(v)) //nolint:gosec // G115: two's complement varint, symmetric with readVarint
	}
	e.tag(fieldNum, wireBytes)
	e.varint(uint64(len(sub.buf)))
	e.buf = append(e.buf, sub.buf...)
}

// packedFloats writes a packed repeated float field.
func (e *encoder) packedFloats(fieldNum int, vs []float32) {
	if len(vs) == 0 {
		return
	}
	e.tag(fieldNum, wireBytes)
	e.varint(uint64(len(vs) * 4))
	for _, v := range vs {
		e.buf = binary.LittleEndian.AppendUint32(e.buf, math.Float32bits(v))
	}
}
