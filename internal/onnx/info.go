package onnx

import "sort"

// ModelInfo contains basic information about an exported artifact without
// fully materializing it.
type ModelInfo struct {
	IRVersion       int64
	OpsetVersion    int64
	ProducerName    string
	ProducerVersion string
	GraphName       string
	InputNames      []string
	OutputNames     []string
	DynamicAxes     DynamicAxes
	Operators       []string
	NodeCount       int
	WeightCount     int
}

// ReadInfo extracts basic info from an ONNX file.
func ReadInfo(path string) (*ModelInfo, error) {
	proto, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return infoFromProto(proto), nil
}

func infoFromProto(proto *ModelProto) *ModelInfo {
	info := &ModelInfo{
		IRVersion:       proto.IRVersion,
		ProducerName:    proto.ProducerName,
		ProducerVersion: proto.ProducerVersion,
		DynamicAxes:     make(DynamicAxes),
	}

	for _, opset := range proto.OpsetImport {
		if opset.Domain == "" || opset.Domain == "ai.onnx" {
			info.OpsetVersion = opset.Version
			break
		}
	}

	if proto.Graph == nil {
		return info
	}
	graph := proto.Graph
	info.GraphName = graph.Name
	info.NodeCount = len(graph.Nodes)
	info.WeightCount = len(graph.Initializers)

	// Inputs are graph inputs minus initializers.
	initNames := make(map[string]bool)
	for i := range graph.Initializers {
		initNames[graph.Initializers[i].Name] = true
	}
	for i := range graph.Inputs {
		vi := &graph.Inputs[i]
		if initNames[vi.Name] {
			continue
		}
		info.InputNames = append(info.InputNames, vi.Name)
		collectDynamicAxes(info.DynamicAxes, vi)
	}
	for i := range graph.Outputs {
		vi := &graph.Outputs[i]
		info.OutputNames = append(info.OutputNames, vi.Name)
		collectDynamicAxes(info.DynamicAxes, vi)
	}

	seen := make(map[string]bool)
	for i := range graph.Nodes {
		op := graph.Nodes[i].OpType
		if !seen[op] {
			seen[op] = true
			info.Operators = append(info.Operators, op)
		}
	}
	sort.Strings(info.Operators)

	return info
}

// collectDynamicAxes records the symbolic dimensions declared on a tensor.
func collectDynamicAxes(axes DynamicAxes, vi *ValueInfoProto) {
	if vi.Type == nil || vi.Type.TensorType == nil || vi.Type.TensorType.Shape == nil {
		return
	}
	for i, dim := range vi.Type.TensorType.Shape.Dims {
		if dim.DimParam == "" {
			continue
		}
		if axes[vi.Name] == nil {
			axes[vi.Name] = make(map[int]string)
		}
		axes[vi.Name][i] = dim.DimParam
	}
}
