// Package main provides the DejaView model export CLI.
//
// It builds the pretrained MobileNetV2 classifier and exports it as an ONNX
// artifact with resizable batch and image dimensions, ready to be served by
// an ONNX runtime.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/dejaview-ml/dejaview/onnx"
	"github.com/dejaview-ml/dejaview/tensor"
	"github.com/dejaview-ml/dejaview/zoo"
)

const version = "v0.1.0"

const (
	architecture = "mobilenet_v2"
	opsetVersion = 11
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("DejaView %s\n", version)
		return
	}

	if err := run(); err != nil {
		log.WithError(err).Error("export failed")
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()
	outPath := filepath.Join("static", "mobilenetv2_dynamic.onnx")

	log.WithField("architecture", architecture).Info("building model")
	model, err := zoo.Build(ctx, architecture, zoo.Pretrained(), zoo.WithProgress(true))
	if err != nil {
		return fmt.Errorf("build %s: %w", architecture, err)
	}
	model.Eval()

	dummy, err := tensor.Randn(tensor.Shape{1, 3, 224, 224})
	if err != nil {
		return fmt.Errorf("create placeholder input: %w", err)
	}

	log.WithFields(log.Fields{"path": outPath, "opset": opsetVersion}).Info("exporting model")
	// Export fails when the static/ directory is missing.
	err = onnx.Export(model, dummy, outPath, onnx.ExportOptions{
		InputNames:   []string{"input"},
		OutputNames:  []string{"output"},
		OpsetVersion: opsetVersion,
		DynamicAxes: onnx.DynamicAxes{
			"input":  {0: "batch_size", 2: "height", 3: "width"},
			"output": {0: "batch_size"},
		},
	})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	info, err := onnx.ReadInfo(outPath)
	if err != nil {
		return fmt.Errorf("verify artifact: %w", err)
	}
	log.WithFields(log.Fields{
		"opset":     info.OpsetVersion,
		"nodes":     info.NodeCount,
		"weights":   info.WeightCount,
		"operators": info.Operators,
	}).Info("export complete")

	return nil
}
