package onnx

import "errors"

// Common errors.
var (
	ErrUnsupportedOpset = errors.New("unsupported opset version")
	ErrUnknownTensor    = errors.New("dynamic axes reference unknown tensor")
	ErrAxisOutOfRange   = errors.New("dynamic axis index out of range")
	ErrDuplicateName    = errors.New("tensor name already in use")
	ErrNilInput         = errors.New("placeholder input is nil")
)
