// Package webgpu offloads dense matrix products to a GPU through WebGPU compute shaders
// (go-webgpu bindings, zero CGO). The accelerator is available on Windows; on other
// platforms NewAccelerator returns ErrUnavailable and the CPU backend keeps using BLAS.
package webgpu

import "errors"

// ErrUnavailable reports that no usable WebGPU adapter or native library was found.
var ErrUnavailable = errors.New("webgpu: accelerator unavailable")
