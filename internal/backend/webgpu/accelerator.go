//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"
)

// Accelerator runs dense matrix products on the GPU through WebGPU compute shaders.
// It satisfies cpu.Accelerator. Calls are serialized; one device queue is shared.
type Accelerator struct {
	mu       sync.Mutex
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	pipeline *wgpu.ComputePipeline
	name     string
}

// NewAccelerator acquires a high-performance adapter and compiles the matmul pipeline.
// It returns ErrUnavailable when the native WebGPU library or a GPU cannot be found.
func NewAccelerator() (acc *Accelerator, err error) {
	defer func() {
		if r := recover(); r != nil {
			acc = nil
			err = fmt.Errorf("%w: native library: %v", ErrUnavailable, r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: request adapter: %v", ErrUnavailable, err)
	}
	info := adapter.GetInfo()

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: request device: %v", ErrUnavailable, err)
	}
	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: no device queue", ErrUnavailable)
	}

	shader := device.CreateShaderModuleWGSL(matmulShader)
	pipeline := device.CreateComputePipelineSimple(nil, shader, "main")

	return &Accelerator{
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    queue,
		pipeline: pipeline,
		name:     "WebGPU(" + info.Device + ")",
	}, nil
}

// Name identifies the adapter.
func (a *Accelerator) Name() string { return a.name }

// MatMul computes [m, k] @ [k, n] (or @ [n, k]^T when transB is set) on the GPU.
func (a *Accelerator) MatMul(lhs, rhs []float32, m, k, n int, transB bool) ([]float32, error) {
	if len(lhs) != m*k || len(rhs) != k*n {
		return nil, fmt.Errorf("webgpu: operand sizes %d and %d do not match %dx%dx%d", len(lhs), len(rhs), m, k, n)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	bufA := a.upload(floatBytes(lhs), wgpu.BufferUsageStorage)
	defer bufA.Release()
	bufB := a.upload(floatBytes(rhs), wgpu.BufferUsageStorage)
	defer bufB.Release()

	//nolint:gosec // G115: matrix sizes are non-negative
	resultSize := uint64(m * n * 4)
	bufC := a.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
		Size:  resultSize,
	})
	defer bufC.Release()

	params := make([]byte, 16)
	//nolint:gosec // G115: matrix sizes are non-negative
	binary.LittleEndian.PutUint32(params[0:4], uint32(m))
	//nolint:gosec // G115
	binary.LittleEndian.PutUint32(params[4:8], uint32(k))
	//nolint:gosec // G115
	binary.LittleEndian.PutUint32(params[8:12], uint32(n))
	if transB {
		binary.LittleEndian.PutUint32(params[12:16], 1)
	}
	bufP := a.upload(params, wgpu.BufferUsageUniform)
	defer bufP.Release()

	bindGroup := a.device.CreateBindGroupSimple(a.pipeline.GetBindGroupLayout(0), []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufA, 0, uint64(len(lhs)*4)),
		wgpu.BufferBindingEntry(1, bufB, 0, uint64(len(rhs)*4)),
		wgpu.BufferBindingEntry(2, bufC, 0, resultSize),
		wgpu.BufferBindingEntry(3, bufP, 0, 16),
	})
	defer bindGroup.Release()

	encoder := a.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(a.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	//nolint:gosec // G115
	pass.DispatchWorkgroups(uint32((n+15)/16), uint32((m+15)/16), 1)
	pass.End()
	a.queue.Submit(encoder.Finish(nil))

	raw, err := a.read(bufC, resultSize)
	if err != nil {
		return nil, err
	}
	out := make([]float32, m*n)
	copy(floatBytes(out), raw)
	return out, nil
}

// Release frees the device and adapter.
func (a *Accelerator) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pipeline != nil {
		a.pipeline.Release()
	}
	a.device.Release()
	a.adapter.Release()
	a.instance.Release()
}

func (a *Accelerator) upload(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := (uint64(len(data)) + 3) &^ 3
	buf := a.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage | wgpu.BufferUsageCopyDst,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	//nolint:gosec // mapped range is valid until Unmap
	copy(unsafe.Slice((*byte)(buf.GetMappedRange(0, size)), size), data)
	buf.Unmap()
	return buf
}

func (a *Accelerator) read(src *wgpu.Buffer, size uint64) ([]byte, error) {
	staging := a.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := a.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	a.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(a.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("webgpu: map staging buffer: %w", err)
	}
	out := make([]byte, size)
	//nolint:gosec // mapped range is valid until Unmap
	copy(out, unsafe.Slice((*byte)(staging.GetMappedRange(0, size)), size))
	staging.Unmap()
	return out, nil
}

func floatBytes(f []float32) []byte {
	if len(f) == 0 {
		return nil
	}
	//nolint:gosec // reinterpret float32 storage as bytes, same lifetime
	return unsafe.Slice((*byte)(unsafe.Pointer(&f[0])), len(f)*4)
}
