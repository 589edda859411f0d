package serialization

import (
	"fmt"
	"slices"
	"strings"
)

// Limits applied when reading untrusted files.
const (
	MaxHeaderSize    = 64 * 1024 * 1024
	MaxTensorCount   = 100_000
	MaxTensorNameLen = 1024
)

// ValidateTensorName rejects empty, oversized or control-character names.
// Names are dotted component paths such as "decoder.layers.3.attn_2.out.weight".
func ValidateTensorName(name string) error {
	switch {
	case name == "":
		return &ValidationError{Kind: "invalid_name", Details: "empty tensor name"}
	case len(name) > MaxTensorNameLen:
		return &ValidationError{
			Kind:    "name_too_long",
			Tensor:  name,
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	case strings.ContainsAny(name, "\x00/\\"):
		return &ValidationError{Kind: "invalid_name", Tensor: name, Details: "contains a separator or null byte"}
	}
	return nil
}

// ValidateHeader checks the tensor table against the data section size.
func ValidateHeader(h *Header, dataSize int64) error {
	if len(h.Tensors) > MaxTensorCount {
		return &ValidationError{
			Kind:    "too_many_tensors",
			Details: fmt.Sprintf("got %d, max %d", len(h.Tensors), MaxTensorCount),
		}
	}

	sorted := slices.Clone(h.Tensors)
	slices.SortFunc(sorted, func(a, b TensorMeta) int { return int(a.Offset - b.Offset) })

	for i, t := range sorted {
		if err := ValidateTensorName(t.Name); err != nil {
			return err
		}
		if t.DType != DTypeFloat32 {
			return &ValidationError{Kind: "unsupported_dtype", Tensor: t.Name, Details: t.DType}
		}
		if t.Offset < 0 || t.Size < 0 {
			return &ValidationError{
				Kind:    "negative_offset",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset=%d, size=%d", t.Offset, t.Size),
			}
		}
		if t.Offset+t.Size > dataSize {
			return &ValidationError{
				Kind:    "out_of_bounds",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset %d + size %d > data size %d", t.Offset, t.Size, dataSize),
			}
		}
		if want := int64(numElements(t.Shape) * 4); want != t.Size {
			return &ValidationError{
				Kind:    "size_mismatch",
				Tensor:  t.Name,
				Details: fmt.Sprintf("shape %v needs %d bytes, header says %d", t.Shape, want, t.Size),
			}
		}
		if i+1 < len(sorted) {
			next := sorted[i+1]
			if t.Offset+t.Size > next.Offset {
				return &ValidationError{
					Kind:    "offset_overlap",
					Tensor:  t.Name,
					Tensor2: next.Name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
						t.Offset, t.Offset+t.Size, next.Offset, next.Offset+next.Size),
				}
			}
		}
	}
	return nil
}

func numElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
