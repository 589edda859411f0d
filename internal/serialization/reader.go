package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/born-ml/javi/internal/tensor"
)

// OptimizerPrefix marks optimizer state entries in a checkpoint.
const OptimizerPrefix = "optim."

func isOptimizerTensor(name string) bool { return strings.HasPrefix(name, OptimizerPrefix) }

// Read decodes a container, verifying magic, version and checksum.
func Read(r io.Reader) (map[string]*tensor.RawTensor, Header, error) {
	var header Header

	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, header, fmt.Errorf("failed to read fixed header: %w", err)
	}
	if string(fixed[0:4]) != MagicBytes {
		return nil, header, fmt.Errorf("%w: got %q", ErrInvalidMagic, fixed[0:4])
	}
	if v := binary.LittleEndian.Uint32(fixed[4:8]); v != FormatVersion {
		return nil, header, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	if headerSize > MaxHeaderSize {
		return nil, header, ErrHeaderTooLarge
	}
	var checksum [ChecksumSize]byte
	copy(checksum[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, header, fmt.Errorf("failed to read header: %w", err)
	}
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, header, fmt.Errorf("failed to parse header: %w", err)
	}

	pos := int64(FixedHeaderSize) + int64(headerSize)
	padding := (HeaderAlignment - pos%HeaderAlignment) % HeaderAlignment
	if _, err := io.CopyN(io.Discard, r, padding); err != nil {
		return nil, header, fmt.Errorf("failed to skip padding: %w", err)
	}

	//nolint:gosec // dataSize is bounded by the validated tensor table below
	data := make([]byte, dataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, header, fmt.Errorf("failed to read tensor data: %w", err)
	}
	if err := verifyChecksum(data, checksum); err != nil {
		return nil, header, err
	}
	if err := ValidateHeader(&header, int64(dataSize)); err != nil {
		return nil, header, err
	}

	stateDict := make(map[string]*tensor.RawTensor, len(header.Tensors))
	for _, meta := range header.Tensors {
		raw, err := tensor.FromFloat32(decodeFloats(data[meta.Offset:meta.Offset+meta.Size]), meta.Shape)
		if err != nil {
			return nil, header, fmt.Errorf("tensor %q: %w", meta.Name, err)
		}
		stateDict[meta.Name] = raw
	}
	return stateDict, header, nil
}

// ReadFile reads a container from disk.
func ReadFile(path string) (map[string]*tensor.RawTensor, Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Header{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Read(bufio.NewReader(f))
}

// SplitOptimizer separates model tensors from optimizer entries, removing the prefix
// from the latter.
func SplitOptimizer(stateDict map[string]*tensor.RawTensor) (model, optimizer map[string]*tensor.RawTensor) {
	model = make(map[string]*tensor.RawTensor)
	optimizer = make(map[string]*tensor.RawTensor)
	for name, raw := range stateDict {
		if isOptimizerTensor(name) {
			optimizer[strings.TrimPrefix(name, OptimizerPrefix)] = raw
		} else {
			model[name] = raw
		}
	}
	return model, optimizer
}

func decodeFloats(buf []byte) []float32 {
	values := make([]float32, len(buf)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return values
}
