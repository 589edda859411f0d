package serialization

import (
	"encoding/json"
	"time"
)

// Format constants.
const (
	MagicBytes      = "JAVI"
	FormatVersion   = 1
	HeaderAlignment = 64 // tensor data starts on a 64-byte boundary
	FixedHeaderSize = 64
	ChecksumSize    = 32
	ChecksumOffset  = 0x20

	// DTypeFloat32 is the only element type the container stores.
	DTypeFloat32 = "float32"
)

// Flags for the fixed header.
const (
	FlagHasOptimizer uint32 = 1 << 1 // optimizer moments included
	FlagHasMetadata  uint32 = 1 << 2 // custom metadata included
)

// Header is the JSON document that follows the fixed header.
type Header struct {
	FormatVersion  int               `json:"format_version"`
	ModelType      string            `json:"model_type"`
	CreatedAt      time.Time         `json:"created_at"`
	Tensors        []TensorMeta      `json:"tensors"`
	Metadata       map[string]string `json:"metadata"`
	Config         json.RawMessage   `json:"config,omitempty"`
	CheckpointMeta *CheckpointMeta   `json:"checkpoint,omitempty"`
}

// CheckpointMeta carries training progress for resumable checkpoints.
type CheckpointMeta struct {
	RunID           string         `json:"run_id"`
	Epoch           int            `json:"epoch"`
	Step            int64          `json:"step"`
	Loss            float64        `json:"loss"`
	OptimizerType   string         `json:"optimizer_type"`
	OptimizerConfig map[string]any `json:"optimizer_config"`
}

// TensorMeta describes one tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"`
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"` // bytes from the start of the data section
	Size   int64  `json:"size"`   // bytes
}
