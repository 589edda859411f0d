// Package serialization implements the .javi container used for model weights and
// training checkpoints.
//
//	Layout:
//	  0x00  [4 bytes]  magic "JAVI"
//	  0x04  [4 bytes]  format version (uint32 LE)
//	  0x08  [4 bytes]  flags (uint32 LE)
//	  0x0C  [4 bytes]  reserved
//	  0x10  [8 bytes]  JSON header size (uint64 LE)
//	  0x18  [8 bytes]  tensor data size (uint64 LE)
//	  0x20  [32 bytes] SHA-256 of the tensor data
//	  0x40  JSON header
//	        zero padding to a 64-byte boundary
//	        tensor data, float32 little-endian, in header order
//
// Tensors are written in name order, so saving the same state twice produces
// identical bytes apart from the creation timestamp.
package serialization
