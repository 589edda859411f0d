package serialization

import (
	"crypto/sha256"
)

// Checksum returns the SHA-256 digest of the tensor data section.
func Checksum(data []byte) [ChecksumSize]byte {
	return sha256.Sum256(data)
}

func verifyChecksum(data []byte, stored [ChecksumSize]byte) error {
	if Checksum(data) != stored {
		return ErrChecksumMismatch
	}
	return nil
}
