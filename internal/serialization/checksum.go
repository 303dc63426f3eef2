package serialization

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// ComputeChecksum computes SHA-256 checksum of data.
func ComputeChecksum(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// ComputeChecksumReader computes SHA-256 checksum from an io.Reader.
func ComputeChecksumReader(r io.Reader) ([32]byte, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return [32]byte{}, err
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

// ChecksumHex renders a checksum the way it is stored in shard metadata.
func ChecksumHex(sum [32]byte) string {
	return hex.EncodeToString(sum[:])
}

// ValidateChecksum compares a computed checksum against the stored hex form.
// Returns ErrChecksumMismatch if they don't match.
func ValidateChecksum(computed [32]byte, stored string) error {
	if ChecksumHex(computed) != stored {
		return ErrChecksumMismatch
	}
	return nil
}
