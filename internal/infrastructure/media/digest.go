package media

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Digest fingerprints an image's encoded data. Two images with the same
// digest crop to the same pixels.
func Digest(data string) string {
	sum := blake2b.Sum256([]byte(data))
	return hex.EncodeToString(sum[:16])
}
