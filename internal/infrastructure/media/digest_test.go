package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigestTracksContent(t *testing.T) {
	red := EncodeDataURI([]byte("red pixels"), "png")
	blue := EncodeDataURI([]byte("blue pixels"), "png")

	assert.Len(t, Digest(red), 32)
	assert.Equal(t, Digest(red), Digest(red))
	assert.NotEqual(t, Digest(red), Digest(blue))
	assert.NotEqual(t, Digest(""), Digest(red))
}
