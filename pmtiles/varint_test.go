package pmtiles

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1 << 20, 1<<63 - 1, ^uint64(0)}
	for _, v := range values {
		buf := putUvarint(nil, v)
		got, err := readUvarint(bufio.NewReader(bytes.NewReader(buf)))
		assert.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestVarintTruncated(t *testing.T) {
	buf := putUvarint(nil, 1<<40)
	_, err := readUvarint(bufio.NewReader(bytes.NewReader(buf[:1])))
	assert.Error(t, err)
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, ErrMalformedDirectory, kind)
}
