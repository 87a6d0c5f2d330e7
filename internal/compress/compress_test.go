package compress

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	compressible := bytes.Repeat([]byte("elevation 0042 "), 400)

	for _, c := range []Codec{LZ4, Zstd} {
		t.Run(c.String(), func(t *testing.T) {
			frame, err := Encode(c, compressible)
			require.NoError(t, err)
			assert.Less(t, len(frame), len(compressible)/2)

			dst := make([]byte, len(compressible))
			require.NoError(t, Decode(c, frame, dst))
			assert.Equal(t, compressible, dst)
		})
	}
}

func TestEncode_Incompressible(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(rng.UintN(256))
	}

	for _, c := range []Codec{LZ4, Zstd} {
		frame, err := Encode(c, data)
		require.NoError(t, err)
		assert.Len(t, frame, headerSize+len(data), "stored verbatim with %s", c)

		dst := make([]byte, len(data))
		require.NoError(t, Decode(c, frame, dst))
		assert.Equal(t, data, dst)
	}
}

func TestNone(t *testing.T) {
	data := []byte("raw block")
	frame, err := Encode(None, data)
	require.NoError(t, err)
	assert.Equal(t, data, frame)

	dst := make([]byte, len(data))
	require.NoError(t, Decode(None, frame, dst))
	assert.Equal(t, data, dst)

	assert.ErrorIs(t, Decode(None, frame, make([]byte, 3)), ErrCorrupt)
}

func TestDecode_Corrupt(t *testing.T) {
	frame, err := Encode(LZ4, bytes.Repeat([]byte{7}, 256))
	require.NoError(t, err)

	assert.ErrorIs(t, Decode(LZ4, frame[:4], make([]byte, 256)), ErrCorrupt)
	assert.ErrorIs(t, Decode(LZ4, frame, make([]byte, 128)), ErrCorrupt)
	assert.ErrorIs(t, Decode(LZ4, frame[:len(frame)-1], make([]byte, 256)), ErrCorrupt)
}

func TestParseCodec(t *testing.T) {
	for _, c := range []Codec{None, LZ4, Zstd} {
		got, err := ParseCodec(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	got, err := ParseCodec("")
	require.NoError(t, err)
	assert.Equal(t, None, got)

	_, err = ParseCodec("brotli")
	assert.Error(t, err)

	var c Codec
	require.NoError(t, c.UnmarshalText([]byte("zstd")))
	assert.Equal(t, Zstd, c)
	assert.Equal(t, "codec(9)", Codec(9).String())
}
