package util

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	webpMagic = []byte("RIFF\x00\x00\x00\x00WEBPVP8 ")
)

func TestSniffMimeHTTP(t *testing.T) {
	assert.Equal(t, "image/jpeg", SniffMimeHTTP(jpegMagic))
	assert.Equal(t, "image/png", SniffMimeHTTP(pngMagic))
	assert.Equal(t, "application/octet-stream", SniffMimeHTTP([]byte("hello")))
}

func TestIsSupportedImage(t *testing.T) {
	assert.True(t, IsSupportedImage(jpegMagic))
	assert.True(t, IsSupportedImage(pngMagic))
	assert.True(t, IsSupportedImage(webpMagic))
	assert.False(t, IsSupportedImage([]byte("GIF89a")))
	assert.False(t, IsSupportedImage(nil))
}

func TestDecodeBase64MaybeDataURL(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF}
	b64 := base64.StdEncoding.EncodeToString(payload)

	t.Run("plain base64", func(t *testing.T) {
		b, mime, err := DecodeBase64MaybeDataURL(b64)
		require.NoError(t, err)
		assert.Equal(t, payload, b)
		assert.Empty(t, mime)
	})

	t.Run("data url carries the mime", func(t *testing.T) {
		b, mime, err := DecodeBase64MaybeDataURL("data:image/jpeg;base64," + b64)
		require.NoError(t, err)
		assert.Equal(t, payload, b)
		assert.Equal(t, "image/jpeg", mime)
	})

	t.Run("url-safe alphabet", func(t *testing.T) {
		in := []byte{0xFB, 0xFF, 0xBF}
		b, _, err := DecodeBase64MaybeDataURL(base64.URLEncoding.EncodeToString(in))
		require.NoError(t, err)
		assert.Equal(t, in, b)
	})

	t.Run("garbage", func(t *testing.T) {
		_, _, err := DecodeBase64MaybeDataURL("%%%not-base64%%%")
		assert.Error(t, err)
	})
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences(`{"a":1}`))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab…", Truncate("abcdef", 2))
}

func TestSHA256HexIsStable(t *testing.T) {
	assert.Equal(t, SHA256Hex([]byte("x")), SHA256Hex([]byte("x")))
	assert.NotEqual(t, SHA256Hex([]byte("x")), SHA256Hex([]byte("y")))
	assert.Len(t, SHA256Hex(nil), 64)
}
