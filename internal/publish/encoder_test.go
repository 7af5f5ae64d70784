package publish_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/utf4/dbay/internal/publish"
)

func TestAcceptedImageType(t *testing.T) {
	assert.True(t, publish.AcceptedImageType("image/gif"))
	assert.True(t, publish.AcceptedImageType("image/jpeg"))
	assert.True(t, publish.AcceptedImageType("image/png"))

	assert.False(t, publish.AcceptedImageType("image/webp"))
	assert.False(t, publish.AcceptedImageType("application/pdf"))
	assert.False(t, publish.AcceptedImageType("text/html"))
	assert.False(t, publish.AcceptedImageType(""))
}

func TestEncodeDataURL_RoundTrip(t *testing.T) {
	cases := []struct {
		contentType string
		content     []byte
	}{
		{"image/png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x01, 0x02}},
		{"image/gif", []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")},
		{"image/jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}},
	}

	for _, tc := range cases {
		encoded, err := publish.EncodeDataURL(tc.contentType, bytes.NewReader(tc.content))
		assert.NoError(t, err)
		assert.True(t, strings.HasPrefix(encoded, "data:"+tc.contentType+";base64,"))

		// The string alone must reconstruct byte-identical content.
		contentType, data, err := publish.DecodeDataURL(encoded)
		assert.NoError(t, err)
		assert.Equal(t, tc.contentType, contentType)
		assert.Equal(t, tc.content, data)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk error")
}

func TestEncodeDataURL_ReadFailurePropagates(t *testing.T) {
	_, err := publish.EncodeDataURL("image/png", failingReader{})
	assert.Error(t, err)
}

func TestEncodeDataURL_SniffsMissingContentType(t *testing.T) {
	pngHeader := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	encoded, err := publish.EncodeDataURL("", bytes.NewReader(pngHeader))
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "data:image/png;base64,"))
}

func TestDecodeDataURL_Malformed(t *testing.T) {
	_, _, err := publish.DecodeDataURL("http://example.com/cat.png")
	assert.Error(t, err)

	_, _, err = publish.DecodeDataURL("data:image/png,rawpayload")
	assert.Error(t, err)

	_, _, err = publish.DecodeDataURL("data:image/png;base64,!!!not-base64!!!")
	assert.Error(t, err)
}
