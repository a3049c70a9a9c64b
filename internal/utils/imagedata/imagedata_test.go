package imagedata_test

import (
	"testing"

	"foodgram/domain"
	"foodgram/internal/utils/imagedata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePNG(t *testing.T) {
	img, err := imagedata.Decode("data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), img.Data)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, ".png", img.Ext)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	for _, s := range []string{
		"",
		"https://example.com/a.png",
		"data:image/png,aGVsbG8=",
		"data:text/plain;base64,aGVsbG8=",
		"data:image/png;base64,***",
		"data:image/png;base64,",
	} {
		_, err := imagedata.Decode(s)
		assert.ErrorIs(t, err, domain.ErrValidation, "input %q", s)
	}
}
