package qrcode

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestRenderProducesPNG(t *testing.T) {
	png, err := Render("8f14e45f-ceea-467f-a0f6-dd7d26b2f1a1")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}

func TestRenderRejectsEmptyID(t *testing.T) {
	_, err := Render("")
	assert.Error(t, err)
}
