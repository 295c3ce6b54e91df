package util

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 7, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return buf.Bytes()
}

func TestEncodeFileBase64_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cases := map[string][]byte{
		"empty.bin":  {},
		"binary.bin": {0x00, 0xFF, 0x10, 0x80, 0x7F, 0x01, 0xFE},
		"image.png":  nil,
	}
	cases["image.png"] = writePNG(t, filepath.Join(dir, "image.png"), 4, 3)

	for name, want := range cases {
		path := filepath.Join(dir, name)
		if name != "image.png" {
			require.NoError(t, os.WriteFile(path, want, 0o644))
		}

		encoded, err := EncodeFileBase64(path)
		require.NoError(t, err, name)

		got, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestEncodeFileBase64_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := EncodeFileBase64(filepath.Join(t.TempDir(), "nope.png"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenImage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	writePNG(t, path, 5, 2)

	img, err := OpenImage(path)
	require.NoError(t, err)
	assert.Equal(t, 5, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())

	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	_, err = OpenImage(bad)
	assert.Error(t, err)
}

func TestDecodeImage(t *testing.T) {
	t.Parallel()

	data := writePNG(t, filepath.Join(t.TempDir(), "b.png"), 3, 3)
	img, err := DecodeImage(data)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 3), img.Bounds())

	_, err = DecodeImage([]byte{1, 2, 3})
	assert.Error(t, err)
}
