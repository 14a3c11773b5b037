package imageprocessor

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizeLogo_SquareCanvas(t *testing.T) {
	p := NewProcessor(0)

	out, err := p.NormalizeLogo(pngBytes(t, 300, 100), SizeLogo)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
	assert.Equal(t, 128, img.Bounds().Dy())

	// wide source is letterboxed: corners stay transparent, centre is painted
	_, _, _, a := img.At(0, 0).RGBA()
	assert.Zero(t, a)
	_, _, _, a = img.At(64, 64).RGBA()
	assert.NotZero(t, a)
}

func TestDecode_PNGInsideICO(t *testing.T) {
	entry := pngBytes(t, 32, 32)

	var ico bytes.Buffer
	ico.Write([]byte{0, 0, 1, 0, 1, 0}) // header, one image
	dirEntry := make([]byte, 16)
	dirEntry[0], dirEntry[1] = 32, 32
	binary.LittleEndian.PutUint32(dirEntry[8:12], uint32(len(entry)))
	binary.LittleEndian.PutUint32(dirEntry[12:16], 6+16)
	ico.Write(dirEntry)
	ico.Write(entry)

	img, format, err := Decode(ico.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "ico", format)
	assert.Equal(t, 32, img.Bounds().Dx())
}

func TestDecode_Garbage(t *testing.T) {
	_, _, err := Decode([]byte("<html>not an image</html>"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestProcessImage_KeepsAspectRatio(t *testing.T) {
	p := NewProcessor(80)
	r, err := p.ProcessImage(bytes.NewReader(pngBytes(t, 400, 200)), SizeLogo, "png")
	require.NoError(t, err)

	img, err := png.Decode(r)
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
	assert.Equal(t, 64, img.Bounds().Dy())
}
