package imageprocessor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder
)

// ImageSize represents different image sizes
type ImageSize struct {
	Name   string
	Width  int
	Height int
}

var (
	SizeLogo  = ImageSize{Name: "logo", Width: 128, Height: 128}
	SizeCover = ImageSize{Name: "cover", Width: 1200, Height: 675}
)

var ErrUnsupportedImage = errors.New("unsupported image format")

// Processor handles image processing operations
type Processor struct {
	quality int // JPEG quality (1-100)
}

// NewProcessor creates a new image processor
func NewProcessor(quality int) *Processor {
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return &Processor{
		quality: quality,
	}
}

// Decode reads any registered format plus PNG-in-ICO favicons.
func Decode(data []byte) (image.Image, string, error) {
	if isICO(data) {
		img, err := decodeICO(data)
		return img, "ico", err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return img, format, nil
}

// NormalizeLogo scales the image to fit inside size and centres it on a transparent
// square canvas, encoded as PNG.
func (p *Processor) NormalizeLogo(data []byte, size ImageSize) ([]byte, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}

	dst := image.NewNRGBA(image.Rect(0, 0, size.Width, size.Height))
	fit := p.fitRect(img.Bounds(), size.Width, size.Height)
	draw.CatmullRom.Scale(dst, fit, img, img.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// ProcessImage processes an image: decodes, resizes, and encodes
func (p *Processor) ProcessImage(reader io.Reader, size ImageSize, format string) (io.Reader, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	img, imgFormat, err := Decode(data)
	if err != nil {
		return nil, err
	}

	resized := p.resize(img, size.Width, size.Height)

	if format == "" {
		format = imgFormat
	}

	var buf bytes.Buffer
	switch format {
	case "jpeg", "jpg":
		if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: p.quality}); err != nil {
			return nil, fmt.Errorf("failed to encode JPEG: %w", err)
		}
	case "png", "ico", "gif", "webp":
		if err := png.Encode(&buf, resized); err != nil {
			return nil, fmt.Errorf("failed to encode PNG: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, format)
	}

	return &buf, nil
}

// fitRect returns the largest rectangle with src's aspect ratio centred in w×h.
func (p *Processor) fitRect(src image.Rectangle, w, h int) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	if sw == 0 || sh == 0 {
		return image.Rect(0, 0, w, h)
	}
	nw, nh := w, h
	if sw*h > sh*w {
		nh = sh * w / sw
	} else {
		nw = sw * h / sh
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	x0 := (w - nw) / 2
	y0 := (h - nh) / 2
	return image.Rect(x0, y0, x0+nw, y0+nh)
}

// resize resizes an image maintaining aspect ratio
func (p *Processor) resize(img image.Image, maxWidth, maxHeight int) image.Image {
	r := p.fitRect(img.Bounds(), maxWidth, maxHeight)
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func isICO(data []byte) bool {
	return len(data) >= 6 && data[0] == 0 && data[1] == 0 && data[2] == 1 && data[3] == 0
}

// decodeICO picks the largest PNG-encoded entry. BMP-encoded entries are not supported.
func decodeICO(data []byte) (image.Image, error) {
	count := int(binary.LittleEndian.Uint16(data[4:6]))
	var best image.Image
	bestArea := 0
	for i := 0; i < count; i++ {
		off := 6 + i*16
		if off+16 > len(data) {
			break
		}
		size := int(binary.LittleEndian.Uint32(data[off+8 : off+12]))
		start := int(binary.LittleEndian.Uint32(data[off+12 : off+16]))
		if start < 0 || size <= 0 || start+size > len(data) {
			continue
		}
		entry := data[start : start+size]
		if !bytes.HasPrefix(entry, pngMagic) {
			continue
		}
		img, err := png.Decode(bytes.NewReader(entry))
		if err != nil {
			continue
		}
		if area := img.Bounds().Dx() * img.Bounds().Dy(); area > bestArea {
			best, bestArea = img, area
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: ico without png entries", ErrUnsupportedImage)
	}
	return best, nil
}
