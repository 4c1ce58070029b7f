package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	// Registered decoders for uploads.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/apex/log"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
)

const (
	// ClassifierInputSize is the square edge the classifier expects.
	ClassifierInputSize = 224
	// DefaultMaxPixels bounds the canvas a photo may declare before it is decoded.
	DefaultMaxPixels  = 40_000_000
	normalizedQuality = 85
)

var ErrTooLarge = errors.New("image dimensions exceed limit")

// Decode decodes an uploaded photo and applies its EXIF orientation. Photos
// declaring more than maxPixels pixels are rejected with ErrTooLarge from
// their header alone; maxPixels <= 0 means DefaultMaxPixels.
func Decode(data []byte, maxPixels int) (image.Image, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if orientation := GetImageOrientation(data); orientation != 1 {
		img = CorrectImageOrientation(img, orientation)
	}
	return img, nil
}

// GetImageOrientation extracts the EXIF orientation, defaulting to 1.
func GetImageOrientation(data []byte) int {
	block, ok := ExifBlock(data)
	if !ok {
		return 1
	}
	x, err := exif.Decode(bytes.NewReader(block))
	if err != nil || x == nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// CorrectImageOrientation rotates and flips img so that it displays upright.
func CorrectImageOrientation(img image.Image, orientation int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	var dst *image.RGBA
	var mapXY func(x, y int) (int, int)
	switch orientation {
	case 2: // flip horizontal
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
		mapXY = func(x, y int) (int, int) { return w - 1 - x, y }
	case 3: // rotate 180
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
		mapXY = func(x, y int) (int, int) { return w - 1 - x, h - 1 - y }
	case 4: // flip vertical
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
		mapXY = func(x, y int) (int, int) { return x, h - 1 - y }
	case 5: // transpose
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
		mapXY = func(x, y int) (int, int) { return y, x }
	case 6: // rotate 90 clockwise
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
		mapXY = func(x, y int) (int, int) { return h - 1 - y, x }
	case 7: // transverse
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
		mapXY = func(x, y int) (int, int) { return h - 1 - y, w - 1 - x }
	case 8: // rotate 90 counter-clockwise
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
		mapXY = func(x, y int) (int, int) { return y, w - 1 - x }
	default:
		return img
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := mapXY(x, y)
			dst.Set(dx, dy, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

// Normalize returns an upright size x size RGB JPEG of a decoded photo.
func Normalize(img image.Image, size int) ([]byte, error) {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: normalizedQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode normalized image: %w", err)
	}
	log.Debugf("Image normalized: %dx%d -> %dx%d (%d bytes)",
		img.Bounds().Dx(), img.Bounds().Dy(), size, size, buf.Len())
	return buf.Bytes(), nil
}
