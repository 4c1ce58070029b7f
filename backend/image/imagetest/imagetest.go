// Package imagetest builds synthetic photos for tests, including JPEGs that
// carry a minimal EXIF block.
package imagetest

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
)

const (
	tagOrientation = 0x0112
	tagDateTime    = 0x0132

	typeASCII = 2
	typeShort = 3
)

// Split returns a 64x64 image, white on one half and black on the other.
// horizontal splits along the x axis (white top), otherwise along y (white left).
func Split(horizontal bool) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			white := x < 32
			if horizontal {
				white = y < 32
			}
			if white {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

// Checker returns a 64x64 checkerboard with 16 pixel squares.
func Checker() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if (x/16+y/16)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

// Invert returns the photographic negative of img.
func Invert(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			out.Set(x, y, color.RGBA{uint8(255 - r>>8), uint8(255 - g>>8), uint8(255 - bl>>8), uint8(a >> 8)})
		}
	}
	return out
}

func JPEG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func PNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// WithExif encodes img as JPEG with an APP1 EXIF segment. dateTime uses the
// EXIF layout "2006:01:02 15:04:05"; an empty value omits the DateTime tag.
func WithExif(img image.Image, dateTime string) []byte {
	plain := JPEG(img)
	out := make([]byte, 0, len(plain)+128)
	out = append(out, plain[:2]...) // SOI
	out = append(out, exifSegment(dateTime)...)
	out = append(out, plain[2:]...)
	return out
}

// CorruptExif returns a JPEG whose APP1 segment has the EXIF marker but an
// invalid TIFF header.
func CorruptExif(img image.Image) []byte {
	plain := JPEG(img)
	payload := append([]byte("Exif\x00\x00"), []byte("XX\x00\x00garbage!")...)
	out := append([]byte{}, plain[:2]...)
	out = append(out, app1(payload)...)
	return append(out, plain[2:]...)
}

// PNGWithExif encodes img as PNG carrying the EXIF block in an eXIf chunk
// right after IHDR.
func PNGWithExif(img image.Image, dateTime string) []byte {
	plain := PNG(img)
	const ihdrEnd = 8 + 8 + 13 + 4

	tiff := tiffBlock(dateTime)
	chunk := make([]byte, 8, 12+len(tiff))
	binary.BigEndian.PutUint32(chunk, uint32(len(tiff)))
	copy(chunk[4:], "eXIf")
	chunk = append(chunk, tiff...)
	chunk = binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(chunk[4:]))

	out := append([]byte{}, plain[:ihdrEnd]...)
	out = append(out, chunk...)
	return append(out, plain[ihdrEnd:]...)
}

// WithDimensions rewrites the frame header of a baseline JPEG so that it
// declares a width x height canvas. The scan data is left as is.
func WithDimensions(data []byte, width, height int) []byte {
	out := append([]byte{}, data...)
	for i := 2; i+9 < len(out); {
		if out[i] != 0xFF {
			break
		}
		marker := out[i+1]
		if marker == 0xC0 {
			binary.BigEndian.PutUint16(out[i+5:], uint16(height))
			binary.BigEndian.PutUint16(out[i+7:], uint16(width))
			return out
		}
		i += 2 + int(binary.BigEndian.Uint16(out[i+2:]))
	}
	panic("imagetest: no baseline frame header")
}

func exifSegment(dateTime string) []byte {
	payload := append([]byte("Exif\x00\x00"), tiffBlock(dateTime)...)
	return app1(payload)
}

func tiffBlock(dateTime string) []byte {
	le := binary.LittleEndian
	entries := 1
	if dateTime != "" {
		entries = 2
	}
	valueOffset := uint32(8 + 2 + 12*entries + 4)

	var tiff bytes.Buffer
	tiff.WriteString("II")
	binary.Write(&tiff, le, uint16(42))
	binary.Write(&tiff, le, uint32(8))

	binary.Write(&tiff, le, uint16(entries))
	// Orientation: SHORT, count 1, value 1 stored inline.
	binary.Write(&tiff, le, uint16(tagOrientation))
	binary.Write(&tiff, le, uint16(typeShort))
	binary.Write(&tiff, le, uint32(1))
	binary.Write(&tiff, le, uint16(1))
	binary.Write(&tiff, le, uint16(0))
	if dateTime != "" {
		binary.Write(&tiff, le, uint16(tagDateTime))
		binary.Write(&tiff, le, uint16(typeASCII))
		binary.Write(&tiff, le, uint32(len(dateTime)+1))
		binary.Write(&tiff, le, valueOffset)
	}
	binary.Write(&tiff, le, uint32(0)) // no next IFD
	if dateTime != "" {
		tiff.WriteString(dateTime)
		tiff.WriteByte(0)
	}

	return tiff.Bytes()
}

func app1(payload []byte) []byte {
	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	return append(seg, payload...)
}
