package image

import (
	"bytes"
	"encoding/binary"
)

var (
	pngSignature  = []byte("\x89PNG\r\n\x1a\n")
	exifHeader    = []byte("Exif\x00\x00")
	tiffLittleEnd = []byte("II*\x00")
	tiffBigEndian = []byte("MM\x00*")
)

// ExifBlock locates the EXIF metadata of a JPEG, PNG (eXIf chunk) or WebP
// (EXIF chunk) photo and returns it in a form exif.Decode reads. JPEG and raw
// TIFF input is returned unchanged. ok is false when the container has none.
func ExifBlock(data []byte) (block []byte, ok bool) {
	switch {
	case bytes.HasPrefix(data, pngSignature):
		block, ok = pngChunk(data, "eXIf")
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		block, ok = webpChunk(data, "EXIF")
	case bytes.HasPrefix(data, tiffLittleEnd), bytes.HasPrefix(data, tiffBigEndian):
		return data, true
	default:
		return data, bytes.Contains(data, exifHeader)
	}
	if !ok {
		return nil, false
	}
	return bytes.TrimPrefix(block, exifHeader), len(block) > 0
}

func pngChunk(data []byte, name string) ([]byte, bool) {
	off := len(pngSignature)
	for off+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[off:]))
		typ := string(data[off+4 : off+8])
		start := off + 8
		if length < 0 || length > len(data)-start {
			return nil, false
		}
		if typ == name {
			return data[start : start+length], true
		}
		if typ == "IEND" {
			break
		}
		off = start + length + 4 // CRC
	}
	return nil, false
}

func webpChunk(data []byte, name string) ([]byte, bool) {
	off := 12
	for off+8 <= len(data) {
		size := int(binary.LittleEndian.Uint32(data[off+4:]))
		typ := string(data[off : off+4])
		start := off + 8
		if size < 0 || size > len(data)-start {
			return nil, false
		}
		if typ == name {
			return data[start : start+size], true
		}
		off = start + size + size&1
	}
	return nil, false
}
