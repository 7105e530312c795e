package store

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// NormalizePNG returns data as PNG. Already-PNG input is returned as is;
// other decodable formats are re-encoded. Undecodable input is returned unchanged.
func NormalizePNG(data []byte) []byte {
	if bytes.HasPrefix(data, pngSignature) {
		return data
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil || buf.Len() == 0 {
		return data
	}
	return buf.Bytes()
}
