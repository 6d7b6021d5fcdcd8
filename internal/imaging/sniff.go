package imaging

import (
	"bytes"
	"errors"
)

// Format names a raster format the pipeline can decode.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatWEBP Format = "webp"
)

var ErrUnknownFormat = errors.New("unknown image format")

// SniffFormat inspects the leading bytes of a source image. It rejects
// anything the compositor cannot decode before the full image is read,
// so an HTML error page served with a 200 fails fast.
func SniffFormat(head []byte) (Format, error) {
	switch {
	case isJPEG(head):
		return FormatJPEG, nil
	case isPNG(head):
		return FormatPNG, nil
	case isGIF(head):
		return FormatGIF, nil
	case isWEBP(head):
		return FormatWEBP, nil
	}
	return "", ErrUnknownFormat
}

func isJPEG(head []byte) bool {
	return len(head) > 3 &&
		head[0] == 0xff &&
		head[1] == 0xd8 &&
		head[2] == 0xff
}

func isPNG(head []byte) bool {
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return len(head) >= len(pngMagic) && bytes.Equal(head[:len(pngMagic)], pngMagic)
}

func isGIF(head []byte) bool {
	return len(head) >= 6 && (bytes.Equal(head[:6], []byte("GIF87a")) || bytes.Equal(head[:6], []byte("GIF89a")))
}

func isWEBP(head []byte) bool {
	return len(head) >= 12 &&
		bytes.Equal(head[:4], []byte("RIFF")) &&
		bytes.Equal(head[8:12], []byte("WEBP"))
}
