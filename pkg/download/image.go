package download

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/chai2010/webp"
	"github.com/pkg/errors"
)

// Format selects how a downloaded payload is written out. Original
// streams the bytes untouched; the others decode the payload as an
// image and re-encode it.
type Format int

const (
	Original Format = iota
	WEBP
	PNG
	JPEG
)

func (f Format) String() string {
	switch f {
	case Original:
		return "original"
	case WEBP:
		return "webp"
	case PNG:
		return "png"
	case JPEG:
		return "jpeg"
	default:
		return "unknown"
	}
}

// Ext returns the file extension for the format, or "" for Original
// (the source extension is kept).
func (f Format) Ext() string {
	switch f {
	case WEBP:
		return ".webp"
	case PNG:
		return ".png"
	case JPEG:
		return ".jpg"
	default:
		return ""
	}
}

func reencode(data []byte, f Format) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch f {
	case WEBP:
		err = webp.Encode(&buf, img, &webp.Options{Quality: 90})
	case PNG:
		err = png.Encode(&buf, img)
	case JPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	default:
		err = errors.Errorf("cannot re-encode to %s", f)
	}
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
