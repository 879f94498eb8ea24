// Package imaging normalizes uploaded item photos for the catalog.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// MaxEdge bounds the longer side of a stored catalog photo.
const MaxEdge = 800

// MaxUploadBytes is the largest upload accepted before decoding.
const MaxUploadBytes = 8 << 20

// Quality is the JPEG quality of stored photos.
const Quality = 82

var (
	// ErrUnsupportedFormat is returned for anything but JPEG and PNG.
	ErrUnsupportedFormat = errors.New("unsupported photo format")
	// ErrTooLarge is returned for uploads over MaxUploadBytes.
	ErrTooLarge = errors.New("photo too large")
)

var accepted = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Photo is a normalized item photo.
type Photo struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// NormalizePhoto reads an uploaded photo, checks its real content type,
// flattens transparency onto white, fits it within MaxEdge and re-encodes
// it as JPEG.
func NormalizePhoto(r io.Reader) (*Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	if kind := http.DetectContentType(data); !accepted[kind] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, kind)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding photo: %w", err)
	}

	w, h := fit(src.Bounds().Dx(), src.Bounds().Dy(), MaxEdge)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == src.Bounds().Dx() && h == src.Bounds().Dy() {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("encoding photo: %w", err)
	}
	return &Photo{Data: buf.Bytes(), MIME: "image/jpeg", Width: w, Height: h}, nil
}

// fit scales w x h down so neither side exceeds edge, keeping the aspect
// ratio. Sizes already within bounds are returned unchanged.
func fit(w, h, edge int) (int, int) {
	if w <= edge && h <= edge {
		return w, h
	}
	if w >= h {
		return edge, max(1, h*edge/w)
	}
	return max(1, w*edge/h), edge
}
