// Package imaging validates and normalizes uploaded pictures before they
// reach the blob store.
package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
	"net/http"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	// Registered decoder for image.Decode, jpeg comes with the direct import.
	_ "image/png"
)

// MaxDimension is the maximum width or height for stored images.
const MaxDimension = 1024

// JPEGQuality is the compression quality for JPEG output.
const JPEGQuality = 85

// AllowedMIME lists the accepted input MIME types.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Process validates the format by sniffing bytes, downscales if larger than
// MaxDimension and re-encodes as JPEG. It returns the normalized data.
func Process(data []byte) ([]byte, error) {
	// Sniff the actual MIME type, client headers are not trusted.
	detected := http.DetectContentType(data)
	if !AllowedMIME[detected] {
		return nil, errors.Errorf("unsupported image format: %s", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "could not decode image")
	}

	img = downscale(img, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, errors.Wrap(err, "could not encode image")
	}
	return buf.Bytes(), nil
}

// downscale resizes the image so neither dimension exceeds max.
// It returns the original image if already within bounds.
func downscale(img image.Image, max int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if w <= max && h <= max {
		return img
	}

	if w > h {
		h = h * max / w
		w = max
	} else {
		w = w * max / h
		h = max
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
