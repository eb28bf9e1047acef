// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/tiff"
)

// Enhancement parameters for scanned contract pages.
const (
	contrastBoost = 50  // percent; roughly doubles contrast
	sharpenSigma  = 1.0 // unsharp radius
	denoiseSigma  = 0.5 // light gaussian blur
	minOCRWidth   = 1600
	maxUpscale    = 3
)

// Enhance prepares a page image for OCR: small scans are upscaled, then
// the image is converted to grayscale, contrast is raised, edges are
// sharpened, and a light blur removes speckle noise.
func Enhance(img image.Image) image.Image {
	w := img.Bounds().Dx()
	if w > 0 && w < minOCRWidth {
		scale := (minOCRWidth + w - 1) / w
		if scale > maxUpscale {
			scale = maxUpscale
		}
		img = imaging.Resize(img, w*scale, 0, imaging.Lanczos)
	}

	out := imaging.Grayscale(img)
	out = imaging.AdjustContrast(out, contrastBoost)
	out = imaging.Sharpen(out, sharpenSigma)
	return imaging.Blur(out, denoiseSigma)
}

// Decode reads an encoded page image (PNG, JPEG, or TIFF).
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding page image: %w", err)
	}
	return img, nil
}

// EncodePNG encodes img as PNG, the format every engine accepts on stdin.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// Prepare decodes, enhances, and re-encodes a page image for recognition.
func Prepare(data []byte) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return EncodePNG(Enhance(img))
}
