// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package describe

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// jpegQuality matches the default quality of common imaging libraries.
const jpegQuality = 75

// EncodeJPEG encodes img as JPEG. When maxSide is positive and the longer
// side of img exceeds it, the image is first scaled down to fit, keeping
// its aspect ratio.
func EncodeJPEG(img image.Image, maxSide int) ([]byte, error) {
	img = fit(img, maxSide)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fit(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	long := max(w, h)
	if maxSide <= 0 || long <= maxSide {
		return img
	}
	nw := max(1, w*maxSide/long)
	nh := max(1, h*maxSide/long)
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// dataURL returns jpeg as a data URL.
func dataURL(jpeg []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
}
