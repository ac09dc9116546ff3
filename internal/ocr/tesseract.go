// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "chi_sim"

type options struct {
	language    string
	pageSegMode int
}

// Option configures a Tesseract engine.
type Option func(*options)

// WithLanguage sets the Tesseract language(s), e.g. "chi_sim" or
// "eng+chi_sim". Empty keeps the default.
func WithLanguage(lang string) Option {
	return func(o *options) {
		if lang != "" {
			o.language = lang
		}
	}
}

// WithPageSegMode sets the Tesseract page segmentation mode. Values outside
// 1-13 keep Tesseract's default (3, fully automatic).
func WithPageSegMode(mode int) Option {
	return func(o *options) {
		if mode < 1 || mode > 13 {
			return
		}
		o.pageSegMode = mode
	}
}

// Tesseract recognizes text with a single gosseract client. It is not safe
// for concurrent use.
type Tesseract struct {
	client   *gosseract.Client
	language string
}

// NewTesseract creates an engine. gosseract loads the language data lazily,
// so the engine recognizes a blank one-pixel image before returning; a
// missing traineddata file fails here rather than after the document has
// been rasterized.
func NewTesseract(opts ...Option) (*Tesseract, error) {
	o := &options{language: DefaultLanguage}
	for _, opt := range opts {
		opt(o)
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(o.language); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting OCR language %q: %w", o.language, err)
	}
	if o.pageSegMode > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(o.pageSegMode)); err != nil {
			client.Close()
			return nil, fmt.Errorf("setting page segmentation mode %d: %w", o.pageSegMode, err)
		}
	}
	if err := warmUp(client); err != nil {
		client.Close()
		return nil, fmt.Errorf("loading OCR language %q: %w", o.language, err)
	}
	return &Tesseract{client: client, language: o.language}, nil
}

// warmUp forces the client to initialize with its configured languages.
func warmUp(client *gosseract.Client) error {
	blank, err := blankPNG()
	if err != nil {
		return err
	}
	if err := client.SetImageFromBytes(blank); err != nil {
		return err
	}
	_, err = client.Text()
	return err
}

// blankPNG returns a 1x1 white PNG.
func blankPNG() ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	img.SetGray(0, 0, color.Gray{Y: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Recognize implements Engine.
func (t *Tesseract) Recognize(ctx context.Context, png []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := t.client.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("loading page image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognizing %s text: %w", t.language, err)
	}
	return text, nil
}

// Close implements Engine.
func (t *Tesseract) Close() error {
	if t.client == nil {
		return nil
	}
	return t.client.Close()
}
