// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdfextract/internal/raster"
	"github.com/pdiddy/pdfextract/pkg/types"
)

type fakeRasterizer struct {
	pages   int
	err     error
	gotDPI  int
	gotPath string
}

func (f *fakeRasterizer) Name() string { return "fake" }

func (f *fakeRasterizer) Rasterize(ctx context.Context, pdfPath string, dpi int, fn raster.PageFunc) error {
	f.gotDPI, f.gotPath = dpi, pdfPath
	if f.err != nil {
		return f.err
	}
	for i := 1; i <= f.pages; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		// The width identifies the page.
		page := raster.Page{Number: i, Total: f.pages, Image: image.NewGray(image.Rect(0, 0, i, 2))}
		if err := fn(page); err != nil {
			return err
		}
	}
	return nil
}

// fakeEngine returns "text of page N" where N is the image width.
type fakeEngine struct {
	failOn int
	calls  int
}

func (f *fakeEngine) Recognize(_ context.Context, data []byte) (string, error) {
	f.calls++
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	n := img.Bounds().Dx()
	if n == f.failOn {
		return "", errors.New("tesseract crashed")
	}
	return fmt.Sprintf("化学史 page %d\n", n), nil
}

func (f *fakeEngine) Close() error { return nil }

func TestPages(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ocr_output")
	r := &fakeRasterizer{pages: 3}
	var out bytes.Buffer

	results, err := Pages(context.Background(), r, &fakeEngine{}, "book.pdf", types.OCRConfig{OutputDir: dir, SaveImages: true}, &out)
	require.NoError(t, err)

	assert.Equal(t, DefaultDPI, r.gotDPI)
	assert.Equal(t, "book.pdf", r.gotPath)

	require.Len(t, results, 3)
	for i, rec := range results {
		n := i + 1
		assert.Equal(t, n, rec.Page)
		assert.Equal(t, filepath.Join(dir, fmt.Sprintf("page_%d.png", n)), rec.ImagePath)
		assert.Equal(t, filepath.Join(dir, fmt.Sprintf("page_%d.txt", n)), rec.TextPath)

		text, err := os.ReadFile(rec.TextPath)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("化学史 page %d\n", n), string(text))
		assert.FileExists(t, rec.ImagePath)
	}

	full, err := os.ReadFile(filepath.Join(dir, FullTextFile))
	require.NoError(t, err)
	want := "\n\n--- Page 1 ---\n化学史 page 1\n" +
		"\n\n--- Page 2 ---\n化学史 page 2\n" +
		"\n\n--- Page 3 ---\n化学史 page 3\n"
	assert.Equal(t, want, string(full))

	assert.Contains(t, out.String(), "OCR on page 1...")
	assert.Contains(t, out.String(), "OCR on page 3...")
	assert.Contains(t, out.String(), "complete")
}

func TestPagesWithoutImages(t *testing.T) {
	dir := t.TempDir()
	results, err := Pages(context.Background(), &fakeRasterizer{pages: 1}, &fakeEngine{}, "a.pdf",
		types.OCRConfig{OutputDir: dir, DPI: 150}, &bytes.Buffer{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].ImagePath)
	assert.NoFileExists(t, filepath.Join(dir, "page_1.png"))
	assert.FileExists(t, filepath.Join(dir, "page_1.txt"))
}

func TestPagesErrors(t *testing.T) {
	t.Run("rasterizer failure", func(t *testing.T) {
		_, err := Pages(context.Background(), &fakeRasterizer{err: errors.New("pdftoppm missing")}, &fakeEngine{}, "a.pdf",
			types.OCRConfig{OutputDir: t.TempDir()}, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pdftoppm missing")
	})

	t.Run("engine failure stops at the page", func(t *testing.T) {
		dir := t.TempDir()
		eng := &fakeEngine{failOn: 2}
		results, err := Pages(context.Background(), &fakeRasterizer{pages: 3}, eng, "a.pdf",
			types.OCRConfig{OutputDir: dir}, &bytes.Buffer{})
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "page 2"))
		assert.Len(t, results, 1)
		assert.Equal(t, 2, eng.calls)
		assert.NoFileExists(t, filepath.Join(dir, FullTextFile))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Pages(ctx, &fakeRasterizer{pages: 2}, &fakeEngine{}, "a.pdf",
			types.OCRConfig{OutputDir: t.TempDir()}, &bytes.Buffer{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestOptions(t *testing.T) {
	o := &options{language: DefaultLanguage}
	WithLanguage("")(o)
	assert.Equal(t, "chi_sim", o.language)
	WithLanguage("eng+chi_sim")(o)
	assert.Equal(t, "eng+chi_sim", o.language)

	WithPageSegMode(6)(o)
	assert.Equal(t, 6, o.pageSegMode)
	WithPageSegMode(14)(o)
	assert.Equal(t, 6, o.pageSegMode)
	WithPageSegMode(0)(o)
	assert.Equal(t, 6, o.pageSegMode)
}

func TestBlankPNG(t *testing.T) {
	data, err := blankPNG()
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1, 1), img.Bounds())
}

func TestNewTesseractMissingLanguage(t *testing.T) {
	eng, err := NewTesseract(WithLanguage("zz_missing"))
	if eng != nil {
		eng.Close()
	}
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zz_missing")
}
